package models

import "github.com/golang-jwt/jwt/v5"

// Caller roles accepted by the API surface.
const (
	RoleService = "service"
	RoleAdmin   = "admin"
)

// TokenClaims are the JWT claims issued to API callers. The auth flow of the
// portal holds a service token; the admin dashboard holds an admin token.
type TokenClaims struct {
	Role    string `json:"role"`
	Subject string `json:"sub_name,omitempty"`
	jwt.RegisteredClaims
}
