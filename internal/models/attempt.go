package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FailureReason explains why an authentication attempt failed.
// It is present on a record if and only if the attempt failed.
type FailureReason string

const (
	FailureInvalidCredentials  FailureReason = "INVALID_CREDENTIALS"
	FailureUserNotFound        FailureReason = "USER_NOT_FOUND"
	FailureAccountLocked       FailureReason = "ACCOUNT_LOCKED"
	FailureEmailNotVerified    FailureReason = "EMAIL_NOT_VERIFIED"
	FailureWhatsAppNotVerified FailureReason = "WHATSAPP_NOT_VERIFIED"
	FailureNoStudentAccess     FailureReason = "NO_STUDENT_ACCESS"
	FailureInvalidToken        FailureReason = "INVALID_TOKEN"
	FailureTokenExpired        FailureReason = "TOKEN_EXPIRED"
	FailureRateLimited         FailureReason = "RATE_LIMITED"
	FailureValidationError     FailureReason = "VALIDATION_ERROR"
	FailureServerError         FailureReason = "SERVER_ERROR"
)

var failureReasons = map[FailureReason]bool{
	FailureInvalidCredentials:  true,
	FailureUserNotFound:        true,
	FailureAccountLocked:       true,
	FailureEmailNotVerified:    true,
	FailureWhatsAppNotVerified: true,
	FailureNoStudentAccess:     true,
	FailureInvalidToken:        true,
	FailureTokenExpired:        true,
	FailureRateLimited:         true,
	FailureValidationError:     true,
	FailureServerError:         true,
}

// Valid reports whether the value is part of the closed enumeration.
func (fr FailureReason) Valid() bool {
	return failureReasons[fr]
}

// LoginMethod identifies which authentication path produced the attempt.
type LoginMethod string

const (
	MethodEmailPassword LoginMethod = "EMAIL_PASSWORD"
	MethodTokenRefresh  LoginMethod = "TOKEN_REFRESH"
	MethodAdminLogin    LoginMethod = "ADMIN_LOGIN"
)

// Valid reports whether the value is part of the closed enumeration.
func (lm LoginMethod) Valid() bool {
	switch lm {
	case MethodEmailPassword, MethodTokenRefresh, MethodAdminLogin:
		return true
	}
	return false
}

// SuspiciousReason labels a heuristic that matched an attempt.
// ReasonUnusualLocation, ReasonUnusualDevice and ReasonBruteForcePattern are
// reserved: no automatic rule produces them, only the manual reflag path may.
type SuspiciousReason string

const (
	ReasonMultipleFailedAttempts SuspiciousReason = "MULTIPLE_FAILED_ATTEMPTS"
	ReasonUnusualLocation        SuspiciousReason = "UNUSUAL_LOCATION"
	ReasonUnusualDevice          SuspiciousReason = "UNUSUAL_DEVICE"
	ReasonRapidAttempts          SuspiciousReason = "RAPID_ATTEMPTS"
	ReasonBruteForcePattern      SuspiciousReason = "BRUTE_FORCE_PATTERN"
)

// Valid reports whether the value is part of the closed enumeration.
func (sr SuspiciousReason) Valid() bool {
	switch sr {
	case ReasonMultipleFailedAttempts, ReasonUnusualLocation, ReasonUnusualDevice,
		ReasonRapidAttempts, ReasonBruteForcePattern:
		return true
	}
	return false
}

// Location is best-effort geo enrichment captured with an attempt.
type Location struct {
	Country  string `json:"country,omitempty"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// DeviceInfo is best-effort user-agent enrichment captured with an attempt.
type DeviceInfo struct {
	Browser  string `json:"browser,omitempty"`
	OS       string `json:"os,omitempty"`
	Device   string `json:"device,omitempty"`
	IsMobile bool   `json:"is_mobile,omitempty"`
}

// AttemptMetadata is an optional string-keyed extension point stored as JSONB.
type AttemptMetadata map[string]string

// Scan implements sql.Scanner for JSONB
func (am *AttemptMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]string
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*am = AttemptMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am AttemptMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return json.Marshal(am)
}

// LoginAttempt represents a single recorded authentication attempt.
// Records are immutable after creation aside from the suspicion fields
// (classifier at creation, or manual reflag) and SessionDuration.
type LoginAttempt struct {
	ID                uuid.UUID          `db:"id"`
	UserID            *uuid.UUID         `db:"user_id"`
	Email             string             `db:"email"`
	Success           bool               `db:"success"`
	FailureReason     *FailureReason     `db:"failure_reason"`
	IPAddress         string             `db:"ip_address"`
	UserAgent         string             `db:"user_agent"`
	LoginMethod       LoginMethod        `db:"login_method"`
	Location          *Location          `db:"location"`
	DeviceInfo        *DeviceInfo        `db:"device_info"`
	Metadata          AttemptMetadata    `db:"metadata"`
	AttemptedAt       time.Time          `db:"attempted_at"`
	IsSuspicious      bool               `db:"is_suspicious"`
	SuspiciousReasons []SuspiciousReason `db:"suspicious_reasons"`
	SessionDuration   *time.Duration     `db:"session_duration"`
}

// DailyStat is one calendar-day (UTC) bucket of attempt counts.
type DailyStat struct {
	Date    time.Time `db:"day"`
	Total   int       `db:"total"`
	Success int       `db:"success"`
	Failed  int       `db:"failed"`
}
