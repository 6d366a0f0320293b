package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/edlume/authtrail/internal/models"
	"github.com/edlume/authtrail/internal/services"
	pkghttp "github.com/edlume/authtrail/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// IngestServiceInterface defines the interface for the attempt write path
type IngestServiceInterface interface {
	Submit(ctx context.Context, input services.SubmitInput) (uuid.UUID, error)
	Reflag(ctx context.Context, id uuid.UUID, reasons []models.SuspiciousReason) (*models.LoginAttempt, error)
	CloseSession(ctx context.Context, id uuid.UUID) (*models.LoginAttempt, error)
}

// AttemptHandler handles attempt ingestion HTTP requests
type AttemptHandler struct {
	service IngestServiceInterface
}

// NewAttemptHandler creates a new AttemptHandler
func NewAttemptHandler(service IngestServiceInterface) *AttemptHandler {
	return &AttemptHandler{service: service}
}

// Request DTOs

// SubmitAttemptRequest represents the request body for recording an attempt
type SubmitAttemptRequest struct {
	Email         string             `json:"email" validate:"required,email"`
	Success       bool               `json:"success"`
	FailureReason *string            `json:"failure_reason,omitempty"`
	IPAddress     string             `json:"ip_address" validate:"required,ip"`
	UserAgent     string             `json:"user_agent" validate:"required"`
	LoginMethod   string             `json:"login_method,omitempty" validate:"omitempty,oneof=EMAIL_PASSWORD TOKEN_REFRESH ADMIN_LOGIN"`
	Location      *models.Location   `json:"location,omitempty"`
	DeviceInfo    *models.DeviceInfo `json:"device_info,omitempty"`
	Metadata      map[string]string  `json:"metadata,omitempty"`
	UserID        *string            `json:"user_id,omitempty"`
	AttemptedAt   *time.Time         `json:"attempted_at,omitempty"`
}

// ReflagRequest represents the request body for manually flagging an attempt
type ReflagRequest struct {
	Reasons []string `json:"reasons" validate:"required,min=1"`
}

// SubmitAttemptResponse carries the id of the newly recorded attempt
type SubmitAttemptResponse struct {
	ID string `json:"id"`
}

// Submit records one authentication outcome
func (h *AttemptHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitAttemptRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	input := services.SubmitInput{
		Email:      req.Email,
		Success:    req.Success,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		Location:   req.Location,
		DeviceInfo: req.DeviceInfo,
		Metadata:   req.Metadata,
	}

	if req.FailureReason != nil {
		reason := models.FailureReason(*req.FailureReason)
		input.FailureReason = &reason
	}
	if req.LoginMethod != "" {
		input.LoginMethod = models.LoginMethod(req.LoginMethod)
	}
	if req.AttemptedAt != nil {
		input.AttemptedAt = *req.AttemptedAt
	}
	if req.UserID != nil {
		userID, err := uuid.Parse(*req.UserID)
		if err != nil {
			pkghttp.WriteBadRequest(w, "invalid user_id")
			return
		}
		input.UserID = &userID
	}

	id, err := h.service.Submit(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, SubmitAttemptResponse{ID: id.String()})
}

// Reflag manually adds suspicion reasons to an existing attempt
func (h *AttemptHandler) Reflag(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid attempt id")
		return
	}

	var req ReflagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	reasons := make([]models.SuspiciousReason, len(req.Reasons))
	for i, reason := range req.Reasons {
		reasons[i] = models.SuspiciousReason(reason)
	}

	attempt, err := h.service.Reflag(r.Context(), id, reasons)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toAttemptResponse(attempt))
}

// CloseSession records the session duration for a successful attempt
func (h *AttemptHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid attempt id")
		return
	}

	attempt, err := h.service.CloseSession(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toAttemptResponse(attempt))
}

// writeServiceError maps service errors onto HTTP status codes
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "attempt not found")
	case errors.Is(err, models.ErrStoreUnavailable):
		pkghttp.WriteServiceUnavailable(w, "attempt store unavailable")
	default:
		pkghttp.WriteInternalError(w, "internal server error")
	}
}
