package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/edlume/authtrail/internal/models"
	pkghttp "github.com/edlume/authtrail/pkg/http"
)

// AnalyticsServiceInterface defines the interface for the read-only surface
type AnalyticsServiceInterface interface {
	DailyStats(ctx context.Context, days int) ([]models.DailyStat, error)
	ListSuspicious(ctx context.Context, limit int) ([]*models.LoginAttempt, error)
	CountFailures(ctx context.Context, email string, window time.Duration) (int, error)
	ListByIP(ctx context.Context, ipAddress string, window time.Duration) ([]*models.LoginAttempt, error)
}

// AnalyticsHandler handles security analytics HTTP requests
type AnalyticsHandler struct {
	service AnalyticsServiceInterface
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(service AnalyticsServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Response DTOs

// AttemptResponse represents a login attempt in HTTP responses
type AttemptResponse struct {
	ID                string             `json:"id"`
	UserID            *string            `json:"user_id,omitempty"`
	Email             string             `json:"email"`
	Success           bool               `json:"success"`
	FailureReason     *string            `json:"failure_reason,omitempty"`
	IPAddress         string             `json:"ip_address"`
	UserAgent         string             `json:"user_agent"`
	LoginMethod       string             `json:"login_method"`
	Location          *models.Location   `json:"location,omitempty"`
	DeviceInfo        *models.DeviceInfo `json:"device_info,omitempty"`
	Metadata          map[string]string  `json:"metadata,omitempty"`
	AttemptedAt       time.Time          `json:"attempted_at"`
	IsSuspicious      bool               `json:"is_suspicious"`
	SuspiciousReasons []string           `json:"suspicious_reasons,omitempty"`
	SessionDurationMs *int64             `json:"session_duration_ms,omitempty"`
}

// DailyStatResponse is one calendar-day bucket of attempt counts
type DailyStatResponse struct {
	Date    string `json:"date"`
	Total   int    `json:"total"`
	Success int    `json:"success"`
	Failed  int    `json:"failed"`
}

// FailureCountResponse carries a windowed failure count for one email
type FailureCountResponse struct {
	Email         string `json:"email"`
	WindowMinutes int    `json:"window_minutes"`
	Failures      int    `json:"failures"`
}

// DailyStats returns per-day attempt counts
// GET /analytics/daily?days=30
func (h *AnalyticsHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	stats, err := h.service.DailyStats(r.Context(), days)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]DailyStatResponse, len(stats))
	for i, s := range stats {
		resp[i] = DailyStatResponse{
			Date:    s.Date.Format("2006-01-02"),
			Total:   s.Total,
			Success: s.Success,
			Failed:  s.Failed,
		}
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ListSuspicious returns the most recent flagged attempts
// GET /analytics/suspicious?limit=50
func (h *AnalyticsHandler) ListSuspicious(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	attempts, err := h.service.ListSuspicious(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toAttemptResponses(attempts))
}

// CountFailures returns the windowed failure count for an email
// GET /analytics/failures?email=x@y.com&window_minutes=60
func (h *AnalyticsHandler) CountFailures(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		pkghttp.WriteBadRequest(w, "email query parameter is required")
		return
	}
	windowMinutes := queryInt(r, "window_minutes", 60)

	count, err := h.service.CountFailures(r.Context(), email, time.Duration(windowMinutes)*time.Minute)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, FailureCountResponse{
		Email:         email,
		WindowMinutes: windowMinutes,
		Failures:      count,
	})
}

// ListByIP returns attempts from one IP address
// GET /analytics/by-ip?ip=1.2.3.4&window_minutes=60
func (h *AnalyticsHandler) ListByIP(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("ip")
	if ip == "" {
		pkghttp.WriteBadRequest(w, "ip query parameter is required")
		return
	}
	windowMinutes := queryInt(r, "window_minutes", 60)

	attempts, err := h.service.ListByIP(r.Context(), ip, time.Duration(windowMinutes)*time.Minute)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toAttemptResponses(attempts))
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

func toAttemptResponse(attempt *models.LoginAttempt) AttemptResponse {
	resp := AttemptResponse{
		ID:           attempt.ID.String(),
		Email:        attempt.Email,
		Success:      attempt.Success,
		IPAddress:    attempt.IPAddress,
		UserAgent:    attempt.UserAgent,
		LoginMethod:  string(attempt.LoginMethod),
		Location:     attempt.Location,
		DeviceInfo:   attempt.DeviceInfo,
		Metadata:     attempt.Metadata,
		AttemptedAt:  attempt.AttemptedAt,
		IsSuspicious: attempt.IsSuspicious,
	}

	if attempt.UserID != nil {
		userID := attempt.UserID.String()
		resp.UserID = &userID
	}
	if attempt.FailureReason != nil {
		reason := string(*attempt.FailureReason)
		resp.FailureReason = &reason
	}
	if len(attempt.SuspiciousReasons) > 0 {
		reasons := make([]string, len(attempt.SuspiciousReasons))
		for i, r := range attempt.SuspiciousReasons {
			reasons[i] = string(r)
		}
		resp.SuspiciousReasons = reasons
	}
	if attempt.SessionDuration != nil {
		ms := attempt.SessionDuration.Milliseconds()
		resp.SessionDurationMs = &ms
	}

	return resp
}

func toAttemptResponses(attempts []*models.LoginAttempt) []AttemptResponse {
	resp := make([]AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		resp[i] = toAttemptResponse(attempt)
	}
	return resp
}
