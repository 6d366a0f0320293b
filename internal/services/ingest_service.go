package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edlume/authtrail/internal/models"
	pkglogger "github.com/edlume/authtrail/pkg/logger"
	"github.com/google/uuid"
)

// IngestStore is the slice of the attempt store the ingestion service writes.
type IngestStore interface {
	Record(ctx context.Context, attempt *models.LoginAttempt) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.LoginAttempt, error)
	AddSuspicionReasons(ctx context.Context, id uuid.UUID, reasons []models.SuspiciousReason) (*models.LoginAttempt, error)
	SetSessionDuration(ctx context.Context, id uuid.UUID, duration time.Duration) (*models.LoginAttempt, error)
}

// AttemptClassifier computes suspicion tags for a not-yet-persisted attempt.
type AttemptClassifier interface {
	Classify(ctx context.Context, attempt *models.LoginAttempt) []models.SuspiciousReason
}

// SuspicionNotifier is told about attempts that were flagged at write time.
type SuspicionNotifier interface {
	NotifySuspicious(attempt *models.LoginAttempt)
}

// SubmitInput carries one attempt outcome from the authentication flow.
type SubmitInput struct {
	Email         string
	Success       bool
	FailureReason *models.FailureReason
	IPAddress     string
	UserAgent     string
	LoginMethod   models.LoginMethod
	Location      *models.Location
	DeviceInfo    *models.DeviceInfo
	Metadata      models.AttemptMetadata
	UserID        *uuid.UUID
	AttemptedAt   time.Time // zero means now
}

// IngestService is the single write path for login attempts: it validates,
// normalizes, classifies and persists each outcome handed over by the
// authentication flow.
type IngestService struct {
	store      IngestStore
	classifier AttemptClassifier
	notifier   SuspicionNotifier
	logger     *slog.Logger
}

// NewIngestService creates a new IngestService. The notifier may be nil.
func NewIngestService(store IngestStore, classifier AttemptClassifier, notifier SuspicionNotifier, logger *slog.Logger) *IngestService {
	return &IngestService{
		store:      store,
		classifier: classifier,
		notifier:   notifier,
		logger:     logger,
	}
}

// Submit records one authentication outcome and returns the new attempt id.
// Failed attempts are classified before persistence; classification failures
// never block the write, but a store that cannot persist the record is a hard
// error surfaced to the caller.
func (s *IngestService) Submit(ctx context.Context, input SubmitInput) (uuid.UUID, error) {
	if err := validateSubmit(&input); err != nil {
		return uuid.Nil, err
	}

	attemptedAt := input.AttemptedAt
	if attemptedAt.IsZero() {
		attemptedAt = time.Now().UTC()
	}

	method := input.LoginMethod
	if method == "" {
		method = models.MethodEmailPassword
	}

	attempt := &models.LoginAttempt{
		UserID:        input.UserID,
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		Success:       input.Success,
		FailureReason: input.FailureReason,
		IPAddress:     input.IPAddress,
		UserAgent:     input.UserAgent,
		LoginMethod:   method,
		Location:      input.Location,
		DeviceInfo:    input.DeviceInfo,
		Metadata:      input.Metadata,
		AttemptedAt:   attemptedAt,
	}

	// Successful attempts are never auto-flagged; only the manual reflag
	// path can touch them later.
	if !attempt.Success {
		reasons := s.classifier.Classify(ctx, attempt)
		if len(reasons) > 0 {
			attempt.IsSuspicious = true
			attempt.SuspiciousReasons = reasons
		}
	}

	id, err := s.store.Record(ctx, attempt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	attempt.ID = id

	s.logAttempt(ctx, attempt)

	if attempt.IsSuspicious && s.notifier != nil {
		s.notifier.NotifySuspicious(attempt)
	}

	return id, nil
}

// Reflag unions the given reasons into an existing attempt's suspicion set
// and marks it suspicious. Applying the same set twice is a no-op.
func (s *IngestService) Reflag(ctx context.Context, id uuid.UUID, reasons []models.SuspiciousReason) (*models.LoginAttempt, error) {
	if len(reasons) == 0 {
		return nil, fmt.Errorf("%w: at least one suspicious reason is required", models.ErrValidation)
	}
	for _, reason := range reasons {
		if !reason.Valid() {
			return nil, fmt.Errorf("%w: unknown suspicious reason %q", models.ErrValidation, reason)
		}
	}

	attempt, err := s.store.AddSuspicionReasons(ctx, id, reasons)
	if err != nil {
		return nil, fmt.Errorf("failed to reflag attempt: %w", err)
	}

	s.logger.InfoContext(ctx, "attempt reflagged",
		slog.String("attempt_id", id.String()),
		slog.Any("reasons", reasons))

	return attempt, nil
}

// CloseSession stamps the session duration on a successful attempt when the
// session it opened ends. Failed attempts never had a session, so the record
// comes back unchanged.
func (s *IngestService) CloseSession(ctx context.Context, id uuid.UUID) (*models.LoginAttempt, error) {
	attempt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}

	if !attempt.Success {
		return attempt, nil
	}

	duration := time.Since(attempt.AttemptedAt)
	updated, err := s.store.SetSessionDuration(ctx, id, duration)
	if err != nil {
		return nil, fmt.Errorf("failed to close session: %w", err)
	}

	return updated, nil
}

// logAttempt dual-writes the recorded outcome to the structured log so
// operators can follow the stream without querying the store.
func (s *IngestService) logAttempt(ctx context.Context, attempt *models.LoginAttempt) {
	attrs := []slog.Attr{
		slog.String("attempt_id", attempt.ID.String()),
		slog.String("email", pkglogger.SanitizedEmail(attempt.Email)),
		slog.String("ip_address", attempt.IPAddress),
		slog.String("login_method", string(attempt.LoginMethod)),
		slog.Bool("success", attempt.Success),
	}
	if attempt.FailureReason != nil {
		attrs = append(attrs, slog.String("failure_reason", string(*attempt.FailureReason)))
	}
	if attempt.IsSuspicious {
		attrs = append(attrs, slog.Any("suspicious_reasons", attempt.SuspiciousReasons))
	}

	level := slog.LevelInfo
	if !attempt.Success || attempt.IsSuspicious {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(ctx, level, "login attempt recorded", attrs...)
}

func validateSubmit(input *SubmitInput) error {
	if strings.TrimSpace(input.Email) == "" {
		return fmt.Errorf("%w: email is required", models.ErrValidation)
	}
	if input.IPAddress == "" {
		return fmt.Errorf("%w: ip_address is required", models.ErrValidation)
	}
	if input.UserAgent == "" {
		return fmt.Errorf("%w: user_agent is required", models.ErrValidation)
	}
	if input.Success && input.FailureReason != nil {
		return fmt.Errorf("%w: failure_reason must be absent on a successful attempt", models.ErrValidation)
	}
	if !input.Success {
		if input.FailureReason == nil {
			return fmt.Errorf("%w: failure_reason is required on a failed attempt", models.ErrValidation)
		}
		if !input.FailureReason.Valid() {
			return fmt.Errorf("%w: unknown failure_reason %q", models.ErrValidation, *input.FailureReason)
		}
	}
	if input.LoginMethod != "" && !input.LoginMethod.Valid() {
		return fmt.Errorf("%w: unknown login_method %q", models.ErrValidation, input.LoginMethod)
	}
	return nil
}
