package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/edlume/authtrail/internal/config"
	"github.com/edlume/authtrail/internal/models"
	pkglogger "github.com/edlume/authtrail/pkg/logger"
)

// ClassifierStore is the slice of the attempt store the classifier reads.
type ClassifierStore interface {
	CountFailures(ctx context.Context, email string, since time.Time) (int, error)
	MostRecentAttempt(ctx context.Context, email string, since time.Time) (*models.LoginAttempt, error)
}

// Classifier decides which suspicion tags apply to a failed attempt before it
// is persisted. It runs synchronously on the write path, so every historical
// query failure is swallowed (fail open): a store outage must never block the
// recording of an attempt, it only costs the tag.
type Classifier struct {
	store  ClassifierStore
	config config.ClassifierConfig
	logger *slog.Logger
}

// NewClassifier creates a new Classifier
func NewClassifier(store ClassifierStore, cfg config.ClassifierConfig, logger *slog.Logger) *Classifier {
	return &Classifier{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// Classify returns the suspicion tags for a candidate attempt that has not
// been persisted yet. Only failed attempts are ever classified; successful
// attempts always come back untagged.
func (c *Classifier) Classify(ctx context.Context, attempt *models.LoginAttempt) []models.SuspiciousReason {
	if attempt.Success {
		return nil
	}

	var reasons []models.SuspiciousReason

	if c.hasRepeatedFailures(ctx, attempt) {
		reasons = append(reasons, models.ReasonMultipleFailedAttempts)
	}
	if c.isRapidRetry(ctx, attempt) {
		reasons = append(reasons, models.ReasonRapidAttempts)
	}

	return reasons
}

// hasRepeatedFailures counts prior failures for the email inside the failure
// window. The candidate itself counts as one more, so the threshold trips at
// threshold-1 prior failures.
func (c *Classifier) hasRepeatedFailures(ctx context.Context, attempt *models.LoginAttempt) bool {
	since := attempt.AttemptedAt.Add(-c.config.FailureWindow)

	priorFailures, err := c.store.CountFailures(ctx, attempt.Email, since)
	if err != nil {
		c.logger.Error("classification query failed, attempt will persist unflagged",
			slog.String("rule", "multiple_failed_attempts"),
			slog.String("email", pkglogger.SanitizedEmail(attempt.Email)),
			slog.Any("error", err))
		return false
	}

	return priorFailures+1 >= c.config.FailureThreshold
}

// isRapidRetry checks whether the most recent prior attempt for the email
// landed within the rapid gap of the candidate.
func (c *Classifier) isRapidRetry(ctx context.Context, attempt *models.LoginAttempt) bool {
	since := attempt.AttemptedAt.Add(-c.config.RapidWindow)

	previous, err := c.store.MostRecentAttempt(ctx, attempt.Email, since)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false
		}
		c.logger.Error("classification query failed, attempt will persist unflagged",
			slog.String("rule", "rapid_attempts"),
			slog.String("email", pkglogger.SanitizedEmail(attempt.Email)),
			slog.Any("error", err))
		return false
	}

	gap := attempt.AttemptedAt.Sub(previous.AttemptedAt)
	return gap >= 0 && gap < c.config.RapidGap
}
