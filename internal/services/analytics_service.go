package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edlume/authtrail/internal/models"
)

// AnalyticsStore is the read-only slice of the attempt store the analytics
// surface exposes.
type AnalyticsStore interface {
	CountFailures(ctx context.Context, email string, since time.Time) (int, error)
	ListSuspicious(ctx context.Context, limit int) ([]*models.LoginAttempt, error)
	ListByIP(ctx context.Context, ipAddress string, since time.Time) ([]*models.LoginAttempt, error)
	DailyStats(ctx context.Context, days int) ([]models.DailyStat, error)
}

// AnalyticsService is a thin read-only facade over the attempt store for the
// admin dashboard. It clamps caller-supplied bounds and adds nothing else.
type AnalyticsService struct {
	store AnalyticsStore
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// DailyStats returns per-day attempt counts for the trailing days (max 365).
func (s *AnalyticsService) DailyStats(ctx context.Context, days int) ([]models.DailyStat, error) {
	if days <= 0 || days > 365 {
		days = 30
	}

	stats, err := s.store.DailyStats(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	return stats, nil
}

// ListSuspicious returns the most recent flagged attempts.
func (s *AnalyticsService) ListSuspicious(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	attempts, err := s.store.ListSuspicious(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list suspicious attempts: %w", err)
	}
	return attempts, nil
}

// CountFailures returns the number of failed attempts for an email inside the
// trailing window.
func (s *AnalyticsService) CountFailures(ctx context.Context, email string, window time.Duration) (int, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return 0, fmt.Errorf("%w: email is required", models.ErrValidation)
	}
	if window <= 0 {
		window = time.Hour
	}

	count, err := s.store.CountFailures(ctx, email, time.Now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return count, nil
}

// ListByIP returns attempts from an IP address inside the trailing window.
func (s *AnalyticsService) ListByIP(ctx context.Context, ipAddress string, window time.Duration) ([]*models.LoginAttempt, error) {
	if ipAddress == "" {
		return nil, fmt.Errorf("%w: ip is required", models.ErrValidation)
	}
	if window <= 0 {
		window = time.Hour
	}

	attempts, err := s.store.ListByIP(ctx, ipAddress, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts by ip: %w", err)
	}
	return attempts, nil
}
