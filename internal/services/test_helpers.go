package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edlume/authtrail/internal/models"
	"github.com/google/uuid"
)

// MockAttemptStore implements the store interfaces for testing
type MockAttemptStore struct {
	RecordFunc              func(ctx context.Context, attempt *models.LoginAttempt) (uuid.UUID, error)
	GetByIDFunc             func(ctx context.Context, id uuid.UUID) (*models.LoginAttempt, error)
	AddSuspicionReasonsFunc func(ctx context.Context, id uuid.UUID, reasons []models.SuspiciousReason) (*models.LoginAttempt, error)
	SetSessionDurationFunc  func(ctx context.Context, id uuid.UUID, duration time.Duration) (*models.LoginAttempt, error)
	CountFailuresFunc       func(ctx context.Context, email string, since time.Time) (int, error)
	MostRecentAttemptFunc   func(ctx context.Context, email string, since time.Time) (*models.LoginAttempt, error)
	ListSuspiciousFunc      func(ctx context.Context, limit int) ([]*models.LoginAttempt, error)
	ListByIPFunc            func(ctx context.Context, ipAddress string, since time.Time) ([]*models.LoginAttempt, error)
	DailyStatsFunc          func(ctx context.Context, days int) ([]models.DailyStat, error)
}

func (m *MockAttemptStore) Record(ctx context.Context, attempt *models.LoginAttempt) (uuid.UUID, error) {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, attempt)
	}
	return uuid.New(), nil
}

func (m *MockAttemptStore) GetByID(ctx context.Context, id uuid.UUID) (*models.LoginAttempt, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAttemptStore) AddSuspicionReasons(ctx context.Context, id uuid.UUID, reasons []models.SuspiciousReason) (*models.LoginAttempt, error) {
	if m.AddSuspicionReasonsFunc != nil {
		return m.AddSuspicionReasonsFunc(ctx, id, reasons)
	}
	return nil, models.ErrNotFound
}

func (m *MockAttemptStore) SetSessionDuration(ctx context.Context, id uuid.UUID, duration time.Duration) (*models.LoginAttempt, error) {
	if m.SetSessionDurationFunc != nil {
		return m.SetSessionDurationFunc(ctx, id, duration)
	}
	return nil, models.ErrNotFound
}

func (m *MockAttemptStore) CountFailures(ctx context.Context, email string, since time.Time) (int, error) {
	if m.CountFailuresFunc != nil {
		return m.CountFailuresFunc(ctx, email, since)
	}
	return 0, nil
}

func (m *MockAttemptStore) MostRecentAttempt(ctx context.Context, email string, since time.Time) (*models.LoginAttempt, error) {
	if m.MostRecentAttemptFunc != nil {
		return m.MostRecentAttemptFunc(ctx, email, since)
	}
	return nil, models.ErrNotFound
}

func (m *MockAttemptStore) ListSuspicious(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	if m.ListSuspiciousFunc != nil {
		return m.ListSuspiciousFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockAttemptStore) ListByIP(ctx context.Context, ipAddress string, since time.Time) ([]*models.LoginAttempt, error) {
	if m.ListByIPFunc != nil {
		return m.ListByIPFunc(ctx, ipAddress, since)
	}
	return nil, nil
}

func (m *MockAttemptStore) DailyStats(ctx context.Context, days int) ([]models.DailyStat, error) {
	if m.DailyStatsFunc != nil {
		return m.DailyStatsFunc(ctx, days)
	}
	return nil, nil
}

// InMemoryAttemptStore is a behavioural store for end-to-end service tests
type InMemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*models.LoginAttempt
}

func NewInMemoryAttemptStore() *InMemoryAttemptStore {
	return &InMemoryAttemptStore{
		attempts: make(map[uuid.UUID]*models.LoginAttempt),
	}
}

func (s *InMemoryAttemptStore) Record(ctx context.Context, attempt *models.LoginAttempt) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *attempt
	stored.ID = uuid.New()
	s.attempts[stored.ID] = &stored
	return stored.ID, nil
}

func (s *InMemoryAttemptStore) GetByID(ctx context.Context, id uuid.UUID) (*models.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (s *InMemoryAttemptStore) AddSuspicionReasons(ctx context.Context, id uuid.UUID, reasons []models.SuspiciousReason) (*models.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	existing := make(map[models.SuspiciousReason]bool, len(attempt.SuspiciousReasons))
	for _, r := range attempt.SuspiciousReasons {
		existing[r] = true
	}
	for _, r := range reasons {
		if !existing[r] {
			attempt.SuspiciousReasons = append(attempt.SuspiciousReasons, r)
			existing[r] = true
		}
	}
	sort.Slice(attempt.SuspiciousReasons, func(i, j int) bool {
		return attempt.SuspiciousReasons[i] < attempt.SuspiciousReasons[j]
	})
	attempt.IsSuspicious = true

	copied := *attempt
	return &copied, nil
}

func (s *InMemoryAttemptStore) SetSessionDuration(ctx context.Context, id uuid.UUID, duration time.Duration) (*models.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	attempt.SessionDuration = &duration

	copied := *attempt
	return &copied, nil
}

func (s *InMemoryAttemptStore) CountFailures(ctx context.Context, email string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, attempt := range s.attempts {
		if attempt.Email == email && !attempt.Success && !attempt.AttemptedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryAttemptStore) MostRecentAttempt(ctx context.Context, email string, since time.Time) (*models.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.LoginAttempt
	for _, attempt := range s.attempts {
		if attempt.Email != email || attempt.AttemptedAt.Before(since) {
			continue
		}
		if latest == nil || attempt.AttemptedAt.After(latest.AttemptedAt) {
			latest = attempt
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}
