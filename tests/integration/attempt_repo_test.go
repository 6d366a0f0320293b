package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edlume/authtrail/internal/models"
	"github.com/edlume/authtrail/internal/repositories"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	if err != nil {
		panic("failed to set up test database: " + err.Error())
	}
	testDB = db

	code := m.Run()

	testDB.Teardown(ctx)
	os.Exit(code)
}

func newRepo(t *testing.T) *repositories.AttemptRepository {
	t.Helper()
	require.NoError(t, testDB.CleanupTables(context.Background()))
	return repositories.NewAttemptRepository(testDB.DB)
}

func failedAttempt(email, ip string, at time.Time) *models.LoginAttempt {
	reason := models.FailureInvalidCredentials
	return &models.LoginAttempt{
		Email:         email,
		Success:       false,
		FailureReason: &reason,
		IPAddress:     ip,
		UserAgent:     "Mozilla/5.0",
		LoginMethod:   models.MethodEmailPassword,
		AttemptedAt:   at,
	}
}

func successAttempt(email, ip string, at time.Time) *models.LoginAttempt {
	return &models.LoginAttempt{
		Email:       email,
		Success:     true,
		IPAddress:   ip,
		UserAgent:   "Mozilla/5.0",
		LoginMethod: models.MethodEmailPassword,
		AttemptedAt: at,
	}
}

func TestRecordAndGetByID(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	userID := uuid.New()
	attempt := successAttempt("student@example.com", "203.0.113.7", time.Now().UTC())
	attempt.UserID = &userID
	attempt.LoginMethod = models.MethodAdminLogin
	attempt.Location = &models.Location{Country: "BR", City: "Sao Paulo", Timezone: "America/Sao_Paulo"}
	attempt.DeviceInfo = &models.DeviceInfo{Browser: "Chrome", OS: "Android", IsMobile: true}
	attempt.Metadata = models.AttemptMetadata{"origin": "mobile_app"}

	id, err := repo.Record(ctx, attempt)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", got.Email)
	assert.True(t, got.Success)
	assert.Nil(t, got.FailureReason)
	assert.Equal(t, models.MethodAdminLogin, got.LoginMethod)
	require.NotNil(t, got.UserID)
	assert.Equal(t, userID, *got.UserID)
	require.NotNil(t, got.Location)
	assert.Equal(t, "Sao Paulo", got.Location.City)
	require.NotNil(t, got.DeviceInfo)
	assert.True(t, got.DeviceInfo.IsMobile)
	assert.Equal(t, "mobile_app", got.Metadata["origin"])
	assert.False(t, got.IsSuspicious)
	assert.Empty(t, got.SuspiciousReasons)
	assert.Nil(t, got.SessionDuration)
}

func TestRecord_OutcomeInvariant(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	reason := models.FailureInvalidCredentials

	// Success with a failure reason
	bad := successAttempt("student@example.com", "203.0.113.7", time.Now())
	bad.FailureReason = &reason
	_, err := repo.Record(ctx, bad)
	assert.ErrorIs(t, err, models.ErrValidation)

	// Failure without one
	bad = failedAttempt("student@example.com", "203.0.113.7", time.Now())
	bad.FailureReason = nil
	_, err = repo.Record(ctx, bad)
	assert.ErrorIs(t, err, models.ErrValidation)

	// The table CHECK backs up the repository validation
	_, err = testDB.Pool.Exec(ctx, `
		INSERT INTO login_attempts (email, success, failure_reason, ip_address, user_agent, login_method, attempted_at)
		VALUES ('x@y.com', true, 'INVALID_CREDENTIALS', '203.0.113.7', 'ua', 'EMAIL_PASSWORD', NOW())
	`)
	assert.Error(t, err)
}

func TestGetByID_NotFound(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCountFailures_WindowBoundary(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Three failures inside the window, one outside, one success inside
	for _, age := range []time.Duration{5 * time.Minute, 30 * time.Minute, 55 * time.Minute} {
		_, err := repo.Record(ctx, failedAttempt("victim@example.com", "203.0.113.7", now.Add(-age)))
		require.NoError(t, err)
	}
	_, err := repo.Record(ctx, failedAttempt("victim@example.com", "203.0.113.7", now.Add(-90*time.Minute)))
	require.NoError(t, err)
	_, err = repo.Record(ctx, successAttempt("victim@example.com", "203.0.113.7", now.Add(-10*time.Minute)))
	require.NoError(t, err)

	// Another email never leaks into the count
	_, err = repo.Record(ctx, failedAttempt("other@example.com", "203.0.113.7", now.Add(-5*time.Minute)))
	require.NoError(t, err)

	count, err := repo.CountFailures(ctx, "victim@example.com", now.Add(-60*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMostRecentAttempt(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.MostRecentAttempt(ctx, "victim@example.com", now.Add(-time.Minute))
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.Record(ctx, failedAttempt("victim@example.com", "203.0.113.7", now.Add(-40*time.Second)))
	require.NoError(t, err)
	_, err = repo.Record(ctx, successAttempt("victim@example.com", "203.0.113.7", now.Add(-20*time.Second)))
	require.NoError(t, err)

	latest, err := repo.MostRecentAttempt(ctx, "victim@example.com", now.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, latest.Success)
	assert.WithinDuration(t, now.Add(-20*time.Second), latest.AttemptedAt, time.Second)

	// Cutoff excludes everything
	_, err = repo.MostRecentAttempt(ctx, "victim@example.com", now.Add(-10*time.Second))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddSuspicionReasons_UnionIdempotent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	attempt := failedAttempt("victim@example.com", "203.0.113.7", time.Now().UTC())
	attempt.IsSuspicious = true
	attempt.SuspiciousReasons = []models.SuspiciousReason{models.ReasonRapidAttempts}
	id, err := repo.Record(ctx, attempt)
	require.NoError(t, err)

	reasons := []models.SuspiciousReason{models.ReasonRapidAttempts, models.ReasonUnusualLocation}

	first, err := repo.AddSuspicionReasons(ctx, id, reasons)
	require.NoError(t, err)
	assert.True(t, first.IsSuspicious)
	assert.ElementsMatch(t,
		[]models.SuspiciousReason{models.ReasonRapidAttempts, models.ReasonUnusualLocation},
		first.SuspiciousReasons)

	second, err := repo.AddSuspicionReasons(ctx, id, reasons)
	require.NoError(t, err)
	assert.Equal(t, first.SuspiciousReasons, second.SuspiciousReasons)

	_, err = repo.AddSuspicionReasons(ctx, uuid.New(), reasons)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSetSessionDuration(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	id, err := repo.Record(ctx, successAttempt("student@example.com", "203.0.113.7", time.Now().UTC()))
	require.NoError(t, err)

	updated, err := repo.SetSessionDuration(ctx, id, 42*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, updated.SessionDuration)
	assert.Equal(t, 42*time.Minute, *updated.SessionDuration)
}

func TestListSuspicious_MostRecentFirst(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		attempt := failedAttempt("victim@example.com", "203.0.113.7", now.Add(-time.Duration(i)*time.Minute))
		attempt.IsSuspicious = true
		attempt.SuspiciousReasons = []models.SuspiciousReason{models.ReasonMultipleFailedAttempts}
		_, err := repo.Record(ctx, attempt)
		require.NoError(t, err)
	}
	// Unflagged attempts never appear
	_, err := repo.Record(ctx, failedAttempt("victim@example.com", "203.0.113.7", now))
	require.NoError(t, err)

	attempts, err := repo.ListSuspicious(ctx, 2)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.True(t, attempts[0].AttemptedAt.After(attempts[1].AttemptedAt))
	for _, a := range attempts {
		assert.True(t, a.IsSuspicious)
	}
}

func TestListByIP(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.Record(ctx, failedAttempt("a@example.com", "203.0.113.7", now.Add(-10*time.Minute)))
	require.NoError(t, err)
	_, err = repo.Record(ctx, successAttempt("b@example.com", "203.0.113.7", now.Add(-5*time.Minute)))
	require.NoError(t, err)
	_, err = repo.Record(ctx, failedAttempt("c@example.com", "198.51.100.1", now.Add(-1*time.Minute)))
	require.NoError(t, err)
	_, err = repo.Record(ctx, failedAttempt("d@example.com", "203.0.113.7", now.Add(-2*time.Hour)))
	require.NoError(t, err)

	attempts, err := repo.ListByIP(ctx, "203.0.113.7", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "b@example.com", attempts[0].Email)
	assert.Equal(t, "a@example.com", attempts[1].Email)
}

func TestDailyStats(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	today := time.Now().UTC().Truncate(24 * time.Hour)

	// Two days of traffic
	_, err := repo.Record(ctx, successAttempt("a@example.com", "203.0.113.7", today.Add(10*time.Hour)))
	require.NoError(t, err)
	_, err = repo.Record(ctx, failedAttempt("a@example.com", "203.0.113.7", today.Add(11*time.Hour)))
	require.NoError(t, err)
	_, err = repo.Record(ctx, failedAttempt("b@example.com", "203.0.113.7", today.AddDate(0, 0, -1).Add(9*time.Hour)))
	require.NoError(t, err)

	stats, err := repo.DailyStats(ctx, 7)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Ascending day order, totals always reconcile
	assert.True(t, stats[0].Date.Before(stats[1].Date))
	for _, s := range stats {
		assert.Equal(t, s.Total, s.Success+s.Failed)
	}
	assert.Equal(t, 1, stats[0].Total)
	assert.Equal(t, 2, stats[1].Total)
	assert.Equal(t, 1, stats[1].Success)
	assert.Equal(t, 1, stats[1].Failed)
}

func TestDeleteOlderThan_RetentionBoundary(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.Record(ctx, failedAttempt("old@example.com", "203.0.113.7", now.AddDate(0, 0, -91)))
	require.NoError(t, err)
	keptID, err := repo.Record(ctx, failedAttempt("recent@example.com", "203.0.113.7", now.AddDate(0, 0, -89)))
	require.NoError(t, err)

	deleted, err := repo.DeleteOlderThan(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByID(ctx, keptID)
	assert.NoError(t, err)

	// Nothing left past the cutoff, the sweep is a no-op the second time
	deleted, err = repo.DeleteOlderThan(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
