package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/edlume/authtrail/internal/database"
	"github.com/edlume/authtrail/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AttemptRepository handles database operations for login attempts
type AttemptRepository struct {
	db *database.DB
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

const attemptColumns = `
	id, user_id, email, success, failure_reason, ip_address, user_agent,
	login_method, location, device_info, metadata, attempted_at,
	is_suspicious, suspicious_reasons, session_duration_ms`

// Record inserts a new attempt and returns its id. The failure_reason /
// success invariant and the required fields are checked here before the
// insert; the table CHECK constraints back them up.
func (r *AttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) (uuid.UUID, error) {
	if err := validateAttempt(attempt); err != nil {
		return uuid.Nil, err
	}

	query := `
		INSERT INTO login_attempts (
			user_id, email, success, failure_reason, ip_address, user_agent,
			login_method, location, device_info, metadata, attempted_at,
			is_suspicious, suspicious_reasons
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.Pool.QueryRow(ctx, query,
		attempt.UserID,
		attempt.Email,
		attempt.Success,
		attempt.FailureReason,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.LoginMethod,
		attempt.Location,
		attempt.DeviceInfo,
		attempt.Metadata,
		attempt.AttemptedAt,
		attempt.IsSuspicious,
		reasonsToStrings(attempt.SuspiciousReasons),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, database.MapPostgresError(err)
	}

	return id, nil
}

// GetByID returns a single attempt by id
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LoginAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM login_attempts WHERE id = $1`

	row := r.db.Pool.QueryRow(ctx, query, id)
	attempt, err := scanAttempt(row)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return attempt, nil
}

// CountFailures returns the number of failed attempts for an email since the cutoff
func (r *AttemptRepository) CountFailures(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = $1 AND success = false AND attempted_at >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, email, since).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// MostRecentAttempt returns the latest attempt of any outcome for an email
// since the cutoff. Returns models.ErrNotFound when none exists.
func (r *AttemptRepository) MostRecentAttempt(ctx context.Context, email string, since time.Time) (*models.LoginAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM login_attempts
		WHERE email = $1 AND attempted_at >= $2
		ORDER BY attempted_at DESC
		LIMIT 1
	`

	row := r.db.Pool.QueryRow(ctx, query, email, since)
	attempt, err := scanAttempt(row)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return attempt, nil
}

// ListSuspicious returns flagged attempts, most recent first
func (r *AttemptRepository) ListSuspicious(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM login_attempts
		WHERE is_suspicious = true
		ORDER BY attempted_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

// ListByIP returns attempts from an IP address since the cutoff, most recent first
func (r *AttemptRepository) ListByIP(ctx context.Context, ipAddress string, since time.Time) ([]*models.LoginAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM login_attempts
		WHERE ip_address = $1 AND attempted_at >= $2
		ORDER BY attempted_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, ipAddress, since)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

// DailyStats returns per-day totals for the trailing number of days.
// Buckets are UTC calendar days, ascending; days with no attempts are omitted.
func (r *AttemptRepository) DailyStats(ctx context.Context, days int) ([]models.DailyStat, error) {
	query := `
		SELECT
			(attempted_at AT TIME ZONE 'UTC')::date AS day,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE success) AS success,
			COUNT(*) FILTER (WHERE NOT success) AS failed
		FROM login_attempts
		WHERE attempted_at >= $1
		GROUP BY day
		ORDER BY day ASC
	`

	since := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))

	rows, err := r.db.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var stats []models.DailyStat
	for rows.Next() {
		var s models.DailyStat
		if err := rows.Scan(&s.Date, &s.Total, &s.Success, &s.Failed); err != nil {
			return nil, database.MapPostgresError(err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return stats, nil
}

// AddSuspicionReasons unions reasons into suspicious_reasons and marks the
// record suspicious. The union keeps the operation idempotent.
func (r *AttemptRepository) AddSuspicionReasons(ctx context.Context, id uuid.UUID, reasons []models.SuspiciousReason) (*models.LoginAttempt, error) {
	query := `
		UPDATE login_attempts
		SET is_suspicious = true,
		    suspicious_reasons = ARRAY(
		        SELECT DISTINCT unnest(suspicious_reasons || $2::text[]) ORDER BY 1
		    )
		WHERE id = $1
		RETURNING ` + attemptColumns

	row := r.db.Pool.QueryRow(ctx, query, id, reasonsToStrings(reasons))
	attempt, err := scanAttempt(row)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return attempt, nil
}

// SetSessionDuration records how long the session opened by a successful
// attempt lasted.
func (r *AttemptRepository) SetSessionDuration(ctx context.Context, id uuid.UUID, duration time.Duration) (*models.LoginAttempt, error) {
	query := `
		UPDATE login_attempts
		SET session_duration_ms = $2
		WHERE id = $1
		RETURNING ` + attemptColumns

	row := r.db.Pool.QueryRow(ctx, query, id, duration.Milliseconds())
	attempt, err := scanAttempt(row)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return attempt, nil
}

// DeleteOlderThan removes attempts with attempted_at before the cutoff and
// returns the number of rows deleted. Safe to run repeatedly.
func (r *AttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE attempted_at < $1`

	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}

func validateAttempt(attempt *models.LoginAttempt) error {
	if attempt.Email == "" {
		return fmt.Errorf("%w: email is required", models.ErrValidation)
	}
	if attempt.IPAddress == "" {
		return fmt.Errorf("%w: ip_address is required", models.ErrValidation)
	}
	if attempt.UserAgent == "" {
		return fmt.Errorf("%w: user_agent is required", models.ErrValidation)
	}
	if attempt.Success && attempt.FailureReason != nil {
		return fmt.Errorf("%w: failure_reason must be absent on a successful attempt", models.ErrValidation)
	}
	if !attempt.Success {
		if attempt.FailureReason == nil {
			return fmt.Errorf("%w: failure_reason is required on a failed attempt", models.ErrValidation)
		}
		if !attempt.FailureReason.Valid() {
			return fmt.Errorf("%w: unknown failure_reason %q", models.ErrValidation, *attempt.FailureReason)
		}
	}
	if !attempt.LoginMethod.Valid() {
		return fmt.Errorf("%w: unknown login_method %q", models.ErrValidation, attempt.LoginMethod)
	}
	return nil
}

func scanAttempt(row pgx.Row) (*models.LoginAttempt, error) {
	var attempt models.LoginAttempt
	var reasons []string
	var durationMs *int64

	err := row.Scan(
		&attempt.ID,
		&attempt.UserID,
		&attempt.Email,
		&attempt.Success,
		&attempt.FailureReason,
		&attempt.IPAddress,
		&attempt.UserAgent,
		&attempt.LoginMethod,
		&attempt.Location,
		&attempt.DeviceInfo,
		&attempt.Metadata,
		&attempt.AttemptedAt,
		&attempt.IsSuspicious,
		&reasons,
		&durationMs,
	)
	if err != nil {
		return nil, err
	}

	attempt.SuspiciousReasons = stringsToReasons(reasons)
	if durationMs != nil {
		d := time.Duration(*durationMs) * time.Millisecond
		attempt.SessionDuration = &d
	}

	return &attempt, nil
}

func collectAttempts(rows pgx.Rows) ([]*models.LoginAttempt, error) {
	var attempts []*models.LoginAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, database.MapPostgresError(err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return attempts, nil
}

func reasonsToStrings(reasons []models.SuspiciousReason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}

func stringsToReasons(values []string) []models.SuspiciousReason {
	if len(values) == 0 {
		return nil
	}
	out := make([]models.SuspiciousReason, len(values))
	for i, v := range values {
		out[i] = models.SuspiciousReason(v)
	}
	return out
}
