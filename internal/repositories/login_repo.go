package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/authtrail/internal/database"
	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// LoginRepository handles database operations for recorded logins
type LoginRepository struct {
	pool *pgxpool.Pool
}

// NewLoginRepository creates a new LoginRepository
func NewLoginRepository(db *database.DB) *LoginRepository {
	return &LoginRepository{pool: db.Pool}
}

const loginColumns = `id, user_id, device_id, ip_address, ip_insights, type, created_at`

func scanLoginRow(row rowScanner) (*models.Login, error) {
	var l models.Login
	var loginType string

	err := row.Scan(&l.ID, &l.UserID, &l.DeviceID, &l.IPAddress, &l.IPInsights, &loginType, &l.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	l.Type = models.LoginType(loginType)

	return &l, nil
}

func scanLoginRows(rows pgx.Rows) ([]*models.Login, error) {
	defer rows.Close()

	logins := make([]*models.Login, 0)

	for rows.Next() {
		l, err := scanLoginRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan login: %w", err)
		}
		logins = append(logins, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating login rows: %w", err)
	}

	return logins, nil
}

// Create records a login. ID and CreatedAt are assigned here.
func (r *LoginRepository) Create(ctx context.Context, l *models.Login) (*models.Login, error) {
	l.ID = uuid.New().String()
	l.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO logins (` + loginColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + loginColumns

	result, err := scanLoginRow(r.pool.QueryRow(ctx, query,
		l.ID, l.UserID, l.DeviceID, l.IPAddress, l.IPInsights, string(l.Type), l.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create login: %w", err)
	}

	return result, nil
}

// LatestForDevice returns the device's most recent login of any type
func (r *LoginRepository) LatestForDevice(ctx context.Context, deviceID string) (*models.Login, error) {
	query := `SELECT ` + loginColumns + ` FROM logins WHERE device_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	return scanLoginRow(r.pool.QueryRow(ctx, query, deviceID))
}

// LatestForUser returns the user's most recent login of the given types (all types when empty)
func (r *LoginRepository) LatestForUser(ctx context.Context, userID string, types []models.LoginType) (*models.Login, error) {
	logins, err := r.ListByUser(ctx, userID, types, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(logins) == 0 {
		return nil, models.ErrNotFound
	}
	return logins[0], nil
}

// ListByUser returns the user's logins newest first, optionally filtered by type
func (r *LoginRepository) ListByUser(ctx context.Context, userID string, types []models.LoginType, limit, offset int) ([]*models.Login, error) {
	query := `
		SELECT ` + loginColumns + `
		FROM logins
		WHERE user_id = $1 AND (cardinality($2::text[]) = 0 OR type = ANY($2))
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, userID, pq.Array(typeStrings(types)), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query logins: %w", err)
	}

	return scanLoginRows(rows)
}

// CountByType counts the user's logins per type created at or after since
func (r *LoginRepository) CountByType(ctx context.Context, userID string, since time.Time) (map[models.LoginType]int64, error) {
	query := `
		SELECT type, COUNT(*)
		FROM logins
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY type
	`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count logins: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.LoginType]int64)
	for rows.Next() {
		var loginType string
		var count int64
		if err := rows.Scan(&loginType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan login count: %w", err)
		}
		counts[models.LoginType(loginType)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating login counts: %w", err)
	}

	return counts, nil
}

// DeleteOlderThan removes logins created before cutoff
func (r *LoginRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM logins WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old logins: %w", err)
	}

	return result.RowsAffected(), nil
}

func typeStrings(types []models.LoginType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
