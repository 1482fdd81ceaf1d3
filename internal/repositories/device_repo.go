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
)

// DeviceRepository handles device data access
type DeviceRepository struct {
	pool *pgxpool.Pool
}

// NewDeviceRepository creates a new DeviceRepository
func NewDeviceRepository(db *database.DB) *DeviceRepository {
	return &DeviceRepository{pool: db.Pool}
}

const deviceColumns = `id, user_id, platform, platform_version, browser, browser_version,
	is_desktop, is_mobile, language, fingerprint, ip_address, pin_hash,
	pin_attempts, is_trusted, is_untrusted, verified_at, created_at`

func scanDeviceRow(row rowScanner) (*models.Device, error) {
	var d models.Device

	err := row.Scan(
		&d.ID, &d.UserID, &d.Platform, &d.PlatformVersion, &d.Browser, &d.BrowserVersion,
		&d.IsDesktop, &d.IsMobile, &d.Language, &d.Fingerprint, &d.IPAddress, &d.PinHash,
		&d.PinAttempts, &d.IsTrusted, &d.IsUntrusted, &d.VerifiedAt, &d.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &d, nil
}

func scanDeviceRows(rows pgx.Rows) ([]*models.Device, error) {
	defer rows.Close()

	devices := make([]*models.Device, 0)

	for rows.Next() {
		d, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device rows: %w", err)
	}

	return devices, nil
}

// Create inserts a new device. ID and CreatedAt are assigned here.
func (r *DeviceRepository) Create(ctx context.Context, d *models.Device) (*models.Device, error) {
	d.ID = uuid.New().String()
	d.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO devices (` + deviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING ` + deviceColumns

	result, err := scanDeviceRow(r.pool.QueryRow(ctx, query,
		d.ID, d.UserID, d.Platform, d.PlatformVersion, d.Browser, d.BrowserVersion,
		d.IsDesktop, d.IsMobile, d.Language, d.Fingerprint, d.IPAddress, d.PinHash,
		d.PinAttempts, d.IsTrusted, d.IsUntrusted, d.VerifiedAt, d.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	return result, nil
}

// ListByUser returns the user's devices in creation order
func (r *DeviceRepository) ListByUser(ctx context.Context, userID string) ([]*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}

	return scanDeviceRows(rows)
}

// GetByID returns a device owned by userID
func (r *DeviceRepository) GetByID(ctx context.Context, userID, deviceID string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1 AND user_id = $2`
	return scanDeviceRow(r.pool.QueryRow(ctx, query, deviceID, userID))
}

// UpdateTrust sets the trust flags and verification timestamp of a device
func (r *DeviceRepository) UpdateTrust(ctx context.Context, userID, deviceID string, trusted, untrusted bool, verifiedAt *time.Time) (*models.Device, error) {
	query := `
		UPDATE devices
		SET is_trusted = $3, is_untrusted = $4, verified_at = COALESCE($5, verified_at)
		WHERE id = $1 AND user_id = $2
		RETURNING ` + deviceColumns

	return scanDeviceRow(r.pool.QueryRow(ctx, query, deviceID, userID, trusted, untrusted, verifiedAt))
}

// ConsumePin trusts the device and clears its pin in one write. Only a device whose
// pin is still unused is updated; otherwise models.ErrNotFound is returned.
func (r *DeviceRepository) ConsumePin(ctx context.Context, userID, deviceID string, verifiedAt time.Time) (*models.Device, error) {
	query := `
		UPDATE devices
		SET pin_hash = '', pin_attempts = 0, is_trusted = TRUE, is_untrusted = FALSE, verified_at = $3
		WHERE id = $1 AND user_id = $2 AND pin_hash <> ''
		RETURNING ` + deviceColumns

	return scanDeviceRow(r.pool.QueryRow(ctx, query, deviceID, userID, verifiedAt))
}

// RecordPinFailure increments the failed pin counter and returns the new count
func (r *DeviceRepository) RecordPinFailure(ctx context.Context, userID, deviceID string) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx,
		`UPDATE devices SET pin_attempts = pin_attempts + 1 WHERE id = $1 AND user_id = $2 RETURNING pin_attempts`,
		deviceID, userID,
	).Scan(&attempts)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return attempts, nil
}

// CountByUser returns how many devices a user has
func (r *DeviceRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM devices WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return count, nil
}
