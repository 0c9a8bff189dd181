package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pobradovic08/netdash/internal/model"
)

const healthColumns = `device_id, last_checked, is_online, response_time, uptime, last_online, last_offline, consecutive_failures`

func scanHealth(row pgx.CollectableRow) (model.DeviceHealth, error) {
	var h model.DeviceHealth
	err := row.Scan(&h.DeviceID, &h.LastChecked, &h.IsOnline, &h.ResponseTime,
		&h.Uptime, &h.LastOnline, &h.LastOffline, &h.ConsecutiveFailures)
	h.LastChecked = utcPtr(h.LastChecked)
	h.LastOnline = utcPtr(h.LastOnline)
	h.LastOffline = utcPtr(h.LastOffline)
	return h, err
}

func (db *DB) GetDeviceHealth(ctx context.Context, deviceID string) (model.DeviceHealth, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+healthColumns+` FROM device_health WHERE device_id = $1`, deviceID)
	if err != nil {
		return model.DeviceHealth{}, err
	}
	h, err := pgx.CollectExactlyOneRow(rows, scanHealth)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DeviceHealth{}, ErrNotFound
	}
	return h, err
}

func (db *DB) ListDeviceHealth(ctx context.Context) ([]model.DeviceHealth, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT h.device_id, h.last_checked, h.is_online, h.response_time, h.uptime,
		       h.last_online, h.last_offline, h.consecutive_failures
		FROM device_health h
		JOIN devices d ON d.id = h.device_id
		ORDER BY d.created_at, d.id
	`)
	if err != nil {
		return nil, err
	}
	health, err := pgx.CollectRows(rows, scanHealth)
	if err != nil {
		return nil, err
	}
	if health == nil {
		health = []model.DeviceHealth{}
	}
	return health, nil
}

// UpsertDeviceHealth replaces the health record for a device, stamping
// last_checked with the current time.
func (db *DB) UpsertDeviceHealth(ctx context.Context, deviceID string, in model.HealthInput) (model.DeviceHealth, error) {
	h := normalizeHealth(deviceID, in, db.timestamp())
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO device_health (device_id, last_checked, is_online, response_time, uptime,
		                           last_online, last_offline, consecutive_failures)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (device_id) DO UPDATE
		SET last_checked = EXCLUDED.last_checked,
		    is_online = EXCLUDED.is_online,
		    response_time = EXCLUDED.response_time,
		    uptime = EXCLUDED.uptime,
		    last_online = EXCLUDED.last_online,
		    last_offline = EXCLUDED.last_offline,
		    consecutive_failures = EXCLUDED.consecutive_failures
	`, h.DeviceID, h.LastChecked, h.IsOnline, h.ResponseTime, h.Uptime,
		h.LastOnline, h.LastOffline, h.ConsecutiveFailures)
	if isForeignKeyViolation(err) {
		return model.DeviceHealth{}, ErrNotFound
	}
	if err != nil {
		return model.DeviceHealth{}, err
	}
	return h, nil
}

// isForeignKeyViolation reports whether err is a Postgres foreign_key_violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

var _ Store = (*DB)(nil)
