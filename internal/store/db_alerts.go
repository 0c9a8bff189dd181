package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pobradovic08/netdash/internal/model"
)

const alertColumns = `id, device_id, type, message, severity, timestamp, acknowledged, acknowledged_by, acknowledged_at`

func scanAlert(row pgx.CollectableRow) (model.Alert, error) {
	var (
		a         model.Alert
		alertType string
		severity  string
	)
	err := row.Scan(&a.ID, &a.DeviceID, &alertType, &a.Message, &severity,
		&a.Timestamp, &a.Acknowledged, &a.AcknowledgedBy, &a.AcknowledgedAt)
	a.Type = model.AlertType(alertType)
	a.Severity = model.Severity(severity)
	a.Timestamp = a.Timestamp.UTC()
	a.AcknowledgedAt = utcPtr(a.AcknowledgedAt)
	return a, err
}

// alertQuery builds the filtered alert listing query.
func alertQuery(f AlertFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.DeviceID != "" {
		args = append(args, f.DeviceID)
		where = append(where, fmt.Sprintf("device_id = $%d", len(args)))
	}
	if f.Severity != "" {
		args = append(args, string(f.Severity))
		where = append(where, fmt.Sprintf("severity = $%d", len(args)))
	}
	if f.Acknowledged != nil {
		args = append(args, *f.Acknowledged)
		where = append(where, fmt.Sprintf("acknowledged = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + alertColumns + ` FROM alerts`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY timestamp DESC, id")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

func (db *DB) ListAlerts(ctx context.Context, f AlertFilter) ([]model.Alert, error) {
	sql, args := alertQuery(f)
	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	alerts, err := pgx.CollectRows(rows, scanAlert)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	return alerts, nil
}

func (db *DB) ListAlertsByDevice(ctx context.Context, deviceID string) ([]model.Alert, error) {
	return db.ListAlerts(ctx, AlertFilter{DeviceID: deviceID})
}

func (db *DB) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	if err != nil {
		return model.Alert{}, err
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAlert)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Alert{}, ErrNotFound
	}
	return a, err
}

func (db *DB) CreateAlert(ctx context.Context, in model.AlertInput) (model.Alert, error) {
	a := model.Alert{
		ID:        db.newID(),
		DeviceID:  in.DeviceID,
		Type:      in.Type,
		Message:   in.Message,
		Severity:  in.Severity,
		Timestamp: db.timestamp(),
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO alerts (id, device_id, type, message, severity, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.DeviceID, string(a.Type), a.Message, string(a.Severity), a.Timestamp)
	if err != nil {
		return model.Alert{}, err
	}
	return a, nil
}

func (db *DB) AcknowledgeAlert(ctx context.Context, id, by string) (model.Alert, error) {
	rows, err := db.Pool.Query(ctx, `
		UPDATE alerts
		SET acknowledged = true, acknowledged_by = $2, acknowledged_at = $3
		WHERE id = $1
		RETURNING `+alertColumns, id, by, db.timestamp())
	if err != nil {
		return model.Alert{}, err
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAlert)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Alert{}, ErrNotFound
	}
	return a, err
}

func (db *DB) DeleteAlert(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// utcPtr normalizes a scanned nullable timestamp to UTC.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
