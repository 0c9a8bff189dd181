package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pobradovic08/netdash/internal/model"
)

const deviceColumns = `id, name, type, model, ip_address, mac_address, location, status, description`

func scanDevice(row pgx.CollectableRow) (model.Device, error) {
	var (
		d          model.Device
		deviceType string
		status     string
	)
	err := row.Scan(&d.ID, &d.Name, &deviceType, &d.Model, &d.IPAddress,
		&d.MACAddress, &d.Location, &status, &d.Description)
	d.Type = model.DeviceType(deviceType)
	d.Status = model.DeviceStatus(status)
	return d, err
}

// ListDevices returns all devices in creation order.
func (db *DB) ListDevices(ctx context.Context) ([]model.Device, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	devices, err := pgx.CollectRows(rows, scanDevice)
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []model.Device{}
	}
	return devices, nil
}

// GetDevice returns a single device by ID.
func (db *DB) GetDevice(ctx context.Context, id string) (model.Device, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id)
	if err != nil {
		return model.Device{}, err
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDevice)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Device{}, ErrNotFound
	}
	return d, err
}

func (db *DB) CreateDevice(ctx context.Context, in model.DeviceInput) (model.Device, error) {
	d := model.Device{ID: db.newID(), DeviceInput: in}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO devices (id, name, type, model, ip_address, mac_address, location, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, d.ID, in.Name, string(in.Type), in.Model, in.IPAddress, in.MACAddress,
		in.Location, string(in.Status), in.Description, db.timestamp())
	if err != nil {
		return model.Device{}, err
	}
	return d, nil
}

func (db *DB) UpdateDevice(ctx context.Context, id string, in model.DeviceInput) (model.Device, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE devices
		SET name = $2, type = $3, model = $4, ip_address = $5, mac_address = $6,
		    location = $7, status = $8, description = $9
		WHERE id = $1
	`, id, in.Name, string(in.Type), in.Model, in.IPAddress, in.MACAddress,
		in.Location, string(in.Status), in.Description)
	if err != nil {
		return model.Device{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Device{}, ErrNotFound
	}
	return model.Device{ID: id, DeviceInput: in}, nil
}

// DeleteDevice removes a device. Ports and the health record go with it via
// ON DELETE CASCADE.
func (db *DB) DeleteDevice(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
