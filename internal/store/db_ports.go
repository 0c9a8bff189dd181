package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pobradovic08/netdash/internal/model"
)

const portColumns = `id, device_id, port_number, port_type, status, connected_to, speed, description`

func scanPort(row pgx.CollectableRow) (model.Port, error) {
	var (
		p        model.Port
		portType string
		status   string
	)
	err := row.Scan(&p.ID, &p.DeviceID, &p.PortNumber, &portType, &status,
		&p.ConnectedTo, &p.Speed, &p.Description)
	p.PortType = model.PortType(portType)
	p.Status = model.PortStatus(status)
	return p, err
}

func (db *DB) queryPorts(ctx context.Context, sql string, args ...any) ([]model.Port, error) {
	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	ports, err := pgx.CollectRows(rows, scanPort)
	if err != nil {
		return nil, err
	}
	if ports == nil {
		ports = []model.Port{}
	}
	return ports, nil
}

func (db *DB) ListPorts(ctx context.Context) ([]model.Port, error) {
	return db.queryPorts(ctx, `SELECT `+portColumns+` FROM ports ORDER BY created_at, id`)
}

func (db *DB) ListPortsByDevice(ctx context.Context, deviceID string) ([]model.Port, error) {
	return db.queryPorts(ctx, `SELECT `+portColumns+` FROM ports WHERE device_id = $1 ORDER BY created_at, id`, deviceID)
}

func (db *DB) GetPort(ctx context.Context, id string) (model.Port, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+portColumns+` FROM ports WHERE id = $1`, id)
	if err != nil {
		return model.Port{}, err
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPort)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Port{}, ErrNotFound
	}
	return p, err
}

func (db *DB) CreatePort(ctx context.Context, in model.PortInput) (model.Port, error) {
	p := model.Port{ID: db.newID(), PortInput: in}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO ports (id, device_id, port_number, port_type, status, connected_to, speed, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, in.DeviceID, in.PortNumber, string(in.PortType), string(in.Status),
		in.ConnectedTo, in.Speed, in.Description, db.timestamp())
	if err != nil {
		return model.Port{}, err
	}
	return p, nil
}

func (db *DB) UpdatePort(ctx context.Context, id string, in model.PortInput) (model.Port, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE ports
		SET device_id = $2, port_number = $3, port_type = $4, status = $5,
		    connected_to = $6, speed = $7, description = $8
		WHERE id = $1
	`, id, in.DeviceID, in.PortNumber, string(in.PortType), string(in.Status),
		in.ConnectedTo, in.Speed, in.Description)
	if err != nil {
		return model.Port{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Port{}, ErrNotFound
	}
	return model.Port{ID: id, PortInput: in}, nil
}

func (db *DB) DeletePort(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM ports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
