package store

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pobradovic08/netdash/internal/model"
)

func TestAlertQuery(t *testing.T) {
	ack := true
	tests := []struct {
		name     string
		filter   AlertFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filter",
			filter:  AlertFilter{},
			wantSQL: `SELECT ` + alertColumns + ` FROM alerts ORDER BY timestamp DESC, id`,
		},
		{
			name:     "device and limit",
			filter:   AlertFilter{DeviceID: "d1", Limit: 10},
			wantSQL:  `SELECT ` + alertColumns + ` FROM alerts WHERE device_id = $1 ORDER BY timestamp DESC, id LIMIT $2`,
			wantArgs: []any{"d1", 10},
		},
		{
			name:     "all fields",
			filter:   AlertFilter{DeviceID: "d1", Severity: model.SeverityCritical, Acknowledged: &ack},
			wantSQL:  `SELECT ` + alertColumns + ` FROM alerts WHERE device_id = $1 AND severity = $2 AND acknowledged = $3 ORDER BY timestamp DESC, id`,
			wantArgs: []any{"d1", "critical", true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := alertQuery(tt.filter)
			if sql != tt.wantSQL {
				t.Errorf("sql = %q\nwant  %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %#v, want %#v", args, tt.wantArgs)
			}
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"foreign key", &pgconn.PgError{Code: "23503"}, true},
		{"wrapped foreign key", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"other error", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isForeignKeyViolation(tt.err); got != tt.want {
				t.Errorf("isForeignKeyViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
