package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"duckdns_agent/internal/models"
)

type StatusSQLite struct {
	db *sql.DB
}

func NewStatusSQLite(db *sql.DB) *StatusSQLite {
	return &StatusSQLite{db: db}
}

// constants and helpers for clarity and reuse
const (
	updaterStatusRowID = 1

	insertOrUpdateStatusSQL = `
		INSERT INTO updater_status (id, state, subdomain, interval_s, ticks, last_response, last_error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state=excluded.state,
			subdomain=excluded.subdomain,
			interval_s=excluded.interval_s,
			ticks=excluded.ticks,
			last_response=excluded.last_response,
			last_error=excluded.last_error,
			updated_at=excluded.updated_at
	`

	selectStatusSQL = `
		SELECT id, state, subdomain, interval_s, ticks, last_response, last_error, updated_at
		FROM updater_status WHERE id=?
	`
)

// Save updates or inserts the updater_status row (id always 1).
// The enablement signals are derived, never stored.
func (r *StatusSQLite) Save(ctx context.Context, status models.UpdaterStatus) error {
	// ensure UpdatedAt is always persisted as UTC; set if zero
	tsUTC := status.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err := r.db.ExecContext(ctx, insertOrUpdateStatusSQL,
		updaterStatusRowID,
		status.State,
		status.Subdomain,
		status.IntervalSeconds,
		status.Ticks,
		status.LastResponse,
		status.LastError,
		tsUTC,
	)
	return err
}

// Load fetches the single updater_status row (id=1).
func (r *StatusSQLite) Load(ctx context.Context) (models.UpdaterStatus, error) {
	row := r.db.QueryRowContext(ctx, selectStatusSQL, updaterStatusRowID)

	var s models.UpdaterStatus
	if err := row.Scan(
		&s.ID,
		&s.State,
		&s.Subdomain,
		&s.IntervalSeconds,
		&s.Ticks,
		&s.LastResponse,
		&s.LastError,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UpdaterStatus{}, nil // no status yet
		}
		return models.UpdaterStatus{}, err
	}

	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
