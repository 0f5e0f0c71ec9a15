package models

import "time"

// UpdaterStatus is the current snapshot of the updater. The token is never
// part of the snapshot; configuration is not persisted across runs.
type UpdaterStatus struct {
	ID              int       `json:"id"`
	State           string    `json:"state"` // IDLE | RUNNING | STOPPING
	Subdomain       string    `json:"subdomain,omitempty"`
	IntervalSeconds int       `json:"interval_seconds,omitempty"`
	Ticks           int       `json:"ticks"` // update attempts this run
	LastResponse    string    `json:"last_response,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	StartEnabled    bool      `json:"start_enabled"` // complementary with StopEnabled
	StopEnabled     bool      `json:"stop_enabled"`
	UpdatedAt       time.Time `json:"updated_at"`
}
