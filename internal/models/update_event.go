package models

import (
	"fmt"
	"time"
)

// UpdateEvent is a single log entry.
type UpdateEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // STARTED | STOPPED | UPDATE | ERROR | EXITED
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

// Line renders the entry the way the log stream presents it to the UI.
func (e UpdateEvent) Line() string {
	return fmt.Sprintf("[%s] %s", e.OccurredAt.UTC().Format("2006-01-02 15:04:05"), e.Description)
}
