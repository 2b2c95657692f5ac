package core

import "time"

type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID)
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "login.verify", "cache.refresh")
	Action string `json:"action"`

	// UserID identifies who the check was performed for
	UserID string `json:"user_id,omitempty"`

	// Repository is the canonical "owner/repo" key that was checked
	Repository string `json:"repository,omitempty"`

	// Verification outcome
	HasStarred bool `json:"has_starred"`
	Cached     bool `json:"cached"`

	// Decision details
	Granted           bool   `json:"granted"`
	Reason            string `json:"reason,omitempty"`
	GracePeriodActive bool   `json:"grace_period_active,omitempty"`

	Error string `json:"error,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Find(predicate func(entry AuditEntry) bool) ([]AuditEntry, error)
	Close() error
}
