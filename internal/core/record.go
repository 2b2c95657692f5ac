package core

import "time"

// VerificationRecord is the durable cache entry for one (user, repository)
// pair. There is at most one record per pair; repeated verifications update
// the existing record in place.
type VerificationRecord struct {
	// ID is an opaque unique token (xid).
	ID string `json:"id"`

	// UserID identifies the user within the host auth framework.
	UserID string `json:"user_id"`

	// Repository is the canonical "owner/repo" key.
	Repository string `json:"repository"`

	// HasStarred is the star status observed at LastCheckedAt.
	HasStarred    bool      `json:"has_starred"`
	LastCheckedAt time.Time `json:"last_checked_at"`

	// ExpiresAt bounds cache validity. Readers treat the record as absent once
	// this has passed; the record itself stays stored until the sweep runs.
	ExpiresAt time.Time `json:"expires_at"`

	// AccessGrantedAt is set the first time HasStarred becomes true and is
	// preserved across every later update, including un-star updates. The
	// grace-period policy relies on it to tell "never starred" apart from
	// "starred once, then removed".
	AccessGrantedAt *time.Time `json:"access_granted_at,omitempty"`

	// AccessRevokedAt records when access was explicitly revoked. Informational.
	AccessRevokedAt *time.Time `json:"access_revoked_at,omitempty"`

	// GracePeriodStartedAt and GracePeriodEndsAt both track the grace-period
	// window. Records written by prior versions may carry either one; the
	// policy evaluates GracePeriodStartedAt first, then GracePeriodEndsAt.
	GracePeriodStartedAt *time.Time `json:"grace_period_started_at,omitempty"`
	GracePeriodEndsAt    *time.Time `json:"grace_period_ends_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the record is no longer cache-valid at the given time.
func (r *VerificationRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// SessionRecord holds the star-gate extension fields stored on the host
// framework's session. The host owns session creation and the remaining
// session fields; this plugin only reads and updates these.
type SessionRecord struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	HasStarAccess     bool       `json:"has_star_access"`
	StarVerifiedAt    *time.Time `json:"star_verified_at,omitempty"`
	GracePeriodActive bool       `json:"grace_period_active"`
	GracePeriodEndsAt *time.Time `json:"grace_period_ends_at,omitempty"`
}
