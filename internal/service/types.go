package service

import (
	"time"

	"github.com/neiii/stargate-better-auth/internal/core"
)

// LoginResult is the outcome of the post-login hook for a session that
// survived the gate.
type LoginResult struct {
	// Verification is the raw star-check outcome.
	Verification core.VerificationResult `json:"verification"`

	// Decision is the grace-period policy verdict.
	Decision core.AccessDecision `json:"decision"`

	// GracePeriodEndsAt is set when a grace period is running.
	GracePeriodEndsAt *time.Time `json:"grace_period_ends_at,omitempty"`
}

// GateStatus is the caller-visible view of one user's standing, served by
// GET /star-gate/status.
type GateStatus struct {
	Repository string `json:"repository"`

	HasStarred bool `json:"has_starred"`
	Cached     bool `json:"cached"`

	Granted           bool   `json:"granted"`
	Reason            string `json:"reason"`
	GracePeriodActive bool   `json:"grace_period_active"`

	LastCheckedAt     *time.Time `json:"last_checked_at,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	GracePeriodEndsAt *time.Time `json:"grace_period_ends_at,omitempty"`

	Error string `json:"error,omitempty"`
}
