package core

import (
	"fmt"
	"strings"
	"time"
)

// RepositoryRef identifies the GitHub repository that gates access.
// It is parsed once at startup; everything downstream works with the
// canonical "owner/repo" key.
type RepositoryRef struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// ParseRepositoryRef parses an "owner/repo" string into a RepositoryRef.
// Both segments must be non-empty and the string must contain exactly one slash.
func ParseRepositoryRef(s string) (RepositoryRef, error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return RepositoryRef{}, InvalidRepositoryFormatError{Input: s}
	}
	return RepositoryRef{Owner: owner, Repo: repo}, nil
}

// Key returns the canonical "owner/repo" key used for storage and coalescing.
func (r RepositoryRef) Key() string {
	return r.Owner + "/" + r.Repo
}

func (r RepositoryRef) String() string {
	return r.Key()
}

// FailureMode is the star-status assumption applied when the GitHub API
// cannot be reached (network failure, persistent 5xx, rate limit).
type FailureMode string

const (
	FailureAllow FailureMode = "allow"
	FailureDeny  FailureMode = "deny"
)

func (m FailureMode) IsValid() bool {
	return m == FailureAllow || m == FailureDeny
}

// GraceStrategy controls what happens to previously granted access once the
// user un-stars the repository.
type GraceStrategy string

const (
	// StrategyImmediate revokes access as soon as the star is gone.
	StrategyImmediate GraceStrategy = "immediate"

	// StrategyTimed keeps access for a configured duration after the star is gone.
	StrategyTimed GraceStrategy = "timed"

	// StrategyNever keeps access forever once it was granted.
	StrategyNever GraceStrategy = "never"
)

func (s GraceStrategy) IsValid() bool {
	switch s {
	case StrategyImmediate, StrategyTimed, StrategyNever:
		return true
	default:
		return false
	}
}

// VerificationResult is the outcome of a single star-status check.
// It is never persisted; the durable state lives in VerificationRecord.
type VerificationResult struct {
	// HasStarred is the observed (or assumed, on failure) star status.
	HasStarred bool `json:"has_starred"`

	// Cached indicates the result was served from a live verification record
	// without calling the GitHub API.
	Cached bool `json:"cached"`

	// Err carries a human-readable failure description when the check did not
	// complete cleanly. The check itself never fails hard; transport errors
	// are folded into the configured failure mode.
	Err string `json:"error,omitempty"`

	// RequiresReauth signals that the GitHub token was rejected (401) and the
	// caller should terminate the session and force a fresh login.
	RequiresReauth bool `json:"requires_reauth,omitempty"`
}

// AccessDecision is the grace-period policy verdict for one user.
type AccessDecision struct {
	Granted           bool   `json:"granted"`
	Reason            string `json:"reason"`
	GracePeriodActive bool   `json:"grace_period_active"`
}

// PolicyInput is everything the grace-period policy needs to decide.
// All fields come from the user's verification record (or its absence).
type PolicyInput struct {
	HasStarred           bool
	AccessGrantedAt      *time.Time
	GracePeriodEndsAt    *time.Time
	GracePeriodStartedAt *time.Time
}

// InvalidRepositoryFormatError is returned when a repository string does not
// split into exactly two non-empty "owner/repo" segments. It is fatal to
// setup and never retryable.
type InvalidRepositoryFormatError struct {
	Input string
}

func (e InvalidRepositoryFormatError) Error() string {
	return fmt.Sprintf("invalid repository %q: expected format \"owner/repo\"", e.Input)
}
