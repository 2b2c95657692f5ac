package verifier

import (
	"time"

	"github.com/neiii/stargate-better-auth/internal/core"
)

// Decision reasons surfaced to callers and clients. They are part of the
// API contract; do not reword casually.
const (
	ReasonStarred         = "User has starred the repository"
	ReasonImmediateRevoke = "Star removed, immediate revocation"
	ReasonNeverRevoke     = "Access previously granted, never revoke policy"
	ReasonNeverGranted    = "Access was never granted"
	ReasonGraceActive     = "Grace period active"
	ReasonGraceStarting   = "Grace period starting now"
	ReasonGraceExpired    = "Grace period expired"
	ReasonUnknownStrategy = "Unknown grace period strategy"
)

// ShouldGrantAccess evaluates the grace-period policy. Pure: no I/O, no
// stored state, only the input and the clock.
func (v *Verifier) ShouldGrantAccess(in core.PolicyInput) core.AccessDecision {
	if in.HasStarred {
		return core.AccessDecision{Granted: true, Reason: ReasonStarred}
	}

	switch v.graceStrategy {
	case core.StrategyImmediate:
		return core.AccessDecision{Granted: false, Reason: ReasonImmediateRevoke}

	case core.StrategyNever:
		if in.AccessGrantedAt != nil {
			return core.AccessDecision{
				Granted:           true,
				Reason:            ReasonNeverRevoke,
				GracePeriodActive: true,
			}
		}
		return core.AccessDecision{Granted: false, Reason: ReasonNeverGranted}

	case core.StrategyTimed:
		return v.evaluateTimed(in)

	default:
		// misconfiguration must never silently grant
		return core.AccessDecision{Granted: false, Reason: ReasonUnknownStrategy}
	}
}

// evaluateTimed applies the timed-strategy precedence. Two representations
// of the same window exist for compatibility with records written by prior
// versions: a start timestamp (end derived from the configured duration)
// takes precedence over a stored end timestamp.
func (v *Verifier) evaluateTimed(in core.PolicyInput) core.AccessDecision {
	now := v.now()

	switch {
	case in.GracePeriodStartedAt != nil:
		endsAt := in.GracePeriodStartedAt.Add(v.graceDuration)
		if now.Before(endsAt) {
			return core.AccessDecision{
				Granted:           true,
				Reason:            ReasonGraceActive,
				GracePeriodActive: true,
			}
		}
		return core.AccessDecision{Granted: false, Reason: ReasonGraceExpired}

	case in.GracePeriodEndsAt != nil && now.Before(*in.GracePeriodEndsAt):
		return core.AccessDecision{
			Granted:           true,
			Reason:            ReasonGraceActive,
			GracePeriodActive: true,
		}

	case in.AccessGrantedAt != nil && in.GracePeriodEndsAt == nil && in.GracePeriodStartedAt == nil:
		// first detected un-star: grant once more and have the caller persist
		// the computed window via CalculateGracePeriodEnd
		return core.AccessDecision{
			Granted:           true,
			Reason:            ReasonGraceStarting,
			GracePeriodActive: true,
		}

	default:
		return core.AccessDecision{Granted: false, Reason: ReasonGraceExpired}
	}
}

// CalculateGracePeriodEnd returns when a grace period starting at fromDate
// ends, or nil for strategies that have no window to persist.
func (v *Verifier) CalculateGracePeriodEnd(fromDate time.Time) *time.Time {
	if v.graceStrategy != core.StrategyTimed {
		return nil
	}
	endsAt := fromDate.Add(v.graceDuration)
	return &endsAt
}
