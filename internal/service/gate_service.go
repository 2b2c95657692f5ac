package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neiii/stargate-better-auth/internal/cache"
	"github.com/neiii/stargate-better-auth/internal/core"
	"github.com/neiii/stargate-better-auth/internal/verifier"
)

// GateService wires the verifier and cache into the host auth framework's
// lifecycle: it runs the post-login hook, serves the status endpoint and
// handles forced refreshes. Denials and reauth signals surface as HTTPErrors
// with stable codes; everything else resolves into a result.
type GateService struct {
	verifier            *verifier.Verifier
	cache               *cache.Cache
	storage             core.Storage
	starRequiredMessage string
	now                 func() time.Time
}

func NewGateService(
	v *verifier.Verifier,
	c *cache.Cache,
	storage core.Storage,
	starRequiredMessage string,
) *GateService {
	return &GateService{
		verifier:            v,
		cache:               c,
		storage:             storage,
		starRequiredMessage: starRequiredMessage,
		now:                 time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *GateService) WithClock(now func() time.Time) *GateService {
	s.now = now
	return s
}

// Repository returns the canonical "owner/repo" key of the gating repository.
func (s *GateService) Repository() string {
	return s.verifier.Repository()
}

// HandleLogin is the post-authentication hook. It verifies star status,
// evaluates the grace-period policy, persists a freshly started grace window,
// updates the session extension fields and tears the session down on denial.
func (s *GateService) HandleLogin(ctx context.Context, userID, accessToken, sessionID string) (*LoginResult, error) {
	if accessToken == "" {
		// the user authenticated through another provider and has no linked
		// GitHub account; the client routes this to the link-account flow
		return nil, httpError(401, CodeAccountNotLinked,
			errors.New("no GitHub access token available, link your GitHub account"))
	}

	result := s.verifier.VerifyStarStatus(ctx, userID, accessToken)
	if result.RequiresReauth {
		s.dropSession(ctx, sessionID)
		return nil, httpError(401, CodeReauthRequired, errors.New(result.Err))
	}

	rec, decision := s.decide(ctx, userID, result)

	var graceEndsAt *time.Time
	if rec != nil && rec.GracePeriodEndsAt != nil {
		graceEndsAt = rec.GracePeriodEndsAt
	}

	// first detected un-star under the timed strategy: persist the window so
	// the next check evaluates against a concrete deadline
	if decision.Granted && decision.Reason == verifier.ReasonGraceStarting && rec != nil {
		if endsAt := s.verifier.CalculateGracePeriodEnd(s.now()); endsAt != nil {
			if err := s.cache.SetGracePeriodEnd(ctx, rec.ID, *endsAt); err != nil {
				return nil, fmt.Errorf("persisting grace period: %w", err)
			}
			graceEndsAt = endsAt
		}
	}

	if !decision.Granted {
		if rec != nil {
			if err := s.cache.MarkRevoked(ctx, rec.ID); err != nil {
				return nil, fmt.Errorf("marking access revoked: %w", err)
			}
		}
		s.dropSession(ctx, sessionID)
		msg := fmt.Sprintf(s.starRequiredMessage, s.verifier.Repository())
		return nil, httpError(403, CodeStarRequired, errors.New(msg))
	}

	if err := s.updateSession(ctx, sessionID, decision, graceEndsAt); err != nil {
		return nil, err
	}

	return &LoginResult{
		Verification:      result,
		Decision:          decision,
		GracePeriodEndsAt: graceEndsAt,
	}, nil
}

// Status reports the user's current standing. Served from cache unless the
// record expired, in which case the verifier refreshes it.
func (s *GateService) Status(ctx context.Context, userID, accessToken string) (*GateStatus, error) {
	if accessToken == "" {
		return nil, httpError(401, CodeAccountNotLinked,
			errors.New("no GitHub access token available, link your GitHub account"))
	}

	result := s.verifier.VerifyStarStatus(ctx, userID, accessToken)
	if result.RequiresReauth {
		return nil, httpError(401, CodeReauthRequired, errors.New(result.Err))
	}

	rec, decision := s.decide(ctx, userID, result)
	return s.status(result, rec, decision), nil
}

// Refresh invalidates the cache for the user and forces a fresh lookup.
func (s *GateService) Refresh(ctx context.Context, userID, accessToken string) (*GateStatus, error) {
	if err := s.cache.Invalidate(ctx, userID, s.verifier.Repository()); err != nil {
		return nil, fmt.Errorf("invalidating cache: %w", err)
	}
	return s.Status(ctx, userID, accessToken)
}

// Records lists all verification records. Admin surface.
func (s *GateService) Records(ctx context.Context) ([]core.VerificationRecord, error) {
	return s.storage.FindVerifications(ctx)
}

// decide loads the user's record (for the grant/grace timestamps) and runs
// the policy over it together with the fresh verification result. The lookup
// bypasses cache expiry: when a verify path writes nothing back, say on a
// deny fallback during an API outage, an expired record's grant timestamp
// must still seed the grace-period machinery.
func (s *GateService) decide(ctx context.Context, userID string, result core.VerificationResult) (*core.VerificationRecord, core.AccessDecision) {
	rec, err := s.cache.Peek(ctx, userID, s.verifier.Repository())
	if err != nil {
		rec = nil
	}

	input := core.PolicyInput{HasStarred: result.HasStarred}
	if rec != nil {
		input.AccessGrantedAt = rec.AccessGrantedAt
		input.GracePeriodEndsAt = rec.GracePeriodEndsAt
		input.GracePeriodStartedAt = rec.GracePeriodStartedAt
	}
	return rec, s.verifier.ShouldGrantAccess(input)
}

func (s *GateService) status(result core.VerificationResult, rec *core.VerificationRecord, decision core.AccessDecision) *GateStatus {
	st := &GateStatus{
		Repository:        s.verifier.Repository(),
		HasStarred:        result.HasStarred,
		Cached:            result.Cached,
		Granted:           decision.Granted,
		Reason:            decision.Reason,
		GracePeriodActive: decision.GracePeriodActive,
		Error:             result.Err,
	}
	if rec != nil {
		st.LastCheckedAt = &rec.LastCheckedAt
		st.ExpiresAt = &rec.ExpiresAt
		st.GracePeriodEndsAt = rec.GracePeriodEndsAt
	}
	return st
}

func (s *GateService) updateSession(ctx context.Context, sessionID string, decision core.AccessDecision, graceEndsAt *time.Time) error {
	if sessionID == "" {
		return nil
	}
	now := s.now()
	update := core.SessionUpdate{
		HasStarAccess:     &decision.Granted,
		StarVerifiedAt:    &now,
		GracePeriodActive: &decision.GracePeriodActive,
		GracePeriodEndsAt: graceEndsAt,
	}
	if err := s.storage.UpdateSession(ctx, sessionID, update); err != nil {
		return fmt.Errorf("updating session '%s': %w", sessionID, err)
	}
	return nil
}

func (s *GateService) dropSession(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	// best effort: the session layer enforces expiry anyway
	_ = s.storage.DeleteSession(ctx, sessionID)
}
