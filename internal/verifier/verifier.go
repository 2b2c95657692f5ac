package verifier

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/neiii/stargate-better-auth/internal/cache"
	"github.com/neiii/stargate-better-auth/internal/core"
	"github.com/neiii/stargate-better-auth/internal/logging"
)

// Verifier is the verification-and-access-decision engine. It orchestrates
// cache-then-API star lookups with retry, deduplicates concurrent lookups per
// user and evaluates the grace-period policy.
//
// The verifier owns no durable state; everything persistent lives in the
// verification record behind the cache. The only in-memory state is the
// in-flight coalescing map, scoped to this instance.
type Verifier struct {
	repo          core.RepositoryRef
	cache         *cache.Cache
	checker       StarChecker
	failureMode   core.FailureMode
	graceStrategy core.GraceStrategy
	graceDuration time.Duration
	retry         RetryPolicy
	logger        logging.InternalLogger
	now           func() time.Time

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

// inflightCall is the shared handle all coalesced callers wait on.
// result is assigned exactly once, before done is closed.
type inflightCall struct {
	done   chan struct{}
	result core.VerificationResult
}

type Options struct {
	// Repository is the gating repository as "owner/repo". Required.
	Repository string

	// Cache is the verification cache. Required.
	Cache *cache.Cache

	// Checker performs the remote star lookup. Required.
	Checker StarChecker

	// OnAPIFailure defaults to allow.
	OnAPIFailure core.FailureMode

	// GraceStrategy defaults to immediate.
	GraceStrategy core.GraceStrategy

	// GraceDuration defaults to one hour. Only meaningful for timed.
	GraceDuration time.Duration

	// Retry overrides the remote-call retry policy. Zero value uses defaults.
	Retry RetryPolicy

	// Logger defaults to discarding.
	Logger logging.InternalLogger

	// Clock overrides the time source for tests.
	Clock func() time.Time
}

// New builds a Verifier. The repository string is parsed here; a malformed
// value is a deployment mistake and fails setup immediately.
func New(opts Options) (*Verifier, error) {
	repo, err := core.ParseRepositoryRef(opts.Repository)
	if err != nil {
		return nil, err
	}

	if opts.OnAPIFailure == "" {
		opts.OnAPIFailure = core.FailureAllow
	}
	if opts.GraceStrategy == "" {
		opts.GraceStrategy = core.StrategyImmediate
	}
	if opts.GraceDuration <= 0 {
		opts.GraceDuration = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Verifier{
		repo:          repo,
		cache:         opts.Cache,
		checker:       opts.Checker,
		failureMode:   opts.OnAPIFailure,
		graceStrategy: opts.GraceStrategy,
		graceDuration: opts.GraceDuration,
		retry:         opts.Retry,
		logger:        opts.Logger,
		now:           opts.Clock,
		inflight:      make(map[string]*inflightCall),
	}, nil
}

// Repository returns the canonical "owner/repo" key.
func (v *Verifier) Repository() string {
	return v.repo.Key()
}

// Ref returns the parsed repository reference.
func (v *Verifier) Ref() core.RepositoryRef {
	return v.repo
}

// VerifyStarStatus determines whether the user has starred the repository,
// serving from cache when a live record exists and calling GitHub otherwise.
//
// Concurrent calls for the same user share a single underlying lookup: the
// first caller inserts an in-flight handle and does the work, later callers
// wait on that handle and receive the identical result. The handle is removed
// once the lookup settles, success or not.
//
// Transport failures never escape; they resolve through the configured
// failure mode into a regular result carrying the error text.
func (v *Verifier) VerifyStarStatus(ctx context.Context, userID, accessToken string) core.VerificationResult {
	key := userID + ":" + v.repo.Key()

	v.mu.Lock()
	if call, ok := v.inflight[key]; ok {
		v.mu.Unlock()
		v.logger.Debug("coalescing star check for user '%s' into in-flight call", userID)
		<-call.done
		return call.result
	}
	call := &inflightCall{done: make(chan struct{})}
	v.inflight[key] = call
	v.mu.Unlock()

	result := v.verify(ctx, userID, accessToken)

	call.result = result
	v.mu.Lock()
	delete(v.inflight, key)
	v.mu.Unlock()
	close(call.done)

	return result
}

func (v *Verifier) verify(ctx context.Context, userID, accessToken string) core.VerificationResult {
	repoKey := v.repo.Key()

	rec, err := v.cache.Get(ctx, userID, repoKey)
	if err != nil {
		// a broken cache read degrades to a remote lookup
		v.logger.Warn("cache lookup for user '%s' failed: %v", userID, err)
	}
	if rec != nil {
		v.logger.Debug("star status for user '%s' served from cache (starred=%t)", userID, rec.HasStarred)
		return core.VerificationResult{HasStarred: rec.HasStarred, Cached: true}
	}

	starred, status, err := Retry(ctx, v.retry, func(ctx context.Context) (bool, int, error) {
		return v.checker.IsStarred(ctx, accessToken, v.repo)
	})

	switch {
	case status == http.StatusNoContent || (err == nil && starred):
		v.writeThrough(ctx, userID, repoKey, true)
		return core.VerificationResult{HasStarred: true}

	case status == http.StatusNotFound:
		v.writeThrough(ctx, userID, repoKey, false)
		return core.VerificationResult{HasStarred: false}

	case status == http.StatusUnauthorized:
		// token expired or revoked; never fall back to allow here
		v.logger.Warn("GitHub rejected access token for user '%s'", userID)
		return core.VerificationResult{
			HasStarred:     false,
			Err:            "GitHub authentication failed: access token expired or revoked",
			RequiresReauth: true,
		}

	case status == http.StatusForbidden:
		v.logger.Warn("GitHub returned 403 for user '%s', applying %s fallback", userID, v.failureMode)
		return core.VerificationResult{
			HasStarred: v.failureMode == core.FailureAllow,
			Err:        "GitHub API returned 403 for " + repoKey + " (rate limited or insufficient permissions)",
		}

	case err == nil && !starred:
		// go-github already folded a definitive "not starred" answer
		v.writeThrough(ctx, userID, repoKey, false)
		return core.VerificationResult{HasStarred: false}

	case status == 0:
		// transport failure, retries exhausted
		v.logger.Error("star check for user '%s' failed: %v", userID, err)
		return core.VerificationResult{
			HasStarred: v.failureMode == core.FailureAllow,
			Err:        err.Error(),
		}

	default:
		// persistent 5xx after retries, or an unexpected status
		msg := fmt.Sprintf("star check for %s failed with status %d", repoKey, status)
		v.logger.Error("%s (user '%s')", msg, userID)
		return core.VerificationResult{
			HasStarred: v.failureMode == core.FailureAllow,
			Err:        msg,
		}
	}
}

func (v *Verifier) writeThrough(ctx context.Context, userID, repoKey string, starred bool) {
	if _, err := v.cache.Set(ctx, userID, repoKey, starred, nil); err != nil {
		// the caller still gets the fresh result, the next check just pays
		// another API call
		v.logger.Error("failed to cache star status for user '%s': %v", userID, err)
	}
}
