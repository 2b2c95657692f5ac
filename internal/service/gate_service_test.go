package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neiii/stargate-better-auth/internal/cache"
	"github.com/neiii/stargate-better-auth/internal/core"
	"github.com/neiii/stargate-better-auth/internal/store"
	"github.com/neiii/stargate-better-auth/internal/verifier"
)

type fakeChecker struct {
	mu      sync.Mutex
	starred bool
	status  int
	err     error
	calls   int
}

func (f *fakeChecker) IsStarred(context.Context, string, core.RepositoryRef) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.starred, f.status, f.err
}

func (f *fakeChecker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

type gateEnv struct {
	service *GateService
	storage *store.MemoryStorage
	checker *fakeChecker
	clock   *fakeClock
}

func newGateEnv(t *testing.T, checker *fakeChecker, strategy core.GraceStrategy, graceDuration time.Duration) *gateEnv {
	return newGateEnvMode(t, checker, strategy, graceDuration, core.FailureAllow)
}

func newGateEnvMode(t *testing.T, checker *fakeChecker, strategy core.GraceStrategy, graceDuration time.Duration, onFailure core.FailureMode) *gateEnv {
	t.Helper()

	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	storage := store.NewMemoryStorage()
	c := cache.New(storage, 15*time.Second, cache.WithClock(clock.Now))

	v, err := verifier.New(verifier.Options{
		Repository:    "neiii/stargate",
		Cache:         c,
		Checker:       checker,
		OnAPIFailure:  onFailure,
		GraceStrategy: strategy,
		GraceDuration: graceDuration,
		Retry:         verifier.RetryPolicy{Sleep: func(time.Duration) {}},
		Clock:         clock.Now,
	})
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	svc := NewGateService(v, c, storage, "Please star %s to access this application").
		WithClock(clock.Now)
	return &gateEnv{service: svc, storage: storage, checker: checker, clock: clock}
}

func (e *gateEnv) seedSession(id, userID string) {
	e.storage.PutSession(core.SessionRecord{ID: id, UserID: userID})
}

func asHTTPError(t *testing.T, err error) *HTTPError {
	t.Helper()
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T: %v", err, err)
	}
	return httpErr
}

func TestHandleLoginGrantsStarredUser(t *testing.T) {
	env := newGateEnv(t, &fakeChecker{starred: true, status: 204}, core.StrategyImmediate, 0)
	env.seedSession("sess-1", "user-1")

	result, err := env.service.HandleLogin(context.Background(), "user-1", "gho_token", "sess-1")
	if err != nil {
		t.Fatalf("HandleLogin failed: %v", err)
	}
	if !result.Decision.Granted {
		t.Errorf("expected access granted, got denied (%s)", result.Decision.Reason)
	}
	if result.Decision.Reason != verifier.ReasonStarred {
		t.Errorf("unexpected reason: %s", result.Decision.Reason)
	}

	sess, err := env.storage.FindSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("FindSession failed: %v", err)
	}
	if sess == nil {
		t.Fatal("session should survive a granted login")
	}
	if !sess.HasStarAccess {
		t.Error("session should carry HasStarAccess=true")
	}
	if sess.StarVerifiedAt == nil || !sess.StarVerifiedAt.Equal(env.clock.Now()) {
		t.Errorf("session StarVerifiedAt = %v, want %v", sess.StarVerifiedAt, env.clock.Now())
	}
}

func TestHandleLoginDeniesUnstarredUser(t *testing.T) {
	env := newGateEnv(t, &fakeChecker{starred: false, status: 404}, core.StrategyImmediate, 0)
	env.seedSession("sess-1", "user-1")

	_, err := env.service.HandleLogin(context.Background(), "user-1", "gho_token", "sess-1")
	if err == nil {
		t.Fatal("expected denial error")
	}

	httpErr := asHTTPError(t, err)
	if httpErr.StatusCode != 403 {
		t.Errorf("status = %d, want 403", httpErr.StatusCode)
	}
	if httpErr.Code != CodeStarRequired {
		t.Errorf("code = %s, want %s", httpErr.Code, CodeStarRequired)
	}
	want := "Please star neiii/stargate to access this application"
	if httpErr.Error() != want {
		t.Errorf("message = %q, want %q", httpErr.Error(), want)
	}

	sess, err := env.storage.FindSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("FindSession failed: %v", err)
	}
	if sess != nil {
		t.Error("session should be deleted on denial")
	}

	rec, err := env.storage.FindOneVerification(context.Background(),
		core.Eq(core.FieldUserID, "user-1"))
	if err != nil {
		t.Fatalf("FindOneVerification failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a verification record for the denied user")
	}
	if rec.AccessRevokedAt == nil {
		t.Error("denial should stamp AccessRevokedAt")
	}
}

func TestHandleLoginRequiresReauthOnExpiredToken(t *testing.T) {
	env := newGateEnv(t, &fakeChecker{status: 401}, core.StrategyImmediate, 0)
	env.seedSession("sess-1", "user-1")

	_, err := env.service.HandleLogin(context.Background(), "user-1", "gho_expired", "sess-1")
	if err == nil {
		t.Fatal("expected reauth error")
	}

	httpErr := asHTTPError(t, err)
	if httpErr.StatusCode != 401 {
		t.Errorf("status = %d, want 401", httpErr.StatusCode)
	}
	if httpErr.Code != CodeReauthRequired {
		t.Errorf("code = %s, want %s", httpErr.Code, CodeReauthRequired)
	}

	sess, err := env.storage.FindSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("FindSession failed: %v", err)
	}
	if sess != nil {
		t.Error("session should be deleted when reauth is required")
	}
}

func TestHandleLoginRejectsMissingToken(t *testing.T) {
	env := newGateEnv(t, &fakeChecker{starred: true, status: 204}, core.StrategyImmediate, 0)

	_, err := env.service.HandleLogin(context.Background(), "user-1", "", "sess-1")
	if err == nil {
		t.Fatal("expected account-not-linked error")
	}

	httpErr := asHTTPError(t, err)
	if httpErr.StatusCode != 401 {
		t.Errorf("status = %d, want 401", httpErr.StatusCode)
	}
	if httpErr.Code != CodeAccountNotLinked {
		t.Errorf("code = %s, want %s", httpErr.Code, CodeAccountNotLinked)
	}
	if env.checker.callCount() != 0 {
		t.Errorf("no API call should happen without a token, got %d", env.checker.callCount())
	}
}

func TestHandleLoginStartsTimedGracePeriodOnUnstar(t *testing.T) {
	checker := &fakeChecker{starred: true, status: 204}
	env := newGateEnv(t, checker, core.StrategyTimed, time.Hour)
	env.seedSession("sess-1", "user-1")

	// first login while starred establishes the grant
	if _, err := env.service.HandleLogin(context.Background(), "user-1", "gho_token", "sess-1"); err != nil {
		t.Fatalf("initial login failed: %v", err)
	}

	// cache expires, then the user un-stars
	env.clock.Advance(20 * time.Second)
	checker.mu.Lock()
	checker.starred = false
	checker.status = 404
	checker.mu.Unlock()

	result, err := env.service.HandleLogin(context.Background(), "user-1", "gho_token", "sess-1")
	if err != nil {
		t.Fatalf("login during grace window failed: %v", err)
	}
	if !result.Decision.Granted {
		t.Fatalf("expected grace-period grant, got denial (%s)", result.Decision.Reason)
	}
	if result.Decision.Reason != verifier.ReasonGraceStarting {
		t.Errorf("reason = %s, want %s", result.Decision.Reason, verifier.ReasonGraceStarting)
	}
	if !result.Decision.GracePeriodActive {
		t.Error("decision should flag the grace period as active")
	}

	wantEnd := env.clock.Now().Add(time.Hour)
	if result.GracePeriodEndsAt == nil || !result.GracePeriodEndsAt.Equal(wantEnd) {
		t.Errorf("GracePeriodEndsAt = %v, want %v", result.GracePeriodEndsAt, wantEnd)
	}

	rec, err := env.storage.FindOneVerification(context.Background(),
		core.Eq(core.FieldUserID, "user-1"))
	if err != nil {
		t.Fatalf("FindOneVerification failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a verification record")
	}
	if rec.GracePeriodEndsAt == nil || !rec.GracePeriodEndsAt.Equal(wantEnd) {
		t.Errorf("persisted GracePeriodEndsAt = %v, want %v", rec.GracePeriodEndsAt, wantEnd)
	}
	if rec.GracePeriodStartedAt == nil || !rec.GracePeriodStartedAt.Equal(env.clock.Now()) {
		t.Errorf("persisted GracePeriodStartedAt = %v, want %v", rec.GracePeriodStartedAt, env.clock.Now())
	}
	if rec.AccessGrantedAt == nil {
		t.Error("un-starring must not clear AccessGrantedAt")
	}

	sess, err := env.storage.FindSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("FindSession failed: %v", err)
	}
	if sess == nil {
		t.Fatal("session should survive a grace-period grant")
	}
	if !sess.GracePeriodActive {
		t.Error("session should carry GracePeriodActive=true")
	}
}

func TestHandleLoginStartsGraceFromExpiredRecordOnAPIOutage(t *testing.T) {
	checker := &fakeChecker{starred: true, status: 204}
	env := newGateEnvMode(t, checker, core.StrategyTimed, time.Hour, core.FailureDeny)
	env.seedSession("sess-1", "user-1")

	// first login while starred establishes the grant
	if _, err := env.service.HandleLogin(context.Background(), "user-1", "gho_token", "sess-1"); err != nil {
		t.Fatalf("initial login failed: %v", err)
	}

	// record expires, then GitHub becomes unreachable; the deny fallback
	// writes nothing back, so the expired record holds the only grant stamp
	env.clock.Advance(20 * time.Second)
	checker.mu.Lock()
	checker.starred = false
	checker.status = 0
	checker.err = errors.New("connection refused")
	checker.mu.Unlock()

	result, err := env.service.HandleLogin(context.Background(), "user-1", "gho_token", "sess-1")
	if err != nil {
		t.Fatalf("login during outage failed: %v", err)
	}
	if !result.Decision.Granted {
		t.Fatalf("expected grace-period grant, got denial (%s)", result.Decision.Reason)
	}
	if result.Decision.Reason != verifier.ReasonGraceStarting {
		t.Errorf("reason = %s, want %s", result.Decision.Reason, verifier.ReasonGraceStarting)
	}

	wantEnd := env.clock.Now().Add(time.Hour)
	if result.GracePeriodEndsAt == nil || !result.GracePeriodEndsAt.Equal(wantEnd) {
		t.Errorf("GracePeriodEndsAt = %v, want %v", result.GracePeriodEndsAt, wantEnd)
	}

	rec, err := env.storage.FindOneVerification(context.Background(),
		core.Eq(core.FieldUserID, "user-1"))
	if err != nil {
		t.Fatalf("FindOneVerification failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected the original verification record to survive")
	}
	if rec.GracePeriodEndsAt == nil || !rec.GracePeriodEndsAt.Equal(wantEnd) {
		t.Errorf("persisted GracePeriodEndsAt = %v, want %v", rec.GracePeriodEndsAt, wantEnd)
	}
}

func TestHandleLoginDeniesAfterGraceExpiry(t *testing.T) {
	checker := &fakeChecker{starred: true, status: 204}
	env := newGateEnv(t, checker, core.StrategyTimed, time.Hour)
	env.seedSession("sess-1", "user-1")

	if _, err := env.service.HandleLogin(context.Background(), "user-1", "gho_token", "sess-1"); err != nil {
		t.Fatalf("initial login failed: %v", err)
	}

	env.clock.Advance(20 * time.Second)
	checker.mu.Lock()
	checker.starred = false
	checker.status = 404
	checker.mu.Unlock()

	if _, err := env.service.HandleLogin(context.Background(), "user-1", "gho_token", "sess-1"); err != nil {
		t.Fatalf("login at grace start failed: %v", err)
	}

	// past the deadline the grant is gone
	env.clock.Advance(2 * time.Hour)
	env.seedSession("sess-1", "user-1")

	_, err := env.service.HandleLogin(context.Background(), "user-1", "gho_token", "sess-1")
	if err == nil {
		t.Fatal("expected denial after grace expiry")
	}
	httpErr := asHTTPError(t, err)
	if httpErr.Code != CodeStarRequired {
		t.Errorf("code = %s, want %s", httpErr.Code, CodeStarRequired)
	}
}

func TestStatusServesFromCache(t *testing.T) {
	checker := &fakeChecker{starred: true, status: 204}
	env := newGateEnv(t, checker, core.StrategyImmediate, 0)

	first, err := env.service.Status(context.Background(), "user-1", "gho_token")
	if err != nil {
		t.Fatalf("first Status failed: %v", err)
	}
	if first.Cached {
		t.Error("first status should be a fresh lookup")
	}

	second, err := env.service.Status(context.Background(), "user-1", "gho_token")
	if err != nil {
		t.Fatalf("second Status failed: %v", err)
	}
	if !second.Cached {
		t.Error("second status should be served from cache")
	}
	if !second.Granted || !second.HasStarred {
		t.Errorf("unexpected status: granted=%t starred=%t", second.Granted, second.HasStarred)
	}
	if second.Repository != "neiii/stargate" {
		t.Errorf("repository = %s, want neiii/stargate", second.Repository)
	}
	if second.LastCheckedAt == nil || second.ExpiresAt == nil {
		t.Error("cached status should expose record timestamps")
	}
	if env.checker.callCount() != 1 {
		t.Errorf("API calls = %d, want 1", env.checker.callCount())
	}
}

func TestRefreshForcesFreshLookup(t *testing.T) {
	checker := &fakeChecker{starred: true, status: 204}
	env := newGateEnv(t, checker, core.StrategyImmediate, 0)

	if _, err := env.service.Status(context.Background(), "user-1", "gho_token"); err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if env.checker.callCount() != 1 {
		t.Fatalf("API calls = %d, want 1", env.checker.callCount())
	}

	status, err := env.service.Refresh(context.Background(), "user-1", "gho_token")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if status.Cached {
		t.Error("refresh must bypass the cache")
	}
	if env.checker.callCount() != 2 {
		t.Errorf("API calls = %d, want 2", env.checker.callCount())
	}
}
