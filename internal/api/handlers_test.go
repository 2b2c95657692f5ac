package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/neiii/stargate-better-auth/internal/audit"
	"github.com/neiii/stargate-better-auth/internal/cache"
	"github.com/neiii/stargate-better-auth/internal/core"
	"github.com/neiii/stargate-better-auth/internal/service"
	"github.com/neiii/stargate-better-auth/internal/store"
	"github.com/neiii/stargate-better-auth/internal/tasks"
	"github.com/neiii/stargate-better-auth/internal/verifier"
)

var testSigningKey = []byte("test-signing-key")

type fakeChecker struct {
	mu      sync.Mutex
	starred bool
	status  int
	calls   int
}

func (f *fakeChecker) IsStarred(context.Context, string, core.RepositoryRef) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.starred, f.status, nil
}

type apiEnv struct {
	handler http.Handler
	checker *fakeChecker
	storage *store.MemoryStorage
	auditor *audit.InMemoryAuditor
}

func newAPIEnv(t *testing.T, checker *fakeChecker) *apiEnv {
	t.Helper()

	storage := store.NewMemoryStorage()
	c := cache.New(storage, 15*time.Second)

	v, err := verifier.New(verifier.Options{
		Repository: "neiii/stargate",
		Cache:      c,
		Checker:    checker,
	})
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	gate := service.NewGateService(v, c, storage, "Please star %s to access this application")
	manager := tasks.NewManager()
	tasks.RegisterCleanupExpired(manager, c, time.Hour)
	auditor := audit.NewInMemoryAuditor()

	server := NewServer(gate, manager, auditor)
	return &apiEnv{
		handler: server.Routes(testSigningKey),
		checker: checker,
		storage: storage,
		auditor: auditor,
	}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func sessionToken(t *testing.T, userID string) string {
	return signToken(t, jwt.MapClaims{
		"sub":          userID,
		"github_token": "gho_testtoken",
		"sid":          "sess-" + userID,
	})
}

func adminToken(t *testing.T) string {
	return signToken(t, jwt.MapClaims{
		"sub":   "admin-1",
		"roles": []any{"admin"},
	})
}

func doRequest(t *testing.T, env *apiEnv, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: true, status: 204})

	rec := doRequest(t, env, http.MethodGet, HealthCheckRoute, "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
}

func TestAboutExposesBuildInfo(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: true, status: 204})

	rec := doRequest(t, env, http.MethodGet, AboutRoute, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var info map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if info["service"] != "Stargate" {
		t.Errorf("service = %v, want Stargate", info["service"])
	}
}

func TestStatusRequiresSession(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: true, status: 204})

	rec := doRequest(t, env, http.MethodGet, StatusRoute, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if env.checker.calls != 0 {
		t.Errorf("no API call should happen without a session, got %d", env.checker.calls)
	}
}

func TestStatusRejectsRunTogetherBearerHeader(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: true, status: 204})

	req := httptest.NewRequest(http.MethodGet, StatusRoute, nil)
	req.Header.Set("Authorization", "Bearer"+sessionToken(t, "user-1"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if env.checker.calls != 0 {
		t.Errorf("no API call should happen for a malformed header, got %d", env.checker.calls)
	}
}

func TestStatusReturnsStanding(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: true, status: 204})

	rec := doRequest(t, env, http.MethodGet, StatusRoute, sessionToken(t, "user-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var status service.GateStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if !status.Granted || !status.HasStarred {
		t.Errorf("unexpected standing: granted=%t starred=%t", status.Granted, status.HasStarred)
	}
	if status.Repository != "neiii/stargate" {
		t.Errorf("repository = %s, want neiii/stargate", status.Repository)
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("response should carry a correlation ID")
	}
}

func TestLoginHookDenialCarriesStableCode(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: false, status: 404})
	env.storage.PutSession(core.SessionRecord{ID: "sess-user-1", UserID: "user-1"})

	rec := doRequest(t, env, http.MethodPost, LoginHookRoute, sessionToken(t, "user-1"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if resp.Code != service.CodeStarRequired {
		t.Errorf("code = %s, want %s", resp.Code, service.CodeStarRequired)
	}

	// the session must be gone after a denial
	sess, err := env.storage.FindSession(context.Background(), "sess-user-1")
	if err != nil {
		t.Fatalf("FindSession failed: %v", err)
	}
	if sess != nil {
		t.Error("session should be deleted on denial")
	}
}

func TestLoginHookGrantWritesAudit(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: true, status: 204})
	env.storage.PutSession(core.SessionRecord{ID: "sess-user-1", UserID: "user-1"})

	rec := doRequest(t, env, http.MethodPost, LoginHookRoute, sessionToken(t, "user-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	entries, err := env.auditor.Find(func(entry core.AuditEntry) bool {
		return entry.Action == "login.verify" && entry.UserID == "user-1"
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if !entries[0].Granted || !entries[0].HasStarred {
		t.Errorf("audit entry: granted=%t starred=%t", entries[0].Granted, entries[0].HasStarred)
	}
}

func TestRefreshBypassesCache(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: true, status: 204})
	token := sessionToken(t, "user-1")

	if rec := doRequest(t, env, http.MethodGet, StatusRoute, token); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec := doRequest(t, env, http.MethodPost, RefreshRoute, token); rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200", rec.Code)
	}
	if env.checker.calls != 2 {
		t.Errorf("API calls = %d, want 2 (refresh must bypass the cache)", env.checker.calls)
	}
}

func TestRefreshIsRateLimited(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: true, status: 204})
	token := sessionToken(t, "user-1")

	limited := false
	for range 10 {
		rec := doRequest(t, env, http.MethodPost, RefreshRoute, token)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected a 429 after exhausting the refresh budget")
	}
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: true, status: 204})

	rec := doRequest(t, env, http.MethodGet, ListRecordsRoute, sessionToken(t, "user-1"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAdminRecordsListsVerifications(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: true, status: 204})

	// populate one record through the public surface
	if rec := doRequest(t, env, http.MethodGet, StatusRoute, sessionToken(t, "user-1")); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec := doRequest(t, env, http.MethodGet, ListRecordsRoute, adminToken(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var records []core.VerificationRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].UserID != "user-1" || !records[0].HasStarred {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestTaskTriggerAndList(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: true, status: 204})
	token := adminToken(t)

	rec := doRequest(t, env, http.MethodPost, "/v1/tasks/cleanup-expired/trigger", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("trigger status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, env, http.MethodGet, ListTasksRoute, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var statuses []tasks.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &statuses); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Name != tasks.CleanupExpiredTaskName {
		t.Errorf("unexpected task list: %+v", statuses)
	}
}

func TestTriggerUnknownTaskIsNotFound(t *testing.T) {
	env := newAPIEnv(t, &fakeChecker{starred: true, status: 204})

	rec := doRequest(t, env, http.MethodPost, "/v1/tasks/nope/trigger", adminToken(t))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}
