package cache

import (
	"context"
	"testing"
	"time"

	"github.com/neiii/stargate-better-auth/internal/store"
)

const (
	testUser = "user-1"
	testRepo = "neiii/stargate"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	current time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.current
}

func (f *fakeClock) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}

func newTestCache(t *testing.T) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New(store.NewMemoryStorage(), 15*time.Minute, WithClock(clock.Now))
	return c, clock
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	rec, err := c.Set(ctx, testUser, testRepo, true, nil)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if rec.ID == "" {
		t.Error("record should get an opaque id")
	}
	if rec.AccessGrantedAt == nil {
		t.Error("first starred set should stamp AccessGrantedAt")
	}

	got, err := c.Get(ctx, testUser, testRepo)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || !got.HasStarred {
		t.Fatalf("expected live starred record, got %+v", got)
	}
}

func TestCacheExpiryHidesButDoesNotDelete(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t)

	rec, err := c.Set(ctx, testUser, testRepo, true, nil)
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	clock.Advance(16 * time.Minute)

	got, err := c.Get(ctx, testUser, testRepo)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expired record should be invisible to Get, got %+v", got)
	}

	// Peek bypasses expiry so the policy still sees the grant timestamp
	peeked, err := c.Peek(ctx, testUser, testRepo)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if peeked == nil || peeked.ID != rec.ID {
		t.Fatalf("Peek should return the expired record, got %+v", peeked)
	}
	if peeked.AccessGrantedAt == nil {
		t.Error("expired record should keep AccessGrantedAt")
	}

	// the physical record is still there: a Set updates it instead of duplicating
	updated, err := c.Set(ctx, testUser, testRepo, false, nil)
	if err != nil {
		t.Fatalf("set after expiry: %v", err)
	}
	if updated.ID != rec.ID {
		t.Errorf("upsert after expiry created a new record: %s != %s", updated.ID, rec.ID)
	}
}

func TestCacheGrantDatePreservation(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t)

	first, err := c.Set(ctx, testUser, testRepo, true, nil)
	if err != nil {
		t.Fatalf("set starred: %v", err)
	}
	originalGrant := *first.AccessGrantedAt

	clock.Advance(time.Minute)
	unstarred, err := c.Set(ctx, testUser, testRepo, false, nil)
	if err != nil {
		t.Fatalf("set un-starred: %v", err)
	}
	if unstarred.AccessGrantedAt == nil || !unstarred.AccessGrantedAt.Equal(originalGrant) {
		t.Errorf("un-starring must preserve AccessGrantedAt, got %v", unstarred.AccessGrantedAt)
	}

	clock.Advance(time.Minute)
	restarred, err := c.Set(ctx, testUser, testRepo, true, nil)
	if err != nil {
		t.Fatalf("set re-starred: %v", err)
	}
	if !restarred.AccessGrantedAt.Equal(originalGrant) {
		t.Errorf("re-starring must keep the original grant date, got %v", restarred.AccessGrantedAt)
	}
}

func TestCacheNoGrantDateWithoutStar(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	rec, err := c.Set(ctx, testUser, testRepo, false, nil)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if rec.AccessGrantedAt != nil {
		t.Errorf("never-starred record should not carry a grant date, got %v", rec.AccessGrantedAt)
	}

	rec, err = c.Set(ctx, testUser, testRepo, false, nil)
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if rec.AccessGrantedAt != nil {
		t.Errorf("repeated un-starred set should leave AccessGrantedAt nil, got %v", rec.AccessGrantedAt)
	}
}

func TestCacheExplicitGrantOverride(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t)

	override := clock.Now().Add(-24 * time.Hour)
	rec, err := c.Set(ctx, testUser, testRepo, true, &override)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !rec.AccessGrantedAt.Equal(override) {
		t.Errorf("explicit grant date should win, got %v", rec.AccessGrantedAt)
	}
}

func TestCacheGracePeriodAndRevocation(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t)

	rec, err := c.Set(ctx, testUser, testRepo, false, nil)
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	endsAt := clock.Now().Add(time.Hour)
	if err := c.SetGracePeriodEnd(ctx, rec.ID, endsAt); err != nil {
		t.Fatalf("set grace period end: %v", err)
	}
	if err := c.MarkRevoked(ctx, rec.ID); err != nil {
		t.Fatalf("mark revoked: %v", err)
	}

	got, err := c.Get(ctx, testUser, testRepo)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.GracePeriodEndsAt == nil || !got.GracePeriodEndsAt.Equal(endsAt) {
		t.Errorf("grace period end not persisted: %v", got.GracePeriodEndsAt)
	}
	if got.GracePeriodStartedAt == nil {
		t.Error("grace period start should be stamped alongside the end")
	}
	if got.AccessRevokedAt == nil {
		t.Error("revocation timestamp not persisted")
	}
}

func TestCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	// invalidating a missing pair is a no-op, not an error
	if err := c.Invalidate(ctx, testUser, testRepo); err != nil {
		t.Fatalf("invalidate on empty cache: %v", err)
	}

	if _, err := c.Set(ctx, testUser, testRepo, true, nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Invalidate(ctx, testUser, testRepo); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	got, err := c.Get(ctx, testUser, testRepo)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("record should be gone after invalidate, got %+v", got)
	}
}

func TestCacheCleanupExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	storage := store.NewMemoryStorage()
	c := New(storage, 15*time.Minute, WithClock(clock.Now))

	if _, err := c.Set(ctx, "user-a", testRepo, true, nil); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if _, err := c.Set(ctx, "user-b", testRepo, false, nil); err != nil {
		t.Fatalf("set b: %v", err)
	}

	clock.Advance(20 * time.Minute)

	if _, err := c.Set(ctx, "user-c", testRepo, true, nil); err != nil {
		t.Fatalf("set c: %v", err)
	}

	deleted, err := c.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deletions, got %d", deleted)
	}

	remaining, err := storage.FindVerifications(ctx)
	if err != nil {
		t.Fatalf("find remaining: %v", err)
	}
	if len(remaining) != 1 || remaining[0].UserID != "user-c" {
		t.Errorf("unexpected remaining records: %+v", remaining)
	}
}
