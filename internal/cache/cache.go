package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/neiii/stargate-better-auth/internal/core"
	"github.com/neiii/stargate-better-auth/internal/logging"
)

// Cache owns the verification record lifecycle on top of the storage port:
// read-with-expiry-check, upsert with grant-date preservation, targeted field
// updates, invalidation and the expired-record sweep.
type Cache struct {
	storage core.Storage
	ttl     time.Duration
	logger  logging.InternalLogger
	now     func() time.Time
}

type Option func(*Cache)

// WithLogger injects the diagnostic logger. Defaults to discarding.
func WithLogger(logger logging.InternalLogger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithClock overrides the time source. Tests use this to control expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(storage core.Storage, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		storage: storage,
		ttl:     ttl,
		logger:  logging.NopLogger{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live record for the pair, or nil when no record exists OR
// the record has expired. Expired records are logically invisible to readers
// even though they stay stored until the sweep removes them.
func (c *Cache) Get(ctx context.Context, userID, repository string) (*core.VerificationRecord, error) {
	rec, err := c.find(ctx, userID, repository)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if rec.Expired(c.now()) {
		c.logger.Debug("verification record for user '%s' expired at %s, treating as absent",
			userID, rec.ExpiresAt.Format(time.RFC3339))
		return nil, nil
	}
	return rec, nil
}

// Peek returns the stored record for the pair regardless of expiry. The
// grace-period policy needs the grant and grace timestamps even when the
// cache window has lapsed; only star-status reads honor expiry.
func (c *Cache) Peek(ctx context.Context, userID, repository string) (*core.VerificationRecord, error) {
	return c.find(ctx, userID, repository)
}

// Set upserts the record for the pair and returns the stored state.
//
// Grant-date rule: when hasStarred is true, AccessGrantedAt becomes the
// explicit grantedAt override if given, else the prior record's value, else
// now (first-time grant). When hasStarred is false the prior value carries
// over unchanged; un-starring never clears a grant timestamp, the
// grace-period machinery handles that.
func (c *Cache) Set(ctx context.Context, userID, repository string, hasStarred bool, grantedAt *time.Time) (*core.VerificationRecord, error) {
	now := c.now()
	expiresAt := now.Add(c.ttl)

	// lookup bypasses the expiry check: an expired record is still the one
	// physical record for the pair and must be updated, not duplicated
	existing, err := c.find(ctx, userID, repository)
	if err != nil {
		return nil, err
	}

	var accessGrantedAt *time.Time
	if hasStarred {
		switch {
		case grantedAt != nil:
			accessGrantedAt = grantedAt
		case existing != nil && existing.AccessGrantedAt != nil:
			accessGrantedAt = existing.AccessGrantedAt
		default:
			accessGrantedAt = &now
		}
	} else if existing != nil {
		accessGrantedAt = existing.AccessGrantedAt
	}

	if existing == nil {
		rec := core.VerificationRecord{
			ID:              xid.New().String(),
			UserID:          userID,
			Repository:      repository,
			HasStarred:      hasStarred,
			LastCheckedAt:   now,
			ExpiresAt:       expiresAt,
			AccessGrantedAt: accessGrantedAt,
			CreatedAt:       now,
		}
		if err := c.storage.CreateVerification(ctx, rec); err != nil {
			return nil, fmt.Errorf("creating verification record: %w", err)
		}
		c.logger.Debug("created verification record '%s' for user '%s' (starred=%t)", rec.ID, userID, hasStarred)
		return &rec, nil
	}

	update := core.VerificationUpdate{
		HasStarred:      &hasStarred,
		LastCheckedAt:   &now,
		ExpiresAt:       &expiresAt,
		AccessGrantedAt: accessGrantedAt,
	}
	if err := c.storage.UpdateVerification(ctx, existing.ID, update); err != nil {
		return nil, fmt.Errorf("updating verification record '%s': %w", existing.ID, err)
	}

	existing.HasStarred = hasStarred
	existing.LastCheckedAt = now
	existing.ExpiresAt = expiresAt
	existing.AccessGrantedAt = accessGrantedAt
	c.logger.Debug("updated verification record '%s' for user '%s' (starred=%t)", existing.ID, userID, hasStarred)
	return existing, nil
}

// SetGracePeriodEnd persists the computed grace-period end on one record.
func (c *Cache) SetGracePeriodEnd(ctx context.Context, id string, endsAt time.Time) error {
	now := c.now()
	update := core.VerificationUpdate{
		GracePeriodStartedAt: &now,
		GracePeriodEndsAt:    &endsAt,
	}
	if err := c.storage.UpdateVerification(ctx, id, update); err != nil {
		return fmt.Errorf("setting grace period end on record '%s': %w", id, err)
	}
	return nil
}

// MarkRevoked stamps the revocation audit timestamp on one record.
func (c *Cache) MarkRevoked(ctx context.Context, id string) error {
	now := c.now()
	update := core.VerificationUpdate{
		AccessRevokedAt: &now,
	}
	if err := c.storage.UpdateVerification(ctx, id, update); err != nil {
		return fmt.Errorf("marking record '%s' revoked: %w", id, err)
	}
	return nil
}

// Invalidate deletes the record for the pair. Missing records are a no-op:
// a forced refresh on a cold cache is not an error.
func (c *Cache) Invalidate(ctx context.Context, userID, repository string) error {
	rec, err := c.find(ctx, userID, repository)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	if err := c.storage.DeleteVerification(ctx, rec.ID); err != nil {
		return fmt.Errorf("invalidating verification record '%s': %w", rec.ID, err)
	}
	c.logger.Debug("invalidated verification record '%s' for user '%s'", rec.ID, userID)
	return nil
}

// CleanupExpired deletes every record whose expiry has passed, across all
// users and repositories, and returns how many were removed. Runs
// opportunistically, not on a schedule.
func (c *Cache) CleanupExpired(ctx context.Context) (int, error) {
	expired, err := c.storage.FindVerifications(ctx, core.Lt(core.FieldExpiresAt, c.now()))
	if err != nil {
		return 0, fmt.Errorf("finding expired verification records: %w", err)
	}

	deleted := 0
	for _, rec := range expired {
		if err := c.storage.DeleteVerification(ctx, rec.ID); err != nil {
			c.logger.Warn("failed to delete expired record '%s': %v", rec.ID, err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		c.logger.Info("cleaned up %d expired verification record(s)", deleted)
	}
	return deleted, nil
}

func (c *Cache) find(ctx context.Context, userID, repository string) (*core.VerificationRecord, error) {
	rec, err := c.storage.FindOneVerification(ctx,
		core.Eq(core.FieldUserID, userID),
		core.Eq(core.FieldRepository, repository),
	)
	if err != nil {
		return nil, fmt.Errorf("looking up verification record: %w", err)
	}
	return rec, nil
}
