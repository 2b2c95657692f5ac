package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neiii/stargate-better-auth/internal/core"
)

var _ core.Storage = (*MemoryStorage)(nil)

// MemoryStorage is an in-memory implementation of the persistence port.
// The host deployment normally supplies its own adapter backed by the auth
// framework's database; this one serves standalone mode and tests.
type MemoryStorage struct {
	mu            sync.RWMutex
	verifications map[string]core.VerificationRecord
	sessions      map[string]core.SessionRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		verifications: make(map[string]core.VerificationRecord),
		sessions:      make(map[string]core.SessionRecord),
	}
}

func (s *MemoryStorage) FindOneVerification(_ context.Context, filters ...core.Filter) (*core.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.verifications {
		ok, err := matches(rec, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			cpy := rec
			return &cpy, nil
		}
	}
	return nil, nil
}

func (s *MemoryStorage) FindVerifications(_ context.Context, filters ...core.Filter) ([]core.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make([]core.VerificationRecord, 0)
	for _, rec := range s.verifications {
		ok, err := matches(rec, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			found = append(found, rec)
		}
	}
	return found, nil
}

func (s *MemoryStorage) CreateVerification(_ context.Context, rec core.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.verifications[rec.ID]; exists {
		return fmt.Errorf("verification record '%s' already exists", rec.ID)
	}
	s.verifications[rec.ID] = rec
	return nil
}

func (s *MemoryStorage) UpdateVerification(_ context.Context, id string, update core.VerificationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.verifications[id]
	if !ok {
		return fmt.Errorf("verification record '%s' not found", id)
	}
	if update.HasStarred != nil {
		rec.HasStarred = *update.HasStarred
	}
	if update.LastCheckedAt != nil {
		rec.LastCheckedAt = *update.LastCheckedAt
	}
	if update.ExpiresAt != nil {
		rec.ExpiresAt = *update.ExpiresAt
	}
	if update.AccessGrantedAt != nil {
		rec.AccessGrantedAt = update.AccessGrantedAt
	}
	if update.AccessRevokedAt != nil {
		rec.AccessRevokedAt = update.AccessRevokedAt
	}
	if update.GracePeriodStartedAt != nil {
		rec.GracePeriodStartedAt = update.GracePeriodStartedAt
	}
	if update.GracePeriodEndsAt != nil {
		rec.GracePeriodEndsAt = update.GracePeriodEndsAt
	}
	s.verifications[id] = rec
	return nil
}

func (s *MemoryStorage) DeleteVerification(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.verifications[id]; !ok {
		return fmt.Errorf("verification record '%s' not found", id)
	}
	delete(s.verifications, id)
	return nil
}

func (s *MemoryStorage) FindSession(_ context.Context, id string) (*core.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cpy := sess
	return &cpy, nil
}

func (s *MemoryStorage) UpdateSession(_ context.Context, id string, update core.SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session '%s' not found", id)
	}
	if update.HasStarAccess != nil {
		sess.HasStarAccess = *update.HasStarAccess
	}
	if update.StarVerifiedAt != nil {
		sess.StarVerifiedAt = update.StarVerifiedAt
	}
	if update.GracePeriodActive != nil {
		sess.GracePeriodActive = *update.GracePeriodActive
	}
	if update.GracePeriodEndsAt != nil {
		sess.GracePeriodEndsAt = update.GracePeriodEndsAt
	}
	s.sessions[id] = sess
	return nil
}

func (s *MemoryStorage) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// PutSession seeds a session. The host framework owns session creation; this
// exists for standalone mode and tests only and is not part of the port.
func (s *MemoryStorage) PutSession(sess core.SessionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess
}

func matches(rec core.VerificationRecord, filters []core.Filter) (bool, error) {
	for _, f := range filters {
		var field any
		switch f.Field {
		case core.FieldUserID:
			field = rec.UserID
		case core.FieldRepository:
			field = rec.Repository
		case core.FieldExpiresAt:
			field = rec.ExpiresAt
		default:
			return false, fmt.Errorf("unknown filter field '%s'", f.Field)
		}

		switch f.Op {
		case core.FilterEq:
			if field != f.Value {
				return false, nil
			}
		case core.FilterLt:
			fieldTime, ok1 := field.(time.Time)
			valueTime, ok2 := f.Value.(time.Time)
			if !ok1 || !ok2 {
				return false, fmt.Errorf("less-than filter on non-time field '%s'", f.Field)
			}
			if !fieldTime.Before(valueTime) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unknown filter op '%s'", f.Op)
		}
	}
	return true, nil
}
