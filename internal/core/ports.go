package core

import (
	"context"
	"time"
)

// Filter field names understood by Storage implementations.
const (
	FieldUserID     = "user_id"
	FieldRepository = "repository"
	FieldExpiresAt  = "expires_at"
)

type FilterOp string

const (
	FilterEq FilterOp = "eq"
	FilterLt FilterOp = "lt"
)

// Filter is a single comparison applied by find operations. Only equality and
// less-than are supported; that is all the cache needs.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: FilterEq, Value: value}
}

func Lt(field string, value any) Filter {
	return Filter{Field: field, Op: FilterLt, Value: value}
}

// VerificationUpdate is a partial update of a VerificationRecord. Nil fields
// are left untouched. There is deliberately no way to clear AccessGrantedAt:
// a grant timestamp, once set, survives every later update.
type VerificationUpdate struct {
	HasStarred           *bool
	LastCheckedAt        *time.Time
	ExpiresAt            *time.Time
	AccessGrantedAt      *time.Time
	AccessRevokedAt      *time.Time
	GracePeriodStartedAt *time.Time
	GracePeriodEndsAt    *time.Time
}

// SessionUpdate is a partial update of the star-gate session extension fields.
type SessionUpdate struct {
	HasStarAccess     *bool
	StarVerifiedAt    *time.Time
	GracePeriodActive *bool
	GracePeriodEndsAt *time.Time
}

// Storage is the persistence port supplied by the host environment. The core
// never assumes a specific engine; it only needs find/create/update/delete
// over the verification and session collections with the Filter semantics
// above. Implementations must provide at least last-write-wins consistency
// per record; no cross-record atomicity is required.
type Storage interface {
	// FindOneVerification returns the first record matching all filters,
	// or nil if none matches.
	FindOneVerification(ctx context.Context, filters ...Filter) (*VerificationRecord, error)

	// FindVerifications returns all records matching all filters.
	// No filters means all records.
	FindVerifications(ctx context.Context, filters ...Filter) ([]VerificationRecord, error)

	CreateVerification(ctx context.Context, rec VerificationRecord) error
	UpdateVerification(ctx context.Context, id string, update VerificationUpdate) error
	DeleteVerification(ctx context.Context, id string) error

	// FindSession returns the session with the given id, or nil if none exists.
	FindSession(ctx context.Context, id string) (*SessionRecord, error)

	UpdateSession(ctx context.Context, id string, update SessionUpdate) error
	DeleteSession(ctx context.Context, id string) error
}
