package idempotency

import (
	"time"
)

// Record caches the outcome of a previously executed operation, keyed on
// (tenant, scope, external key). Uniqueness on that triple is how concurrent
// callers serialise.
type Record struct {
	ID string `db:"id" json:"id"`

	TenantID string `db:"tenant_id" json:"tenant_id"`

	Scope string `db:"scope" json:"scope"`

	ExternalKey string `db:"external_key" json:"external_key"`

	// Outcome is the stored result blob returned to replaying callers
	Outcome []byte `db:"outcome" json:"outcome"`

	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsExpired reports whether the record is past its ttl
func (r *Record) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}
