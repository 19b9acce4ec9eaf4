package backup

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/types"
)

// Backup is one backup record for a website. The cleanup sweep prunes
// records older than the retention window.
type Backup struct {
	ID string `db:"id" json:"id"`

	WebsiteID string `db:"website_id" json:"website_id"`

	SizeBytes int64 `db:"size_bytes" json:"size_bytes"`

	TakenAt time.Time `db:"taken_at" json:"taken_at"`

	types.BaseModel
}

// New records a backup taken now
func New(ctx context.Context, websiteID string, sizeBytes int64) *Backup {
	return &Backup{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BACKUP),
		WebsiteID: websiteID,
		SizeBytes: sizeBytes,
		TakenAt:   time.Now().UTC(),
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
}
