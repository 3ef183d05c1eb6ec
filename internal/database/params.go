package database

import "time"

// CreateLinkParams describes a new link row.
type CreateLinkParams struct {
	ShortCode   string
	OriginalURL string
	UserID      *int64
	IsAlias     bool
	Title       string
	ExpiresAt   *time.Time
}

// UpdateLinkParams describes an owner-initiated edit. Nil fields keep
// the stored value; ClearExpiry removes the expiry timestamp.
type UpdateLinkParams struct {
	OriginalURL *string
	Title       *string
	ExpiresAt   *time.Time
	ClearExpiry bool
}
