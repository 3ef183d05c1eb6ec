package models

import "time"

// Link represents a shortened URL and its associated metadata.
type Link struct {
	// ID is the unique identifier for the shortened URL record.
	ID int64
	// ShortCode is the short code or custom alias associated with the original URL.
	ShortCode string
	// OriginalURL is the original, full-length URL that the short code points to.
	OriginalURL string
	// UserID references the owning account. It is nil for anonymous links.
	UserID *int64
	// IsAlias reports whether the short code was chosen by the caller
	// rather than generated.
	IsAlias bool
	// Title is an optional human-readable label for the link.
	Title string
	// ClickCount tracks the number of times the shortened URL has been resolved.
	ClickCount int64
	// CreatedAt is the timestamp indicating when the shortened URL was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp indicating when the shortened URL was last updated.
	UpdatedAt time.Time
	// LastAccessed is the timestamp of the most recent successful redirect,
	// or nil if the link has never been resolved.
	LastAccessed *time.Time
	// ExpiresAt is an optional expiry timestamp. Expired links are not resolved.
	ExpiresAt *time.Time
}

// Expired reports whether the link has an expiry timestamp in the past.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}
