package models

import "time"

const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// User represents a registered account.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	// Tier names the subscription plan and determines LinksLimit.
	Tier string
	// LinksLimit is the maximum number of links the account may own.
	LinksLimit int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
