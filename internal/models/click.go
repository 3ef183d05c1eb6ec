package models

import "time"

const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceOther   = "other"
)

// Click records a single resolution of a link for analytics purposes.
type Click struct {
	ID         int64
	LinkID     int64
	UserAgent  string
	Referrer   string
	IPAddress  string
	DeviceType string
	ClickedAt  time.Time
}

// CountRow is a generic (label, count) aggregation row.
type CountRow struct {
	Label string
	Count int64
}

// DailyStat is the number of clicks recorded on a single day.
type DailyStat struct {
	Date  time.Time
	Count int64
}

// LinkAnalytics aggregates the click history of a single link.
type LinkAnalytics struct {
	TotalClicks  int64
	CreatedAt    time.Time
	LastAccessed *time.Time
	ByDevice     []CountRow
	TopReferrers []CountRow
	Daily        []DailyStat
}
