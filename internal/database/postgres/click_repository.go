package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tinylink/internal/models"
)

type ClickRepository struct {
	db *sqlx.DB
}

func NewClickRepository(db *sqlx.DB) *ClickRepository {
	return &ClickRepository{
		db: db,
	}
}

// Insert records a single click event. Callers treat failures as best-effort.
func (r *ClickRepository) Insert(ctx context.Context, c models.Click) error {
	const op = "database.postgres.ClickRepository.Insert"

	query := `INSERT INTO clicks(link_id, user_agent, referrer, ip_address, device_type)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		c.LinkID, c.UserAgent, c.Referrer, c.IPAddress, c.DeviceType)
	if err != nil {
		return fmt.Errorf("%s: failed to insert click record: %w", op, err)
	}

	return nil
}

type countRow struct {
	Label string `db:"label"`
	Count int64  `db:"count"`
}

// DeviceBreakdown groups the link's clicks by device type.
func (r *ClickRepository) DeviceBreakdown(ctx context.Context, linkID int64) ([]models.CountRow, error) {
	const op = "database.postgres.ClickRepository.DeviceBreakdown"

	var rows []countRow
	query := `SELECT device_type AS label, COUNT(*) AS count
		FROM clicks
		WHERE link_id = $1
		GROUP BY device_type`

	if err := r.db.SelectContext(ctx, &rows, query, linkID); err != nil {
		return nil, fmt.Errorf("%s: failed to get device breakdown: %w", op, err)
	}

	return toCountRows(rows), nil
}

// TopReferrers returns the most common non-empty referrers, most frequent first.
func (r *ClickRepository) TopReferrers(ctx context.Context, linkID int64, limit int) ([]models.CountRow, error) {
	const op = "database.postgres.ClickRepository.TopReferrers"

	var rows []countRow
	query := `SELECT referrer AS label, COUNT(*) AS count
		FROM clicks
		WHERE link_id = $1 AND referrer <> ''
		GROUP BY referrer
		ORDER BY count DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &rows, query, linkID, limit); err != nil {
		return nil, fmt.Errorf("%s: failed to get top referrers: %w", op, err)
	}

	return toCountRows(rows), nil
}

type dailyRow struct {
	Date  time.Time `db:"date"`
	Count int64     `db:"count"`
}

// DailyStats returns per-day click counts for the last N days, oldest first.
func (r *ClickRepository) DailyStats(ctx context.Context, linkID int64, days int) ([]models.DailyStat, error) {
	const op = "database.postgres.ClickRepository.DailyStats"

	var rows []dailyRow
	query := `SELECT date_trunc('day', clicked_at) AS date, COUNT(*) AS count
		FROM clicks
		WHERE link_id = $1 AND clicked_at >= now() - make_interval(days => $2)
		GROUP BY date
		ORDER BY date`

	if err := r.db.SelectContext(ctx, &rows, query, linkID, days); err != nil {
		return nil, fmt.Errorf("%s: failed to get daily stats: %w", op, err)
	}

	stats := make([]models.DailyStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, models.DailyStat{Date: row.Date, Count: row.Count})
	}

	return stats, nil
}

func toCountRows(rows []countRow) []models.CountRow {
	out := make([]models.CountRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.CountRow{Label: row.Label, Count: row.Count})
	}
	return out
}
