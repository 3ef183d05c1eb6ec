package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tinylink/internal/database"
	"tinylink/internal/models"
)

type linkRecord struct {
	ID           int64          `db:"id"`
	ShortCode    string         `db:"short_code"`
	OriginalURL  string         `db:"original_url"`
	UserID       sql.NullInt64  `db:"user_id"`
	IsAlias      bool           `db:"is_alias"`
	Title        sql.NullString `db:"title"`
	ClickCount   int64          `db:"click_count"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastAccessed sql.NullTime   `db:"last_accessed"`
	ExpiresAt    sql.NullTime   `db:"expires_at"`
}

func (r *linkRecord) ToLink() *models.Link {
	link := &models.Link{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		IsAlias:     r.IsAlias,
		Title:       r.Title.String,
		ClickCount:  r.ClickCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}

	if r.UserID.Valid {
		link.UserID = &r.UserID.Int64
	}
	if r.LastAccessed.Valid {
		t := r.LastAccessed.Time
		link.LastAccessed = &t
	}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time
		link.ExpiresAt = &t
	}

	return link
}

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{
		db: db,
	}
}

// Create inserts a new link row. A unique violation on the short code maps to
// database.ErrShortCodeExists, which is the allocation loop's retry signal.
func (r *LinkRepository) Create(ctx context.Context, p database.CreateLinkParams) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.Create"

	rec := new(linkRecord)
	query := `INSERT INTO links(short_code, original_url, user_id, is_alias, title, expires_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		p.ShortCode, p.OriginalURL, p.UserID, p.IsAlias, p.Title, p.ExpiresAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// GetByShortCode retrieves a link without touching its counters.
func (r *LinkRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.GetByShortCode"

	rec := new(linkRecord)
	query := `SELECT * FROM links WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// GetOwned retrieves a link only if it belongs to the given user.
func (r *LinkRepository) GetOwned(ctx context.Context, shortCode string, userID int64) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.GetOwned"

	rec := new(linkRecord)
	query := `SELECT * FROM links WHERE short_code = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, rec, query, shortCode, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// RegisterHit atomically increments the click counter and sets the
// last-accessed timestamp. The single UPDATE statement keeps concurrent hits
// from losing updates.
func (r *LinkRepository) RegisterHit(ctx context.Context, id int64) error {
	const op = "database.postgres.LinkRepository.RegisterHit"

	query := `UPDATE links
		SET click_count = click_count + 1, last_accessed = now()
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: failed to register hit: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
	}

	return nil
}

// ExistsByShortCode is a pre-check optimization only. Uniqueness is always
// enforced by the constraint at insert time.
func (r *LinkRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	const op = "database.postgres.LinkRepository.ExistsByShortCode"

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM links WHERE short_code = $1)`

	if err := r.db.GetContext(ctx, &exists, query, shortCode); err != nil {
		return false, fmt.Errorf("%s: failed to check short code: %w", op, err)
	}

	return exists, nil
}

// ListByUser returns the user's links, newest first.
func (r *LinkRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Link, error) {
	const op = "database.postgres.LinkRepository.ListByUser"

	var recs []linkRecord
	query := `SELECT * FROM links WHERE user_id = $1 ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &recs, query, userID); err != nil {
		return nil, fmt.Errorf("%s: failed to list link records: %w", op, err)
	}

	links := make([]*models.Link, 0, len(recs))
	for i := range recs {
		links = append(links, recs[i].ToLink())
	}

	return links, nil
}

// CountActiveByUser counts the user's non-expired links for quota checks.
func (r *LinkRepository) CountActiveByUser(ctx context.Context, userID int64) (int64, error) {
	const op = "database.postgres.LinkRepository.CountActiveByUser"

	var count int64
	query := `SELECT COUNT(*) FROM links
		WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > now())`

	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("%s: failed to count link records: %w", op, err)
	}

	return count, nil
}

// UpdateOwned edits a link's mutable fields if it belongs to the given user.
func (r *LinkRepository) UpdateOwned(ctx context.Context, shortCode string, userID int64, p database.UpdateLinkParams) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.UpdateOwned"

	rec := new(linkRecord)
	query := `UPDATE links
		SET original_url = COALESCE($1::text, original_url),
			title = COALESCE($2::text, title),
			expires_at = CASE WHEN $3::boolean THEN NULL ELSE COALESCE($4::timestamptz, expires_at) END,
			updated_at = now()
		WHERE short_code = $5 AND user_id = $6
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		p.OriginalURL, p.Title, p.ClearExpiry, p.ExpiresAt, shortCode, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// DeleteOwned removes a link if it belongs to the given user. Click rows
// cascade with it.
func (r *LinkRepository) DeleteOwned(ctx context.Context, shortCode string, userID int64) error {
	const op = "database.postgres.LinkRepository.DeleteOwned"

	query := `DELETE FROM links WHERE short_code = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, shortCode, userID)
	if err != nil {
		return fmt.Errorf("%s: failed to delete link record: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
	}

	return nil
}
