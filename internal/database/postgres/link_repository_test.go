package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"tinylink/internal/database"
	"tinylink/internal/models"
)

var errUnknown = errors.New("unknown error")

var linkColumns = []string{
	"id", "short_code", "original_url", "user_id", "is_alias", "title",
	"click_count", "created_at", "updated_at", "last_accessed", "expires_at",
}

func setupLinkRepository(t testing.TB) (*LinkRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}

	db := sqlx.NewDb(mockDB, "sqlmock")
	repo := NewLinkRepository(db)

	t.Cleanup(func() {
		mockDB.Close()
		db.Close()
	})

	return repo, mock
}

func TestLinkRepository_Create(t *testing.T) {
	params := database.CreateLinkParams{
		ShortCode:   "abc123",
		OriginalURL: "https://example.com",
	}

	t.Run("short code exists", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("abc123", "https://example.com", nil, false, "", nil).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode})

		link, err := repo.Create(context.TODO(), params)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrShortCodeExists)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("abc123", "https://example.com", nil, false, "", nil).
			WillReturnError(errUnknown)

		link, err := repo.Create(context.TODO(), params)

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		rows := sqlmock.NewRows(linkColumns).
			AddRow(1, "abc123", "https://example.com", nil, false, nil, 0,
				time.Time{}, time.Time{}, nil, nil)

		mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("abc123", "https://example.com", nil, false, "", nil).
			WillReturnRows(rows)

		wantLink := models.Link{
			ID:          1,
			ShortCode:   "abc123",
			OriginalURL: "https://example.com",
		}

		link, err := repo.Create(context.TODO(), params)

		assert.NoError(t, err)
		assert.NotNil(t, link)
		assert.Equal(t, wantLink, *link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_GetByShortCode(t *testing.T) {
	t.Run("link not found", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT \* FROM links`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		link, err := repo.GetByShortCode(context.TODO(), "missing")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT \* FROM links`).
			WithArgs("abc123").
			WillReturnError(errUnknown)

		link, err := repo.GetByShortCode(context.TODO(), "abc123")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		rows := sqlmock.NewRows(linkColumns).
			AddRow(1, "abc123", "https://example.com", nil, false, nil, 5,
				time.Time{}, time.Time{}, nil, nil)

		mock.ExpectQuery(`SELECT \* FROM links`).
			WithArgs("abc123").
			WillReturnRows(rows)

		link, err := repo.GetByShortCode(context.TODO(), "abc123")

		assert.NoError(t, err)
		assert.NotNil(t, link)
		assert.Equal(t, "abc123", link.ShortCode)
		assert.Equal(t, int64(5), link.ClickCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_RegisterHit(t *testing.T) {
	t.Run("link not found", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectExec(`UPDATE links`).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.RegisterHit(context.TODO(), 42)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectExec(`UPDATE links`).
			WithArgs(int64(42)).
			WillReturnError(errUnknown)

		err := repo.RegisterHit(context.TODO(), 42)

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectExec(`UPDATE links`).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.RegisterHit(context.TODO(), 42)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_ExistsByShortCode(t *testing.T) {
	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("abc123").
			WillReturnError(errUnknown)

		exists, err := repo.ExistsByShortCode(context.TODO(), "abc123")

		assert.Error(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("abc123").
			WillReturnRows(rows)

		exists, err := repo.ExistsByShortCode(context.TODO(), "abc123")

		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_CountActiveByUser(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		rows := sqlmock.NewRows([]string{"count"}).AddRow(7)

		mock.ExpectQuery(`SELECT COUNT`).
			WithArgs(int64(1)).
			WillReturnRows(rows)

		count, err := repo.CountActiveByUser(context.TODO(), 1)

		assert.NoError(t, err)
		assert.Equal(t, int64(7), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_DeleteOwned(t *testing.T) {
	t.Run("link not found", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectExec(`DELETE FROM links`).
			WithArgs("abc123", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.DeleteOwned(context.TODO(), "abc123", 1)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectExec(`DELETE FROM links`).
			WithArgs("abc123", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.DeleteOwned(context.TODO(), "abc123", 1)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
