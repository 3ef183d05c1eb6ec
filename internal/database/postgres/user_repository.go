package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"tinylink/internal/database"
	"tinylink/internal/models"
)

type userRecord struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Tier         string    `db:"tier"`
	LinksLimit   int64     `db:"links_limit"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r *userRecord) ToUser() *models.User {
	return &models.User{
		ID:           r.ID,
		Email:        r.Email,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Tier:         r.Tier,
		LinksLimit:   r.LinksLimit,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// Create inserts a new account. Email and username collisions are reported
// through their respective sentinel errors.
func (r *UserRepository) Create(ctx context.Context, email, username, passwordHash string) (*models.User, error) {
	const op = "database.postgres.UserRepository.Create"

	rec := new(userRecord)
	query := `INSERT INTO users(email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, email, username, passwordHash)
	if err != nil {
		if isUniqueViolationError(err) {
			if strings.Contains(constraintName(err), "username") {
				return nil, fmt.Errorf("%s: %w", op, database.ErrUsernameTaken)
			}
			return nil, fmt.Errorf("%s: %w", op, database.ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: failed to create user record: %w", op, err)
	}

	return rec.ToUser(), nil
}

// GetByEmail retrieves an account by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "database.postgres.UserRepository.GetByEmail"

	rec := new(userRecord)
	query := `SELECT * FROM users WHERE email = $1`

	err := r.db.GetContext(ctx, rec, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get user record: %w", op, err)
	}

	return rec.ToUser(), nil
}

// GetByID retrieves an account by its identifier.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "database.postgres.UserRepository.GetByID"

	rec := new(userRecord)
	query := `SELECT * FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, rec, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get user record: %w", op, err)
	}

	return rec.ToUser(), nil
}
