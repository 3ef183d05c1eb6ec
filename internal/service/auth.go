package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tinylink/internal/database"
	"tinylink/internal/models"
)

// UserRepository defines the persistence interface for accounts.
type UserRepository interface {
	Create(ctx context.Context, email, username, passwordHash string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// AuthService handles registration, login and bearer token verification.
type AuthService struct {
	users     UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(users UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	const op = "service.AuthService.Register"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := s.users.Create(ctx, email, username, string(hash))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to register user: %w", op, err)
	}

	return user, nil
}

// Login verifies the credentials and issues a signed HS256 token. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	const op = "service.AuthService.Login"

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(user.ID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("%s: failed to sign token: %w", op, err)
	}

	return signed, user, nil
}

// VerifyToken validates a bearer token and returns the account it identifies.
func (s *AuthService) VerifyToken(tokenString string) (int64, error) {
	const op = "service.AuthService.VerifyToken"

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrInvalidCredentials, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("%s: %w: missing subject", op, ErrInvalidCredentials)
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: malformed subject", op, ErrInvalidCredentials)
	}

	return userID, nil
}
