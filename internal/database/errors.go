package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to create
	// a new shortened URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrLinkNotFound is returned when an attempt is made to retrieve
	// a link using a short code that doesn't exist.
	ErrLinkNotFound = errors.New("link not found")
	// ErrEmailTaken is returned when registering with an email that is
	// already associated with an account.
	ErrEmailTaken = errors.New("email taken")
	// ErrUsernameTaken is returned when registering with a username that is
	// already associated with an account.
	ErrUsernameTaken = errors.New("username taken")
	// ErrUserNotFound is returned when no account matches the given
	// identifier or email.
	ErrUserNotFound = errors.New("user not found")
)
