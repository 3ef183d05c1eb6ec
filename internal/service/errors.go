package service

import "errors"

var (
	// ErrAllocationExhausted is returned when the bounded attempt budget for
	// generating a unique short code runs out.
	ErrAllocationExhausted = errors.New("short code allocation exhausted")
	// ErrInvalidAlias is returned when a custom alias fails format validation.
	ErrInvalidAlias = errors.New("invalid custom alias")
	// ErrReservedAlias is returned when a custom alias collides with a
	// reserved route name.
	ErrReservedAlias = errors.New("reserved custom alias")
	// ErrAliasTaken is returned when a custom alias is already assigned.
	ErrAliasTaken = errors.New("custom alias taken")
	// ErrLinkLimitReached is returned when the owner's link quota is used up.
	ErrLinkLimitReached = errors.New("link limit reached")
	// ErrLinkExpired is returned when resolving a link past its expiry.
	ErrLinkExpired = errors.New("link expired")
	// ErrInvalidCredentials is returned on a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
