// Package shortcode generates random short codes over a fixed base62 alphabet.
package shortcode

import (
	"fmt"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the 62-symbol character set used for generated codes.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	// DefaultLength is the length of generated codes before collision escalation.
	DefaultLength = 6

	// MinAliasLength and MaxAliasLength bound caller-chosen aliases.
	MinAliasLength = 3
	MaxAliasLength = 50
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Generate produces a random code of the given length drawn uniformly from
// Alphabet. Uniqueness is the caller's responsibility.
func Generate(length int) (string, error) {
	const op = "shortcode.Generate"

	code, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

// ValidAlias reports whether s is an acceptable custom alias: 3-50 characters
// from [A-Za-z0-9_-].
func ValidAlias(s string) bool {
	if len(s) < MinAliasLength || len(s) > MaxAliasLength {
		return false
	}
	return aliasPattern.MatchString(s)
}
