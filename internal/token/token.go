package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	// ErrInvalidToken is returned when a token is malformed or its
	// signature does not match the secret.
	ErrInvalidToken = errors.New("invalid token signature")
	// ErrExpiredToken is returned when a token's expiry has elapsed.
	ErrExpiredToken = errors.New("token expired")
)

// Sign serializes the payload claims into an HS256-signed token string with
// an expiry derived from expireTime (a duration expression such as "45s",
// "1h", "7d", "2w", or a bare integer meaning seconds). The issued-at
// instant is the current time.
func Sign(payload map[string]any, secret string, expireTime string) (string, error) {
	ttl, err := ParseExpiry(expireTime)
	if err != nil {
		return "", fmt.Errorf("failed to parse expire time: %w", err)
	}

	tok := jwt.New()
	for key, value := range payload {
		if err := tok.Set(key, value); err != nil {
			return "", fmt.Errorf("failed to set claim %q: %w", key, err)
		}
	}

	now := time.Now()
	if err := tok.Set(jwt.IssuedAtKey, now); err != nil {
		return "", fmt.Errorf("failed to set issued-at claim: %w", err)
	}
	if err := tok.Set(jwt.ExpirationKey, now.Add(ttl)); err != nil {
		return "", fmt.Errorf("failed to set expiration claim: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(secret)))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

// Verify checks the signature and expiry of a token and returns its claim
// mapping. Failures are classified: ErrInvalidToken for a malformed token
// or signature mismatch, ErrExpiredToken for an elapsed expiry. The
// signature is checked before the claims, so a tampered expired token
// reports ErrInvalidToken.
func Verify(tokenString string, secret string) (map[string]any, error) {
	tok, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, []byte(secret)),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	if err := jwt.Validate(tok); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, fmt.Errorf("%w: %s", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	claims, err := tok.AsMap(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to extract claims: %w", err)
	}

	return claims, nil
}

// ParseExpiry converts a duration expression into a time.Duration. It
// accepts everything time.ParseDuration does, plus "d" (days) and "w"
// (weeks) suffixes and bare integers counted as seconds.
func ParseExpiry(expr string) (time.Duration, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("empty duration expression")
	}

	if d, err := time.ParseDuration(expr); err == nil {
		return d, nil
	}

	if n, err := strconv.Atoi(expr); err == nil {
		return time.Duration(n) * time.Second, nil
	}

	unit := expr[len(expr)-1]
	if unit == 'd' || unit == 'w' {
		n, err := strconv.Atoi(expr[:len(expr)-1])
		if err == nil {
			if unit == 'd' {
				return time.Duration(n) * 24 * time.Hour, nil
			}
			return time.Duration(n) * 7 * 24 * time.Hour, nil
		}
	}

	return 0, fmt.Errorf("invalid duration expression %q", expr)
}
