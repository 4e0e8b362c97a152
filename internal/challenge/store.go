// Package challenge holds the one-time "2FA pending" markers created
// between the password check and the second-factor check. A challenge
// token is scoped to exactly one user id, is single-use, and expires on
// its own TTL. Lookups fail closed: a missing, expired, or mismatched
// token denies the login.
package challenge

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

var (
	ErrNotFound = errors.New("challenge not found")
	ErrBackend  = errors.New("challenge backend unavailable")
)

// Store is implemented by the redis backing (multi-instance deployments)
// and the in-process memory backing (single-instance fallback). The
// orchestrator must not assume memory-store state survives a restart or is
// visible across instances.
type Store interface {
	// Create binds a fresh opaque token to userID for the store's TTL.
	Create(ctx context.Context, userID int64) (string, error)
	// Get resolves a token to the bound user id without consuming it.
	Get(ctx context.Context, token string) (int64, error)
	// Delete consumes a token. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error
}

const tokenBytes = 32

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
