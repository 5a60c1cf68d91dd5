package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for missing, unknown, or mismatched API keys.
// The caller gets no more detail than that.
var ErrUnauthorized = errors.New("unauthorized")

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// Verifier authenticates raw API keys against stored HMAC-SHA256 hashes.
// Keys are never stored in the clear: the database holds hex-encoded HMACs
// keyed by a server-side pepper.
type Verifier struct {
	apikeys Repository
	pepper  []byte
}

// NewVerifier creates a Verifier with the given repository and HMAC pepper.
func NewVerifier(apikeys Repository, pepper []byte) *Verifier {
	return &Verifier{apikeys: apikeys, pepper: pepper}
}

// Authenticate hashes the presented key, looks it up, and compares the stored
// hash in constant time. Every failure mode maps to ErrUnauthorized.
func (v *Verifier) Authenticate(ctx context.Context, key string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}

	computed := hmacSHA256(v.pepper, key)

	info, err := v.apikeys.FindByHash(ctx, hex.EncodeToString(computed))
	if err != nil {
		return nil, ErrUnauthorized
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(computed, stored) != 1 {
		return nil, ErrUnauthorized
	}
	return info, nil
}

// HashKey returns the hex-encoded HMAC-SHA256 of a raw API key under the
// given pepper, the form the repository stores and queries by.
func HashKey(pepper []byte, key string) string {
	return hex.EncodeToString(hmacSHA256(pepper, key))
}

func hmacSHA256(pepper []byte, key string) []byte {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}
