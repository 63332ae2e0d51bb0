/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/store"
)

// API key constants
const (
	APIKeyPrefix      = "ct_"
	APIKeyRandomBytes = 24 // 24 bytes = 48 hex chars, 192 bits of entropy
)

// DefaultAPIKeyTTL is used when a client does not choose an expiration.
const DefaultAPIKeyTTL = 90 * 24 * time.Hour

// APIKeyExpirationDays are the lifetimes a client may pick.
var APIKeyExpirationDays = []int{30, 90, 180, 365}

var (
	// ErrAPIKeyNotFound is returned when an API key doesn't exist.
	ErrAPIKeyNotFound = errors.New("api key not found")
	// ErrAPIKeyExpired is returned when an API key has expired.
	ErrAPIKeyExpired = errors.New("api key expired")
	// ErrAPIKeyRevoked is returned when an API key has been revoked.
	ErrAPIKeyRevoked = errors.New("api key revoked")
)

// IsAPIKey reports whether s looks like a personal API key.
func IsAPIKey(s string) bool {
	return strings.HasPrefix(s, APIKeyPrefix)
}

// HashAPIKey returns the stored form of a plaintext key.
func HashAPIKey(plaintextKey string) string {
	hash := sha256.Sum256([]byte(plaintextKey))
	return hex.EncodeToString(hash[:])
}

// GenerateAPIKey creates a new API key for a user.
// Returns the plaintext key (to show to user once) and the model to store.
func GenerateAPIKey(userID, name string, expiresIn time.Duration) (string, *models.APIKey, error) {
	randomBytes := make([]byte, APIKeyRandomBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", nil, err
	}
	if expiresIn <= 0 {
		expiresIn = DefaultAPIKeyTTL
	}

	plaintextKey := APIKeyPrefix + hex.EncodeToString(randomBytes)

	apiKey := &models.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		KeyHash:   HashAPIKey(plaintextKey),
		KeyPrefix: plaintextKey[:11], // "ct_" + first 8 hex chars
		ExpiresAt: time.Now().UTC().Add(expiresIn),
	}

	return plaintextKey, apiKey, nil
}

// ValidateAPIKey validates an API key and returns claims if valid.
// Also updates the LastUsedAt timestamp.
func ValidateAPIKey(ctx context.Context, keys store.APIKeyStore, plaintextKey string) (*Claims, error) {
	apiKey, err := keys.APIKeyByHash(ctx, HashAPIKey(plaintextKey))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, err
	}

	if apiKey.IsRevoked() {
		return nil, ErrAPIKeyRevoked
	}
	if apiKey.IsExpired() {
		return nil, ErrAPIKeyExpired
	}

	_ = keys.TouchAPIKey(ctx, apiKey.ID, time.Now().UTC())

	return &Claims{UserID: apiKey.UserID}, nil
}
