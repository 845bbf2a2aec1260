// Package cache defines the answer/OTP cache contract and an in-process
// backend. Entries expire by time only; there is no size-based eviction.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/aitarf0921/AI-Secretary/pkg/models"
)

// Cache is a key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key, or false when absent or expired.
	Get(ctx context.Context, key string) (string, bool)
	// Put stores value under key until now+ttl. The last write wins.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Stats returns entry and hit/miss counters.
	Stats(ctx context.Context) (models.CacheStats, error)
}

// AnswerKey builds the cache key for an answer. Answers are always
// namespaced by site so tenants never see each other's cached replies;
// single-tenant deployments use an empty siteID.
func AnswerKey(siteID, cleanText string) string {
	sum := sha256.Sum256([]byte(cleanText))
	return "query:" + siteID + ":" + hex.EncodeToString(sum[:])
}

// EmailKey builds the cache key holding a pending one-time code.
func EmailKey(address string) string {
	return "email:" + address
}

// VerifiedKey marks an email that recently passed verification.
func VerifiedKey(address string) string {
	return "verified:" + address
}
