package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores byte payloads under string keys with per-entry TTLs
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// EmbeddingKey builds the cache key for one embedding request. The embedder
// identity is part of the hashed material, so changing provider or model
// never replays vectors computed by another embedder.
func EmbeddingKey(embedder, text string) string {
	hash := sha256.Sum256([]byte(embedder + "\x00" + text))
	return "grantmatch:v1:" + hex.EncodeToString(hash[:])
}
