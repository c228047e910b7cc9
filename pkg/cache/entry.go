package cache

import (
	"time"
)

// Entry is a cached list result.
type Entry struct {
	// Data is the JSON-encoded record slice returned by the walk.
	Data []byte `json:"data"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`
}

// NewEntry builds an entry expiring ttl from now.
func NewEntry(data []byte, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Data:     data,
		CachedAt: now,
		Expires:  now.Add(ttl),
	}
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
