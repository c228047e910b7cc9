// Package ratelimit paces NetCloud Manager API requests. NCM enforces an
// undocumented per-key request rate, so the pacer spaces requests by a
// minimum interval and holds them during server-imposed cooldowns
// (429 Retry-After). State lives in process and is optionally mirrored to
// Redis so that processes sharing one API key pace each other.
package ratelimit

import (
	"time"
)

// DefaultMinInterval spaces requests conservatively below the observed
// per-key limit.
const DefaultMinInterval = 200 * time.Millisecond

// Redis key templates for shared pacer state. The %s slot carries the
// credential fingerprint so that distinct key sets pace independently.
const (
	RedisKeyLastRequest   = "ncm:pacer:%s:last_request"
	RedisKeyCooldownUntil = "ncm:pacer:%s:cooldown_until"
)

// State is a snapshot of pacing state.
type State struct {
	// LastRequest is when the pacer last released a request.
	LastRequest time.Time

	// CooldownUntil is the deadline imposed by the server via Retry-After.
	// Zero when no cooldown has been recorded.
	CooldownUntil time.Time
}

// NextAllowed returns the earliest instant a request may be released:
// the later of the spacing slot and the cooldown deadline.
func (s State) NextAllowed(minInterval time.Duration) time.Time {
	next := s.LastRequest.Add(minInterval)
	if s.CooldownUntil.After(next) {
		next = s.CooldownUntil
	}
	return next
}

// CooldownActive reports whether a server-imposed cooldown is in effect at now.
func (s State) CooldownActive(now time.Time) bool {
	return s.CooldownUntil.After(now)
}

// merge combines two snapshots, keeping the later timestamp per field.
// Used to reconcile local state with the shared Redis copy.
func (s State) merge(other State) State {
	out := s
	if other.LastRequest.After(out.LastRequest) {
		out.LastRequest = other.LastRequest
	}
	if other.CooldownUntil.After(out.CooldownUntil) {
		out.CooldownUntil = other.CooldownUntil
	}
	return out
}
