package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request pacing.
var (
	pacerWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncm_pacer_waits_total",
		Help: "Total number of requests delayed by minimum-interval pacing",
	})

	pacerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ncm_pacer_wait_seconds",
		Help:    "Time spent waiting on the pacer before dispatch",
		Buckets: []float64{0.05, 0.1, 0.2, 0.5, 1, 5, 30, 60},
	})

	pacerCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncm_pacer_cooldowns_total",
		Help: "Total number of server-imposed cooldowns recorded",
	})

	pacerCooldownDeadline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ncm_pacer_cooldown_deadline_seconds",
		Help: "Unix time until which requests are held after a Retry-After",
	})
)

// Pacer spaces outgoing requests by a minimum interval and holds them during
// server-imposed cooldowns. When a Redis client is supplied the pacing state
// is shared across processes under the given namespace; Redis failures
// degrade to local-only pacing with a logged warning.
type Pacer struct {
	minInterval time.Duration
	redis       *redis.Client
	namespace   string
	logger      zerolog.Logger

	mu          sync.Mutex
	local       State
	redisBroken bool
}

// NewPacer creates a pacer. redisClient may be nil for local-only pacing.
// namespace isolates shared state per credential set (use the credential
// fingerprint).
func NewPacer(minInterval time.Duration, redisClient *redis.Client, namespace string, logger zerolog.Logger) *Pacer {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Pacer{
		minInterval: minInterval,
		redis:       redisClient,
		namespace:   namespace,
		logger:      logger,
	}
}

// Wait blocks until the next request may be released, honoring both the
// minimum inter-request interval and any active cooldown. It returns early
// with the context error when ctx is cancelled; the pacing slot is not
// consumed in that case.
func (p *Pacer) Wait(ctx context.Context) error {
	now := time.Now()
	state := p.snapshot(ctx)

	next := state.NextAllowed(p.minInterval)
	if wait := next.Sub(now); wait > 0 {
		pacerWaitsTotal.Inc()
		pacerWaitSeconds.Observe(wait.Seconds())

		evt := p.logger.Debug().Dur("wait", wait)
		if state.CooldownActive(now) {
			evt = p.logger.Warn().Dur("wait", wait).Time("cooldown_until", state.CooldownUntil)
		}
		evt.Msg("Pacing request")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	p.markRequest(ctx, time.Now())
	return nil
}

// NoteRetryAfter records a server-imposed cooldown of duration d, measured
// from now. Shorter deadlines never shrink an already recorded one.
func (p *Pacer) NoteRetryAfter(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	until := time.Now().Add(d)

	p.mu.Lock()
	if until.After(p.local.CooldownUntil) {
		p.local.CooldownUntil = until
	}
	p.mu.Unlock()

	pacerCooldownsTotal.Inc()
	pacerCooldownDeadline.Set(float64(until.Unix()))

	p.logger.Warn().
		Dur("retry_after", d).
		Time("cooldown_until", until).
		Msg("Server-imposed cooldown recorded")

	if p.redis != nil {
		key := fmt.Sprintf(RedisKeyCooldownUntil, p.namespace)
		if err := p.redis.Set(ctx, key, until.UnixMilli(), d+time.Minute).Err(); err != nil {
			p.warnRedis(err, "store cooldown")
		}
	}
}

// snapshot merges local state with the shared Redis copy, if any.
func (p *Pacer) snapshot(ctx context.Context) State {
	p.mu.Lock()
	state := p.local
	p.mu.Unlock()

	if p.redis == nil {
		return state
	}

	shared, err := p.sharedState(ctx)
	if err != nil {
		p.warnRedis(err, "read shared state")
		return state
	}
	return state.merge(shared)
}

func (p *Pacer) sharedState(ctx context.Context) (State, error) {
	var state State

	lastMs, err := p.redis.Get(ctx, fmt.Sprintf(RedisKeyLastRequest, p.namespace)).Int64()
	if err != nil && err != redis.Nil {
		return State{}, fmt.Errorf("get last request: %w", err)
	}
	if err == nil {
		state.LastRequest = time.UnixMilli(lastMs)
	}

	coolMs, err := p.redis.Get(ctx, fmt.Sprintf(RedisKeyCooldownUntil, p.namespace)).Int64()
	if err != nil && err != redis.Nil {
		return State{}, fmt.Errorf("get cooldown: %w", err)
	}
	if err == nil {
		state.CooldownUntil = time.UnixMilli(coolMs)
	}

	return state, nil
}

// markRequest records the release instant locally and, best effort, in Redis.
func (p *Pacer) markRequest(ctx context.Context, at time.Time) {
	p.mu.Lock()
	if at.After(p.local.LastRequest) {
		p.local.LastRequest = at
	}
	p.mu.Unlock()

	if p.redis == nil {
		return
	}
	key := fmt.Sprintf(RedisKeyLastRequest, p.namespace)
	if err := p.redis.Set(ctx, key, at.UnixMilli(), time.Minute).Err(); err != nil {
		p.warnRedis(err, "store last request")
	}
}

// warnRedis logs a degradation warning once, then downgrades to debug to
// avoid flooding logs while Redis stays unreachable.
func (p *Pacer) warnRedis(err error, op string) {
	p.mu.Lock()
	first := !p.redisBroken
	p.redisBroken = true
	p.mu.Unlock()

	evt := p.logger.Debug()
	if first {
		evt = p.logger.Warn()
	}
	evt.Err(err).Str("operation", op).Msg("Redis pacing unavailable, using local state")
}
