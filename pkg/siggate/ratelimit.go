package siggate

import (
	"sync"
	"time"
)

// LimiterConfig mirrors the teacher's token-bucket rate-limit configuration,
// keyed per signer (keyid) instead of per-IP/per-user.
type LimiterConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
	BurstSize         int
}

// DefaultLimiterConfig allows a generous per-signer request rate.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{RequestsPerWindow: 100, WindowDuration: time.Minute, BurstSize: 20}
}

type bucket struct {
	tokens     int
	lastUpdate time.Time
	mu         sync.Mutex
}

// RateLimiter is a per-signer in-memory token bucket admission gate.
type RateLimiter struct {
	config LimiterConfig
	mu     sync.RWMutex
	buckets map[string]*bucket
}

// NewRateLimiter builds a RateLimiter.
func NewRateLimiter(config LimiterConfig) *RateLimiter {
	return &RateLimiter{config: config, buckets: make(map[string]*bucket)}
}

// Allow reports whether a request for key (typically a keyid) is admitted,
// refilling tokens for elapsed time before checking.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{tokens: rl.config.RequestsPerWindow + rl.config.BurstSize, lastUpdate: time.Now()}
		rl.buckets[key] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastUpdate)
	tokensToAdd := int(elapsed.Seconds() * float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds())
	if tokensToAdd > 0 {
		b.tokens += tokensToAdd
		max := rl.config.RequestsPerWindow + rl.config.BurstSize
		if b.tokens > max {
			b.tokens = max
		}
		b.lastUpdate = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// AttackDetector counts failed verifications and nonce-reuse attempts per
// signer, forcing a fast-reject path once configured thresholds are
// crossed.
type AttackDetector struct {
	mu                  sync.Mutex
	bruteForceThreshold int
	replayThreshold     int
	bruteForceCounts    map[string]int
	replayCounts        map[string]int
	blocked             map[string]struct{}
}

// NewAttackDetector builds an AttackDetector with the given thresholds.
func NewAttackDetector(bruteForceThreshold, replayThreshold int) *AttackDetector {
	return &AttackDetector{
		bruteForceThreshold: bruteForceThreshold,
		replayThreshold:     replayThreshold,
		bruteForceCounts:    make(map[string]int),
		replayCounts:        make(map[string]int),
		blocked:             make(map[string]struct{}),
	}
}

// RecordVerificationFailure increments key's brute-force counter, blocking
// the signer once the threshold is crossed.
func (d *AttackDetector) RecordVerificationFailure(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bruteForceCounts[key]++
	if d.bruteForceCounts[key] >= d.bruteForceThreshold {
		d.blocked[key] = struct{}{}
	}
}

// RecordNonceReuse increments key's replay counter, blocking the signer once
// the threshold is crossed.
func (d *AttackDetector) RecordNonceReuse(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replayCounts[key]++
	if d.replayCounts[key] >= d.replayThreshold {
		d.blocked[key] = struct{}{}
	}
}

// IsBlocked reports whether key has crossed a threshold and should be
// fast-rejected.
func (d *AttackDetector) IsBlocked(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, blocked := d.blocked[key]
	return blocked
}

// Reset clears all counters and blocks for key (administrative unblock).
func (d *AttackDetector) Reset(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bruteForceCounts, key)
	delete(d.replayCounts, key)
	delete(d.blocked, key)
}
