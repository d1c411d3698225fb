// Package ratelimit throttles LLM calls against a rolling token-usage window
// per model, mirroring the quota windows providers advertise for their
// Gemini-family models.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ModelQuota maps a normalized model key to its tokens-per-60s ceiling.
type ModelQuota struct {
	Model string `yaml:"model"`
	Limit int64  `yaml:"limit"`
}

// Config configures the GlobalLimiter.
type Config struct {
	// Quotas lists the token ceiling for each known model key. Any model name
	// that does not normalize to a known key falls back to DefaultKey's quota.
	Quotas []ModelQuota `yaml:"quotas"`
	// SoftCeilingRatio is the fraction of a model's quota at which new calls
	// start blocking until older usage ages out of the window (0, 1].
	SoftCeilingRatio float64 `yaml:"soft_ceiling_ratio"`
	// Window is the rolling duration over which usage is summed.
	Window time.Duration `yaml:"window"`
}

const (
	// ProKey is the normalized key for the higher-quota Gemini Pro tier.
	ProKey = "gemini-2.5-pro"
	// FlashKey is the normalized key for the default Gemini Flash tier.
	FlashKey = "gemini-2.5-flash"
	// DefaultKey is used for any model name that doesn't match a known tier.
	DefaultKey = "default"
)

// DefaultConfig returns the out-of-the-box quota table: 2M tokens/60s for
// Pro, 1M tokens/60s for Flash and the unrecognized-model fallback.
func DefaultConfig() Config {
	return Config{
		Quotas: []ModelQuota{
			{Model: ProKey, Limit: 2_000_000},
			{Model: FlashKey, Limit: 1_000_000},
			{Model: DefaultKey, Limit: 1_000_000},
		},
		SoftCeilingRatio: 0.7,
		Window:           60 * time.Second,
	}
}

// usageRecord is a single accounted call: tokens consumed at a point in time.
type usageRecord struct {
	at     time.Time
	tokens int64
}

// modelUsage tracks the rolling window of usage for one normalized model key.
type modelUsage struct {
	mu      sync.Mutex
	limit   int64
	records []usageRecord
}

// GlobalLimiter enforces a process-wide sliding-window token budget per
// model. Unlike a token-bucket limiter it does not refill continuously;
// instead it sums actual recorded usage over the trailing window and makes
// callers wait until old usage ages out once they cross the soft ceiling.
type GlobalLimiter struct {
	mu     sync.Mutex
	usage  map[string]*modelUsage
	ratio  float64
	window time.Duration
	quotas map[string]int64
}

// NewGlobalLimiter builds a limiter from config, applying defaults for any
// zero-valued fields.
func NewGlobalLimiter(config Config) *GlobalLimiter {
	if config.SoftCeilingRatio <= 0 || config.SoftCeilingRatio > 1 {
		config.SoftCeilingRatio = 0.7
	}
	if config.Window <= 0 {
		config.Window = 60 * time.Second
	}
	quotas := make(map[string]int64, len(config.Quotas))
	for _, q := range config.Quotas {
		quotas[q.Model] = q.Limit
	}
	if _, ok := quotas[DefaultKey]; !ok {
		quotas[DefaultKey] = 1_000_000
	}
	return &GlobalLimiter{
		usage:  make(map[string]*modelUsage),
		ratio:  config.SoftCeilingRatio,
		window: config.Window,
		quotas: quotas,
	}
}

// NormalizeModel maps a free-form model name to one of the known quota keys.
// Substring matching mirrors how model names are typically reported by
// providers, which append date/channel suffixes to a base family name.
func NormalizeModel(modelName string) string {
	lower := strings.ToLower(modelName)
	switch {
	case strings.Contains(lower, "2.5-pro"), strings.Contains(lower, "2.5pro"):
		return ProKey
	case strings.Contains(lower, "2.5-flash"), strings.Contains(lower, "2.5flash"):
		return FlashKey
	default:
		return FlashKey
	}
}

func (l *GlobalLimiter) usageFor(modelKey string) *modelUsage {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.usage[modelKey]
	if ok {
		return u
	}
	limit, ok := l.quotas[modelKey]
	if !ok {
		limit = l.quotas[DefaultKey]
	}
	u = &modelUsage{limit: limit}
	l.usage[modelKey] = u
	return u
}

// cleanup drops records older than the window (lock must be held).
func (u *modelUsage) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(u.records) && u.records[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		u.records = u.records[i:]
	}
}

func (u *modelUsage) currentUsage(now time.Time, window time.Duration) int64 {
	u.cleanup(now, window)
	var total int64
	for _, r := range u.records {
		total += r.tokens
	}
	return total
}

// WaitIfNeeded blocks until the model's rolling usage is below its soft
// ceiling, or ctx is cancelled. It never blocks on a model with no recorded
// usage above the threshold.
func (l *GlobalLimiter) WaitIfNeeded(ctx context.Context, modelName string) error {
	modelKey := NormalizeModel(modelName)
	u := l.usageFor(modelKey)

	for {
		u.mu.Lock()
		now := time.Now()
		usage := u.currentUsage(now, l.window)
		threshold := int64(float64(u.limit) * l.ratio)

		if usage <= threshold || len(u.records) == 0 {
			u.mu.Unlock()
			return nil
		}

		oldest := u.records[0].at
		wait := l.window - now.Sub(oldest)
		u.mu.Unlock()

		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RecordUsage accounts tokensUsed against modelName's rolling window.
func (l *GlobalLimiter) RecordUsage(modelName string, tokensUsed int64) {
	if tokensUsed <= 0 {
		return
	}
	modelKey := NormalizeModel(modelName)
	u := l.usageFor(modelKey)

	u.mu.Lock()
	defer u.mu.Unlock()
	now := time.Now()
	u.records = append(u.records, usageRecord{at: now, tokens: tokensUsed})
	u.cleanup(now, l.window)
}

// Status reports the current rolling-window usage for a model.
type Status struct {
	Model          string
	Limit          int64
	CurrentUsage   int64
	Threshold      int64
	AboveThreshold bool
}

// GetStatus returns a Status snapshot for the given model name.
func (l *GlobalLimiter) GetStatus(modelName string) Status {
	modelKey := NormalizeModel(modelName)
	u := l.usageFor(modelKey)

	u.mu.Lock()
	defer u.mu.Unlock()
	now := time.Now()
	usage := u.currentUsage(now, l.window)
	threshold := int64(float64(u.limit) * l.ratio)

	return Status{
		Model:          modelKey,
		Limit:          u.limit,
		CurrentUsage:   usage,
		Threshold:      threshold,
		AboveThreshold: usage > threshold,
	}
}
