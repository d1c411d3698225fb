package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNormalizeModel(t *testing.T) {
	cases := map[string]string{
		"gemini-2.5-pro":       ProKey,
		"models/gemini-2.5pro": ProKey,
		"gemini-2.5-flash":     FlashKey,
		"gemini-2.5flash-lite": FlashKey,
		"gpt-4o":               FlashKey,
		"claude-sonnet-4-5":    FlashKey,
		"":                     FlashKey,
	}
	for input, want := range cases {
		if got := NormalizeModel(input); got != want {
			t.Errorf("NormalizeModel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestGlobalLimiter_RecordAndStatus(t *testing.T) {
	limiter := NewGlobalLimiter(DefaultConfig())

	limiter.RecordUsage("gemini-2.5-flash", 1000)
	status := limiter.GetStatus("gemini-2.5-flash")

	if status.CurrentUsage != 1000 {
		t.Errorf("CurrentUsage = %d, want 1000", status.CurrentUsage)
	}
	if status.AboveThreshold {
		t.Error("should not be above threshold after a small usage record")
	}
}

func TestGlobalLimiter_WaitIfNeeded_NoBlockBelowThreshold(t *testing.T) {
	limiter := NewGlobalLimiter(DefaultConfig())
	limiter.RecordUsage("gemini-2.5-flash", 100)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := limiter.WaitIfNeeded(ctx, "gemini-2.5-flash"); err != nil {
		t.Fatalf("WaitIfNeeded returned error: %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("WaitIfNeeded should return immediately when usage is below the soft ceiling")
	}
}

func TestGlobalLimiter_WaitIfNeeded_BlocksAboveSoftCeiling(t *testing.T) {
	config := Config{
		Quotas:           []ModelQuota{{Model: FlashKey, Limit: 1000}},
		SoftCeilingRatio: 0.7,
		Window:           200 * time.Millisecond,
	}
	limiter := NewGlobalLimiter(config)
	limiter.RecordUsage("gemini-2.5-flash", 900) // above 70% of 1000

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := limiter.WaitIfNeeded(ctx, "gemini-2.5-flash"); err != nil {
		t.Fatalf("WaitIfNeeded returned error: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 150*time.Millisecond {
		t.Errorf("expected WaitIfNeeded to block roughly until the window ages out, elapsed=%v", elapsed)
	}
}

func TestGlobalLimiter_WaitIfNeeded_ContextCancelled(t *testing.T) {
	config := Config{
		Quotas:           []ModelQuota{{Model: FlashKey, Limit: 1000}},
		SoftCeilingRatio: 0.5,
		Window:           time.Hour,
	}
	limiter := NewGlobalLimiter(config)
	limiter.RecordUsage("gemini-2.5-flash", 900)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.WaitIfNeeded(ctx, "gemini-2.5-flash"); err == nil {
		t.Error("expected WaitIfNeeded to return an error when the context is cancelled")
	}
}

func TestGlobalLimiter_SeparateModelsIndependent(t *testing.T) {
	limiter := NewGlobalLimiter(DefaultConfig())
	limiter.RecordUsage("gemini-2.5-pro", 1_900_000)

	flashStatus := limiter.GetStatus("gemini-2.5-flash")
	if flashStatus.AboveThreshold {
		t.Error("flash usage should be unaffected by pro usage")
	}
}
