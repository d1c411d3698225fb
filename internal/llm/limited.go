package llm

import (
	"context"

	"github.com/fenwicklabs/reactor/internal/ratelimit"
)

// RateLimiterMetrics is the slice of observability.Metrics this package
// needs, declared locally so it doesn't import internal/observability
// directly.
type RateLimiterMetrics interface {
	SetRateLimiterUsage(model string, ratio float64)
}

// limitedSession wraps a ChatSession so every Send first waits on the
// process-wide rate limiter and then records the tokens it consumed,
// keeping the vendor bindings themselves free of any ratelimit dependency.
type limitedSession struct {
	ChatSession
	limiter *ratelimit.GlobalLimiter
	metrics RateLimiterMetrics
}

// WithRateLimit wraps session so its calls are throttled by limiter. A nil
// limiter disables throttling and returns session unchanged. metrics may be
// nil, in which case usage ratio reporting is skipped.
func WithRateLimit(session ChatSession, limiter *ratelimit.GlobalLimiter, metrics RateLimiterMetrics) ChatSession {
	if limiter == nil {
		return session
	}
	return &limitedSession{ChatSession: session, limiter: limiter, metrics: metrics}
}

func (s *limitedSession) Send(ctx context.Context, message string) (Reply, error) {
	if err := s.limiter.WaitIfNeeded(ctx, s.Model()); err != nil {
		return Reply{}, err
	}
	reply, err := s.ChatSession.Send(ctx, message)
	if err != nil {
		return Reply{}, err
	}
	s.limiter.RecordUsage(s.Model(), reply.Usage.TotalTokens)
	s.reportUsage()
	return reply, nil
}

func (s *limitedSession) reportUsage() {
	if s.metrics == nil {
		return
	}
	status := s.limiter.GetStatus(s.Model())
	if status.Limit <= 0 {
		return
	}
	s.metrics.SetRateLimiterUsage(status.Model, float64(status.CurrentUsage)/float64(status.Limit))
}
