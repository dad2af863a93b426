package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenLimiter enforces a per-minute token budget for LLM calls. Unlike a
// request limiter, the cost of each call varies with the prompt size, so the
// limiter tracks consumed tokens over a sliding one-minute window.
type TokenLimiter struct {
	mu        sync.Mutex
	maxTokens int
	used      int
	windowEnd time.Time
}

// NewTokenLimiter creates a TokenLimiter allowing maxTokensPerMinute tokens.
func NewTokenLimiter(maxTokensPerMinute int) *TokenLimiter {
	return &TokenLimiter{
		maxTokens: maxTokensPerMinute,
		windowEnd: time.Now().Add(time.Minute),
	}
}

// Wait blocks until the given number of tokens fits in the current window.
// A request larger than the whole budget is admitted alone in a fresh window.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	for {
		l.mu.Lock()
		now := time.Now()
		if now.After(l.windowEnd) {
			l.used = 0
			l.windowEnd = now.Add(time.Minute)
		}
		if l.used == 0 || l.used+tokens <= l.maxTokens {
			l.used += tokens
			l.mu.Unlock()
			return nil
		}
		wait := time.Until(l.windowEnd)
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// GetRemaining returns the tokens left in the current window.
func (l *TokenLimiter) GetRemaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Now().After(l.windowEnd) {
		return l.maxTokens
	}
	remaining := l.maxTokens - l.used
	if remaining < 0 {
		return 0
	}
	return remaining
}
