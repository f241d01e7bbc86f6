// Package retry wraps retryable operations with bounded, category-profiled
// retry. Errors are classified as transient (retried with exponential
// backoff) or fatal (propagated immediately); exhausting a category's
// attempts yields ErrRetryExhausted wrapping the last underlying error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/port"
)

// ErrRetryExhausted marks an operation that stayed transiently broken through
// every allowed attempt. The last underlying error is joined in.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// Category names select a retry profile.
const (
	CategoryFileIO      = "file_io"
	CategoryChunking    = "chunking"
	CategoryEmbedding   = "embedding_api"
	CategoryLLM         = "llm_api"
	CategoryVectorStore = "vector_store"
)

// Profile bounds one category's retry behavior.
type Profile struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Policy maps categories to profiles. Unknown categories use the default
// profile.
type Policy struct {
	profiles map[string]Profile
	fallback Profile
}

// NewPolicy creates a policy with the standard category profiles.
func NewPolicy() *Policy {
	return &Policy{
		profiles: map[string]Profile{
			CategoryFileIO:      {MaxAttempts: 2, InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second},
			CategoryChunking:    {MaxAttempts: 1, InitialInterval: 0, MaxInterval: 0},
			CategoryEmbedding:   {MaxAttempts: 4, InitialInterval: 500 * time.Millisecond, MaxInterval: 15 * time.Second},
			CategoryLLM:         {MaxAttempts: 3, InitialInterval: 1 * time.Second, MaxInterval: 30 * time.Second},
			CategoryVectorStore: {MaxAttempts: 3, InitialInterval: 200 * time.Millisecond, MaxInterval: 5 * time.Second},
		},
		fallback: Profile{MaxAttempts: 3, InitialInterval: 500 * time.Millisecond, MaxInterval: 10 * time.Second},
	}
}

// WithProfile overrides one category's profile. Intended for tests and
// deployment tuning.
func (p *Policy) WithProfile(category string, profile Profile) *Policy {
	p.profiles[category] = profile
	return p
}

// Profile returns the profile for a category.
func (p *Policy) Profile(category string) Profile {
	if prof, ok := p.profiles[category]; ok {
		return prof
	}
	return p.fallback
}

// Execute runs op under the category's profile. Fatal errors propagate on the
// first failure; transient errors are retried up to MaxAttempts total
// invocations, after which ErrRetryExhausted wrapping the last error is
// returned.
func (p *Policy) Execute(ctx context.Context, category string, op func(ctx context.Context) error) error {
	profile := p.Profile(category)
	attempts := 0

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = profile.InitialInterval
	b.MaxInterval = profile.MaxInterval
	b.MaxElapsedTime = 0 // attempts bound the loop, not wall time

	wrapped := func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		if attempts >= profile.MaxAttempts {
			return backoff.Permanent(fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, err))
		}
		slog.Debug("retrying operation", "category", category, "attempt", attempts, "error", err)
		return err
	}

	err := backoff.Retry(wrapped, backoff.WithContext(b, ctx))
	return err
}

// transientKeywords are matched case-insensitively against error text when no
// typed classification applies.
var transientKeywords = []string{
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"temporarily unavailable",
	"rate limit",
	"too many requests",
	"(429)",
	"(500)", "(502)", "(503)", "(504)",
	"server error",
	"broken pipe",
	"eof",
}

// fatalKeywords force immediate propagation even if a transient keyword also
// matches.
var fatalKeywords = []string{
	"unauthorized",
	"forbidden",
	"invalid api key",
	"authentication",
	"not found",
	"validation",
}

// IsRetryable classifies an error as transient. Validation, auth, not-found
// and dimension errors are fatal; timeouts, connection failures, rate limits
// and 5xx-class provider errors are transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, port.ErrDimensionMismatch) ||
		errors.Is(err, port.ErrInvalidPath) ||
		errors.Is(err, port.ErrInvalidRequest) ||
		errors.Is(err, port.ErrUnauthorized) ||
		errors.Is(err, port.ErrRepositoryNotFound) ||
		errors.Is(err, port.ErrJobNotFound) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, kw := range fatalKeywords {
		if strings.Contains(msg, kw) {
			return false
		}
	}
	for _, kw := range transientKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
