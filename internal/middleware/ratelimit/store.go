package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of counting one request
type Decision struct {
	Allowed    bool
	Count      int
	RetryAfter time.Duration
}

// Store counts requests per key. Implementations must make Hit atomic per key
// so concurrent requests cannot both slip under the limit.
type Store interface {
	Hit(ctx context.Context, key string, policy Policy) (Decision, error)
}
