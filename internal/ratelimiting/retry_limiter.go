package ratelimiting

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// RetryLimiter bounds how often a failed handle may be re-attempted by later
// scan passes.
type RetryLimiter interface {
	Consume(handle string) bool
}

type tokenBucketRetryLimiter struct {
	limiterByHandle *ttlcache.Cache[string, *rate.Limiter]
	refillEvery     time.Duration
	burstSize       int
}

func (l *tokenBucketRetryLimiter) Consume(handle string) bool {
	limiter, _ := l.limiterByHandle.GetOrSet(handle, rate.NewLimiter(rate.Every(l.refillEvery), l.burstSize))
	return limiter.Value().Allow()
}

// NewTokenBucketRetryLimiter returns a per-handle token bucket. Buckets are
// dropped after 30 minutes of inactivity. The returned stop function halts
// the eviction loop.
func NewTokenBucketRetryLimiter(refillEvery time.Duration, burstSize int) (RetryLimiter, func()) {
	limiterTTLCache := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](30 * time.Minute),
	)
	go limiterTTLCache.Start()

	return &tokenBucketRetryLimiter{
		limiterByHandle: limiterTTLCache,
		refillEvery:     refillEvery,
		burstSize:       burstSize,
	}, limiterTTLCache.Stop
}
