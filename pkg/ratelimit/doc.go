// Package ratelimit paces calls to rate-limited third-party APIs.
//
// All limiters implement Limiter. NewTokenBucket spreads requests evenly over
// a minute with a small burst allowance; Unlimited never blocks and is meant
// for tests and local endpoints.
//
//	limiter := ratelimit.NewTokenBucket(60, 1)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // ctx cancelled
//	}
package ratelimit
