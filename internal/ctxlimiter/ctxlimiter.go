// Package ctxlimiter carries a shared weighted semaphore that bounds how many
// expensive operations run at once.
package ctxlimiter

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/semaphore"
)

var (
	ErrNoLimiter = fmt.Errorf("ctxlimiter: no limiter found in context")
)

// context registration

var limiterKey int

func WithLimiter(ctx context.Context, s *semaphore.Weighted) context.Context {
	return context.WithValue(ctx, &limiterKey, s)
}

func GetLimiter(ctx context.Context) *semaphore.Weighted {
	if v := ctx.Value(&limiterKey); v != nil {
		return v.(*semaphore.Weighted)
	}

	return nil
}

// Acquire waits for a slot, giving up when ctx is done. The returned func
// gives the slot back.
func Acquire(ctx context.Context) (func(), error) {
	s := GetLimiter(ctx)
	if s == nil {
		return nil, ErrNoLimiter
	}

	if err := s.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("ctxlimiter.Acquire: %w", err)
	}

	return func() { s.Release(1) }, nil
}

// middleware

func Register(s *semaphore.Weighted) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithLimiter(r.Context(), s)))
	}
}
