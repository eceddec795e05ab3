package ctxtimer

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/vidshelf/internal/ctxclock"
	"fknsrs.biz/p/vidshelf/internal/ctxlogger"
)

var (
	ErrNoTimer = fmt.Errorf("ctxtimer.ErrNoTimer: no timer found with this name")
)

// Timer records named start points. Durations are measured against the clock
// found in the context, so a static clock gives stable numbers in tests.
type Timer struct {
	rw    sync.RWMutex
	start map[string]time.Time
}

func NewTimer() *Timer {
	return &Timer{start: make(map[string]time.Time)}
}

func (t *Timer) mark(name string, tt time.Time) {
	t.rw.Lock()
	defer t.rw.Unlock()

	t.start[name] = tt
}

func (t *Timer) elapsed(name string, tt time.Time) (time.Duration, error) {
	t.rw.RLock()
	defer t.rw.RUnlock()

	start, ok := t.start[name]
	if !ok {
		return 0, ErrNoTimer
	}

	return tt.Sub(start), nil
}

// context registration

var timerKey int

func WithTimer(ctx context.Context, t *Timer) context.Context {
	if t == nil {
		t = NewTimer()
	}

	return context.WithValue(ctx, &timerKey, t)
}

func GetTimer(ctx context.Context) *Timer {
	if v := ctx.Value(&timerKey); v != nil {
		return v.(*Timer)
	}

	return nil
}

// Mark starts the named timer at the current time.
func Mark(ctx context.Context, name string) error {
	t := GetTimer(ctx)
	if t == nil {
		return fmt.Errorf("ctxtimer.Mark: no timer in context")
	}

	now, err := ctxclock.Now(ctx)
	if err != nil {
		return fmt.Errorf("ctxtimer.Mark: %w", err)
	}

	t.mark(name, now)

	return nil
}

// Elapsed reports how long ago the named timer was marked.
func Elapsed(ctx context.Context, name string) (time.Duration, error) {
	t := GetTimer(ctx)
	if t == nil {
		return 0, fmt.Errorf("ctxtimer.Elapsed: no timer in context")
	}

	now, err := ctxclock.Now(ctx)
	if err != nil {
		return 0, fmt.Errorf("ctxtimer.Elapsed: %w", err)
	}

	d, err := t.elapsed(name, now)
	if err != nil {
		return 0, fmt.Errorf("ctxtimer.Elapsed: %w", err)
	}

	return d, nil
}

// middleware

const (
	timerNameOuter = "ctxtimer.middleware"
)

func Register(t *Timer) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		tt := t
		if tt == nil {
			tt = NewTimer()
		}

		next(rw, r.WithContext(WithTimer(r.Context(), tt)))
	}
}

func AddLoggerHooks() func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(ctxlogger.AddHookPair(
			r.Context(),
			func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
				if err := Mark(r.Context(), timerNameOuter); err != nil {
					l.WithError(err).Warning("ctxtimer: could not mark request start")
				}

				return l
			},
			func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
				elapsed, err := Elapsed(r.Context(), timerNameOuter)
				if err != nil {
					l.WithError(err).Warning("ctxtimer: could not get elapsed time")
					return l
				}

				return l.WithField("http.duration", elapsed)
			},
		)))
	}
}
