package ctxlogger

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// context registration

var loggerKey int

func WithLogger(ctx context.Context, l logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, &loggerKey, l)
}

func GetLogger(ctx context.Context) logrus.FieldLogger {
	if v := ctx.Value(&loggerKey); v != nil {
		return v.(logrus.FieldLogger)
	}

	return logrus.StandardLogger()
}

// hooks

var hookListKey int

// HookFunc adds fields to a request logger. Before hooks run when the request
// starts, after hooks once the response is written.
type HookFunc func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger

type hookList struct {
	before []HookFunc
	after  []HookFunc
}

func run(hooks []HookFunc, rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
	for _, fn := range hooks {
		if fn != nil {
			l = fn(rw, r, l)
		}
	}

	return l
}

func getHookList(ctx context.Context) *hookList {
	if v := ctx.Value(&hookListKey); v != nil {
		return v.(*hookList)
	}

	return nil
}

// AddHookPair registers a before and after hook on the request's logger. Either
// may be nil. Outside of Register it does nothing.
func AddHookPair(ctx context.Context, beforeFunc, afterFunc HookFunc) context.Context {
	if hooks := getHookList(ctx); hooks != nil {
		hooks.before = append(hooks.before, beforeFunc)
		hooks.after = append(hooks.after, afterFunc)
	}

	return ctx
}

// middleware

func Register(l logrus.FieldLogger) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithLogger(context.WithValue(r.Context(), &hookListKey, &hookList{}), l)))
	}
}

// Log writes a line when each request starts and finishes, tagged with a
// request id taken from x-request-id or made up.
func Log() func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		hooks := getHookList(r.Context())

		requestID := r.Header.Get("x-request-id")
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}

		rw.Header().Set("x-request-id", requestID)

		l := GetLogger(r.Context())

		l = l.WithFields(logrus.Fields{
			"http.request_id": requestID,
			"http.method":     r.Method,
			"http.path":       r.URL.String(),
			"http.host":       r.Host,
			"http.referer":    r.Header.Get("referer"),
			"http.user_agent": r.Header.Get("user-agent"),
		})

		if hooks != nil {
			l = run(hooks.before, rw, r, l)
		}

		defer func() {
			if nrw, ok := rw.(interface {
				Status() int
				Size() int
			}); ok {
				l = l.WithFields(logrus.Fields{
					"http.status_code":   nrw.Status(),
					"http.response_size": nrw.Size(),
				})
			}

			if hooks != nil {
				l = run(hooks.after, rw, r, l)
			}

			l.Info("http request finished")
		}()

		l.Info("http request started")

		next(rw, r.WithContext(WithLogger(r.Context(), l)))
	}
}
