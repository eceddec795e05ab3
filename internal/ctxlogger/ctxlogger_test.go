package ctxlogger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/urfave/negroni/v2"
)

func TestLog(t *testing.T) {
	tests := []struct {
		name      string
		requestID string
		keep      bool
	}{
		{"generated", "", false},
		{"kept", "0b4f5a4e-93f5-4c32-8d0d-6f1c8f3e6a10", true},
		{"replaced", "not-a-uuid", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			logger, hook := test.NewNullLogger()

			n := negroni.New()
			n.UseFunc(Register(logger))
			n.UseFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
				next(rw, r.WithContext(AddHookPair(
					r.Context(),
					func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
						return l.WithField("test.before", 1)
					},
					func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
						return l.WithField("test.after", 2)
					},
				)))
			})
			n.UseFunc(Log())
			n.UseHandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
				GetLogger(r.Context()).Info("inside")
				rw.WriteHeader(http.StatusTeapot)
			})

			r := httptest.NewRequest(http.MethodGet, "/path?x=1", nil)
			if tc.requestID != "" {
				r.Header.Set("x-request-id", tc.requestID)
			}

			rw := httptest.NewRecorder()
			n.ServeHTTP(rw, r)

			requestID := rw.Header().Get("x-request-id")
			_, err := uuid.Parse(requestID)
			a.NoError(err)
			if tc.keep {
				a.Equal(tc.requestID, requestID)
			}

			entries := hook.AllEntries()
			if !a.Len(entries, 3) {
				return
			}

			a.Equal("http request started", entries[0].Message)
			a.Equal(1, entries[0].Data["test.before"])
			a.NotContains(entries[0].Data, "test.after")

			a.Equal("inside", entries[1].Message)
			a.Equal(requestID, entries[1].Data["http.request_id"])
			a.Equal("/path?x=1", entries[1].Data["http.path"])

			a.Equal("http request finished", entries[2].Message)
			a.Equal(2, entries[2].Data["test.after"])
			a.Equal(http.StatusTeapot, entries[2].Data["http.status_code"])
		})
	}
}

func TestAddHookPairOutsideRequest(t *testing.T) {
	a := assert.New(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)

	a.NotPanics(func() { AddHookPair(r.Context(), nil, nil) })
	a.Equal(logrus.StandardLogger(), GetLogger(r.Context()))
}
