package sqlitelogger

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrintQuery(t *testing.T) {
	named := func(a ...driver.Value) []driver.NamedValue {
		r := make([]driver.NamedValue, len(a))
		for i, v := range a {
			r[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
		}
		return r
	}

	for _, tc := range []struct {
		name  string
		query string
		args  []driver.NamedValue
		out   string
	}{
		{
			name:  "positional",
			query: "select *\n  from video\n where service = ? and service_id = ?",
			args:  named("youtube", "abc"),
			out:   "select * from video where service = 'youtube' and service_id = 'abc'",
		},
		{
			name:  "numbered",
			query: "select * from ytvideo where video_id = ?1 or uploader_id = $2",
			args:  named("abc", int64(7)),
			out:   "select * from ytvideo where video_id = 'abc' or uploader_id = 7",
		},
		{
			name:  "types",
			query: "values (?, ?, ?, ?, ?)",
			args:  named(nil, true, 1.5, time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), []byte("it's")),
			out:   "values (NULL, true, 1.5, '2023-01-02T03:04:05Z', 'it''s')",
		},
		{
			name:  "binary",
			query: "select highlight(videosearch, 2, ?, ?)",
			args:  named("\x02", "\x03"),
			out:   `select highlight(videosearch, 2, [1 bytes of binary data ('\x02')], [1 bytes of binary data ('\x03')])`,
		},
		{
			name:  "missing args",
			query: "select ?, ?3",
			args:  nil,
			out:   "select ?, ?3",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.out, printQuery(tc.query, tc.args))
		})
	}
}

func TestBasicFilter(t *testing.T) {
	a := assert.New(t)

	ctx := context.Background()

	f := &BasicFilter{LogSlowerThan: 100 * time.Millisecond}

	a.NoError(f.PreCollection(ctx, &Stats{}))
	a.ErrorIs(f.PreLogging(ctx, &Stats{Duration: 10 * time.Millisecond}), ErrCancelLogging)
	a.NoError(f.PreLogging(ctx, &Stats{Duration: time.Second}))

	a.ErrorIs((&BasicFilter{CancelAll: true}).PreCollection(ctx, &Stats{}), ErrCancelLogging)
}
