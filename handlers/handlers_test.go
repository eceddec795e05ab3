package handlers

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/urfave/negroni/v2"
	"golang.org/x/sync/semaphore"
	_ "modernc.org/sqlite"

	"fknsrs.biz/p/vidshelf/internal/config"
	"fknsrs.biz/p/vidshelf/internal/ctxclock"
	"fknsrs.biz/p/vidshelf/internal/ctxconfig"
	"fknsrs.biz/p/vidshelf/internal/ctxdb"
	"fknsrs.biz/p/vidshelf/internal/ctxlimiter"
	"fknsrs.biz/p/vidshelf/internal/ctxlogger"
	"fknsrs.biz/p/vidshelf/internal/ctxtemplate"
	"fknsrs.biz/p/vidshelf/internal/ctxtimer"
	"fknsrs.biz/p/vidshelf/internal/httputil"
	"fknsrs.biz/p/vidshelf/internal/schema"
	"fknsrs.biz/p/vidshelf/internal/searchindex"
	"fknsrs.biz/p/vidshelf/internal/templatecollection"
	"fknsrs.biz/p/vidshelf/internal/templatefuncs"
)

const probeOutput = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "vp9", "width": 1920, "height": 1080},
    {"index": 1, "codec_type": "audio", "codec_name": "opus"}
  ],
  "format": {"filename": "v1.mkv", "duration": "212.480000"}
}`

const identifyOutput = `{
  "attachments": [
    {"content_type": "image/jpeg", "description": "", "file_name": "cover.jpg", "id": 1, "size": 8}
  ],
  "container": {"recognized": true, "supported": true}
}`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}

	return p
}

type testServer struct {
	handler http.Handler
	cfg     config.Config
	db      *sqlx.DB
}

func newTestServer(t *testing.T, modify func(cfg *config.Config)) *testServer {
	t.Helper()

	dir := t.TempDir()

	db, err := sqlx.Open("sqlite", filepath.Join(dir, "library.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if err := schema.Migrate(db.DB, nil); err != nil {
		t.Fatal(err)
	}

	v1 := filepath.Join(dir, "v1.mkv")
	if err := os.WriteFile(v1, []byte("MATROSKA"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, stmt := range []string{
		`insert into video (service, service_id, artist, title, description, upload_date, filepath) values
			('youtube', 'v1', 'Band', 'Fish & <Chips> by the Sea', 'a calm sea at night', '20200101', '` + v1 + `'),
			('youtube', 'v2', 'Band', 'Mountain', null, '20210101', null),
			('youtube', 'dupe', 'Else', 'Copy', null, null, null),
			('youtube', 'dupe', 'Else', 'Copy', null, null, null)`,
		`insert into ytvideo (video_id, uploader_id) values ('v1', 'UCband'), ('v2', 'UCband')`,
		`insert into ytvideotag (video_id, tag) values ('v1', 'zeta'), ('v1', 'alpha')`,
		`insert into ytvideocategory (video_id, category) values ('v1', 'Music')`,
		`insert into chapter (service, service_id, chapter_uid, start_ms, end_ms) values
			('youtube', 'v1', 'c2', 5000, 12000),
			('youtube', 'v1', 'c1', 0, 5000)`,
		`insert into chapterdisplay (service, service_id, chapter_uid, chapterstring, language) values
			('youtube', 'v1', 'c1', 'A', 'eng'),
			('youtube', 'v1', 'c2', 'B & <C>', 'eng')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := searchindex.Rebuild(ctxdb.WithDB(context.Background(), db)); err != nil {
		t.Fatal(err)
	}

	tools := t.TempDir()

	cfg := config.Config{
		FfmpegPath: writeScript(t, tools, "ffmpeg", `for last; do :; done
{ printf 'mp4:'; cat "$5"; } > "$last"
`),
		FfprobePath:         writeScript(t, tools, "ffprobe", "cat <<'JSON'\n"+probeOutput+"\nJSON\n"),
		MkvmergePath:        writeScript(t, tools, "mkvmerge", "cat <<'JSON'\n"+identifyOutput+"\nJSON\n"),
		MkvextractPath:      writeScript(t, tools, "mkvextract", "printf 'JPEGDATA' > /dev/fd/3\n"),
		TempPath:            t.TempDir(),
		RemuxConcurrency:    1,
		ThumbnailAttachment: "cover.jpg",
		ChapterLanguage:     "eng",
	}

	if modify != nil {
		modify(&cfg)
	}

	templates, err := templatecollection.NewCached(os.DirFS("../templates"), templatefuncs.Funcs())
	if err != nil {
		t.Fatal(err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	m := mux.NewRouter()
	Register(m)
	m.NotFoundHandler = http.HandlerFunc(httputil.NotFound)

	recovery := negroni.NewRecovery()
	recovery.Logger = log.New(io.Discard, "", 0)
	recovery.PrintStack = false

	n := negroni.New()
	n.Use(recovery)
	n.UseFunc(ctxlogger.Register(logger))
	n.UseFunc(ctxtimer.Register(nil))
	n.UseFunc(ctxclock.Register(ctxclock.NewRealClock()))
	n.UseFunc(ctxtemplate.Register(templates))
	n.UseFunc(ctxdb.Register(db))
	n.UseFunc(ctxconfig.Register(cfg))
	n.UseFunc(ctxlimiter.Register(semaphore.NewWeighted(int64(cfg.RemuxConcurrency))))
	n.UseFunc(ctxlogger.Log())
	n.UseHandler(m)

	return &testServer{handler: n, cfg: cfg, db: db}
}

func (s *testServer) get(path string, headers ...string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}

	rw := httptest.NewRecorder()
	s.handler.ServeHTTP(rw, r)

	return rw
}

func parse(t *testing.T, rw *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(rw.Body)
	if err != nil {
		t.Fatal(err)
	}

	return doc
}

func texts(sel *goquery.Selection) []string {
	return sel.Map(func(i int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
}

func TestIndex(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, nil)

	rw := s.get("/")
	a.Equal(http.StatusOK, rw.Code)

	doc := parse(t, rw)

	a.Equal([]string{"Mountain", "Fish & <Chips> by the Sea", "Copy", "Copy"}, texts(doc.Find(".videos .video .title")))
	a.Equal([]string{"Band"}, texts(doc.Find(".sidebar li a")))

	href, _ := doc.Find(".sidebar li a").Attr("href")
	a.Equal("/artist/youtube/UCband", href)
}

func TestIndexSearch(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("matches", func(t *testing.T) {
		a := assert.New(t)

		rw := s.get("/?q=sea")
		a.Equal(http.StatusOK, rw.Code)

		doc := parse(t, rw)

		a.Equal([]string{"Fish & <Chips> by the Sea"}, texts(doc.Find(".results .video .title")))
		a.Equal([]string{"Sea"}, texts(doc.Find(".results .title mark")))
		a.Equal([]string{"sea"}, texts(doc.Find(".results .description mark")))
		a.Equal(0, doc.Find("chips").Length())

		value, _ := doc.Find("input[name=q]").Attr("value")
		a.Equal("sea", value)
	})

	t.Run("no matches", func(t *testing.T) {
		a := assert.New(t)

		rw := s.get("/?q=volcano")
		a.Equal(http.StatusOK, rw.Code)
		a.Equal(0, parse(t, rw).Find(".results").Length())
	})

	t.Run("malformed", func(t *testing.T) {
		a := assert.New(t)

		rw := s.get("/?q=%22unterminated")
		a.Equal(http.StatusInternalServerError, rw.Code)
	})
}

func TestVideo(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, nil)

	rw := s.get("/video/youtube/v1")
	if !a.Equal(http.StatusOK, rw.Code) {
		return
	}

	doc := parse(t, rw)

	a.Equal("Fish & <Chips> by the Sea", doc.Find(".detail h1").Text())
	a.Equal("a calm sea at night", doc.Find(".detail .description").Text())
	a.Equal("20200101", doc.Find(".upload-date").Text())
	a.Equal("zeta, alpha", doc.Find(".tags").Text())
	a.Equal("Music", doc.Find(".categories").Text())
	a.Equal("3:32", doc.Find(".duration").Text())
	a.Equal("1920x1080", doc.Find(".resolution").Text())
	a.Equal([]string{"A", "B & <C>"}, texts(doc.Find(".chapters .label")))
	a.Equal([]string{"00:00:00.000", "00:00:05.000"}, texts(doc.Find(".chapters .from")))

	src, _ := doc.Find("video").Attr("src")
	a.Equal("/video/youtube/v1/videofile", src)

	poster, _ := doc.Find("video").Attr("poster")
	a.Equal("/video/youtube/v1/thumbnail", poster)

	track, _ := doc.Find("video track[kind=chapters]").Attr("src")
	a.Equal("/video/youtube/v1/chapters", track)

	artist, _ := doc.Find(".artist a").Attr("href")
	a.Equal("/artist/youtube/UCband", artist)
}

func TestVideoWithoutFile(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, nil)

	rw := s.get("/video/youtube/v2")
	if !a.Equal(http.StatusOK, rw.Code) {
		return
	}

	doc := parse(t, rw)

	a.Equal("Mountain", doc.Find(".detail h1").Text())
	a.Equal(0, doc.Find("video").Length())
	a.Equal(0, doc.Find(".duration").Length())
	a.Equal(0, doc.Find(".chapters").Length())
}

func TestVideoProbeFailure(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, func(cfg *config.Config) {
		cfg.FfprobePath = writeScript(t, t.TempDir(), "ffprobe", "exit 1\n")
	})

	rw := s.get("/video/youtube/v1")
	if a.Equal(http.StatusOK, rw.Code) {
		doc := parse(t, rw)
		a.Equal(0, doc.Find(".duration").Length())
		a.Equal(1, doc.Find("video").Length())
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{
		"/video/youtube/missing",
		"/video/vimeo/v1",
		"/video/youtube/dupe",
		"/video/youtube/missing/chapters",
		"/video/youtube/missing/videofile",
		"/video/youtube/v2/videofile",
		"/video/youtube/v2/thumbnail",
		"/artist/youtube/UCnobody",
		"/no/such/page",
	} {
		t.Run(path, func(t *testing.T) {
			a := assert.New(t)

			rw := s.get(path)
			a.Equal(http.StatusNotFound, rw.Code)
			a.Equal("Not found", parse(t, rw).Find("h1").Text())
		})
	}
}

func TestArtist(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, nil)

	rw := s.get("/artist/youtube/UCband")
	if a.Equal(http.StatusOK, rw.Code) {
		doc := parse(t, rw)
		a.Equal("Band", doc.Find("main h1").Text())
		a.Equal([]string{"Mountain", "Fish & <Chips> by the Sea"}, texts(doc.Find(".videos .video .title")))
	}
}

func TestVideoFile(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("full", func(t *testing.T) {
		a := assert.New(t)

		rw := s.get("/video/youtube/v1/videofile")
		a.Equal(http.StatusOK, rw.Code)
		a.Equal("video/mp4", rw.Header().Get("content-type"))
		a.Equal("bytes", rw.Header().Get("accept-ranges"))
		a.Equal("mp4:MATROSKA", rw.Body.String())

		left, err := os.ReadDir(s.cfg.TempPath)
		a.NoError(err)
		a.Empty(left)
	})

	t.Run("range", func(t *testing.T) {
		a := assert.New(t)

		rw := s.get("/video/youtube/v1/videofile", "range", "bytes=4-7")
		a.Equal(http.StatusPartialContent, rw.Code)
		a.Equal("MATR", rw.Body.String())
	})
}

func TestVideoFileFailure(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, func(cfg *config.Config) {
		cfg.FfmpegPath = writeScript(t, t.TempDir(), "ffmpeg", `for last; do :; done
printf 'partial' > "$last"
echo 'broken input' >&2
exit 1
`)
	})

	rw := s.get("/video/youtube/v1/videofile")
	a.Equal(http.StatusInternalServerError, rw.Code)
	a.NotContains(rw.Body.String(), "partial")

	left, err := os.ReadDir(s.cfg.TempPath)
	a.NoError(err)
	a.Empty(left)
}

func TestThumbnail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		a := assert.New(t)

		rw := newTestServer(t, nil).get("/video/youtube/v1/thumbnail")
		a.Equal(http.StatusOK, rw.Code)
		a.Equal("image/jpeg", rw.Header().Get("content-type"))
		a.Equal("attachment; filename=cover.jpg", rw.Header().Get("content-disposition"))
		a.Equal("JPEGDATA", rw.Body.String())
	})

	t.Run("missing attachment", func(t *testing.T) {
		a := assert.New(t)

		rw := newTestServer(t, func(cfg *config.Config) {
			cfg.ThumbnailAttachment = "poster.png"
		}).get("/video/youtube/v1/thumbnail")
		a.Equal(http.StatusNotFound, rw.Code)
	})

	t.Run("tool failure", func(t *testing.T) {
		a := assert.New(t)

		rw := newTestServer(t, func(cfg *config.Config) {
			cfg.MkvmergePath = writeScript(t, t.TempDir(), "mkvmerge", "echo 'not matroska' >&2\nexit 2\n")
		}).get("/video/youtube/v1/thumbnail")
		a.Equal(http.StatusInternalServerError, rw.Code)
	})
}

func TestChapters(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("cues", func(t *testing.T) {
		a := assert.New(t)

		rw := s.get("/video/youtube/v1/chapters")
		a.Equal(http.StatusOK, rw.Code)
		a.Equal("text/vtt; charset=utf-8", rw.Header().Get("content-type"))
		a.Equal("WEBVTT\n\n"+
			"00:00:00.000 --> 00:00:05.000\nA\n\n"+
			"00:00:05.000 --> 00:00:12.000\nB &amp; &lt;C&gt;\n\n", rw.Body.String())
	})

	t.Run("no chapters", func(t *testing.T) {
		a := assert.New(t)

		rw := s.get("/video/youtube/v2/chapters")
		a.Equal(http.StatusOK, rw.Code)
		a.Equal("WEBVTT\n\n", rw.Body.String())
	})
}
