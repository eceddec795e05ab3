package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/tdewolff/minify"
	"github.com/tdewolff/minify/css"
	"github.com/tdewolff/minify/html"
	"github.com/tdewolff/minify/js"
	"github.com/urfave/negroni/v2"
	"golang.org/x/sync/semaphore"
	"modernc.org/sqlite"

	"fknsrs.biz/p/vidshelf/handlers"
	"fknsrs.biz/p/vidshelf/internal/config"
	"fknsrs.biz/p/vidshelf/internal/configreader"
	"fknsrs.biz/p/vidshelf/internal/ctxclock"
	"fknsrs.biz/p/vidshelf/internal/ctxconfig"
	"fknsrs.biz/p/vidshelf/internal/ctxdb"
	"fknsrs.biz/p/vidshelf/internal/ctxlimiter"
	"fknsrs.biz/p/vidshelf/internal/ctxlogger"
	"fknsrs.biz/p/vidshelf/internal/ctxtemplate"
	"fknsrs.biz/p/vidshelf/internal/ctxtimer"
	"fknsrs.biz/p/vidshelf/internal/httputil"
	"fknsrs.biz/p/vidshelf/internal/logrusstackhook"
	"fknsrs.biz/p/vidshelf/internal/schema"
	"fknsrs.biz/p/vidshelf/internal/searchindex"
	"fknsrs.biz/p/vidshelf/internal/sqlitelogger"
	"fknsrs.biz/p/vidshelf/internal/templatecollection"
	"fknsrs.biz/p/vidshelf/internal/templatefuncs"
)

var cfg = config.Config{
	LogLevel:            logrus.InfoLevel,
	LogDebugLevels:      config.LevelList{logrus.DebugLevel, logrus.TraceLevel},
	LogQueries:          config.LogQueries{Enabled: true, SlowerThan: time.Millisecond * 100},
	Host:                "0.0.0.0",
	Port:                8000,
	DatabaseDriver:      "sqlite",
	FfmpegPath:          "ffmpeg",
	FfprobePath:         "ffprobe",
	MkvmergePath:        "mkvmerge",
	MkvextractPath:      "mkvextract",
	TempPath:            os.TempDir(),
	RemuxConcurrency:    2,
	ThumbnailAttachment: "cover.jpg",
	ChapterLanguage:     "eng",
	ApplicationMinify:   true,
}

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

func init() {
	for _, configPath := range []string{"config.toml", "config.yaml", "config.yml"} {
		if st, err := os.Stat(configPath); err == nil && st != nil && !st.IsDir() {
			cfg.Config = configPath
		}
	}
}

var drivers = map[string]func() driver.Driver{
	"sqlite":  func() driver.Driver { return &sqlite.Driver{} },
	"sqlite3": func() driver.Driver { return &sqlite3.SQLiteDriver{} },
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if err := configreader.Read(os.Args[0], os.Args[1:], os.Environ(), &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = ctxconfig.WithConfig(ctx, cfg)
	ctx = ctxclock.WithClock(ctx, ctxclock.NewRealClock())

	logger := logrus.New()

	logger.SetLevel(cfg.LogLevel)
	if len(cfg.LogDebugLevels) > 0 {
		logger.AddHook(logrusstackhook.NewStackHook(nil, cfg.LogDebugLevels, nil))
	}

	logger.WithFields(logrus.Fields{
		"config.config":                  cfg.Config,
		"config.log_level":               cfg.LogLevel,
		"config.log_debug_levels":        cfg.LogDebugLevels,
		"config.log_queries":             cfg.LogQueries,
		"config.addr":                    cfg.Addr(),
		"config.database":                cfg.Database,
		"config.database_driver":         cfg.DatabaseDriver,
		"config.database_migrate":        cfg.DatabaseMigrate,
		"config.search_rebuild_schedule": cfg.SearchRebuildSchedule,
		"config.temp_path":               cfg.TempPath,
		"config.remux_concurrency":       cfg.RemuxConcurrency,
		"config.thumbnail_attachment":    cfg.ThumbnailAttachment,
		"config.chapter_language":        cfg.ChapterLanguage,
		"config.application_minify":      cfg.ApplicationMinify,
	}).Info("program starting")

	ctx = ctxlogger.WithLogger(ctx, logger)

	db, err := openDatabase(cfg)
	if err != nil {
		logger.WithError(err).Fatal("could not open database")
	}
	defer db.Close()

	if cfg.DatabaseMigrate {
		if err := schema.Migrate(db.DB, logger.WithField("component", "schema")); err != nil {
			logger.WithError(err).Fatal("could not migrate database")
		}
	}

	ctx = ctxdb.WithDB(ctx, db)

	if _, err := searchindex.Rebuild(ctx); err != nil {
		logger.WithError(err).Fatal("could not build search index")
	}

	workers := []worker{
		{
			name: "application",
			run: func(ctx context.Context) error {
				return runApplicationWorker(ctx, cfg.Addr())
			},
		},
	}

	if cfg.SearchRebuildSchedule != "" {
		scheduler, err := searchindex.NewScheduler(cfg.SearchRebuildSchedule)
		if err != nil {
			logger.WithError(err).Fatal("could not schedule search index rebuild")
		}

		workers = append(workers, worker{
			name: "search_rebuild",
			run:  scheduler.Run,
		})
	}

	if err := runAllWorkers(ctx, workers); err != nil {
		logger.WithError(err).Fatal("program failed")
	}

	logger.Info("program finished")
}

func openDatabase(cfg config.Config) (*sqlx.DB, error) {
	newDriver, ok := drivers[cfg.DatabaseDriver]
	if !ok {
		return nil, fmt.Errorf("openDatabase: unknown driver %q", cfg.DatabaseDriver)
	}

	driverName := cfg.DatabaseDriver

	if !cfg.LogQueries.IsZero() {
		driverName = cfg.DatabaseDriver + ":logged"

		sql.Register(driverName, sqlitelogger.New(
			driverName,
			newDriver(),
			&sqlitelogger.BasicFilter{
				LogSlowerThan: cfg.LogQueries.SlowerThan,
				IgnorePackageStackFrames: []string{
					// standard library
					"database/sql",
					"net/http",
					"runtime",
					// libraries
					"fknsrs.biz/p/sorm",
					"github.com/Masterminds/squirrel",
					"github.com/gorilla/mux",
					"github.com/jmoiron/sqlx",
					"github.com/pressly/goose/v3",
					"github.com/robfig/cron/v3",
					"github.com/shogo82148/go-sql-proxy",
					"github.com/urfave/negroni/v2",
					// middleware
					"fknsrs.biz/p/vidshelf/internal/ctxclock",
					"fknsrs.biz/p/vidshelf/internal/ctxconfig",
					"fknsrs.biz/p/vidshelf/internal/ctxdb",
					"fknsrs.biz/p/vidshelf/internal/ctxlimiter",
					"fknsrs.biz/p/vidshelf/internal/ctxlogger",
					"fknsrs.biz/p/vidshelf/internal/ctxtemplate",
					"fknsrs.biz/p/vidshelf/internal/ctxtimer",
					"fknsrs.biz/p/vidshelf/internal/sqlitelogger",
					// main
					"main",
				},
			},
		))
	}

	sqlx.BindDriver(driverName, sqlx.QUESTION)

	db, err := sqlx.Open(driverName, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("openDatabase: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("openDatabase: %w", err)
	}

	return db, nil
}

type worker struct {
	name string
	run  func(ctx context.Context) error
}

// runAllWorkers runs every worker until ctx is done. A worker that returns
// early without an error is restarted; one that fails stops all of them.
func runAllWorkers(ctx context.Context, workers []worker) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup
	errs := make([]error, len(workers))

	for id, w := range workers {
		wg.Add(1)

		go func(id int, w worker) {
			defer wg.Done()

			l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
				"worker.id":   id + 1,
				"worker.name": w.name,
			})

			for {
				if err := w.run(ctxlogger.WithLogger(ctx, l)); err != nil {
					l.WithError(err).Error("worker failed")

					errs[id] = fmt.Errorf("worker %d (%s) failed: %w", id+1, w.name, err)
					cancel(errs[id])

					return
				}

				select {
				case <-ctx.Done():
					l.Info("worker stopped")
					return
				case <-time.After(time.Second):
					l.Info("worker restarted")
				}
			}
		}(id, w)
	}

	wg.Wait()

	return errors.Join(errs...)
}

func directoryExists(name string) bool {
	st, err := os.Stat(name)
	if err != nil {
		return false
	}
	return st.IsDir()
}

func runApplicationWorker(ctx context.Context, addr string) error {
	l := ctxlogger.GetLogger(ctx)

	l.WithFields(logrus.Fields{
		"args.addr": addr,
	}).Info("running application worker")

	var templates templatecollection.Collection
	if directoryExists("templates") {
		l.Info("using live filesystem for templates")
		c, err := templatecollection.NewLive(os.DirFS("templates"), templatefuncs.Funcs())
		if err != nil {
			return fmt.Errorf("runApplicationWorker: %w", err)
		}
		templates = c
	} else {
		l.Info("using embedded filesystem for templates")
		c, err := templatecollection.NewCached(templateFS, templatefuncs.Funcs())
		if err != nil {
			return fmt.Errorf("runApplicationWorker: %w", err)
		}
		templates = c
	}

	m := mux.NewRouter()

	handlers.Register(m)

	if directoryExists("static") {
		l.Info("using live filesystem for static files")
		m.Methods(http.MethodGet).PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	} else {
		l.Info("using embedded filesystem for static files")
		staticRoot, err := fs.Sub(staticFS, "static")
		if err != nil {
			return fmt.Errorf("runApplicationWorker: %w", err)
		}
		m.Methods(http.MethodGet).PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))))
	}

	m.NotFoundHandler = http.HandlerFunc(httputil.NotFound)

	min := minify.New()
	min.Add("text/html", html.DefaultMinifier)
	min.Add("text/css", css.DefaultMinifier)
	min.Add("application/javascript", js.DefaultMinifier)

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseFunc(ctxlogger.Register(l))
	n.UseFunc(ctxtimer.Register(nil))
	n.UseFunc(ctxclock.Register(ctxclock.GetClock(ctx)))
	n.UseFunc(ctxtemplate.Register(templates))
	n.UseFunc(ctxdb.Register(ctxdb.GetDB(ctx)))
	n.UseFunc(ctxconfig.Register(ctxconfig.GetConfig(ctx)))
	n.UseFunc(ctxlimiter.Register(semaphore.NewWeighted(int64(ctxconfig.GetConfig(ctx).RemuxConcurrency))))
	n.UseFunc(ctxtimer.AddLoggerHooks())
	n.UseFunc(ctxclock.AddLoggerHooks())
	n.UseFunc(ctxlogger.Log())

	if ctxconfig.GetConfig(ctx).ApplicationMinify {
		n.UseFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
			if strings.ToLower(r.Header.Get("connection")) != "upgrade" {
				mw := min.ResponseWriter(rw, r)
				defer mw.Close()
				rw = mw
			}

			next(rw, r)
		})
	}

	n.UseHandler(m)

	s := &http.Server{
		Addr:        addr,
		Handler:     n,
		BaseContext: func(l net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errs := make(chan error, 1)

	go func() {
		l.Info("starting server")
		errs <- s.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		l.Info("stopping server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second*10)
		defer cancel()

		return s.Shutdown(shutdownCtx)
	}
}
