package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type LevelList []logrus.Level

func (a LevelList) MarshalText() ([]byte, error) {
	if len(a) == 0 {
		return []byte("-"), nil
	}

	var s string

	for i, e := range a {
		if i != 0 {
			s += ","
		}

		s += e.String()
	}

	return []byte(s), nil
}

func (a *LevelList) UnmarshalText(d []byte) error {
	if string(d) == "" || string(d) == "-" {
		*a = LevelList{}
		return nil
	}

	var aa LevelList

	for _, e := range strings.Split(string(d), ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}

		l, err := logrus.ParseLevel(e)
		if err != nil {
			return fmt.Errorf("config.LevelList.UnmarshalText: could not parse value as logrus level: %w", err)
		}

		aa = append(aa, l)
	}

	*a = aa

	return nil
}

type LogQueries struct {
	Enabled    bool
	SlowerThan time.Duration
}

func (l LogQueries) String() string {
	if l.Enabled {
		if l.SlowerThan != 0 {
			return ">" + l.SlowerThan.String()
		}

		return "all"
	}

	return "none"
}

func (l LogQueries) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *LogQueries) UnmarshalText(d []byte) error {
	s := string(d)

	switch s {
	case "all":
		l.Enabled = true
		l.SlowerThan = 0
		return nil
	case "", "none":
		l.Enabled = false
		l.SlowerThan = 0
		return nil
	default:
		if s[0] == '>' && len(s) > 1 {
			d, err := time.ParseDuration(s[1:])
			if err != nil {
				return fmt.Errorf("config.LogQueries.UnmarshalText: could not parse value as duration: %w", err)
			}
			l.Enabled = true
			l.SlowerThan = d
			return nil
		}

		return fmt.Errorf("config.LogQueries.UnmarshalText: unrecognised input %q; valid options are none, all, or >x where x is a duration", s)
	}
}

func (l *LogQueries) IsZero() bool {
	return l.Enabled == false && l.SlowerThan == 0
}

type Config struct {
	Config                string       `name:"config" toml:"config" yaml:"config" help:"Config file location."`
	LogLevel              logrus.Level `name:"log_level" toml:"log_level" yaml:"log_level" help:"Global log level."`
	LogDebugLevels        LevelList    `name:"log_debug_levels" toml:"log_debug_levels" yaml:"log_debug_levels" help:"Which log levels to include stack data on."`
	LogQueries            LogQueries   `name:"log_queries" toml:"log_queries" yaml:"log_queries" help:"Log SQL queries."`
	Host                  string       `name:"host" short:"H" toml:"host" yaml:"host" help:"Host to listen on."`
	Port                  int          `name:"port" short:"p" toml:"port" yaml:"port" help:"Port to listen on." validate:"min=1,max=65535"`
	Database              string       `name:"database" positional:"0" toml:"database" yaml:"database" help:"Library database file." validate:"required"`
	DatabaseDriver        string       `name:"database_driver" toml:"database_driver" yaml:"database_driver" help:"SQLite driver, sqlite (pure Go) or sqlite3 (cgo, needs the sqlite_fts5 build tag)." validate:"oneof=sqlite sqlite3"`
	DatabaseMigrate       bool         `name:"database_migrate" toml:"database_migrate" yaml:"database_migrate" help:"Create catalog tables if they are missing."`
	SearchRebuildSchedule string       `name:"search_rebuild_schedule" toml:"search_rebuild_schedule" yaml:"search_rebuild_schedule" help:"Cron schedule for rebuilding the search index; empty means startup only."`
	FfmpegPath            string       `name:"ffmpeg_path" toml:"ffmpeg_path" yaml:"ffmpeg_path" help:"Path to ffmpeg." validate:"required"`
	FfprobePath           string       `name:"ffprobe_path" toml:"ffprobe_path" yaml:"ffprobe_path" help:"Path to ffprobe." validate:"required"`
	MkvmergePath          string       `name:"mkvmerge_path" toml:"mkvmerge_path" yaml:"mkvmerge_path" help:"Path to mkvmerge." validate:"required"`
	MkvextractPath        string       `name:"mkvextract_path" toml:"mkvextract_path" yaml:"mkvextract_path" help:"Path to mkvextract." validate:"required"`
	TempPath              string       `name:"temp_path" toml:"temp_path" yaml:"temp_path" help:"Scratch directory for remuxed files."`
	RemuxConcurrency      int          `name:"remux_concurrency" toml:"remux_concurrency" yaml:"remux_concurrency" help:"How many remuxes may run at once." validate:"min=1"`
	ThumbnailAttachment   string       `name:"thumbnail_attachment" toml:"thumbnail_attachment" yaml:"thumbnail_attachment" help:"File name of the embedded cover art attachment." validate:"required"`
	ChapterLanguage       string       `name:"chapter_language" toml:"chapter_language" yaml:"chapter_language" help:"Preferred language for chapter titles."`
	ApplicationMinify     bool         `name:"application_minify" toml:"application_minify" yaml:"application_minify" help:"Minify HTML/CSS/JS output."`
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config.Config.Validate: %w", err)
	}

	return nil
}
