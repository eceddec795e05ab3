package templatefuncs

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"fknsrs.biz/p/vidshelf/internal/stringutil"
)

func Funcs() template.FuncMap {
	return template.FuncMap{
		"first_of": func(a ...interface{}) string {
			for _, e := range a {
				if s := fmt.Sprintf("%v", e); s != "" {
					return s
				}
			}

			return ""
		},
		"format_upload_date": FormatUploadDate,
		"format_duration":    FormatDuration,
		"ellipsize":          stringutil.Ellipsize,
		"join":               strings.Join,
		"path_escape":        url.PathEscape,
		"make_map": func(args ...interface{}) map[string]interface{} {
			m := make(map[string]interface{})

			for i := 0; i < len(args)/2; i++ {
				kv := args[i*2]
				vv := args[i*2+1]

				k, ok := kv.(string)
				if !ok {
					panic(fmt.Errorf("key value should be string; was instead %T", kv))
				}

				m[k] = vv
			}

			return m
		},
	}
}

// FormatUploadDate turns YYYYMMDD into YYYY-MM-DD and leaves anything else
// as it is.
func FormatUploadDate(s string) string {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return s
	}

	return t.Format("2006-01-02")
}

// FormatDuration renders d as H:MM:SS, or M:SS under an hour.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}

	return fmt.Sprintf("%d:%02d", m, s)
}
