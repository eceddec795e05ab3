package templatecollection

import (
	"bytes"
	"html/template"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

var testFuncs = template.FuncMap{
	"upper": strings.ToUpper,
}

func testFS(prefix string) fstest.MapFS {
	return fstest.MapFS{
		prefix + "layout.gohtml":        {Data: []byte(`{{define "layout"}}<main>{{template "content" .}}</main>{{template "shared_footer" .}}{{end}}`)},
		prefix + "shared_footer.gohtml": {Data: []byte(`{{define "shared_footer"}}<footer>{{.Footer}}</footer>{{end}}`)},
		prefix + "page_hello.gohtml":    {Data: []byte(`{{define "page_hello"}}{{template "layout" .}}{{end}}{{define "content"}}hello {{upper .Name}}{{end}}`)},
		prefix + "page_bye.gohtml":      {Data: []byte(`{{define "page_bye"}}{{template "layout" .}}{{end}}{{define "content"}}bye {{.Name}}{{end}}`)},
	}
}

func TestCollections(t *testing.T) {
	for _, prefix := range []string{"", "templates/"} {
		fileSystem := testFS(prefix)

		cached, err := NewCached(fileSystem, testFuncs)
		if err != nil {
			t.Fatal(err)
		}

		live, err := NewLive(fileSystem, testFuncs)
		if err != nil {
			t.Fatal(err)
		}

		if prefix == "" {
			assert.Equal(t, []string{"page_bye", "page_hello"}, cached.Names())
		}

		for name, c := range map[string]Collection{"cached": cached, "live": live} {
			if prefix != "" && name == "live" {
				continue
			}

			t.Run(name+"/"+prefix, func(t *testing.T) {
				a := assert.New(t)

				var buf bytes.Buffer
				a.NoError(c.ExecuteTemplate(&buf, "page_hello", map[string]interface{}{"Name": "<b>", "Footer": "f"}))
				a.Equal("<main>hello &lt;B&gt;</main><footer>f</footer>", buf.String())

				buf.Reset()
				a.NoError(c.ExecuteTemplate(&buf, "page_bye", map[string]interface{}{"Name": "x", "Footer": "g"}))
				a.Equal("<main>bye x</main><footer>g</footer>", buf.String())

				a.ErrorIs(c.ExecuteTemplate(&buf, "page_missing", nil), ErrTemplateNotFound)
			})
		}
	}
}
