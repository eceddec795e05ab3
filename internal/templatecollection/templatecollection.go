package templatecollection

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

// Collection executes page templates by name. Every page is parsed together
// with layout.gohtml and any shared_*.gohtml files, and must define a
// template with the same name as its file (minus the extension).
type Collection interface {
	ExecuteTemplate(wr io.Writer, name string, data interface{}) error
}

var ErrTemplateNotFound = fmt.Errorf("template not found")

func parsePage(fileSystem fs.FS, funcs template.FuncMap, name string, pagePattern string) (*template.Template, error) {
	tpl := template.New(name)
	if funcs != nil {
		tpl = tpl.Funcs(funcs)
	}

	var fileNames []string

	for _, pattern := range expandGlobs([]string{pagePattern, "layout.gohtml", "shared_*.gohtml"}) {
		names, err := fs.Glob(fileSystem, pattern)
		if err != nil {
			return nil, fmt.Errorf("templatecollection.parsePage: could not get names for pattern %q: %w", pattern, err)
		}

		fileNames = append(fileNames, names...)
	}

	if len(fileNames) == 0 {
		return nil, fmt.Errorf("templatecollection.parsePage: %w: %s", ErrTemplateNotFound, name)
	}

	tpl, err := tpl.ParseFS(fileSystem, fileNames...)
	if err != nil {
		return nil, fmt.Errorf("templatecollection.parsePage: could not construct template: %w", err)
	}

	if tpl.Lookup(name) == nil {
		return nil, fmt.Errorf("templatecollection.parsePage: %w: %s", ErrTemplateNotFound, name)
	}

	return tpl, nil
}

// Cached parses every page once up front.
type Cached struct {
	l sync.RWMutex
	m map[string]*template.Template
}

func NewCached(fileSystem fs.FS, funcs template.FuncMap) (*Cached, error) {
	var pageFiles []string
	for _, pattern := range expandGlobs([]string{"page_*.gohtml"}) {
		names, err := fs.Glob(fileSystem, pattern)
		if err != nil {
			return nil, fmt.Errorf("templatecollection.NewCached: could not get page template names: %w", err)
		}

		pageFiles = append(pageFiles, names...)
	}

	c := Cached{m: make(map[string]*template.Template)}

	for _, pageFile := range pageFiles {
		name := strings.TrimSuffix(path.Base(pageFile), ".gohtml")

		tpl, err := parsePage(fileSystem, funcs, name, pageFile)
		if err != nil {
			return nil, fmt.Errorf("templatecollection.NewCached: %w", err)
		}

		c.m[name] = tpl
	}

	return &c, nil
}

func (c *Cached) Names() []string {
	c.l.RLock()
	defer c.l.RUnlock()

	var a []string
	for k := range c.m {
		a = append(a, k)
	}

	sort.Strings(a)

	return a
}

func (c *Cached) ExecuteTemplate(wr io.Writer, name string, data interface{}) error {
	c.l.RLock()
	defer c.l.RUnlock()

	tpl, ok := c.m[name]
	if !ok {
		return fmt.Errorf("templatecollection.Cached.ExecuteTemplate: %w: %s", ErrTemplateNotFound, name)
	}

	if err := tpl.ExecuteTemplate(wr, name, data); err != nil {
		return fmt.Errorf("templatecollection.Cached.ExecuteTemplate: %w", err)
	}

	return nil
}

// Live re-reads templates from disk on every execution, for editing
// templates without restarting.
type Live struct {
	fs fs.FS
	m  template.FuncMap
}

func NewLive(fileSystem fs.FS, funcs template.FuncMap) (*Live, error) {
	return &Live{fs: fileSystem, m: funcs}, nil
}

func (l *Live) ExecuteTemplate(wr io.Writer, name string, data interface{}) error {
	tpl, err := parsePage(l.fs, l.m, name, name+".gohtml")
	if err != nil {
		return fmt.Errorf("templatecollection.Live.ExecuteTemplate: %w", err)
	}

	if err := tpl.ExecuteTemplate(wr, name, data); err != nil {
		return fmt.Errorf("templatecollection.Live.ExecuteTemplate: %w", err)
	}

	return nil
}

func expandGlobs(a []string) []string {
	var r []string

	for _, e := range a {
		r = append(r, e, "*/"+e)
	}

	return r
}
