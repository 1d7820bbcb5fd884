package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/vistara-dashboard/clients"
	"github.com/jrsteele09/vistara-dashboard/metrics"
	"github.com/jrsteele09/vistara-dashboard/users"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const contentTypeHTML = "text/html; charset=utf-8"

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// pageData is the model every page template receives.
type pageData struct {
	Title    string
	Active   string
	User     *users.User
	IsAdmin  bool
	Theme    string
	AppName  string
	Error    string
	Notice   string
	Form     map[string]string
	Features map[string]bool
	Scope    *clientScope
	// RefreshSeconds asks the page to reload itself.
	RefreshSeconds int
	Data           any
}

// clientScope is the client a page reports on, plus the picker options admins see.
type clientScope struct {
	ID      string
	Name    string
	Options []clients.Client
}

var templateFuncs = template.FuncMap{
	"minutes": metrics.FormatMinutes,
	"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Format("02 Jan 2006 15:04")
	},
	"since": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return humanDuration(time.Since(t)) + " ago"
	},
	"lower":  strings.ToLower,
	"active": func(current, page string) bool { return current == page },
	"duration": func(ms int64) string {
		return (time.Duration(ms) * time.Millisecond).Round(time.Millisecond).String()
	},
	"paragraphs": paragraphs,
}

// paragraphs splits plain text on blank lines.
func paragraphs(body string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "moments"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// templateSet holds one parsed tree per page, each sharing the layout.
type templateSet struct {
	pages map[string]*template.Template
}

func parseTemplates() (*templateSet, error) {
	fsys := TemplateFilesFS()
	names, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("[parseTemplates] %w", err)
	}

	set := &templateSet{pages: make(map[string]*template.Template)}
	for _, name := range names {
		if name == "layout.html" {
			continue
		}
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys, "layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("[parseTemplates] %s: %w", name, err)
		}
		set.pages[name] = tmpl
	}
	return set, nil
}

func (t *templateSet) render(name string, data pageData) ([]byte, error) {
	tmpl, ok := t.pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %s", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderPage fills in the session-derived fields of data and writes the page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	data.AppName = s.appName
	data.Features = s.features
	if ws, ok := WorkspaceFrom(r.Context()); ok {
		snap := ws.Session.Snapshot()
		data.User = snap.User
		data.IsAdmin = snap.IsAdmin()
		data.Theme = snap.Theme
	}
	if data.Theme == "" {
		data.Theme = s.defaultTheme
	}
	if data.Error == "" {
		data.Error = r.URL.Query().Get("error")
	}
	if data.Notice == "" {
		data.Notice = r.URL.Query().Get("notice")
	}

	body, err := s.templates.render(name, data)
	if err != nil {
		log.Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// renderLoading is shown while a browser's session is still being restored.
func (s *Server) renderLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Refresh", "1")
	s.renderPage(w, r, http.StatusOK, "loading.html", pageData{Title: "Loading", RefreshSeconds: 1})
}
