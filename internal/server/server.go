// Package server exposes a reading session over a local HTTP viewer.
// The browser's address bar carries the session's deep-link query, so
// any rendered state can be bookmarked, shared and reloaded.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ziadkadry99/epub-reader/internal/deeplink"
	"github.com/ziadkadry99/epub-reader/internal/engine"
	"github.com/ziadkadry99/epub-reader/internal/session"
	"github.com/ziadkadry99/epub-reader/internal/view"
)

// Config holds viewer configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server is the local reading viewer.
type Server struct {
	cfg        Config
	session    *session.Session
	policy     *bluemonday.Policy
	tmpl       *template.Template
	router     chi.Router
	httpServer *http.Server
}

// New creates a viewer for an already-running session.
func New(cfg Config, sess *session.Session) *Server {
	s := &Server{
		cfg:     cfg,
		session: sess,
		policy:  bluemonday.UGCPolicy(),
		tmpl:    template.Must(template.New("reader").Parse(readerTemplate)),
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", s.handleReader)
	r.Get("/logs", s.handleLogs)
	r.Get("/status", s.handleStatus)
	r.Post("/translate", s.handleTranslate)
	r.Post("/translate-section", s.handleTranslateSection)
	r.Get("/download", s.handleDownload)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// handleReader renders the current view. A query string in the address
// is applied to the session first, so reloading or pasting a shared
// link reproduces the state it encodes.
func (s *Server) handleReader(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.RawQuery; q != "" && q != s.session.Location() {
		s.session.Navigate(q)
	}

	snap := s.session.Render()
	st := s.session.State()

	data := pageData{
		Title:       fmt.Sprintf("epub-reader — %s", s.session.DocumentID()),
		Mode:        snap.Mode,
		Variant:     snap.Variant,
		Location:    s.session.Location(),
		Connected:   snap.Connected,
		Job:         snap.Job,
		Error:       snap.Error,
		Placeholder: snap.Placeholder,
		AllHref:     "/?" + deeplink.Encode(view.State{Mode: view.ModeAll, Variant: st.Variant, TargetLanguage: st.TargetLanguage}),
		TranslatedOnlyHref: "/?" + deeplink.Encode(view.State{
			Mode: view.ModeTranslatedOnly, Variant: st.Variant, TargetLanguage: st.TargetLanguage,
		}),
		ToggleHref: "/?" + deeplink.Encode(toggled(st)),
	}
	for _, sec := range snap.Sections {
		data.Sections = append(data.Sections, pageSection{
			ID:                 sec.ID,
			Title:              sec.Title,
			Content:            template.HTML(s.policy.Sanitize(sec.Content)),
			IsTranslated:       sec.IsTranslated,
			ShowingTranslation: sec.ShowingTranslation,
			Href: "/?" + deeplink.Encode(view.State{
				Mode: view.ModeSingle, ActiveSectionID: sec.ID,
				Variant: st.Variant, TargetLanguage: st.TargetLanguage,
			}),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		log.Printf("server: rendering reader: %v", err)
	}
}

func toggled(st view.State) view.State {
	if st.Variant == view.VariantTranslated {
		st.Variant = view.VariantOriginal
	} else {
		st.Variant = view.VariantTranslated
	}
	return st
}

// handleLogs returns the retained log entries, oldest first.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Logs().Entries())
}

// handleStatus returns the session's status surfaces as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Render()
	writeJSON(w, http.StatusOK, statusResponse{
		Connected: snap.Connected,
		Job:       snap.Job,
		Error:     snap.Error,
		Location:  s.session.Location(),
	})
}

// handleTranslate starts a whole-document translation job.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue("lang")
	if err := s.session.StartTranslation(r.Context(), lang); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	http.Redirect(w, r, "/?"+s.session.Location(), http.StatusSeeOther)
}

// handleTranslateSection requests translation of the focused section.
func (s *Server) handleTranslateSection(w http.ResponseWriter, r *http.Request) {
	if err := s.session.TranslateActiveSection(r.Context()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	http.Redirect(w, r, "/?"+s.session.Location(), http.StatusSeeOther)
}

// handleDownload redirects to the engine's download location.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.session.DownloadURL(), http.StatusTemporaryRedirect)
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("epub-reader viewer listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the viewer.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

type statusResponse struct {
	Connected bool             `json:"connected"`
	Job       engine.JobStatus `json:"job"`
	Error     string           `json:"error,omitempty"`
	Location  string           `json:"location"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

type pageData struct {
	Title              string
	Mode               view.Mode
	Variant            view.Variant
	Location           string
	Connected          bool
	Job                engine.JobStatus
	Error              string
	Placeholder        string
	AllHref            string
	TranslatedOnlyHref string
	ToggleHref         string
	Sections           []pageSection
}

type pageSection struct {
	ID                 string
	Title              string
	Content            template.HTML
	IsTranslated       bool
	ShowingTranslation bool
	Href               string
}

const readerTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, serif; max-width: 46em; margin: 2em auto; padding: 0 1em; }
nav a { margin-right: 1em; }
.status { color: #666; font-size: 0.85em; }
.error { color: #b00; }
.section { margin: 2em 0; }
.badge { font-size: 0.75em; color: #080; }
</style>
</head>
<body>
<nav>
<a href="{{.AllHref}}">All</a>
<a href="{{.TranslatedOnlyHref}}">Translated only</a>
<a href="{{.ToggleHref}}">{{if eq .Variant "translated"}}Show original{{else}}Show translation{{end}}</a>
<a href="/download">Download</a>
</nav>
<p class="status">
{{if .Connected}}connected{{else}}disconnected{{end}}
{{if eq .Job.State "in_progress"}} · translating {{printf "%.0f" .Job.ProgressPercent}}%{{end}}
{{if eq .Job.State "completed"}} · translation complete{{end}}
</p>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Placeholder}}<p>{{.Placeholder}}</p>{{end}}
{{range .Sections}}
<div class="section">
<h2><a href="{{.Href}}">{{.Title}}</a>{{if .IsTranslated}} <span class="badge">translated</span>{{end}}</h2>
{{.Content}}
</div>
{{end}}
</body>
</html>
`
