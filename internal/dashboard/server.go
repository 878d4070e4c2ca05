// Package dashboard serves a local web view of the cycle-time analytics.
package dashboard

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"dcycle/internal/cycle"
	"dcycle/internal/orchestrator"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html assets/*.js
var assetFS embed.FS

var templates = template.Must(template.ParseFS(assetFS, "templates/*.html"))

// Server serves the dashboard UI and its JSON API.
type Server struct {
	orch  *orchestrator.Orchestrator
	mux   *http.ServeMux
	appJS []byte
}

// NewServer creates the dashboard server, minifying the frontend bundle once
// at startup.
func NewServer(orch *orchestrator.Orchestrator) (*Server, error) {
	src, err := assetFS.ReadFile("assets/app.js")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded app.js: %w", err)
	}

	result := api.Transform(string(src), api.TransformOptions{
		Loader:            api.LoaderJS,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
	})
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("failed to minify app.js: %s", result.Errors[0].Text)
	}

	s := &Server{
		orch:  orch,
		mux:   http.NewServeMux(),
		appJS: result.Code,
	}
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/app.js", s.handleAppJS)
	s.mux.HandleFunc("/api/cohorts", s.handleCohortsAPI)
	s.mux.HandleFunc("/api/issues", s.handleIssuesAPI)
	s.mux.HandleFunc("/api/issue/", s.handleIssueAPI)
	s.mux.HandleFunc("/api/quarter/", s.handleQuarterAPI)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server and opens the default browser at it.
func (s *Server) ListenAndServe(addr string) error {
	url := "http://" + addr
	log.Info().Str("url", url).Msg("Starting dashboard")
	if err := browser.OpenURL(url); err != nil {
		log.Warn().Err(err).Msg("Could not open browser, navigate manually")
	}
	return http.ListenAndServe(addr, s)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "index.html", nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleAppJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(s.appJS)
}

func (s *Server) handleCohortsAPI(w http.ResponseWriter, r *http.Request) {
	metric := cycle.MetricCalendar
	if strings.EqualFold(r.URL.Query().Get("metric"), "active") {
		metric = cycle.MetricActive
	}

	var exclude map[string]bool
	if keys := r.URL.Query().Get("exclude"); keys != "" {
		exclude = make(map[string]bool)
		for _, key := range strings.Split(keys, ",") {
			exclude[strings.TrimSpace(key)] = true
		}
	}

	cohorts, err := s.orch.CohortStats(metric, exclude)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"metric":  metric,
		"cohorts": cohorts,
	})
}

func (s *Server) handleIssuesAPI(w http.ResponseWriter, r *http.Request) {
	infos, err := s.orch.AllCached()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("completed") == "true" {
		completed := infos[:0]
		for _, info := range infos {
			if info.Completed() {
				completed = append(completed, info)
			}
		}
		infos = completed
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":  len(infos),
		"issues": infos,
	})
}

func (s *Server) handleQuarterAPI(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/quarter/")
	q, err := cycle.ParseQuarter(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	payload, err := s.orch.QuarterDetails(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (s *Server) handleIssueAPI(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/issue/")
	if key == "" {
		http.NotFound(w, r)
		return
	}

	info, err := s.orch.CycleInfo(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	periods, err := s.orch.InactivePeriods(r.Context(), key)
	if err != nil {
		periods = []cycle.InactivePeriod{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"info":            info,
		"inactivePeriods": periods,
	})
}
