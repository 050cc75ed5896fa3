// Package dashboard serves a small read-only view over the published
// artifact: an HTML summary page and a JSON API for the underlying rows.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-anomaly-etl/internal/domain"
)

// ArtifactLoader fetches the published wide table.
type ArtifactLoader interface {
	Fetch(ctx context.Context) ([]domain.WideRow, error)
}

// Server exposes the dashboard endpoints. Artifact fetches are cached for a
// TTL so page loads do not hammer object storage.
type Server struct {
	httpServer *http.Server
	loader     ArtifactLoader
	clock      clockwork.Clock
	ttl        time.Duration
	logger     *slog.Logger

	mu        sync.Mutex
	cached    []domain.WideRow
	fetchedAt time.Time
	hasCache  bool
}

// NewServer creates a dashboard server reading through the given loader.
func NewServer(addr string, loader ArtifactLoader, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		loader: loader,
		clock:  clock,
		ttl:    ttl,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/weather", s.handleWeather)
	mux.HandleFunc("GET /api/current", s.handleCurrent)
	mux.HandleFunc("GET /api/flags", s.handleFlags)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("dashboard starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// rows returns the artifact rows, fetching through the loader when the cache
// is stale.
func (s *Server) rows(ctx context.Context) ([]domain.WideRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasCache && s.clock.Since(s.fetchedAt) < s.ttl {
		return s.cached, nil
	}

	rows, err := s.loader.Fetch(ctx)
	if err != nil {
		if s.hasCache {
			s.logger.Warn("artifact refresh failed, serving stale cache", "error", err)
			return s.cached, nil
		}
		return nil, err
	}

	s.cached = rows
	s.fetchedAt = s.clock.Now()
	s.hasCache = true
	return rows, nil
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>Weather Anomaly Dashboard</title></head>
<body>
<h1>Weather Anomaly Dashboard</h1>
<p>{{.RowCount}} rows published.</p>
{{if .Current}}
<h2>Current conditions</h2>
<p>{{.Current.Date}}: {{with .Current.TMAX}}{{printf "%.1f" .}} &deg;C{{end}}
{{with .Current.DailyFlag}}(daily: {{.}}){{end}}
{{with .Current.MonthlyFlag}}(monthly: {{.}}){{end}}</p>
{{end}}
<h2>Daily flag counts</h2>
<ul>
{{range $flag, $count := .DailyFlags}}<li>{{$flag}}: {{$count}}</li>
{{end}}</ul>
</body>
</html>
`))

type indexData struct {
	RowCount   int
	Current    *domain.WideRow
	DailyFlags map[string]int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	rows, err := s.rows(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("load artifact: %v", err), http.StatusBadGateway)
		return
	}

	data := indexData{
		RowCount:   len(rows),
		Current:    currentRow(rows),
		DailyFlags: flagCounts(rows, func(r domain.WideRow) *string { return r.DailyFlag }),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Warn("render index failed", "error", err)
	}
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	rows, err := s.rows(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("load artifact: %v", err), http.StatusBadGateway)
		return
	}

	year, ok := intParam(w, r, "year")
	if !ok {
		return
	}
	month, ok := intParam(w, r, "month")
	if !ok {
		return
	}

	filtered := make([]domain.WideRow, 0, len(rows))
	for _, row := range rows {
		if year != nil && row.Year != *year {
			continue
		}
		if month != nil && row.Month != *month {
			continue
		}
		filtered = append(filtered, row)
	}
	writeJSON(w, http.StatusOK, filtered)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	rows, err := s.rows(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("load artifact: %v", err), http.StatusBadGateway)
		return
	}

	current := currentRow(rows)
	if current == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no live reading in artifact"})
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleFlags(w http.ResponseWriter, r *http.Request) {
	rows, err := s.rows(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("load artifact: %v", err), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]map[string]int{
		"daily":   flagCounts(rows, func(r domain.WideRow) *string { return r.DailyFlag }),
		"monthly": flagCounts(rows, func(r domain.WideRow) *string { return r.MonthlyFlag }),
	})
}

// currentRow returns the last live-sourced row, which the pipeline appends
// after all historical rows.
func currentRow(rows []domain.WideRow) *domain.WideRow {
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Source == domain.SourceAPI {
			return &rows[i]
		}
	}
	return nil
}

func flagCounts(rows []domain.WideRow, flag func(domain.WideRow) *string) map[string]int {
	counts := make(map[string]int)
	for _, row := range rows {
		if f := flag(row); f != nil {
			counts[*f]++
		}
	}
	return counts
}

// intParam parses an optional integer query parameter, writing a 400 and
// returning ok=false when the value is present but malformed.
func intParam(w http.ResponseWriter, r *http.Request, name string) (*int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid %s %q", name, raw), http.StatusBadRequest)
		return nil, false
	}
	return &n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
