// Package display serves the reconstruction results of a run over HTTP: a
// dashboard, a 2D event display, the pad layout, residual plots, Prometheus
// metrics and, when a store is attached, the database admin pages.
package display

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tdis-data/mtpc.reco/internal/httputil"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/padgeom"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/reco"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/storage/sqlite"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/validation"
)

//go:embed dashboard.html
var dashboardFS embed.FS

var dashboardTemplate = template.Must(template.ParseFS(dashboardFS, "dashboard.html"))

// WebServer serves the results of one reconstruction run.
type WebServer struct {
	address   string
	server    *http.Server
	layout    padgeom.Layout
	results   []reco.EventResult
	byNumber  map[int]int
	residuals *validation.Residuals
	store     *sqlite.Store
	runID     string
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address   string
	Layout    padgeom.Layout
	Results   []reco.EventResult
	Residuals *validation.Residuals // optional
	Store     *sqlite.Store         // optional; enables /runs, /runs/hits and /debug/
	RunID     string
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   config.Address,
		layout:    config.Layout,
		results:   config.Results,
		byNumber:  make(map[int]int, len(config.Results)),
		residuals: config.Residuals,
		store:     config.Store,
		runID:     config.RunID,
	}
	for i, res := range config.Results {
		if _, dup := ws.byNumber[res.Event]; !dup {
			ws.byNumber[res.Event] = i
		}
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// Handler returns the routed handler of the server.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", ws.handleDashboard)
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/event", ws.handleEvent)
	mux.HandleFunc("/pads", ws.handlePads)
	mux.HandleFunc("/residuals", ws.handleResiduals)
	mux.HandleFunc("/residuals.png", ws.handleResidualsPNG)
	mux.HandleFunc("/runs", ws.handleRuns)
	mux.HandleFunc("/runs/hits", ws.handleRunHits)
	mux.Handle("/metrics", promhttp.Handler())

	if ws.store != nil {
		ws.store.AttachAdminRoutes(mux)
	}
	return mux
}

type dashboardEvent struct {
	Number       int
	Hits         int
	Measurements int
	Skipped      int
}

type dashboardData struct {
	RunID     string
	Layout    padgeom.Layout
	Events    []dashboardEvent
	Residuals bool
	Store     bool
	Axes      []validation.Axis
}

func (ws *WebServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := dashboardData{
		RunID:     ws.runID,
		Layout:    ws.layout,
		Events:    make([]dashboardEvent, 0, len(ws.results)),
		Residuals: ws.residuals != nil,
		Store:     ws.store != nil,
		Axes:      validation.Axes,
	}
	for _, res := range ws.results {
		data.Events = append(data.Events, dashboardEvent{
			Number:       res.Event,
			Hits:         len(res.Hits),
			Measurements: len(res.Measurements),
			Skipped:      res.Skipped,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, data); err != nil {
		log.Printf("display: render dashboard: %v", err)
	}
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"events": len(ws.results),
	})
}

// eventFromQuery resolves the ?n= event number, defaulting to the first
// event of the run.
func (ws *WebServer) eventFromQuery(r *http.Request) (*reco.EventResult, int, error) {
	if len(ws.results) == 0 {
		return nil, http.StatusNotFound, fmt.Errorf("no events loaded")
	}
	n := r.URL.Query().Get("n")
	if n == "" {
		return &ws.results[0], 0, nil
	}
	num, err := strconv.Atoi(n)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid event number %q", n)
	}
	i, ok := ws.byNumber[num]
	if !ok {
		return nil, http.StatusNotFound, fmt.Errorf("event %d not found", num)
	}
	return &ws.results[i], 0, nil
}

func (ws *WebServer) handleResiduals(w http.ResponseWriter, r *http.Request) {
	if ws.residuals == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "no residuals collected")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ws.residuals.Summary())
}

func (ws *WebServer) handleResidualsPNG(w http.ResponseWriter, r *http.Request) {
	if ws.residuals == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "no residuals collected")
		return
	}
	axis := validation.Axis(r.URL.Query().Get("axis"))
	if axis == "" {
		axis = validation.AxisX
	}
	if ws.residuals.Histogram(axis, false) == nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown axis %q", axis))
		return
	}
	pull := r.URL.Query().Get("pull") == "true"

	httputil.WriteRendered(w, "image/png", func(out io.Writer) error {
		return ws.residuals.WritePNG(out, axis, pull)
	})
}

func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if ws.store == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "no database attached")
		return
	}
	if id := r.URL.Query().Get("id"); id != "" {
		run, err := ws.store.RunSummary(r.Context(), id)
		if err != nil {
			httputil.WriteJSONError(w, runErrorStatus(err), err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, run)
		return
	}
	runs, err := ws.store.ListRuns(r.Context())
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list runs: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}

// storedHit is a stored hit with the truth position omitted when unknown.
type storedHit struct {
	sqlite.HitRow
	TrueX *float64 `json:"true_x,omitempty"`
	TrueY *float64 `json:"true_y,omitempty"`
	TrueZ *float64 `json:"true_z,omitempty"`
}

func (ws *WebServer) handleRunHits(w http.ResponseWriter, r *http.Request) {
	if ws.store == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "no database attached")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.WriteJSONError(w, http.StatusBadRequest, "missing run id")
		return
	}
	if _, err := ws.store.RunSummary(r.Context(), id); err != nil {
		httputil.WriteJSONError(w, runErrorStatus(err), err.Error())
		return
	}
	rows, err := ws.store.Hits(r.Context(), id)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("hits: %v", err))
		return
	}

	out := make([]storedHit, len(rows))
	for i, row := range rows {
		out[i].HitRow = row
		if !math.IsNaN(row.TrueX) {
			out[i].TrueX, out[i].TrueY, out[i].TrueZ = &row.TrueX, &row.TrueY, &row.TrueZ
		}
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func runErrorStatus(err error) int {
	if errors.Is(err, sqlite.ErrRunNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
