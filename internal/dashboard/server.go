// Package dashboard serves the joined mastery table as a live, sortable
// web page.
package dashboard

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"legends/internal/metrics"
	"legends/internal/table"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"header": header,
	"cell":   func(r table.Row, col string) string { return r[col] },
}).ParseFS(templateFS, "templates/index.html"))

// Config configures a Server
type Config struct {
	// Path is the joined mastery file, normally mastery/final.csv
	Path    string
	Refresh time.Duration
	Logger  *slog.Logger
	Clock   clockwork.Clock
}

// Snapshot is the table as of the most recent successful reload
type Snapshot struct {
	Columns  []string    `json:"columns"`
	Rows     []table.Row `json:"rows"`
	LoadedAt time.Time   `json:"loaded_at"`
}

// Server re-reads the final file on a fixed interval and serves it
type Server struct {
	cfg      Config
	log      *slog.Logger
	clock    clockwork.Clock
	hub      *hub
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	snap    *Snapshot
	lastErr error
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = time.Second
	}
	return &Server{
		cfg:   cfg,
		log:   cfg.Logger,
		clock: cfg.Clock,
		hub:   newHub(cfg.Logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Reload reads the final file and pushes it to websocket clients when it
// changed. On failure the previous snapshot is kept and the error is
// reported by /healthz.
func (s *Server) Reload() error {
	t, err := table.ReadCSV(s.cfg.Path)
	if err != nil {
		metrics.DashboardReloads.WithLabelValues("error").Inc()
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return err
	}

	if t.Has("title") {
		caser := cases.Title(language.Und)
		for i, r := range t.Rows {
			t.Set(i, "title", caser.String(r["title"]))
		}
	}
	sortRows(t.Rows, DefaultOrder)

	snap := &Snapshot{Columns: t.Columns, Rows: t.Rows, LoadedAt: s.clock.Now().UTC()}
	s.mu.Lock()
	changed := s.snap == nil || !snap.equal(s.snap)
	s.snap = snap
	s.lastErr = nil
	s.mu.Unlock()

	metrics.DashboardReloads.WithLabelValues("ok").Inc()
	metrics.DashboardRows.Set(float64(len(t.Rows)))
	if changed {
		s.hub.broadcast(snap)
	}
	return nil
}

func (s *Snapshot) equal(o *Snapshot) bool {
	return slices.Equal(s.Columns, o.Columns) &&
		slices.EqualFunc(s.Rows, o.Rows, func(a, b table.Row) bool { return maps.Equal(a, b) })
}

// Run reloads every Refresh until ctx is done
func (s *Server) Run(ctx context.Context) {
	s.reloadLogged()

	ticker := s.clock.NewTicker(s.cfg.Refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.reloadLogged()
		}
	}
}

func (s *Server) reloadLogged() {
	err := s.Reload()
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		s.log.Debug("final file not found yet", "path", s.cfg.Path)
	default:
		s.log.Warn("failed to reload final file", "path", s.cfg.Path, "error", err)
	}
}

// Snapshot returns the current rows ordered by keys, or DefaultOrder when
// keys is empty. It returns nil before the first successful reload.
func (s *Server) Snapshot(keys ...SortKey) *Snapshot {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	if snap == nil {
		return nil
	}

	rows := append([]table.Row(nil), snap.Rows...)
	if len(keys) > 0 {
		sortRows(rows, slices.Concat(keys, DefaultOrder))
	}
	return &Snapshot{Columns: snap.Columns, Rows: rows, LoadedAt: snap.LoadedAt}
}

// Handler returns the HTTP routes wrapped in CORS and recovery middleware
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/api/mastery", s.handleMastery).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.handleWebsocket)
	router.Handle("/metrics", promhttp.Handler())

	h := handlers.CORS(handlers.AllowedOrigins([]string{"*"}))(router)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
}

// ListenAndServe runs the reload loop and the HTTP server until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Handler:      handlers.CombinedLoggingHandler(logWriter{s.log}, s.Handler()),
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	go s.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type indexData struct {
	Snapshot *Snapshot
	Sort     string
	Desc     bool
	Refresh  int64
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	keys := sortKeys(r)
	data := indexData{
		Snapshot: s.Snapshot(keys...),
		Refresh:  s.cfg.Refresh.Milliseconds(),
	}
	if len(keys) > 0 {
		data.Sort, data.Desc = keys[0].Column, keys[0].Desc
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.log.Error("failed to render dashboard", "error", err)
	}
}

func (s *Server) handleMastery(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot(sortKeys(r)...)
	if snap == nil {
		http.Error(w, "no data loaded yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	loaded, lastErr := s.snap != nil, s.lastErr
	s.mu.RUnlock()

	resp := map[string]any{"ok": loaded, "clients": s.hub.size()}
	if lastErr != nil {
		resp["error"] = lastErr.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	if !loaded {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("failed to upgrade websocket", "error", err)
		return
	}
	c := s.hub.add(conn)
	defer s.hub.remove(c)

	// The first message is the current snapshot, null before any reload.
	if err := c.send(s.Snapshot()); err != nil {
		return
	}

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.log.Debug("closing websocket connection", "error", err)
			return
		}
	}
}

// sortKeys parses ?sort=col&dir=asc|desc. Direction defaults to ascending.
func sortKeys(r *http.Request) []SortKey {
	col := r.URL.Query().Get("sort")
	if col == "" {
		return nil
	}
	return []SortKey{{Column: col, Desc: strings.EqualFold(r.URL.Query().Get("dir"), "desc")}}
}

// header capitalizes a column name for display
func header(col string) string {
	r, size := utf8.DecodeRuneInString(col)
	if r == utf8.RuneError {
		return col
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(col[size:])
}

// logWriter adapts slog for the gorilla access log
type logWriter struct {
	log *slog.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	w.log.Debug(strings.TrimSpace(string(p)))
	return len(p), nil
}
