package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"schedcal/internal/config"
	"schedcal/internal/datekit"
	"schedcal/internal/export"
	appLog "schedcal/internal/log"
	"schedcal/internal/model"
	"schedcal/internal/store"
	"schedcal/internal/view"
)

// Server exposes the calendar session over HTTP: the month view and its
// transitions, the editor state machine, event deletion, and export feeds.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	store *store.Store

	// The controller is one shared session; handlers serialize access.
	ctrlMu sync.Mutex
	ctrl   *view.Controller
}

// embeddedStatic contains the single-page calendar UI served for all
// non-API paths.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a Server around an opened store.
func NewServer(cfg *config.Config, st *store.Store) *Server {
	loc := resolveLocationOrLocal(cfg.Timezone)
	s := &Server{
		cfg:   cfg,
		mux:   http.NewServeMux(),
		store: st,
		ctrl: view.NewController(st, view.Options{
			Location:         loc,
			DefaultEventTime: cfg.DefaultEventTime,
		}),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// StartServer serves until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, st *store.Store) error {
	s := NewServer(cfg, st)
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password is treated as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays reachable without credentials.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="schedcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/view", s.handleView)
	s.mux.HandleFunc("POST /api/view/navigate", s.handleNavigate)
	s.mux.HandleFunc("POST /api/view/today", s.handleToday)
	s.mux.HandleFunc("POST /api/view/select", s.handleSelect)
	s.mux.HandleFunc("POST /api/view/key", s.handleKey)

	s.mux.HandleFunc("POST /api/editor/open", s.handleEditorOpen)
	s.mux.HandleFunc("POST /api/editor/save", s.handleEditorSave)
	s.mux.HandleFunc("POST /api/editor/cancel", s.handleEditorCancel)

	s.mux.HandleFunc("DELETE /api/events", s.handleDeleteEvent)

	s.mux.HandleFunc("GET /api/export.ics", s.handleExportICS)
	s.mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)
	s.mux.HandleFunc("GET /api/export.json", s.handleExportJSON)

	// Static UI for everything else.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// renderLocked must be called with ctrlMu held.
func (s *Server) renderLocked(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, s.ctrl.Render())
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	s.renderLocked(w)
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Delta == 0 {
		writeError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}

	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	s.ctrl.NavigateMonth(req.Delta)
	s.renderLocked(w)
}

func (s *Server) handleToday(w http.ResponseWriter, _ *http.Request) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	s.ctrl.GoToToday()
	s.renderLocked(w)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	d, ok := decodeDate(w, r)
	if !ok {
		return
	}

	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	s.ctrl.SelectDate(d)
	s.renderLocked(w)
}

func decodeDate(w http.ResponseWriter, r *http.Request) (datekit.Date, bool) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return datekit.Date{}, false
	}
	d, err := datekit.ParseKey(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return datekit.Date{}, false
	}
	return d, true
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
		Key  string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d, err := datekit.ParseKey(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	s.ctrl.HandleKey(d, req.Key)
	s.renderLocked(w)
}

func (s *Server) handleEditorOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
		ID   string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d, err := datekit.ParseKey(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var existing *model.Event
	if req.ID != "" {
		ev, ok := s.store.Find(req.Date, req.ID)
		if !ok {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		existing = &ev
	}

	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	s.ctrl.OpenEditor(d, existing)
	s.renderLocked(w)
}

func (s *Server) handleEditorSave(w http.ResponseWriter, r *http.Request) {
	var req model.Draft
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	if !s.ctrl.EditorOpen() {
		writeError(w, http.StatusConflict, view.ErrEditorClosed.Error())
		return
	}
	s.ctrl.UpdateDraft(req)
	if err := s.ctrl.SaveEditor(); err != nil {
		// Validation failures keep the editor open; the client re-renders
		// with the inline error from the view snapshot.
		writeJSON(w, http.StatusUnprocessableEntity, s.ctrl.Render())
		return
	}
	s.renderLocked(w)
}

func (s *Server) handleEditorCancel(w http.ResponseWriter, _ *http.Request) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	s.ctrl.CancelEditor()
	s.renderLocked(w)
}

// handleDeleteEvent removes one event. The explicit confirmation token
// (?confirm=yes) stands in for the interactive prompt; without it nothing
// is deleted.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dateKey := q.Get("date")
	id := q.Get("id")
	if dateKey == "" || id == "" {
		writeError(w, http.StatusBadRequest, "date and id are required")
		return
	}
	if _, ok := s.store.Find(dateKey, id); !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	confirmed := q.Get("confirm") == "yes"

	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	deleted := s.ctrl.RequestDelete(dateKey, id, view.ConfirmFunc(func(string) bool {
		return confirmed
	}))
	if !deleted {
		writeError(w, http.StatusConflict, "confirmation required: repeat with confirm=yes")
		return
	}
	s.renderLocked(w)
}

func (s *Server) handleExportICS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.ics", s.cfg.CalendarName))

	loc := resolveLocationOrLocal(s.cfg.Timezone)
	if err := export.ICS(w, s.store.Snapshot(), s.cfg.CalendarName, loc); err != nil {
		appLog.Error("ics export failed", err)
	}
}

func (s *Server) handleExportCSV(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", s.cfg.CalendarName))

	if err := export.CSV(w, s.store.Snapshot()); err != nil {
		appLog.Error("csv export failed", err)
	}
}

func (s *Server) handleExportJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if err := export.JSON(w, s.store.Snapshot()); err != nil {
		appLog.Error("json export failed", err)
	}
}

// staticFileServer serves the embedded single-page UI from
// internal/web/static for every non-API path.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// API paths never fall through to the static UI; a missing API
		// handler must 404 rather than answer with HTML.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}

		fileServer.ServeHTTP(w, r)
	})
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
