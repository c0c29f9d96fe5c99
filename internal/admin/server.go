package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"skywatch-sim/internal/clock"
	"skywatch-sim/internal/session"
	"skywatch-sim/internal/simerr"
)

// MaxTimeStepSeconds is the largest time step accepted from clients. Values
// are then clamped to the clock bounds.
const MaxTimeStepSeconds = 3600

// Server exposes session control over HTTP.
type Server struct {
	Sessions *session.Manager
	Live     http.Handler
	tpl      *template.Template
	log      *slog.Logger
}

//go:embed templates/index.html
var content embed.FS

// NewServer returns a server over sessions. live serves the websocket event
// stream and may be nil.
func NewServer(sessions *session.Manager, live http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{Sessions: sessions, Live: live, tpl: tpl, log: log}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /airspaces/{id}/start", s.handleStart)
	mux.HandleFunc("POST /airspaces/{id}/pause", s.handlePause)
	mux.HandleFunc("POST /airspaces/{id}/resume", s.handleResume)
	mux.HandleFunc("POST /airspaces/{id}/stop", s.handleStop)
	mux.HandleFunc("POST /airspaces/{id}/step", s.handleStep)
	mux.HandleFunc("PUT /airspaces/{id}/time-step", s.handleTimeStep)
	mux.HandleFunc("GET /airspaces/{id}", s.handleStatus)
	mux.HandleFunc("GET /airspaces/{id}/targets", s.handleTargets)
	mux.HandleFunc("GET /airspaces/{id}/devices/{device}/events", s.handleDeviceEvents)
	if s.Live != nil {
		mux.Handle("GET /events/live", s.Live)
	}
	return mux
}

// Serve handles requests on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("admin server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start listens on addr and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Host     string
		Sessions []session.Status
	}{Host: r.Host}
	for _, id := range s.Sessions.IDs() {
		if st, err := s.Sessions.Status(id); err == nil {
			data.Sessions = append(data.Sessions, st)
		}
	}
	if err := s.tpl.Execute(w, data); err != nil {
		s.log.Error("render index", "err", err)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	st, err := s.Sessions.Start(r.PathValue("id"))
	s.respond(w, st, err)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	st, err := s.Sessions.Pause(r.PathValue("id"))
	s.respond(w, st, err)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	st, err := s.Sessions.Resume(r.PathValue("id"))
	s.respond(w, st, err)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Stop(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	t, err := s.Sessions.Step(r.PathValue("id"))
	s.respond(w, map[string]any{
		"tick_id":     t.ID,
		"sim_time_ns": t.SimTime,
		"delta_ns":    t.Delta,
	}, err)
}

func (s *Server) handleTimeStep(w http.ResponseWriter, r *http.Request) {
	step, err := parseTimeStep(r.URL.Query().Get("seconds"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	st, err := s.Sessions.SetTimeStep(r.PathValue("id"), step)
	s.respond(w, st, err)
}

// parseTimeStep reads a step in seconds from (0, 3600] and clamps it to the
// clock bounds.
func parseTimeStep(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, simerr.Validation("seconds is required")
	}
	sec, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(sec) {
		return 0, simerr.Validation("seconds %q is not a number", raw)
	}
	if sec <= 0 || sec > MaxTimeStepSeconds {
		return 0, simerr.Validation("seconds %v outside (0,%d]", sec, MaxTimeStepSeconds)
	}
	step := time.Duration(sec * float64(time.Second))
	return min(max(step, clock.MinTimeStep), clock.MaxTimeStep), nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Sessions.Status(r.PathValue("id"))
	s.respond(w, st, err)
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := s.Sessions.Targets(r.PathValue("id"))
	s.respond(w, targets, err)
}

func (s *Server) handleDeviceEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, simerr.Validation("limit %q must be a non-negative integer", raw))
			return
		}
		limit = n
	}
	evs, err := s.Sessions.DeviceEvents(r.PathValue("id"), r.PathValue("device"), limit)
	s.respond(w, evs, err)
}

func (s *Server) respond(w http.ResponseWriter, body any, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Error("admin request failed", "err", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, simerr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, simerr.ErrState):
		return http.StatusConflict
	case errors.Is(err, simerr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, simerr.ErrTransientIO):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
