// Package api exposes the navigation engine, the station and route stores
// and the telemetry simulator over HTTP and WebSocket.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/kilianp07/evnav/core/logger"
	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/core/navigation"
	"github.com/kilianp07/evnav/core/playback"
	"github.com/kilianp07/evnav/core/routing"
	"github.com/kilianp07/evnav/core/store"
)

// Navigator is the part of the navigation engine the API drives.
type Navigator interface {
	Start(ctx context.Context, userID, routeID string) (int, error)
	Pause(userID string) error
	Resume(userID string) error
	Stop(userID string) error
	Disconnect(userID string) bool
	Snapshot(userID string) (navigation.Snapshot, error)
}

// StatusUpdater changes a vehicle's charging status.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, vehicleID string, status model.ChargingStatus) (model.Vehicle, error)
}

// Deps are the collaborators served by the API.
type Deps struct {
	Stations  store.StationStore
	Routes    store.RouteStore
	Vehicles  store.VehicleStore
	Provider  routing.Provider
	Navigator Navigator
	Channel   *navigation.Channel
	Status    StatusUpdater
	Builder   playback.Builder
}

// Options tunes the HTTP layer.
type Options struct {
	// RateLimit is the number of requests per client IP and minute; zero
	// disables limiting.
	RateLimit       int
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// Server is the HTTP front end.
type Server struct {
	deps   Deps
	opts   Options
	log    logger.Logger
	router chi.Router
}

// NewServer builds the router. log may be nil.
func NewServer(deps Deps, opts Options, log logger.Logger) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{deps: deps, opts: opts, log: logger.OrNop(log)}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)
	r.Use(s.cors)
	if s.opts.RateLimit > 0 {
		r.Use(httprate.Limit(
			s.opts.RateLimit,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusTooManyRequests, "Too many requests")
			}),
		))
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("EV navigation backend"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/station", s.handleStations)
	r.Get("/getRoute", s.handleGetRoute)
	r.Post("/startNavigation", s.handleStart)
	r.Post("/pauseNavigation", s.handleControl("Navigation paused", s.deps.Navigator.Pause))
	r.Post("/resumeNavigation", s.handleControl("Navigation resumed", s.deps.Navigator.Resume))
	r.Post("/stopNavigation", s.handleControl("Navigation stopped", s.deps.Navigator.Stop))
	r.Get("/navigation/{userId}", s.handleSnapshot)
	r.Get("/user", s.handleUsers)
	r.Patch("/updateStatus", s.handleUpdateStatus)
	r.Get("/ws", s.handleWS)
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Infof("HTTP API stopped")
	return nil
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debugw("http request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
	})
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.opts.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
