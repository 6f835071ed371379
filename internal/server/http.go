package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vajrock/debugger-mcp/internal/config"
	"github.com/vajrock/debugger-mcp/internal/protocol"
	"github.com/vajrock/debugger-mcp/internal/tools"
)

// sessionHeader carries the connection id on streamable HTTP requests.
const sessionHeader = "Mcp-Session-Id"

// maxBodySize bounds one JSON-RPC message.
const maxBodySize = 4 << 20

// Server is the HTTP front end of the dispatcher.
type Server struct {
	cfg        config.Server
	dispatcher *Dispatcher
	hub        *Hub
	router     chi.Router
	logger     *slog.Logger

	mu    sync.Mutex
	conns map[string]*Conn
}

// Options configures a Server.
type Options struct {
	Config     config.Server
	Dispatcher *Dispatcher
	// Registry, when set with Config.NotifyToolChanges, is watched for
	// changes that are pushed to event streams.
	Registry *tools.Registry
	// Gatherer serves /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// New builds the routes:
//
//	POST   /<name>          JSON-RPC request, ?sessionId= answers on that stream
//	GET    /<name>/sse      event stream
//	DELETE /<name>          ends a Mcp-Session-Id connection
//	GET    /healthz
//	GET    /metrics
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	base := "/" + opts.Config.Name

	s := &Server{
		cfg:        opts.Config,
		dispatcher: opts.Dispatcher,
		hub:        NewHub(base, opts.Config.KeepAlive, logger),
		logger:     logger,
		conns:      make(map[string]*Conn),
	}
	if opts.Registry != nil && opts.Config.NotifyToolChanges {
		opts.Registry.OnChange(func() {
			s.hub.Broadcast(protocol.NewNotification(notificationToolsChanged, nil))
		})
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Post(base, s.handlePost)
	r.Delete(base, s.handleDelete)
	r.Get(base, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "use "+base+"/sse for the event stream", http.StatusMethodNotAllowed)
	})
	r.Get(base+"/sse", s.hub.ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "streams": s.hub.Len()})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.router = r
	return s
}

// Handler exposes the HTTP handler for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close ends the open event streams.
func (s *Server) Close() {
	s.hub.Close()
}

// Run serves on the configured address until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.hub.Close)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Listen, "endpoint", "/"+s.cfg.Name)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var (
		conn   *Conn
		target *stream
		fresh  bool
	)
	switch sid, hid := r.URL.Query().Get("sessionId"), r.Header.Get(sessionHeader); {
	case sid != "":
		st, ok := s.hub.get(sid)
		if !ok {
			http.Error(w, "unknown sessionId", http.StatusNotFound)
			return
		}
		conn, target = st.conn, st
	case hid != "":
		s.mu.Lock()
		conn = s.conns[hid]
		s.mu.Unlock()
		if conn == nil {
			http.Error(w, "unknown "+sessionHeader, http.StatusNotFound)
			return
		}
	default:
		conn, fresh = NewConn(uuid.NewString()), true
	}

	resp := s.dispatcher.Handle(r.Context(), conn, body)

	if fresh && conn.Initialized() {
		s.mu.Lock()
		s.conns[conn.ID()] = conn
		s.mu.Unlock()
		w.Header().Set(sessionHeader, conn.ID())
	}

	switch {
	case resp == nil:
		w.WriteHeader(http.StatusAccepted)
	case target != nil:
		if err := target.send(eventMessage, resp); err != nil {
			http.Error(w, err.Error(), http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(sessionHeader)
	s.mu.Lock()
	_, ok := s.conns[id]
	delete(s.conns, id)
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown "+sessionHeader, http.StatusNotFound)
		return
	}
	s.logger.Debug("connection closed by client", "conn", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}
