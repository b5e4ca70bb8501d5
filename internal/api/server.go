package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/huewatch/core/internal/infrastructure/config"
	"github.com/huewatch/core/internal/infrastructure/logging"
	"github.com/huewatch/core/internal/sensor"
	"github.com/huewatch/core/internal/stream"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// NameResolver resolves bridge resource ids to display names.
// The Gateway satisfies it; tests inject a fake.
type NameResolver interface {
	NameMap(ctx context.Context) (map[string]string, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Store    *sensor.Store
	Names    NameResolver
	Cache    *stream.EventCache
	Bus      *stream.Bus
	Ingestor *stream.Ingestor
	Graphs   *sensor.GraphReader // optional; graph endpoints 503 without it
	Version  string

	// SparklineWindow is the narrowed history span served by the sparkline
	// view of the sensor list.
	SparklineWindow time.Duration
}

// Server is the HTTP API server for huewatch.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	store     *sensor.Store
	names     NameResolver
	cache     *stream.EventCache
	bus       *stream.Bus
	ingestor  *stream.Ingestor
	graphs    *sensor.GraphReader
	version   string
	sparkline time.Duration

	server *http.Server
	hub    *Hub

	// srvCtx outlives any single request; the lazily started ingestion loop
	// and hub bridge bind to it, not to the request that triggered them.
	srvCtx context.Context
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("sensor store is required")
	}
	if deps.Names == nil {
		return nil, fmt.Errorf("name resolver is required")
	}
	if deps.Cache == nil || deps.Bus == nil || deps.Ingestor == nil {
		return nil, fmt.Errorf("stream components are required")
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		store:     deps.Store,
		names:     deps.Names,
		cache:     deps.Cache,
		bus:       deps.Bus,
		ingestor:  deps.Ingestor,
		graphs:    deps.Graphs,
		version:   deps.Version,
		sparkline: deps.SparklineWindow,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub and its bus bridge, and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	s.srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(s.srvCtx)
	go s.bridgeBusToHub()

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// ensureIngestion lazily starts the ingestion loop on first streaming use.
// It binds to the server's own context so it survives the request.
func (s *Server) ensureIngestion() {
	if s.ingestor.Start(s.srvCtx) {
		s.logger.Info("event ingestion started on demand")
	}
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
