package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/exportwins/winsmi/pkg/credentials"
	"github.com/exportwins/winsmi/pkg/httputil"
	"github.com/exportwins/winsmi/pkg/middleware"
	"github.com/exportwins/winsmi/pkg/observability"
	"github.com/exportwins/winsmi/pkg/wins"
)

// Config wires the partner API
type Config struct {
	Auth   *middleware.HawkAuth
	Wins   *wins.Handler
	Logger *observability.Logger

	// Optional
	Metrics *observability.Metrics
	Limiter middleware.Limiter
	Tracing bool
}

// Server is the Hawk-protected partner API
type Server struct {
	router  *mux.Router
	handler http.Handler
	config  Config
}

// NewServer builds the router and its middleware chain
func NewServer(config Config) *Server {
	s := &Server{
		router: mux.NewRouter(),
		config: config,
	}
	s.setupRoutes()

	s.handler = s.router
	if config.Tracing {
		s.handler = otelhttp.NewHandler(s.router, "winsmi-api")
	}
	return s
}

// setupRoutes registers every partner route with its required scope
func (s *Server) setupRoutes() {
	s.router.Use(observability.RecoveryMiddleware(s.config.Logger))
	s.router.Use(middleware.RequestID(s.config.Logger))
	s.router.Use(middleware.AccessLog)
	if s.config.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.config.Metrics))
	}

	s.router.Handle("/activity-stream/",
		s.protect(credentials.ScopeActivityStream, s.config.Wins.ActivityStream)).Methods(http.MethodGet)
	s.router.Handle("/data-hub/export-wins/{match_id}",
		s.protect(credentials.ScopeDataHub, s.config.Wins.DataHubWins)).Methods(http.MethodGet)
	s.router.Handle("/data-flow/export-wins/",
		s.protect(credentials.ScopeDataFlow, s.config.Wins.DataFlowWins)).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteDetail(w, http.StatusMethodNotAllowed, `Method "`+r.Method+`" not allowed.`)
	})
}

func (s *Server) protect(scope credentials.Scope, h http.HandlerFunc) http.Handler {
	var handler http.Handler = h
	if s.config.Limiter != nil {
		handler = middleware.Throttle(s.config.Limiter)(handler)
	}
	return s.config.Auth.Require(scope)(handler)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the router for tests and extra routes
func (s *Server) Router() *mux.Router {
	return s.router
}

// NewHealthMux serves /healthz, /readyz and /metrics for the ops port
func NewHealthMux(checker *observability.HealthChecker, registry *prometheus.Registry) *http.ServeMux {
	serveMux := http.NewServeMux()
	observability.RegisterHealthRoutes(serveMux, checker)
	if registry != nil {
		observability.RegisterMetricsEndpoint(serveMux, registry)
	}
	return serveMux
}
