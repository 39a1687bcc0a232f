package api

import (
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/communitybridge/pkg/bridge"
	"github.com/platinummonkey/communitybridge/pkg/httputil"
	"github.com/platinummonkey/communitybridge/pkg/observability"
)

// Server exposes a bridge.Service over HTTP. The service can be swapped while
// the server is running.
type Server struct {
	service atomic.Pointer[bridge.Service]
	router  *mux.Router
	handler http.Handler
	metrics *observability.Metrics
	log     *logrus.Logger
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(svc *bridge.Service, metrics *observability.Metrics, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	s := &Server{
		router:  mux.NewRouter(),
		metrics: metrics,
		log:     log,
	}
	s.service.Store(svc)
	s.setupRoutes()

	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		s.requestContext,
		httputil.RecoveryMiddleware(log),
		httputil.LoggingMiddleware(log),
	)
	s.handler = otelhttp.NewHandler(chain(s.router), "communitybridge",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + routeTemplate(r)
		}),
	)
	return s
}

func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics, routeTemplate))
	}

	v1 := s.router.PathPrefix("/v1").Subrouter()
	NewIdentityHandlers(s.Service).RegisterRoutes(v1)
	NewGroupHandlers(s.Service).RegisterRoutes(v1)
}

// Service returns the service currently answering requests
func (s *Server) Service() *bridge.Service {
	return s.service.Load()
}

// SetService swaps the service answering requests and returns the previous one
func (s *Server) SetService(svc *bridge.Service) *bridge.Service {
	return s.service.Swap(svc)
}

// Router returns the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// requestContext carries the request id and logger on the request context
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithRequestID(r.Context(), w.Header().Get("X-Request-ID"))
		ctx = observability.WithLogger(ctx, s.log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// routeTemplate labels requests by their route so metrics stay bounded
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// currentService returns the live service or writes a 503
func currentService(w http.ResponseWriter, services func() *bridge.Service) (*bridge.Service, bool) {
	svc := services()
	if svc == nil {
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "bridge service is not available")
		return nil, false
	}
	return svc, true
}
