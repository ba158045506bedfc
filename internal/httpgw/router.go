// Package httpgw exposes the RPC dispatch registry over HTTP: a single
// JSON-RPC 2.0 POST endpoint plus a REST-ish convenience route per method
// name, the way the teacher's api package puts chi in front of its MCP
// gateway and model router. It is intentionally thin — every decision
// about validation, auth-context stamping, and error shape already lives
// in internal/rpc; this package only decodes the HTTP envelope and writes
// the response back out.
package httpgw

import (
	"net/http"
	"time"

	"github.com/babar-raza/tbcv/internal/rpc"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the HTTP handler for a built RPC registry/dispatcher.
func NewRouter(dispatcher *rpc.Dispatcher, registry *rpc.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	h := &gatewayHandlers{dispatcher: dispatcher, registry: registry}

	r.Route("/rpc", func(r chi.Router) {
		r.Post("/", h.handleJSONRPC)
		r.Get("/methods", h.listMethods)
		// One convenience route per catalogued method so a REST client
		// (or curl) can call e.g. POST /rpc/call/validate_content without
		// hand-building a JSON-RPC envelope; it still goes through the
		// same Dispatcher.Dispatch, so error codes and audit events match
		// the JSON-RPC path exactly.
		r.Post("/call/{method}", h.handleMethodCall)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logRequest(r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
