package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/livequiz/internal/config"
	"github.com/gokatarajesh/livequiz/internal/logging"
	httperrors "github.com/gokatarajesh/livequiz/pkg/http/errors"
)

// WSUpgrader handles WebSocket upgrades. Players join from arbitrary
// origins, so the origin check accepts every request.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Registrar mounts a group of routes.
type Registrar interface {
	Register(mux *http.ServeMux)
}

// Check probes one dependency for /v1/ping.
type Check func(ctx context.Context) error

// Options carries the handlers and dependencies the server exposes.
type Options struct {
	Gatherer  prometheus.Gatherer
	WebSocket http.HandlerFunc
	Routes    []Registrar
	Checks    map[string]Check
}

// NewHTTPServer wires base routes (health, metrics, ping) plus the given
// route groups behind the CORS layer.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, opts Options) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(cfg.CORS, logger, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the root handler.
func NewHandler(corsCfg config.CORS, logger zerolog.Logger, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		if name, err := pingDependencies(ctx, opts.Checks); err != nil {
			l := logging.FromContext(ctx)
			l.Error().Err(err).Str("dependency", name).Msg("dependency ping failed")
			httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeServiceUnavailable, name+" unavailable")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if opts.WebSocket != nil {
		mux.HandleFunc("GET /ws", opts.WebSocket)
	} else {
		mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "WebSocket handler not configured", http.StatusNotImplemented)
		})
	}

	for _, routes := range opts.Routes {
		routes.Register(mux)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   corsCfg.AllowedMethods,
		AllowedHeaders:   corsCfg.AllowedHeaders,
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           corsCfg.MaxAge,
	})
	return c.Handler(mux)
}

func pingDependencies(ctx context.Context, checks map[string]Check) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	for name, check := range checks {
		if err := check(ctx); err != nil {
			return name, err
		}
	}
	return "", nil
}
