package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/riskibarqy/lines-ledger/internal/platform/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServerConfig struct {
	Addr         string
	PprofEnabled bool
}

// StartServer exposes /metrics and /healthz, plus /debug/pprof when enabled.
// It returns nil when no address is configured.
func StartServer(cfg ServerConfig, metrics *Metrics, logger *logging.Logger) *http.Server {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		logger.Info("metrics server disabled", "reason", "METRICS_ADDR empty")
		return nil
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           otelhttp.NewHandler(NewMux(cfg, metrics), "linesync-metrics", otelhttp.WithFilter(traceRequest)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", "addr", cfg.Addr, "pprof", cfg.PprofEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return srv
}

func NewMux(cfg ServerConfig, metrics *Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.PprofEnabled {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// traceRequest keeps scrapes and health probes out of the trace stream.
func traceRequest(r *http.Request) bool {
	return r.URL.Path != "/metrics" && r.URL.Path != "/healthz"
}

func StopServer(srv *http.Server, logger *logging.Logger, timeout time.Duration) error {
	if srv == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("metrics server stopped")
	return nil
}
