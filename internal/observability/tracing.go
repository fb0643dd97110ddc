package observability

import (
	"context"
	"strings"

	"github.com/riskibarqy/lines-ledger/internal/platform/logging"
	"github.com/uptrace/uptrace-go/uptrace"
)

type TracingConfig struct {
	DSN            string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// InitTracing installs the global OpenTelemetry providers for Uptrace. Without a
// DSN the providers stay noop and the returned shutdown does nothing.
func InitTracing(cfg TracingConfig, logger *logging.Logger) func(context.Context) error {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		logger.Debug("tracing disabled", "reason", "UPTRACE_DSN empty")
		return func(context.Context) error { return nil }
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.DSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.Environment),
	)
	logger.Info("tracing enabled",
		"service_name", cfg.ServiceName,
		"service_version", cfg.ServiceVersion,
		"environment", cfg.Environment,
	)

	return uptrace.Shutdown
}
