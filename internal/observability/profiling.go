package observability

import (
	"strings"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/riskibarqy/lines-ledger/internal/platform/logging"
)

type ProfilingConfig struct {
	ServerAddress   string
	ApplicationName string
	AuthToken       string
	UploadRate      time.Duration
	Environment     string
}

// InitProfiling starts continuous profiling when a server address is set.
func InitProfiling(cfg ProfilingConfig, logger *logging.Logger) (func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.ServerAddress) == "" {
		logger.Debug("profiling disabled", "reason", "PYROSCOPE_SERVER_ADDRESS empty")
		return func() error { return nil }, nil
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		AuthToken:       cfg.AuthToken,
		UploadRate:      cfg.UploadRate,
		Tags: map[string]string{
			"env": cfg.Environment,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("profiling enabled",
		"server_address", cfg.ServerAddress,
		"application", cfg.ApplicationName,
	)
	return profiler.Stop, nil
}
