package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/lines-ledger/external/espn"
	"github.com/riskibarqy/lines-ledger/internal/config"
	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
	"github.com/riskibarqy/lines-ledger/internal/domain/schedule"
	"github.com/riskibarqy/lines-ledger/internal/infrastructure/archive"
	"github.com/riskibarqy/lines-ledger/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/lines-ledger/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/lines-ledger/internal/infrastructure/sheets"
	"github.com/riskibarqy/lines-ledger/internal/observability"
	"github.com/riskibarqy/lines-ledger/internal/platform/logging"
	"github.com/riskibarqy/lines-ledger/internal/platform/resilience"
	"github.com/riskibarqy/lines-ledger/internal/usecase"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Runtime is the wired sync engine plus everything that has to be closed with it.
type Runtime struct {
	Config  config.Config
	Logger  *logging.Logger
	Sync    *usecase.SyncService
	Metrics *observability.Metrics
	Store   ledger.Store

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Close releases database handles and storage clients in reverse order.
func (r *Runtime) Close() error {
	var firstErr error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}

	shutdownTracing := observability.InitTracing(observability.TracingConfig{
		DSN:            cfg.UptraceDSN,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.AppEnv,
	}, logger)
	rt.closers = append(rt.closers, closerFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(ctx)
	}))

	stopProfiling, err := observability.InitProfiling(observability.ProfilingConfig{
		ServerAddress:   cfg.PyroscopeServerAddress,
		ApplicationName: cfg.PyroscopeAppName,
		AuthToken:       cfg.PyroscopeAuthToken,
		UploadRate:      cfg.PyroscopeUploadRate,
		Environment:     cfg.AppEnv,
	}, logger)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("start profiling: %w", err)
	}
	rt.closers = append(rt.closers, closerFunc(stopProfiling))

	var (
		db        *sqlx.DB
		sheetsSvc *sheetsapi.Service
	)

	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		db, err = openDB(cfg)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, db)

		repo := postgres.NewLedgerRepository(db, cfg.SheetTitle, postgres.DefaultGrid)
		if err := repo.EnsureSheet(ctx); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("ensure ledger sheet: %w", err)
		}
		rt.Store = repo
	case config.BackendSheets:
		sheetsCfg := sheets.Config{
			SpreadsheetID:   cfg.SheetsSpreadsheetID,
			Title:           cfg.SheetTitle,
			CredentialsFile: cfg.SheetsCredentialsFile,
			Initial:         memory.DefaultGrid,
		}
		sheetsSvc, err = sheets.NewService(ctx, sheetsCfg)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.Store, err = sheets.NewStore(sheetsSvc, sheetsCfg)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
	default:
		if cfg.AppEnv != config.EnvDev {
			logger.Warn("ledger backend is in-memory; nothing will persist past this process",
				"env", cfg.AppEnv,
				"backend", config.BackendMemory,
			)
		}
		rt.Store = memory.NewLedgerRepository(memory.DefaultGrid, nil)
	}

	archiver, err := newArchiver(ctx, cfg, db)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	if c, ok := archiver.(io.Closer); ok {
		rt.closers = append(rt.closers, c)
	}

	teams, err := loadTeams(ctx, cfg, sheetsSvc, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	leagues, err := leagueSettings(cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	scraper := espn.NewScraper(espn.ScraperConfig{
		BaseURL:   cfg.ESPNBaseURL,
		UserAgent: cfg.ESPNUserAgent,
		Timeout:   cfg.ESPNTimeout,
		Retry: resilience.RetryPolicy{
			MaxRetries: cfg.ESPNMaxRetries,
			Step:       cfg.ESPNRetryStep,
		},
		CircuitBreaker: resilience.BreakerConfig{
			Enabled:          cfg.ESPNCircuitEnabled,
			FailureThreshold: cfg.ESPNCircuitFailureCount,
			OpenTimeout:      cfg.ESPNCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.ESPNCircuitHalfOpenMaxReq,
		},
		ProbeOffsets: cfg.ESPNProbeOffsets,
		SweepWeeks:   cfg.ESPNSweepWeeks,
		Workers:      cfg.ESPNWorkers,
		PageCacheTTL: cfg.ESPNPageCacheTTL,
		Teams:        teams,
		Logger:       logger.Component("espn"),
	})

	purgeSvc := usecase.NewPurgeService(rt.Store, archiver, cfg.Location, logger.Component("purge"))
	mergeSvc := usecase.NewMergeService(rt.Store, usecase.MergeConfig{
		Location:    cfg.Location,
		IgnoreLocks: cfg.IgnoreLocks,
		SpacerRows:  cfg.SpacerRows,
		SheetTitle:  cfg.SheetTitle,
	}, logger.Component("merge"))

	rt.Sync = usecase.NewSyncService(scraper, purgeSvc, mergeSvc, usecase.SyncConfig{
		Leagues:       leagues,
		Location:      cfg.Location,
		ScrapeTimeout: cfg.ScrapeTimeout,
		StoreTimeout:  cfg.StoreTimeout,
		SkipPurge:     cfg.SkipPurge,
	}, rt.Metrics, logger.Component("sync"))

	logger.Info("runtime ready",
		"backend", cfg.LedgerBackend,
		"sheet", cfg.SheetTitle,
		"leagues", len(leagues),
		"archive", archiver != nil,
		"teams", teams.Len(),
	)
	return rt, nil
}

// newArchiver prefers the bucket; a postgres ledger falls back to its own archive table.
func newArchiver(ctx context.Context, cfg config.Config, db *sqlx.DB) (usecase.Archiver, error) {
	if cfg.ArchiveBucket != "" {
		a, err := archive.NewGCSArchiver(ctx, cfg.ArchiveBucket, cfg.ArchiveCredentialsFile)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	if db != nil {
		return postgres.NewArchiveRepository(db), nil
	}
	return nil, nil
}

// loadTeams reads the college roster sheet when one is configured. A roster
// failure only costs logos and abbreviations, so it is logged and the run goes on.
func loadTeams(ctx context.Context, cfg config.Config, svc *sheetsapi.Service, logger *logging.Logger) (*espn.TeamDirectory, error) {
	if cfg.CollegeSheetID == "" {
		return espn.NewTeamDirectory(nil), nil
	}
	if svc == nil {
		var err error
		svc, err = sheets.NewService(ctx, sheets.Config{CredentialsFile: cfg.SheetsCredentialsFile})
		if err != nil {
			return nil, err
		}
	}

	rows, err := sheets.ReadRoster(ctx, svc, cfg.CollegeSheetID)
	if err != nil {
		logger.Warn("college roster unavailable", "sheet", cfg.CollegeSheetID, "error", err)
		return espn.NewTeamDirectory(nil), nil
	}
	return espn.NewTeamDirectory(rows), nil
}

func leagueSettings(cfg config.Config) ([]usecase.LeagueSettings, error) {
	out := make([]usecase.LeagueSettings, 0, 2)
	for _, item := range []struct {
		league     ledger.League
		cfg        config.LeagueConfig
		includeAll bool
	}{
		{league: ledger.LeagueNFL, cfg: cfg.NFL},
		{league: ledger.LeagueCollege, cfg: cfg.College, includeAll: cfg.CollegeIncludeAll},
	} {
		if !item.cfg.Enabled {
			continue
		}
		phase, ok := ledger.ParsePhase(item.cfg.Phase)
		if !ok {
			return nil, fmt.Errorf("%s: unknown phase %q", item.league.Code, item.cfg.Phase)
		}
		start := item.cfg.SeasonStart.In(cfg.Location)
		calendar, err := schedule.NewCalendar(start.Year(), start, item.cfg.SeasonWeeks)
		if err != nil {
			return nil, fmt.Errorf("%s calendar: %w", item.league.Code, err)
		}
		out = append(out, usecase.LeagueSettings{
			League:       item.league,
			Phase:        phase,
			Calendar:     calendar,
			WeekOverride: item.cfg.WeekOverride,
			YearOverride: item.cfg.YearOverride,
			IncludeAll:   item.includeAll,
		})
	}
	return out, nil
}
