package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/lines-ledger/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSheets   = "sheets"
)

const seasonStartLayout = "2006-01-02"

// LeagueConfig is the per-league part of a run.
type LeagueConfig struct {
	Enabled      bool
	Phase        string    `validate:"oneof=regular playoffs bowls"`
	SeasonStart  time.Time `validate:"required"`
	SeasonWeeks  int       `validate:"min=1,max=30"`
	WeekOverride int       `validate:"min=0,max=60"`
	YearOverride int       `validate:"omitempty,min=2000,max=2100"`
}

// Config stores runtime configuration for the sync engine.
type Config struct {
	AppEnv         string `validate:"oneof=dev stage prod"`
	ServiceName    string `validate:"required"`
	ServiceVersion string
	LogLevel       logging.Level
	Timezone       string `validate:"required"`
	Location       *time.Location

	LedgerBackend           string `validate:"oneof=memory postgres sheets"`
	SheetTitle              string `validate:"required"`
	DBURL                   string `validate:"required_if=LedgerBackend postgres"`
	DBDisablePreparedBinary bool
	DBTraceEnabled          bool
	SheetsSpreadsheetID     string `validate:"required_if=LedgerBackend sheets"`
	SheetsCredentialsFile   string
	CollegeSheetID          string

	NFL               LeagueConfig
	College           LeagueConfig
	CollegeIncludeAll bool
	IgnoreLocks       bool
	SkipPurge         bool
	SpacerRows        int `validate:"min=0,max=20"`

	ScrapeTimeout time.Duration `validate:"gt=0"`
	StoreTimeout  time.Duration `validate:"gt=0"`

	ESPNBaseURL               string        `validate:"required,url"`
	ESPNUserAgent             string
	ESPNTimeout               time.Duration `validate:"gt=0"`
	ESPNMaxRetries            int           `validate:"min=0,max=10"`
	ESPNRetryStep             time.Duration `validate:"gte=0"`
	ESPNProbeOffsets          []int         `validate:"min=1"`
	ESPNSweepWeeks            int           `validate:"min=0,max=30"`
	ESPNWorkers               int           `validate:"min=1,max=16"`
	ESPNPageCacheTTL          time.Duration `validate:"gte=0"`
	ESPNCircuitEnabled        bool
	ESPNCircuitFailureCount   int           `validate:"min=1"`
	ESPNCircuitOpenTimeout    time.Duration `validate:"gt=0"`
	ESPNCircuitHalfOpenMaxReq int           `validate:"min=1"`

	ArchiveBucket          string
	ArchiveCredentialsFile string

	MetricsTextfile string
	MetricsAddr     string
	PprofEnabled    bool
	ScheduleCron    string `validate:"required"`

	UptraceDSN             string
	PyroscopeServerAddress string
	PyroscopeAppName       string
	PyroscopeAuthToken     string
	PyroscopeUploadRate    time.Duration `validate:"gte=0"`
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	logLevel, err := logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_LOG_LEVEL: %w", err)
	}

	timezone := strings.TrimSpace(getEnv("TIMEZONE", "America/Detroit"))
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return Config{}, fmt.Errorf("parse TIMEZONE: %w", err)
	}

	cfg := Config{
		AppEnv:                 appEnv,
		ServiceName:            strings.TrimSpace(getEnv("APP_SERVICE_NAME", "linesync")),
		ServiceVersion:         strings.TrimSpace(getEnv("APP_SERVICE_VERSION", "dev")),
		LogLevel:               logLevel,
		Timezone:               timezone,
		Location:               location,
		LedgerBackend:          strings.ToLower(strings.TrimSpace(getEnv("LEDGER_BACKEND", BackendMemory))),
		SheetTitle:             strings.TrimSpace(getEnv("LEDGER_SHEET_TITLE", "Lines")),
		DBURL:                  strings.TrimSpace(getEnv("DB_URL", "")),
		SheetsSpreadsheetID:    strings.TrimSpace(getEnv("SHEETS_SPREADSHEET_ID", getEnv("PICK_SHEET_ID", ""))),
		SheetsCredentialsFile:  strings.TrimSpace(getEnv("SHEETS_CREDENTIALS_FILE", "")),
		CollegeSheetID:         strings.TrimSpace(getEnv("COLLEGE_SHEET_ID", "")),
		ESPNBaseURL:            strings.TrimRight(strings.TrimSpace(getEnv("ESPN_BASE_URL", "https://www.espn.com")), "/"),
		ESPNUserAgent:          strings.TrimSpace(getEnv("ESPN_USER_AGENT", "")),
		ArchiveBucket:          strings.TrimSpace(getEnv("ARCHIVE_BUCKET", "")),
		ArchiveCredentialsFile: strings.TrimSpace(getEnv("ARCHIVE_CREDENTIALS_FILE", "")),
		MetricsTextfile:        strings.TrimSpace(getEnv("METRICS_TEXTFILE", "")),
		MetricsAddr:            strings.TrimSpace(getEnv("METRICS_ADDR", "")),
		ScheduleCron:           strings.TrimSpace(getEnv("SCHEDULE_CRON", "*/30 * * * *")),
		UptraceDSN:             strings.TrimSpace(getEnv("UPTRACE_DSN", "")),
		PyroscopeServerAddress: strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:     strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))

	// The memory default never persists, so production has to name its store.
	if appEnv == EnvProd && strings.TrimSpace(os.Getenv("LEDGER_BACKEND")) == "" {
		return Config{}, fmt.Errorf("LEDGER_BACKEND is required when APP_ENV=%s", EnvProd)
	}

	if cfg.DBDisablePreparedBinary, err = getEnvAsBool("DB_DISABLE_PREPARED_BINARY_RESULT", true); err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}
	if cfg.DBTraceEnabled, err = getEnvAsBool("DB_TRACE_ENABLED", false); err != nil {
		return Config{}, fmt.Errorf("parse DB_TRACE_ENABLED: %w", err)
	}

	if cfg.NFL, err = loadLeague("NFL", "2025-09-02", 18, location); err != nil {
		return Config{}, err
	}
	if cfg.College, err = loadLeague("CFB", "2025-08-26", 15, location); err != nil {
		return Config{}, err
	}
	if cfg.NFL.Enabled, err = getEnvAsBool("INCLUDE_NFL", true); err != nil {
		return Config{}, fmt.Errorf("parse INCLUDE_NFL: %w", err)
	}
	if cfg.College.Enabled, err = getEnvAsBool("INCLUDE_COLLEGE", true); err != nil {
		return Config{}, fmt.Errorf("parse INCLUDE_COLLEGE: %w", err)
	}
	if cfg.CollegeIncludeAll, err = getEnvAsBool("COLLEGE_INCLUDE_ALL", false); err != nil {
		return Config{}, fmt.Errorf("parse COLLEGE_INCLUDE_ALL: %w", err)
	}
	if cfg.IgnoreLocks, err = getEnvAsBool("TEST_MODE_IGNORE_LOCKS", false); err != nil {
		return Config{}, fmt.Errorf("parse TEST_MODE_IGNORE_LOCKS: %w", err)
	}
	if cfg.SkipPurge, err = getEnvAsBool("SKIP_PURGE", false); err != nil {
		return Config{}, fmt.Errorf("parse SKIP_PURGE: %w", err)
	}
	if cfg.SpacerRows, err = getEnvAsInt("SPACER_ROWS", 4); err != nil {
		return Config{}, fmt.Errorf("parse SPACER_ROWS: %w", err)
	}

	if cfg.ScrapeTimeout, err = getEnvAsDuration("SCRAPE_TIMEOUT", 90*time.Second); err != nil {
		return Config{}, fmt.Errorf("parse SCRAPE_TIMEOUT: %w", err)
	}
	if cfg.StoreTimeout, err = getEnvAsDuration("STORE_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, fmt.Errorf("parse STORE_TIMEOUT: %w", err)
	}

	if cfg.ESPNTimeout, err = getEnvAsDuration("ESPN_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_TIMEOUT: %w", err)
	}
	if cfg.ESPNMaxRetries, err = getEnvAsInt("ESPN_MAX_RETRIES", 2); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_MAX_RETRIES: %w", err)
	}
	if cfg.ESPNRetryStep, err = getEnvAsDuration("ESPN_RETRY_STEP", 500*time.Millisecond); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_RETRY_STEP: %w", err)
	}
	if cfg.ESPNProbeOffsets, err = parseIntCSV(getEnv("ESPN_PROBE_WEEKS", "0,-1,1,2")); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_PROBE_WEEKS: %w", err)
	}
	if cfg.ESPNSweepWeeks, err = getEnvAsInt("ESPN_SWEEP_WEEKS", 0); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_SWEEP_WEEKS: %w", err)
	}
	if cfg.ESPNWorkers, err = getEnvAsInt("ESPN_WORKERS", 4); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_WORKERS: %w", err)
	}
	if cfg.ESPNPageCacheTTL, err = getEnvAsDuration("ESPN_PAGE_CACHE_TTL", time.Minute); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_PAGE_CACHE_TTL: %w", err)
	}
	if cfg.ESPNCircuitEnabled, err = getEnvAsBool("ESPN_CIRCUIT_ENABLED", true); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_CIRCUIT_ENABLED: %w", err)
	}
	if cfg.ESPNCircuitFailureCount, err = getEnvAsInt("ESPN_CIRCUIT_FAILURE_COUNT", 5); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if cfg.ESPNCircuitOpenTimeout, err = getEnvAsDuration("ESPN_CIRCUIT_OPEN_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if cfg.ESPNCircuitHalfOpenMaxReq, err = getEnvAsInt("ESPN_CIRCUIT_HALF_OPEN_MAX_REQ", 1); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}

	if cfg.PprofEnabled, err = getEnvAsBool("PPROF_ENABLED", false); err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	if cfg.PyroscopeUploadRate, err = getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", 15*time.Second); err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate applies the struct rules plus the checks that span fields.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", describeValidation(err))
	}
	if !c.NFL.Enabled && !c.College.Enabled {
		return fmt.Errorf("invalid config: at least one of INCLUDE_NFL or INCLUDE_COLLEGE must be true")
	}
	if c.NFL.Phase == "bowls" {
		return fmt.Errorf("invalid config: PHASE_NFL must be regular or playoffs")
	}
	if c.College.Phase == "playoffs" {
		return fmt.Errorf("invalid config: PHASE_CFB must be regular or bowls")
	}
	return nil
}

func loadLeague(prefix, defaultStart string, defaultWeeks int, loc *time.Location) (LeagueConfig, error) {
	var (
		out LeagueConfig
		err error
	)

	out.Phase = strings.ToLower(strings.TrimSpace(getEnv("PHASE_"+prefix, "regular")))

	startKey := prefix + "_SEASON_START"
	out.SeasonStart, err = time.ParseInLocation(seasonStartLayout, strings.TrimSpace(getEnv(startKey, defaultStart)), loc)
	if err != nil {
		return LeagueConfig{}, fmt.Errorf("parse %s: %w", startKey, err)
	}

	weeksKey := prefix + "_SEASON_WEEKS"
	if out.SeasonWeeks, err = getEnvAsInt(weeksKey, defaultWeeks); err != nil {
		return LeagueConfig{}, fmt.Errorf("parse %s: %w", weeksKey, err)
	}

	weekKey := prefix + "_WEEK_OVERRIDE"
	if out.WeekOverride, err = getEnvAsInt(weekKey, 0); err != nil {
		return LeagueConfig{}, fmt.Errorf("parse %s: %w", weekKey, err)
	}

	yearKey := prefix + "_YEAR_OVERRIDE"
	if out.YearOverride, err = getEnvAsInt(yearKey, 0); err != nil {
		return LeagueConfig{}, fmt.Errorf("parse %s: %w", yearKey, err)
	}

	return out, nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), rule))
	}
	return errors.New(strings.Join(parts, "; "))
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}

func parseIntCSV(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", item, err)
		}
		out = append(out, n)
	}

	return out, nil
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
