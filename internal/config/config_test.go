package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LedgerBackend != BackendMemory {
		t.Fatalf("unexpected LedgerBackend: %q", cfg.LedgerBackend)
	}
	if cfg.SheetTitle != "Lines" {
		t.Fatalf("unexpected SheetTitle: %q", cfg.SheetTitle)
	}
	if cfg.Location.String() != "America/Detroit" {
		t.Fatalf("unexpected Location: %s", cfg.Location)
	}
	if !cfg.NFL.Enabled || !cfg.College.Enabled {
		t.Fatalf("expected both leagues enabled by default")
	}
	if cfg.NFL.SeasonWeeks != 18 || cfg.College.SeasonWeeks != 15 {
		t.Fatalf("unexpected season weeks: nfl=%d cfb=%d", cfg.NFL.SeasonWeeks, cfg.College.SeasonWeeks)
	}
	wantStart := time.Date(2025, time.September, 2, 0, 0, 0, 0, cfg.Location)
	if !cfg.NFL.SeasonStart.Equal(wantStart) {
		t.Fatalf("unexpected NFL season start: %s", cfg.NFL.SeasonStart)
	}
	if len(cfg.ESPNProbeOffsets) != 4 || cfg.ESPNProbeOffsets[1] != -1 {
		t.Fatalf("unexpected probe offsets: %v", cfg.ESPNProbeOffsets)
	}
	if cfg.SpacerRows != 4 {
		t.Fatalf("unexpected SpacerRows: %d", cfg.SpacerRows)
	}
	if cfg.ScrapeTimeout != 90*time.Second || cfg.StoreTimeout != 30*time.Second {
		t.Fatalf("unexpected timeouts: scrape=%s store=%s", cfg.ScrapeTimeout, cfg.StoreTimeout)
	}
}

func TestLoad_LeagueOverrides(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PHASE_NFL", "Playoffs")
	t.Setenv("NFL_SEASON_START", "2025-09-09")
	t.Setenv("NFL_WEEK_OVERRIDE", "3")
	t.Setenv("NFL_YEAR_OVERRIDE", "2025")
	t.Setenv("INCLUDE_COLLEGE", "false")
	t.Setenv("ESPN_PROBE_WEEKS", "0, 1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.NFL.Phase != "playoffs" {
		t.Fatalf("unexpected NFL phase: %q", cfg.NFL.Phase)
	}
	if cfg.NFL.WeekOverride != 3 || cfg.NFL.YearOverride != 2025 {
		t.Fatalf("unexpected overrides: %+v", cfg.NFL)
	}
	if cfg.NFL.SeasonStart.Day() != 9 {
		t.Fatalf("unexpected season start: %s", cfg.NFL.SeasonStart)
	}
	if cfg.College.Enabled {
		t.Fatalf("expected college disabled")
	}
	if len(cfg.ESPNProbeOffsets) != 2 {
		t.Fatalf("unexpected probe offsets: %v", cfg.ESPNProbeOffsets)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "bad bool", env: map[string]string{"SKIP_PURGE": "maybe"}, want: "parse SKIP_PURGE"},
		{name: "bad duration", env: map[string]string{"SCRAPE_TIMEOUT": "soon"}, want: "parse SCRAPE_TIMEOUT"},
		{name: "bad timezone", env: map[string]string{"TIMEZONE": "Mars/Olympus"}, want: "parse TIMEZONE"},
		{name: "bad season start", env: map[string]string{"CFB_SEASON_START": "08/26/2025"}, want: "parse CFB_SEASON_START"},
		{name: "bad probe offsets", env: map[string]string{"ESPN_PROBE_WEEKS": "0,x"}, want: "parse ESPN_PROBE_WEEKS"},
		{name: "unknown backend", env: map[string]string{"LEDGER_BACKEND": "excel"}, want: "LedgerBackend"},
		{name: "postgres without url", env: map[string]string{"LEDGER_BACKEND": "postgres"}, want: "DBURL"},
		{name: "sheets without id", env: map[string]string{"LEDGER_BACKEND": "sheets"}, want: "SheetsSpreadsheetID"},
		{name: "zero season weeks", env: map[string]string{"NFL_SEASON_WEEKS": "0"}, want: "SeasonWeeks"},
		{name: "nfl bowls", env: map[string]string{"PHASE_NFL": "bowls"}, want: "PHASE_NFL"},
		{name: "college playoffs", env: map[string]string{"PHASE_CFB": "playoffs"}, want: "PHASE_CFB"},
		{name: "no leagues", env: map[string]string{"INCLUDE_NFL": "false", "INCLUDE_COLLEGE": "false"}, want: "at least one"},
		{name: "no workers", env: map[string]string{"ESPN_WORKERS": "0"}, want: "ESPNWorkers"},
		{name: "prod without backend", env: map[string]string{"APP_ENV": EnvProd, "LEDGER_BACKEND": ""}, want: "LEDGER_BACKEND is required"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("APP_ENV", EnvDev)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got=%v", tc.want, err)
			}
		})
	}
}

func TestLoad_ProdAcceptsExplicitMemoryBackend(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("LEDGER_BACKEND", BackendMemory)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LedgerBackend != BackendMemory {
		t.Fatalf("unexpected LedgerBackend: %q", cfg.LedgerBackend)
	}
}

func TestLoad_PickSheetIDFallback(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("LEDGER_BACKEND", "sheets")
	t.Setenv("SHEETS_SPREADSHEET_ID", "")
	t.Setenv("PICK_SHEET_ID", "pick-123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SheetsSpreadsheetID != "pick-123" {
		t.Fatalf("unexpected SheetsSpreadsheetID: %q", cfg.SheetsSpreadsheetID)
	}
}
