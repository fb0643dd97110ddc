package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
	"github.com/riskibarqy/lines-ledger/internal/domain/schedule"
	"github.com/riskibarqy/lines-ledger/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/require"
)

type scheduleSourceStub struct {
	mu      sync.Mutex
	rows    map[string][]ledger.RawRow
	errs    map[string]error
	block   bool
	targets map[string]ScheduleTarget
}

func (s *scheduleSourceStub) FetchSchedule(ctx context.Context, league ledger.League, target ScheduleTarget) ([]ledger.RawRow, error) {
	s.mu.Lock()
	if s.targets == nil {
		s.targets = make(map[string]ScheduleTarget)
	}
	s.targets[league.Code] = target
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := s.errs[league.Code]; err != nil {
		return nil, err
	}
	return s.rows[league.Code], nil
}

type observerStub struct {
	reports []LeagueReport
}

func (o *observerStub) ObserveLeague(report LeagueReport) {
	o.reports = append(o.reports, report)
}

func rawPair(event ledger.Event) []ledger.RawRow {
	return []ledger.RawRow{
		{Cells: event.Away[:], EventID: event.EventID},
		{Cells: event.Home[:]},
	}
}

func testLeagues(t *testing.T) []LeagueSettings {
	t.Helper()

	nfl, err := schedule.NewCalendar(2025, localTime(time.September, 2, 0, 0), 18)
	require.NoError(t, err)
	cfb, err := schedule.NewCalendar(2025, localTime(time.August, 19, 0, 0), 16)
	require.NoError(t, err)

	return []LeagueSettings{
		{League: ledger.LeagueNFL, Phase: ledger.PhaseRegular, Calendar: nfl},
		{League: ledger.LeagueCollege, Phase: ledger.PhaseRegular, Calendar: cfb},
	}
}

func newSyncFixture(t *testing.T, source ScheduleSource, store ledger.Store, observer RunObserver, mutate func(*SyncConfig)) *SyncService {
	t.Helper()

	cfg := SyncConfig{
		Leagues:       testLeagues(t),
		Location:      testLoc,
		ScrapeTimeout: time.Second,
		StoreTimeout:  time.Second,
		Clock:         func() time.Time { return localTime(time.September, 16, 10, 0) },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	purge := NewPurgeService(store, nil, testLoc, nil)
	merge := NewMergeService(store, MergeConfig{Location: testLoc, SpacerRows: 4}, nil)
	return NewSyncService(source, purge, merge, cfg, observer, nil)
}

func TestSyncService_RunProcessesLeaguesInOrder(t *testing.T) {
	t.Parallel()

	store := seedLedger(memory.DefaultGrid,
		storedEntry(ledger.LeagueNFL, "2025-NFL-Wk2", "stale", "Colts", "Titans", false),
	)
	source := &scheduleSourceStub{rows: map[string][]ledger.RawRow{
		ledger.LeagueNFL.Code:     rawPair(thursdayGame()),
		ledger.LeagueCollege.Code: rawPair(pair("Iowa", "Rutgers", "IOWA -3", "RUTG +3", "Friday, September 19", "8:00 PM")),
	}}
	observer := &observerStub{}
	service := newSyncFixture(t, source, store, observer, nil)

	report, err := service.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Leagues, 2)
	require.Equal(t, 0, report.Failed())
	require.Len(t, observer.reports, 2)

	nfl := report.Leagues[0]
	require.Equal(t, nflWeek3, nfl.WeekTag)
	require.Equal(t, 1, nfl.Purge.Deleted)
	require.Equal(t, 1, nfl.Merge.Inserted)
	require.Equal(t, "2025-CFB-Wk5", report.Leagues[1].WeekTag)

	rows := readRows(t, store)
	require.Equal(t, "2025-09-18|JETS|BILLS", rows[1][ledger.ColGameKey])
	// college goes after a four-row spacer
	require.Equal(t, ledger.LeagueCollege.Code, rows[7][ledger.ColLeague])
	require.Equal(t, "2025-CFB-Wk5", rows[7][ledger.ColWeekTag])
}

func TestSyncService_FailedLeagueDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	store := memory.NewLedgerRepository(memory.DefaultGrid, nil)
	source := &scheduleSourceStub{
		rows: map[string][]ledger.RawRow{
			ledger.LeagueCollege.Code: rawPair(pair("Iowa", "Rutgers", "IOWA -3", "RUTG +3", "Friday, September 19", "8:00 PM")),
		},
		errs: map[string]error{ledger.LeagueNFL.Code: errors.New("espn returned 503")},
	}
	observer := &observerStub{}
	service := newSyncFixture(t, source, store, observer, nil)

	report, err := service.Run(context.Background())
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	require.Equal(t, 1, report.Failed())
	require.False(t, report.Leagues[0].Successful)
	require.NotEmpty(t, report.Leagues[0].Error)
	require.True(t, report.Leagues[1].Successful)
	require.Len(t, observer.reports, 2)

	rows := readRows(t, store)
	require.Equal(t, "Iowa", rows[1][ledger.ColTeam])
}

func TestSyncService_ScrapeTimeoutAbandonsLeague(t *testing.T) {
	t.Parallel()

	store := memory.NewLedgerRepository(memory.DefaultGrid, nil)
	source := &scheduleSourceStub{block: true}
	service := newSyncFixture(t, source, store, nil, func(cfg *SyncConfig) {
		cfg.ScrapeTimeout = 10 * time.Millisecond
		cfg.Leagues = cfg.Leagues[:1]
	})

	report, err := service.Run(context.Background())
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	require.Equal(t, 1, report.Failed())
	require.Empty(t, readRows(t, store))
}

func TestSyncService_WeekOverrideSteersScraperOnly(t *testing.T) {
	t.Parallel()

	store := memory.NewLedgerRepository(memory.DefaultGrid, nil)
	source := &scheduleSourceStub{rows: map[string][]ledger.RawRow{
		ledger.LeagueNFL.Code: rawPair(thursdayGame()),
	}}
	service := newSyncFixture(t, source, store, nil, func(cfg *SyncConfig) {
		cfg.Leagues = cfg.Leagues[:1]
		cfg.Leagues[0].WeekOverride = 2
		cfg.Leagues[0].YearOverride = 2024
	})

	_, err := service.Run(context.Background())
	require.NoError(t, err)

	target := source.targets[ledger.LeagueNFL.Code]
	require.Equal(t, 2, target.Week)
	require.Equal(t, 2024, target.Year)
	require.True(t, target.WindowStart.Equal(localTime(time.September, 9, 0, 0)))

	rows := readRows(t, store)
	require.Equal(t, nflWeek3, rows[1][ledger.ColWeekTag])
}

func TestSyncService_SkipPurgeKeepsStaleEntries(t *testing.T) {
	t.Parallel()

	store := seedLedger(memory.DefaultGrid,
		storedEntry(ledger.LeagueNFL, "2025-NFL-Wk2", "stale", "Colts", "Titans", false),
	)
	source := &scheduleSourceStub{}
	service := newSyncFixture(t, source, store, nil, func(cfg *SyncConfig) {
		cfg.SkipPurge = true
	})

	_, err := service.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "stale", readRows(t, store)[1][ledger.ColGameKey])
}

func TestSyncService_CurrentWeeks(t *testing.T) {
	t.Parallel()

	service := newSyncFixture(t, &scheduleSourceStub{}, memory.NewLedgerRepository(memory.DefaultGrid, nil), nil, nil)
	weeks := service.CurrentWeeks(localTime(time.September, 18, 20, 0))
	require.Len(t, weeks, 2)
	require.Equal(t, nflWeek3, weeks[0].Tag)
	require.Equal(t, 5, weeks[1].Week.Index)
}
