package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
	"github.com/riskibarqy/lines-ledger/internal/domain/schedule"
	"github.com/riskibarqy/lines-ledger/internal/platform/logging"
)

// ScheduleTarget tells a schedule source which slate to fetch.
type ScheduleTarget struct {
	Year  int
	Week  int
	Phase ledger.Phase
	// WindowStart and WindowEnd bound the kickoffs the run cares about.
	WindowStart time.Time
	WindowEnd   time.Time
	// IncludeAll keeps unranked college games.
	IncludeAll bool
}

type ScheduleSource interface {
	FetchSchedule(ctx context.Context, league ledger.League, target ScheduleTarget) ([]ledger.RawRow, error)
}

// LeagueSettings is the immutable per-league run configuration.
type LeagueSettings struct {
	League       ledger.League
	Phase        ledger.Phase
	Calendar     *schedule.Calendar
	WeekOverride int
	YearOverride int
	IncludeAll   bool
}

type SyncConfig struct {
	Leagues       []LeagueSettings
	Location      *time.Location
	ScrapeTimeout time.Duration
	StoreTimeout  time.Duration
	SkipPurge     bool
	Clock         func() time.Time
}

type LeagueReport struct {
	League     string        `json:"league"`
	WeekTag    string        `json:"week_tag"`
	Rows       int           `json:"rows"`
	Events     int           `json:"events"`
	Purge      PurgeResult   `json:"purge"`
	Merge      MergeResult   `json:"merge"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Successful bool          `json:"successful"`
}

type RunReport struct {
	StartedAt time.Time      `json:"started_at"`
	Leagues   []LeagueReport `json:"leagues"`
}

func (r RunReport) Failed() int {
	failed := 0
	for _, l := range r.Leagues {
		if !l.Successful {
			failed++
		}
	}
	return failed
}

// RunObserver receives one report per league cycle.
type RunObserver interface {
	ObserveLeague(report LeagueReport)
}

type nopObserver struct{}

func (nopObserver) ObserveLeague(LeagueReport) {}

// LeagueWeek is the resolved current week of one league.
type LeagueWeek struct {
	League ledger.League
	Phase  ledger.Phase
	Week   schedule.Week
	Tag    string
}

type SyncService struct {
	source   ScheduleSource
	purge    *PurgeService
	merge    *MergeService
	cfg      SyncConfig
	observer RunObserver
	logger   *logging.Logger
}

func NewSyncService(
	source ScheduleSource,
	purge *PurgeService,
	merge *MergeService,
	cfg SyncConfig,
	observer RunObserver,
	logger *logging.Logger,
) *SyncService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &SyncService{
		source:   source,
		purge:    purge,
		merge:    merge,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
	}
}

// CurrentWeeks resolves every configured league at now.
func (s *SyncService) CurrentWeeks(now time.Time) []LeagueWeek {
	now = now.In(s.cfg.Location)
	out := make([]LeagueWeek, 0, len(s.cfg.Leagues))
	for _, lg := range s.cfg.Leagues {
		week := lg.Calendar.Resolve(now)
		out = append(out, LeagueWeek{
			League: lg.League,
			Phase:  lg.Phase,
			Week:   week,
			Tag:    week.Tag(lg.League, lg.Phase),
		})
	}
	return out
}

func (s *SyncService) currentTags(now time.Time) map[string]string {
	tags := make(map[string]string, len(s.cfg.Leagues))
	for _, w := range s.CurrentWeeks(now) {
		tags[w.League.Code] = w.Tag
	}
	return tags
}

// Run processes every configured league in order. A failing league is logged and
// reported. Leagues already written stay written.
func (s *SyncService) Run(ctx context.Context) (RunReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.Run")
	defer span.End()

	now := s.cfg.Clock().In(s.cfg.Location)
	report := RunReport{StartedAt: now, Leagues: make([]LeagueReport, 0, len(s.cfg.Leagues))}

	var errs []error
	for _, lg := range s.cfg.Leagues {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		leagueReport, err := s.RunLeague(ctx, lg, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "league sync failed",
				"league", lg.League.Code,
				"week_tag", leagueReport.WeekTag,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("league %s: %w", lg.League.Code, err))
		}
		s.observer.ObserveLeague(leagueReport)
		report.Leagues = append(report.Leagues, leagueReport)
	}

	err := errors.Join(errs...)
	recordSpanError(span, err)
	return report, err
}

// RunLeague is one scrape, purge and merge cycle for a single league.
func (s *SyncService) RunLeague(ctx context.Context, lg LeagueSettings, now time.Time) (LeagueReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.RunLeague", leagueAttr(lg.League.Code))
	defer span.End()

	started := time.Now()
	now = now.In(s.cfg.Location)
	report := LeagueReport{League: lg.League.Code}
	fail := func(err error) (LeagueReport, error) {
		recordSpanError(span, err)
		report.Error = err.Error()
		report.Duration = time.Since(started)
		return report, err
	}

	if lg.Calendar == nil {
		return fail(fmt.Errorf("%w: league %s has no calendar", ErrInvalidInput, lg.League.Code))
	}
	week := lg.Calendar.Resolve(now)
	report.WeekTag = week.Tag(lg.League, lg.Phase)

	rows, err := s.fetch(ctx, lg, week)
	if err != nil {
		return fail(err)
	}
	events := ledger.PackEvents(rows)
	report.Rows = len(rows)
	report.Events = len(events)

	if !s.cfg.SkipPurge {
		purgeCtx, cancel := s.storeContext(ctx)
		purged, err := s.purge.Purge(purgeCtx, PurgeInput{CurrentTags: s.currentTags(now), Now: now})
		cancel()
		report.Purge = purged
		if err != nil {
			return fail(err)
		}
	}

	mergeCtx, cancel := s.storeContext(ctx)
	merged, err := s.merge.Merge(mergeCtx, MergeInput{
		League:  lg.League,
		Phase:   lg.Phase,
		WeekTag: report.WeekTag,
		Events:  events,
		Now:     now,
	})
	cancel()
	report.Merge = merged
	if err != nil {
		return fail(err)
	}

	report.Successful = true
	report.Duration = time.Since(started)
	s.logger.InfoContext(ctx, "league sync finished",
		"league", lg.League.Code,
		"week_tag", report.WeekTag,
		"events", report.Events,
		"purged", report.Purge.Deleted,
		"inserted", merged.Inserted,
		"updated", merged.Updated,
		"duration", report.Duration,
	)
	return report, nil
}

func (s *SyncService) fetch(ctx context.Context, lg LeagueSettings, week schedule.Week) ([]ledger.RawRow, error) {
	target := ScheduleTarget{
		Year:        week.SeasonYear,
		Week:        week.Index,
		Phase:       lg.Phase,
		WindowStart: week.Start,
		WindowEnd:   week.End,
		IncludeAll:  lg.IncludeAll,
	}
	// Overrides steer the scraper only; entries keep the current week tag.
	if lg.WeekOverride > 0 {
		target.Week = lg.WeekOverride
		if w, ok := lg.Calendar.Week(lg.WeekOverride); ok {
			target.WindowStart, target.WindowEnd = w.Start, w.End
		}
	}
	if lg.YearOverride > 0 {
		target.Year = lg.YearOverride
	}

	if s.cfg.ScrapeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ScrapeTimeout)
		defer cancel()
	}
	rows, err := s.source.FetchSchedule(ctx, lg.League, target)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s week %d: %v", ErrDependencyUnavailable, lg.League.Code, target.Week, err)
	}
	return rows, nil
}

func (s *SyncService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}
