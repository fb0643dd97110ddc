package espn

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
	"github.com/riskibarqy/lines-ledger/internal/domain/schedule"
	"github.com/riskibarqy/lines-ledger/internal/platform/cache"
	"github.com/riskibarqy/lines-ledger/internal/platform/logging"
	"github.com/riskibarqy/lines-ledger/internal/platform/resilience"
	"github.com/riskibarqy/lines-ledger/internal/usecase"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL   = "https://www.espn.com"
	defaultUserAgent = "Mozilla/5.0 (compatible; lines-ledger/1.0)"
	defaultPageTTL   = time.Minute
	maxPageBytes     = 8 << 20

	seasonTypeRegular    = 2
	seasonTypePostseason = 3
)

var errESPNTransient = crerr.New("espn transient failure")

// defaultProbeOffsets are the neighbouring weeks fetched around the requested one.
// Order breaks ties in favour of the requested week.
var defaultProbeOffsets = []int{0, -1, 1, 2}

var leaguePaths = map[string]string{
	ledger.LeagueNFL.Code:     "/nfl/schedule",
	ledger.LeagueCollege.Code: "/college-football/schedule",
}

type ScraperConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	Retry          resilience.RetryPolicy
	CircuitBreaker resilience.BreakerConfig
	// ProbeOffsets overrides the neighbouring weeks probed per fetch.
	ProbeOffsets []int
	// SweepWeeks, when positive, probes weeks 1..SweepWeeks if no neighbour page
	// has a kickoff inside the window.
	SweepWeeks int
	Workers    int
	// PageCacheTTL keeps fetched pages so overlapping probes and sweeps reuse them.
	PageCacheTTL time.Duration
	Teams        *TeamDirectory
	Logger     *logging.Logger
}

// Scraper reads ESPN schedule pages. It implements usecase.ScheduleSource.
type Scraper struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	retry      resilience.RetryPolicy
	breaker    *resilience.Breaker
	offsets    []int
	sweepWeeks int
	workers    int
	teams      *TeamDirectory
	logger     *logging.Logger
	pages      *cache.Store[[]byte]
}

var _ usecase.ScheduleSource = (*Scraper)(nil)

func NewScraper(cfg ScraperConfig) *Scraper {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	offsets := cfg.ProbeOffsets
	if len(offsets) == 0 {
		offsets = defaultProbeOffsets
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	pageTTL := cfg.PageCacheTTL
	if pageTTL <= 0 {
		pageTTL = defaultPageTTL
	}
	if cfg.Retry.MaxRetries < 0 {
		cfg.Retry.MaxRetries = 0
	}

	breaker := resilience.NewBreaker(cfg.CircuitBreaker)
	breaker.OnStateChange(func(from, to resilience.CircuitState) {
		logger.Warn("espn circuit breaker changed state", "from", from, "to", to)
	})

	return &Scraper{
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		retry:      cfg.Retry,
		breaker:    breaker,
		offsets:    append([]int(nil), offsets...),
		sweepWeeks: cfg.SweepWeeks,
		workers:    workers,
		teams:      cfg.Teams,
		logger:     logger,
		pages:      cache.NewStore[[]byte](pageTTL),
	}
}

// snapshot is one parsed schedule page.
type snapshot struct {
	week   int
	offset int
	order  int
	rows   []ledger.RawRow
	hits   int
	err    error
}

// FetchSchedule returns the rows of the page whose kickoffs best cover the
// target window. Without a week it reads the landing page ESPN considers current.
func (s *Scraper) FetchSchedule(ctx context.Context, league ledger.League, target usecase.ScheduleTarget) ([]ledger.RawRow, error) {
	path, ok := leaguePaths[league.Code]
	if !ok {
		return nil, fmt.Errorf("%w: espn has no schedule for league %q", usecase.ErrInvalidInput, league.Code)
	}
	opts := parseOptions{league: league, includeAll: target.IncludeAll, teams: s.teams}

	if target.Week <= 0 {
		snap := s.fetchSnapshot(ctx, s.baseURL+path, 0, 0, opts, target)
		return snap.rows, snap.err
	}

	weeks := make([]int, 0, len(s.offsets))
	for _, offset := range s.offsets {
		weeks = append(weeks, target.Week+offset)
	}
	best, err := s.probe(ctx, path, weeks, target, opts)
	if err != nil {
		return nil, err
	}
	if best.hits == 0 && s.sweepWeeks > 0 {
		s.logger.InfoContext(ctx, "espn neighbour weeks missed the window, sweeping season",
			"league", league.Code,
			"weeks", s.sweepWeeks,
		)
		sweep := make([]int, 0, s.sweepWeeks)
		for w := 1; w <= s.sweepWeeks; w++ {
			sweep = append(sweep, w)
		}
		if swept, sweepErr := s.probe(ctx, path, sweep, target, opts); sweepErr == nil && swept.hits > 0 {
			best = swept
		}
	}

	s.logger.InfoContext(ctx, "espn snapshot chosen",
		"league", league.Code,
		"week", best.week,
		"offset", best.offset,
		"hits", best.hits,
		"rows", len(best.rows),
	)
	return best.rows, nil
}

// probe fetches the given weeks on a bounded pool and keeps the snapshot with
// the most kickoffs inside the window. It fails only when every page failed.
func (s *Scraper) probe(ctx context.Context, path string, weeks []int, target usecase.ScheduleTarget, opts parseOptions) (snapshot, error) {
	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return snapshot{}, crerr.Wrap(err, "create probe pool")
	}
	defer pool.Release()

	results := make(chan snapshot, len(weeks))
	var workers sync.WaitGroup
	for order, week := range weeks {
		if week < 1 {
			week = 1
		}
		order, week := order, week
		offset := week - target.Week
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			snap := s.fetchSnapshot(ctx, s.weekURL(path, week, target), week, offset, opts, target)
			snap.order = order
			results <- snap
		}); err != nil {
			workers.Done()
			return snapshot{}, crerr.Wrap(err, "submit probe")
		}
	}
	workers.Wait()
	close(results)

	snaps := make([]snapshot, 0, len(weeks))
	for snap := range results {
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].order < snaps[j].order })

	var (
		best  snapshot
		found bool
		errs  []error
	)
	for _, snap := range snaps {
		if snap.err != nil {
			errs = append(errs, snap.err)
			continue
		}
		if !found || snap.hits > best.hits {
			best, found = snap, true
		}
	}
	if !found {
		return snapshot{}, stderrors.Join(errs...)
	}
	if len(errs) > 0 {
		s.logger.WarnContext(ctx, "espn probe pages failed", "failed", len(errs), "error", stderrors.Join(errs...))
	}
	return best, nil
}

func (s *Scraper) fetchSnapshot(ctx context.Context, pageURL string, week, offset int, opts parseOptions, target usecase.ScheduleTarget) snapshot {
	snap := snapshot{week: week, offset: offset}
	raw, err := s.fetchPage(ctx, pageURL)
	if err != nil {
		snap.err = err
		return snap
	}

	if recovered := panics.Try(func() {
		snap.rows, snap.err = parseSchedule(bytes.NewReader(raw), opts)
	}); recovered != nil {
		snap.err = crerr.Wrapf(recovered.AsError(), "parse %s", pageURL)
		return snap
	}
	if snap.err == nil {
		snap.hits = countInWindow(snap.rows, target)
	}
	return snap
}

// countInWindow counts pairs whose kickoff falls in [WindowStart, WindowEnd).
func countInWindow(rows []ledger.RawRow, target usecase.ScheduleTarget) int {
	if target.WindowStart.IsZero() || target.WindowEnd.IsZero() {
		return 0
	}
	hits := 0
	for _, event := range ledger.PackEvents(rows) {
		kickoff, ok := schedule.ParseKickoff(event.DateText(), event.TimeText(), target.WindowStart)
		if ok && !kickoff.Before(target.WindowStart) && kickoff.Before(target.WindowEnd) {
			hits++
		}
	}
	return hits
}

func (s *Scraper) weekURL(path string, week int, target usecase.ScheduleTarget) string {
	seasonType := seasonTypeRegular
	if target.Phase.IsPostseason() {
		seasonType = seasonTypePostseason
	}
	u := fmt.Sprintf("%s%s/_/week/%d", s.baseURL, path, week)
	if target.Year > 0 {
		u += fmt.Sprintf("/year/%d", target.Year)
	}
	return u + fmt.Sprintf("/seasontype/%d", seasonType)
}

// fetchPage reads one page through the breaker. Concurrent probes of the same
// URL share a single request and successful bodies are cached for a short while.
func (s *Scraper) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	if raw, ok := s.pages.Get(ctx, pageURL); ok {
		return raw, nil
	}
	if err := s.breaker.Allow(); err != nil {
		s.logger.WarnContext(ctx, "espn circuit breaker rejected request", "state", s.breaker.State())
		return nil, fmt.Errorf("%w: espn is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	return s.pages.GetOrLoad(ctx, pageURL, func(ctx context.Context) ([]byte, error) {
		body, reqErr := s.executeRequest(ctx, pageURL)
		if reqErr != nil && isTransient(reqErr) {
			s.breaker.RecordFailure()
		} else {
			s.breaker.RecordSuccess()
		}
		return body, reqErr
	})
}

func (s *Scraper) executeRequest(ctx context.Context, pageURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("accept", "text/html")
		req.Header.Set("user-agent", s.userAgent)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = crerr.Mark(crerr.Wrap(err, "send request"), errESPNTransient)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Mark(crerr.Wrap(readErr, "read response body"), errESPNTransient)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Mark(crerr.Newf("espn status=%d", resp.StatusCode), errESPNTransient)
			default:
				return nil, crerr.Newf("espn status=%d url=%s", resp.StatusCode, pageURL)
			}
		}

		if attempt == s.retry.MaxRetries {
			break
		}
		if err := resilience.Sleep(ctx, s.retry.Delay(attempt)); err != nil {
			return nil, err
		}
	}

	if lastErr == nil {
		lastErr = crerr.New("espn request failed")
	}
	s.logger.WarnContext(ctx, "espn request failed", "url", pageURL, "error", lastErr)
	return nil, lastErr
}

func isTransient(err error) bool {
	return crerr.Is(err, errESPNTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
