package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
	"github.com/riskibarqy/lines-ledger/internal/domain/schedule"
	"github.com/riskibarqy/lines-ledger/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type MergeConfig struct {
	Location *time.Location
	// IgnoreLocks lets tests overwrite persisted locked entries. Never enable in production.
	IgnoreLocks bool
	// SpacerRows is the blank gap left before the first entry of a different league.
	SpacerRows int
	SheetTitle string
}

type MergeInput struct {
	League  ledger.League
	Phase   ledger.Phase
	WeekTag string
	Events  []ledger.Event
	Now     time.Time
}

type MergeResult struct {
	Inserted      int      `json:"inserted"`
	Updated       int      `json:"updated"`
	LockOnly      int      `json:"lock_only"`
	SkippedLocked int      `json:"skipped_locked"`
	SkippedGated  int      `json:"skipped_gated"`
	Ranges        []string `json:"ranges,omitempty"`
	MaxRow        int      `json:"max_row"`
}

func (r MergeResult) Writes() int {
	return r.Inserted + r.Updated + r.LockOnly
}

type MergeService struct {
	store  ledger.Store
	cfg    MergeConfig
	logger *logging.Logger
}

func NewMergeService(store ledger.Store, cfg MergeConfig, logger *logging.Logger) *MergeService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.SpacerRows < 0 {
		cfg.SpacerRows = 0
	}
	return &MergeService{store: store, cfg: cfg, logger: logger}
}

// ledgerIndex holds the persisted entries of one read, keyed by top row.
type ledgerIndex struct {
	entries    map[int]ledger.Entry
	primary    map[string]int
	secondary  map[string]int
	lastRow    int
	lastLeague string
}

func buildLedgerIndex(rows [][]string, loc *time.Location) ledgerIndex {
	idx := ledgerIndex{
		entries:   make(map[int]ledger.Entry),
		primary:   make(map[string]int),
		secondary: make(map[string]int),
		lastRow:   lastOccupiedRow(rows),
	}

	for top := ledger.FirstPairRow; top <= len(rows); top += 2 {
		away := rows[top-1]
		var home []string
		if top < len(rows) {
			home = rows[top]
		}
		entry := ledger.EntryFromRows(top, away, home, loc)
		if entry.GameKey == "" && entry.League == "" {
			continue
		}
		idx.entries[top] = entry
		if entry.League != "" {
			idx.lastLeague = entry.League
		}
		if entry.GameKey != "" {
			idx.primary[entry.GameKey] = top
		}
		if entry.WeekTag != "" && entry.Away.Name() != "" && entry.Home.Name() != "" {
			idx.secondary[ledger.SecondaryKey(entry.WeekTag, entry.Away.Name(), entry.Home.Name())] = top
		}
	}
	return idx
}

func (idx ledgerIndex) lookup(gameKey, secondaryKey string) (ledger.Entry, bool) {
	if top, ok := idx.primary[gameKey]; ok {
		return idx.entries[top], true
	}
	if top, ok := idx.secondary[secondaryKey]; ok {
		return idx.entries[top], true
	}
	return ledger.Entry{}, false
}

// overdue lists, top row first, the unlocked entries of league whose stored
// freeze is at or before now.
func (idx ledgerIndex) overdue(league string, now time.Time) []int {
	var tops []int
	for top, entry := range idx.entries {
		if entry.League == league && !entry.Locked && entry.FreezePassed(now) {
			tops = append(tops, top)
		}
	}
	sort.Ints(tops)
	return tops
}

func lockEntry(entry ledger.Entry, now time.Time) ledger.Entry {
	stamp := now
	entry.Locked = true
	entry.Status = ledger.StatusLocked
	entry.LastUpdated = &stamp
	return entry
}

func lastOccupiedRow(rows [][]string) int {
	for i := len(rows) - 1; i >= 0; i-- {
		for _, cell := range rows[i] {
			if strings.TrimSpace(cell) != "" {
				return i + 1
			}
		}
	}
	return 0
}

type mergeAction int

const (
	actionInsert mergeAction = iota + 1
	actionUpdate
	actionLockOnly
)

type plannedWrite struct {
	action mergeAction
	write  ledger.RangeWrite
}

// Merge reconciles one league's scraped pairs into the ledger with a single batch write.
func (s *MergeService) Merge(ctx context.Context, input MergeInput) (MergeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MergeService.Merge",
		leagueAttr(input.League.Code),
		attribute.String("ledger.week_tag", input.WeekTag),
		attribute.Int("ledger.events", len(input.Events)),
	)
	defer span.End()

	if strings.TrimSpace(input.League.Code) == "" {
		return MergeResult{}, fmt.Errorf("%w: league is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.WeekTag) == "" {
		return MergeResult{}, fmt.Errorf("%w: week tag is required", ErrInvalidInput)
	}
	if input.Now.IsZero() {
		return MergeResult{}, fmt.Errorf("%w: now is required", ErrInvalidInput)
	}
	phase := input.Phase
	if phase == "" {
		phase = ledger.PhaseRegular
	}

	loc := s.cfg.Location
	now := input.Now.In(loc)

	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		recordSpanError(span, err)
		return MergeResult{}, fmt.Errorf("%w: read ledger: %v", ErrStoreUnavailable, err)
	}
	idx := buildLedgerIndex(rows, loc)

	plans := make([]plannedWrite, 0, len(input.Events)+1)
	insertsByKey := make(map[string]int, len(input.Events))
	plansByRow := make(map[int]int, len(input.Events))
	var result MergeResult

	if len(rows) == 0 || !ledger.HeaderMatches(rows[0]) {
		plans = append(plans, plannedWrite{write: ledger.RangeWrite{
			TopRow: ledger.HeaderRow,
			Values: [][]string{ledger.Header()},
		}})
	}

	appendTop := idx.lastRow + 1
	if idx.lastRow > ledger.HeaderRow && idx.lastLeague != "" && idx.lastLeague != input.League.Code {
		appendTop += s.cfg.SpacerRows
	}
	if appendTop < ledger.FirstPairRow {
		appendTop = ledger.FirstPairRow
	}
	if appendTop%2 == 1 {
		appendTop++
	}

	// Entries of this league past their stored freeze lock now, whether or not
	// the scrape still lists them.
	for _, top := range idx.overdue(input.League.Code, now) {
		plansByRow[top] = len(plans)
		plans = append(plans, plannedWrite{action: actionLockOnly, write: pairWrite(lockEntry(idx.entries[top], now), loc)})
	}

	for _, event := range input.Events {
		entry := s.plan(event, input.League, phase, input.WeekTag, now)
		secondary := ledger.SecondaryKey(input.WeekTag, event.Away.Name(), event.Home.Name())

		existing, found := idx.lookup(entry.GameKey, secondary)
		if !found {
			if !entry.Published(now) {
				entry.Away = placeholderRow(entry.Away)
				entry.Home = placeholderRow(entry.Home)
			}
			// The same fixture twice in one scrape: the later pair wins the row.
			if i, ok := insertsByKey[entry.GameKey]; ok {
				entry.TopRow = plans[i].write.TopRow
				plans[i].write = pairWrite(entry.Entry, loc)
				continue
			}
			entry.TopRow = appendTop
			appendTop += 2
			insertsByKey[entry.GameKey] = len(plans)
			plans = append(plans, plannedWrite{action: actionInsert, write: pairWrite(entry.Entry, loc)})
			continue
		}

		if existing.Locked && !s.cfg.IgnoreLocks {
			result.SkippedLocked++
			continue
		}

		// A fresh kickoff that is TBD or later than the stored one must not
		// reopen a pair whose stored freeze has already passed.
		overdue := existing.FreezePassed(now)

		var plan plannedWrite
		switch {
		case entry.Published(now) && (entry.Locked || !overdue):
			entry.TopRow = existing.TopRow
			plan = plannedWrite{action: actionUpdate, write: pairWrite(entry.Entry, loc)}
		case entry.Locked || overdue:
			plan = plannedWrite{action: actionLockOnly, write: pairWrite(lockEntry(existing, now), loc)}
		default:
			result.SkippedGated++
			continue
		}

		if i, ok := plansByRow[existing.TopRow]; ok {
			plans[i] = plan
			continue
		}
		plansByRow[existing.TopRow] = len(plans)
		plans = append(plans, plan)
	}

	writes := make([]ledger.RangeWrite, 0, len(plans))
	for _, p := range plans {
		writes = append(writes, p.write)
		if p.write.BottomRow() > result.MaxRow {
			result.MaxRow = p.write.BottomRow()
		}
		switch p.action {
		case actionInsert:
			result.Inserted++
		case actionUpdate:
			result.Updated++
		case actionLockOnly:
			result.LockOnly++
		}
	}
	if len(writes) == 0 {
		return result, nil
	}

	if err := s.ensureCapacity(ctx, result.MaxRow); err != nil {
		recordSpanError(span, err)
		return result, err
	}
	if err := s.store.BatchWrite(ctx, writes); err != nil {
		recordSpanError(span, err)
		return result, fmt.Errorf("%w: batch write: %v", ErrStoreUnavailable, err)
	}

	for _, w := range writes {
		result.Ranges = append(result.Ranges, w.A1(s.cfg.SheetTitle))
	}
	if result.Writes() > 0 {
		s.logger.InfoContext(ctx, "ledger merge applied",
			"league", input.League.Code,
			"week_tag", input.WeekTag,
			"inserted", result.Inserted,
			"updated", result.Updated,
			"lock_only", result.LockOnly,
			"skipped_locked", result.SkippedLocked,
			"skipped_gated", result.SkippedGated,
			"max_row", result.MaxRow,
		)
	}
	return result, nil
}

// plan derives key, timing and status for a scraped pair.
func (s *MergeService) plan(event ledger.Event, league ledger.League, phase ledger.Phase, weekTag string, now time.Time) plannedEntry {
	var kickoff *time.Time
	if k, ok := schedule.ParseKickoff(event.DateText(), event.TimeText(), now); ok {
		kickoff = &k
	}
	pub := schedule.Evaluate(now, kickoff)
	frozen := pub.Frozen(now)

	status := ledger.StatusPlaceholder
	if pub.Permitted(now) {
		status = ledger.StatusPosted
	}
	if frozen {
		status = ledger.StatusLocked
	}

	stamp := now
	entry := plannedEntry{
		Entry: ledger.Entry{
			Away:         event.Away,
			Home:         event.Home,
			League:       league.Code,
			WeekTag:      weekTag,
			Phase:        phase,
			GameKey:      ledger.GameKey(event.EventID, kickoff, weekTag, event.Away.Name(), event.Home.Name()),
			KickoffLocal: kickoff,
			ReleaseAt:    pub.ReleaseAt,
			FreezeAt:     pub.FreezeAt,
			Locked:       frozen,
			Status:       status,
			LastUpdated:  &stamp,
		},
		publication: pub,
	}
	if entry.Published(now) {
		entry.Away = clearSentinels(entry.Away)
		entry.Home = clearSentinels(entry.Home)
	}
	return entry
}

type plannedEntry struct {
	ledger.Entry
	publication schedule.Publication
}

func (e plannedEntry) Published(now time.Time) bool {
	return e.publication.Permitted(now)
}

func pairWrite(entry ledger.Entry, loc *time.Location) ledger.RangeWrite {
	away, home := entry.Rows(loc)
	return ledger.RangeWrite{TopRow: entry.TopRow, Values: [][]string{away, home}}
}

func placeholderRow(r ledger.Row) ledger.Row {
	r[ledger.ColLine] = ""
	r[ledger.ColOverUnder] = ""
	return r
}

func clearSentinels(r ledger.Row) ledger.Row {
	for i, cell := range r {
		if strings.EqualFold(strings.TrimSpace(cell), ledger.NotAvailable) {
			r[i] = ""
		}
	}
	return r
}

func (s *MergeService) ensureCapacity(ctx context.Context, maxRow int) error {
	grid, err := s.store.Dimensions(ctx)
	if err != nil {
		return fmt.Errorf("%w: read dimensions: %v", ErrStoreUnavailable, err)
	}
	want := grid
	if maxRow > want.Rows {
		want.Rows = maxRow
	}
	if want.Cols < ledger.Width {
		want.Cols = ledger.Width
	}
	if want == grid {
		return nil
	}
	if err := s.store.Resize(ctx, want); err != nil {
		return fmt.Errorf("%w: grow grid to %dx%d: %v", ErrStoreUnavailable, want.Rows, want.Cols, err)
	}
	return nil
}
