package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
	"github.com/riskibarqy/lines-ledger/internal/platform/logging"
)

// minRowsAfterPurge is the header plus one entry.
const minRowsAfterPurge = ledger.HeaderRow + 2

// ArchiveBatch is what a purge removed in one pass.
type ArchiveBatch struct {
	PurgedAt time.Time      `json:"purged_at"`
	Entries  []ledger.Entry `json:"entries"`
}

// Archiver keeps a copy of purged entries. Purge proceeds when it fails.
type Archiver interface {
	Archive(ctx context.Context, batch ArchiveBatch) error
}

type nopArchiver struct{}

func (nopArchiver) Archive(context.Context, ArchiveBatch) error { return nil }

type PurgeInput struct {
	// CurrentTags maps a tracked league code to its current week tag.
	CurrentTags map[string]string
	Now         time.Time
}

type PurgeResult struct {
	Deleted    int  `json:"deleted"`
	Legacy     int  `json:"legacy"`
	KeptLocked int  `json:"kept_locked"`
	Blocks     int  `json:"blocks"`
	Grown      bool `json:"grown"`
}

type PurgeService struct {
	store    ledger.Store
	archiver Archiver
	location *time.Location
	logger   *logging.Logger
}

func NewPurgeService(store ledger.Store, archiver Archiver, location *time.Location, logger *logging.Logger) *PurgeService {
	if archiver == nil {
		archiver = nopArchiver{}
	}
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PurgeService{store: store, archiver: archiver, location: location, logger: logger}
}

// rowBlock is an inclusive 1-based row span.
type rowBlock struct {
	start int
	end   int
}

// Purge deletes entries of tracked leagues whose week tag is no longer current.
// Locked entries and rows without a game key are never removed.
func (s *PurgeService) Purge(ctx context.Context, input PurgeInput) (PurgeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PurgeService.Purge")
	defer span.End()

	if len(input.CurrentTags) == 0 {
		return PurgeResult{}, fmt.Errorf("%w: no tracked leagues", ErrInvalidInput)
	}

	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		recordSpanError(span, err)
		return PurgeResult{}, fmt.Errorf("%w: read ledger: %v", ErrStoreUnavailable, err)
	}

	var (
		result PurgeResult
		tops   []int
		purged []ledger.Entry
	)
	for top := ledger.FirstPairRow; top <= len(rows); top += 2 {
		away := rows[top-1]
		if isLegacyRow(away) {
			tops = append(tops, top)
			result.Legacy++
			continue
		}

		var home []string
		if top < len(rows) {
			home = rows[top]
		}
		entry := ledger.EntryFromRows(top, away, home, s.location)
		if entry.GameKey == "" {
			continue
		}
		current, tracked := input.CurrentTags[entry.League]
		if !tracked || entry.WeekTag == current {
			continue
		}
		if entry.Settled(input.Now) {
			result.KeptLocked++
			continue
		}
		tops = append(tops, top)
		purged = append(purged, entry)
	}
	result.Deleted = len(purged)

	if len(tops) == 0 {
		return result, nil
	}

	if len(purged) > 0 {
		batch := ArchiveBatch{PurgedAt: input.Now, Entries: purged}
		if err := s.archiver.Archive(ctx, batch); err != nil {
			s.logger.WarnContext(ctx, "archive purged entries failed", "entries", len(purged), "error", err)
		}
	}

	blocks := groupPairBlocks(tops)
	result.Blocks = len(blocks)

	grown, err := s.reserveRows(ctx, 2*len(tops))
	if err != nil {
		recordSpanError(span, err)
		return result, err
	}
	result.Grown = grown

	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]
		if err := s.store.DeleteRows(ctx, b.start, b.end); err != nil {
			recordSpanError(span, err)
			return result, fmt.Errorf("%w: delete rows %d..%d: %v", ErrStoreUnavailable, b.start, b.end, err)
		}
	}

	s.logger.InfoContext(ctx, "ledger purge applied",
		"deleted", result.Deleted,
		"legacy", result.Legacy,
		"kept_locked", result.KeptLocked,
		"blocks", result.Blocks,
	)
	return result, nil
}

// reserveRows grows the grid so deleting n rows still leaves room for one entry.
func (s *PurgeService) reserveRows(ctx context.Context, n int) (bool, error) {
	grid, err := s.store.Dimensions(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: read dimensions: %v", ErrStoreUnavailable, err)
	}
	remaining := grid.Rows - n
	if remaining >= minRowsAfterPurge {
		return false, nil
	}
	grid.Rows += minRowsAfterPurge - remaining
	if err := s.store.Resize(ctx, grid); err != nil {
		return false, fmt.Errorf("%w: grow grid before purge: %v", ErrStoreUnavailable, err)
	}
	return true, nil
}

// isLegacyRow spots pairs from the old six-column layout, where the league code
// landed in the date column.
func isLegacyRow(row []string) bool {
	v := strings.ToLower(strings.TrimSpace(ledger.Cell(row, ledger.ColDate)))
	return v == ledger.LeagueNFL.Code || v == ledger.LeagueCollege.Code
}

// groupPairBlocks merges adjacent pair tops into contiguous row spans.
func groupPairBlocks(tops []int) []rowBlock {
	if len(tops) == 0 {
		return nil
	}
	sorted := append([]int(nil), tops...)
	sort.Ints(sorted)

	blocks := []rowBlock{{start: sorted[0], end: sorted[0] + 1}}
	for _, top := range sorted[1:] {
		last := &blocks[len(blocks)-1]
		if top == last.end+1 {
			last.end = top + 1
			continue
		}
		blocks = append(blocks, rowBlock{start: top, end: top + 1})
	}
	return blocks
}
