package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
)

// DefaultGrid matches a freshly created Lines worksheet.
var DefaultGrid = ledger.Grid{Rows: 200, Cols: ledger.Width}

// LedgerRepository is an in-process worksheet with the same capacity rules as a
// spreadsheet tab: writes must fit the grid and deletes cannot empty it.
type LedgerRepository struct {
	mu   sync.RWMutex
	grid ledger.Grid
	rows [][]string
}

func NewLedgerRepository(grid ledger.Grid, rows [][]string) *LedgerRepository {
	if grid.Rows <= 0 || grid.Cols <= 0 {
		grid = DefaultGrid
	}
	if len(rows) > grid.Rows {
		grid.Rows = len(rows)
	}

	copied := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > grid.Cols {
			grid.Cols = len(row)
		}
		copied = append(copied, append([]string(nil), row...))
	}

	return &LedgerRepository{grid: grid, rows: copied}
}

func (r *LedgerRepository) ReadAll(_ context.Context) ([][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	last := 0
	for i, row := range r.rows {
		if !blankRow(row) {
			last = i + 1
		}
	}

	out := make([][]string, 0, last)
	for _, row := range r.rows[:last] {
		out = append(out, append([]string(nil), row...))
	}
	return out, nil
}

func (r *LedgerRepository) Dimensions(_ context.Context) (ledger.Grid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.grid, nil
}

func (r *LedgerRepository) Resize(_ context.Context, grid ledger.Grid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if grid.Rows > r.grid.Rows {
		r.grid.Rows = grid.Rows
	}
	if grid.Cols > r.grid.Cols {
		r.grid.Cols = grid.Cols
	}
	return nil
}

func (r *LedgerRepository) DeleteRows(_ context.Context, start, end int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if start < 1 || end < start || end > r.grid.Rows {
		return fmt.Errorf("%w: delete rows %d..%d of %d", ledger.ErrOutOfBounds, start, end, r.grid.Rows)
	}
	n := end - start + 1
	if r.grid.Rows-n <= ledger.HeaderRow {
		return fmt.Errorf("delete rows %d..%d would leave no rows below the header", start, end)
	}

	if start <= len(r.rows) {
		cut := end
		if cut > len(r.rows) {
			cut = len(r.rows)
		}
		r.rows = append(r.rows[:start-1], r.rows[cut:]...)
	}
	r.grid.Rows -= n
	return nil
}

func (r *LedgerRepository) BatchWrite(_ context.Context, writes []ledger.RangeWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range writes {
		if w.TopRow < 1 || w.BottomRow() > r.grid.Rows || w.Width() > r.grid.Cols {
			return fmt.Errorf("%w: %s in %dx%d grid", ledger.ErrOutOfBounds, w.A1(""), r.grid.Rows, r.grid.Cols)
		}
	}

	for _, w := range writes {
		for i, values := range w.Values {
			rowIndex := w.TopRow - 1 + i
			for len(r.rows) <= rowIndex {
				r.rows = append(r.rows, nil)
			}
			row := r.rows[rowIndex]
			if len(row) < len(values) {
				row = append(row, make([]string, len(values)-len(row))...)
			}
			copy(row, values)
			r.rows[rowIndex] = row
		}
	}
	return nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
