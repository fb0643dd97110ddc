package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
	qb "github.com/riskibarqy/lines-ledger/internal/platform/querybuilder"
)

// txAttempts bounds reruns of a transaction that lost a lock race.
const txAttempts = 3

// DefaultGrid is the capacity a new sheet starts with.
var DefaultGrid = ledger.Grid{Rows: 200, Cols: ledger.Width}

// LedgerRepository keeps one worksheet as numbered rows of text cells. Row
// numbers stay dense: deletes shift everything below up, like a spreadsheet.
type LedgerRepository struct {
	db      *sqlx.DB
	title   string
	initial ledger.Grid
}

func NewLedgerRepository(db *sqlx.DB, title string, initial ledger.Grid) *LedgerRepository {
	if initial.Rows <= ledger.HeaderRow || initial.Cols <= 0 {
		initial = DefaultGrid
	}
	return &LedgerRepository{db: db, title: strings.TrimSpace(title), initial: initial}
}

// EnsureSheet creates the sheet record on first use.
func (r *LedgerRepository) EnsureSheet(ctx context.Context) error {
	query, args, err := qb.InsertInto(tableLedgerSheets).
		Columns("title", "row_count", "col_count").
		Values(r.title, r.initial.Rows, r.initial.Cols).
		Suffix("ON CONFLICT (title) DO NOTHING").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build ensure sheet query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure sheet %q: %w", r.title, err)
	}
	return nil
}

func (r *LedgerRepository) ReadAll(ctx context.Context) ([][]string, error) {
	query, args, err := qb.Select("row_num", "cells").
		From(tableLedgerRows).
		Where(qb.Eq("sheet_title", r.title)).
		OrderBy("row_num").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select ledger rows query: %w", err)
	}

	var rows []ledgerRowTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select ledger rows: %w", err)
	}
	return denseRows(rows), nil
}

func (r *LedgerRepository) Dimensions(ctx context.Context) (ledger.Grid, error) {
	sheet, err := r.getSheet(ctx, r.db, false)
	if err != nil {
		if !isNotFound(err) {
			return ledger.Grid{}, err
		}
		if err := r.EnsureSheet(ctx); err != nil {
			return ledger.Grid{}, err
		}
		return r.initial, nil
	}
	return ledger.Grid{Rows: sheet.RowCount, Cols: sheet.ColCount}, nil
}

func (r *LedgerRepository) Resize(ctx context.Context, grid ledger.Grid) error {
	if err := r.EnsureSheet(ctx); err != nil {
		return err
	}
	query, args, err := qb.Update(tableLedgerSheets).
		SetExpr("row_count", "GREATEST(row_count, ?)", grid.Rows).
		SetExpr("col_count", "GREATEST(col_count, ?)", grid.Cols).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("title", r.title)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build resize sheet query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("resize sheet %q: %w", r.title, err)
	}
	return nil
}

func (r *LedgerRepository) DeleteRows(ctx context.Context, start, end int) error {
	return retryOnConflict(func() error { return r.deleteRows(ctx, start, end) })
}

func (r *LedgerRepository) deleteRows(ctx context.Context, start, end int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx delete ledger rows: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	sheet, err := r.getSheet(ctx, tx, true)
	if err != nil {
		return err
	}
	if start < 1 || end < start || end > sheet.RowCount {
		return fmt.Errorf("%w: delete rows %d..%d of %d", ledger.ErrOutOfBounds, start, end, sheet.RowCount)
	}
	n := end - start + 1
	if sheet.RowCount-n <= ledger.HeaderRow {
		return fmt.Errorf("delete rows %d..%d would leave no rows below the header", start, end)
	}

	deleteQuery, deleteArgs, err := qb.DeleteFrom(tableLedgerRows).
		Where(qb.Eq("sheet_title", r.title), qb.Between("row_num", start, end)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete ledger rows query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("delete ledger rows %d..%d: %w", start, end, err)
	}

	// Shift through negative numbers so no row collides with the primary key
	// while the block below moves up.
	shiftQuery, shiftArgs, err := qb.Update(tableLedgerRows).
		SetExpr("row_num", "-(row_num - ?)", n).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("sheet_title", r.title), qb.Gt("row_num", end)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build shift ledger rows query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, shiftQuery, shiftArgs...); err != nil {
		return fmt.Errorf("shift ledger rows below %d: %w", end, err)
	}

	flipQuery, flipArgs, err := qb.Update(tableLedgerRows).
		SetExpr("row_num", "-row_num").
		Where(qb.Eq("sheet_title", r.title), qb.Lt("row_num", 0)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build flip ledger rows query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, flipQuery, flipArgs...); err != nil {
		return fmt.Errorf("restore shifted ledger rows: %w", err)
	}

	shrinkQuery, shrinkArgs, err := qb.Update(tableLedgerSheets).
		SetExpr("row_count", "row_count - ?", n).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("title", r.title)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build shrink sheet query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, shrinkQuery, shrinkArgs...); err != nil {
		return fmt.Errorf("shrink sheet %q: %w", r.title, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete ledger rows: %w", err)
	}
	return nil
}

func (r *LedgerRepository) BatchWrite(ctx context.Context, writes []ledger.RangeWrite) error {
	if len(writes) == 0 {
		return nil
	}
	return retryOnConflict(func() error { return r.batchWrite(ctx, writes) })
}

func (r *LedgerRepository) batchWrite(ctx context.Context, writes []ledger.RangeWrite) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx batch write ledger: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	sheet, err := r.getSheet(ctx, tx, true)
	if err != nil {
		return err
	}
	for _, w := range writes {
		if w.TopRow < 1 || w.BottomRow() > sheet.RowCount || w.Width() > sheet.ColCount {
			return fmt.Errorf("%w: %s in %dx%d grid", ledger.ErrOutOfBounds, w.A1(r.title), sheet.RowCount, sheet.ColCount)
		}
	}

	for _, w := range writes {
		if len(w.Values) == 0 {
			continue
		}
		if err := r.writeRange(ctx, tx, w); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch write ledger: %w", err)
	}
	return nil
}

// writeRange overlays the write on whatever the rows already hold, so cells
// right of the written width survive.
func (r *LedgerRepository) writeRange(ctx context.Context, tx *sqlx.Tx, w ledger.RangeWrite) error {
	selectQuery, selectArgs, err := qb.Select("row_num", "cells").
		From(tableLedgerRows).
		Where(qb.Eq("sheet_title", r.title), qb.Between("row_num", w.TopRow, w.BottomRow())).
		OrderBy("row_num").
		Suffix("FOR UPDATE").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build select range query: %w", err)
	}
	var existing []ledgerRowTableModel
	if err := tx.SelectContext(ctx, &existing, selectQuery, selectArgs...); err != nil {
		return fmt.Errorf("select range %s: %w", w.A1(r.title), err)
	}
	current := make(map[int][]string, len(existing))
	for _, row := range existing {
		current[row.RowNum] = row.Cells
	}

	insert := qb.InsertInto(tableLedgerRows).Columns("sheet_title", "row_num", "cells")
	for i, values := range w.Values {
		rowNum := w.TopRow + i
		insert = insert.Values(r.title, rowNum, pq.Array(overlay(current[rowNum], values)))
	}
	query, args, err := insert.
		Suffix("ON CONFLICT (sheet_title, row_num) DO UPDATE SET cells = EXCLUDED.cells, updated_at = NOW()").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert range query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert range %s: %w", w.A1(r.title), err)
	}
	return nil
}

func (r *LedgerRepository) getSheet(ctx context.Context, q sqlx.QueryerContext, forUpdate bool) (ledgerSheetTableModel, error) {
	builder := qb.Select("title", "row_count", "col_count").
		From(tableLedgerSheets).
		Where(qb.Eq("title", r.title))
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return ledgerSheetTableModel{}, fmt.Errorf("build get sheet query: %w", err)
	}

	var sheet ledgerSheetTableModel
	if err := sqlx.GetContext(ctx, q, &sheet, query, args...); err != nil {
		if isNotFound(err) {
			return ledgerSheetTableModel{}, err
		}
		return ledgerSheetTableModel{}, fmt.Errorf("get sheet %q: %w", r.title, err)
	}
	return sheet, nil
}

func retryOnConflict(fn func() error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = fn()
		if err == nil || !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

func overlay(existing, values []string) []string {
	out := make([]string, len(existing))
	copy(out, existing)
	if len(out) < len(values) {
		out = append(out, make([]string, len(values)-len(out))...)
	}
	copy(out, values)
	return out
}

// denseRows places stored rows at their 1-based index and drops trailing blank rows.
func denseRows(rows []ledgerRowTableModel) [][]string {
	last := 0
	for _, row := range rows {
		if row.RowNum > last && !blankCells(row.Cells) {
			last = row.RowNum
		}
	}
	out := make([][]string, last)
	for _, row := range rows {
		if row.RowNum < 1 || row.RowNum > last {
			continue
		}
		out[row.RowNum-1] = append([]string(nil), row.Cells...)
	}
	return out
}

func blankCells(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
