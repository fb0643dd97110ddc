package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepository_ReadAllTrimsTrailingBlankRows(t *testing.T) {
	t.Parallel()

	repo := NewLedgerRepository(ledger.Grid{Rows: 10, Cols: ledger.Width}, [][]string{
		ledger.Header(),
		{"", "Miami"},
		{"", ""},
	})

	rows, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows[1][1] = "mutated"
	again, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Miami", again[1][1])
}

func TestLedgerRepository_GrowsGridToFitSeedRows(t *testing.T) {
	t.Parallel()

	repo := NewLedgerRepository(ledger.Grid{Rows: 2, Cols: 4}, [][]string{
		ledger.Header(), {"a"}, {"b"},
	})
	grid, err := repo.Dimensions(context.Background())
	require.NoError(t, err)
	require.Equal(t, ledger.Grid{Rows: 3, Cols: ledger.Width}, grid)
}

func TestLedgerRepository_ResizeOnlyGrows(t *testing.T) {
	t.Parallel()

	repo := NewLedgerRepository(ledger.Grid{Rows: 20, Cols: ledger.Width}, nil)
	require.NoError(t, repo.Resize(context.Background(), ledger.Grid{Rows: 5, Cols: 2}))
	require.NoError(t, repo.Resize(context.Background(), ledger.Grid{Rows: 40, Cols: 2}))

	grid, err := repo.Dimensions(context.Background())
	require.NoError(t, err)
	require.Equal(t, ledger.Grid{Rows: 40, Cols: ledger.Width}, grid)
}

func TestLedgerRepository_DeleteRowsShiftsUp(t *testing.T) {
	t.Parallel()

	repo := NewLedgerRepository(ledger.Grid{Rows: 10, Cols: ledger.Width}, [][]string{
		ledger.Header(),
		{"", "Jets"},
		{"", "Bills"},
		{"", "Miami"},
		{"", "Buffalo"},
	})

	require.NoError(t, repo.DeleteRows(context.Background(), 2, 3))

	rows, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Miami", rows[1][1])
	require.Equal(t, "Buffalo", rows[2][1])

	grid, err := repo.Dimensions(context.Background())
	require.NoError(t, err)
	require.Equal(t, 8, grid.Rows)
}

func TestLedgerRepository_DeleteRowsValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end int
		outOfGrid  bool
	}{
		{name: "before first row", start: 0, end: 1, outOfGrid: true},
		{name: "reversed", start: 4, end: 3, outOfGrid: true},
		{name: "past grid", start: 4, end: 6, outOfGrid: true},
		{name: "would empty grid", start: 2, end: 5},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := NewLedgerRepository(ledger.Grid{Rows: 5, Cols: ledger.Width}, nil)
			err := repo.DeleteRows(context.Background(), tc.start, tc.end)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := errors.Is(err, ledger.ErrOutOfBounds); got != tc.outOfGrid {
				t.Fatalf("expected ErrOutOfBounds=%v, got=%v", tc.outOfGrid, err)
			}
		})
	}
}

func TestLedgerRepository_BatchWriteIsAllOrNothing(t *testing.T) {
	t.Parallel()

	repo := NewLedgerRepository(ledger.Grid{Rows: 4, Cols: ledger.Width}, nil)
	err := repo.BatchWrite(context.Background(), []ledger.RangeWrite{
		{TopRow: 1, Values: [][]string{ledger.Header()}},
		{TopRow: 4, Values: [][]string{{"away"}, {"home"}}},
	})
	if !errors.Is(err, ledger.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got=%v", err)
	}

	rows, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestLedgerRepository_BatchWriteOverlaysPartialRows(t *testing.T) {
	t.Parallel()

	repo := NewLedgerRepository(ledger.Grid{Rows: 10, Cols: ledger.Width}, [][]string{
		ledger.Header(),
		{"logo", "Miami", "", "MIA +3"},
	})

	require.NoError(t, repo.BatchWrite(context.Background(), []ledger.RangeWrite{
		{TopRow: 2, Values: [][]string{{"", "Miami Dolphins"}}},
		{TopRow: 5, Values: [][]string{{"", "Jets"}}},
	}))

	rows, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 5)
	require.Equal(t, "Miami Dolphins", rows[1][1])
	require.Equal(t, "MIA +3", rows[1][3])
	require.Equal(t, "Jets", rows[4][1])
}
