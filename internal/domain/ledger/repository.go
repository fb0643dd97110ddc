package ledger

import (
	"context"
	"errors"
	"fmt"
)

var ErrOutOfBounds = errors.New("write outside grid")

// Grid is the row/column capacity of the worksheet.
type Grid struct {
	Rows int
	Cols int
}

// RangeWrite replaces consecutive rows starting at TopRow (1-based), anchored at column A.
type RangeWrite struct {
	TopRow int
	Values [][]string
}

func (w RangeWrite) BottomRow() int {
	return w.TopRow + len(w.Values) - 1
}

func (w RangeWrite) Width() int {
	width := 0
	for _, row := range w.Values {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// A1 renders the write as an A1 range like "Lines!A12:R13".
func (w RangeWrite) A1(title string) string {
	width := w.Width()
	if width == 0 {
		width = 1
	}
	rng := fmt.Sprintf("A%d:%s%d", w.TopRow, ColumnLetter(width-1), w.BottomRow())
	if title == "" {
		return rng
	}
	return title + "!" + rng
}

// ColumnLetter converts a 0-based column offset into its sheet letter.
func ColumnLetter(col int) string {
	out := ""
	for col >= 0 {
		out = string(rune('A'+col%26)) + out
		col = col/26 - 1
	}
	return out
}

// Store is the tabular ledger. Row indexes are 1-based and row 1 is the header.
type Store interface {
	// ReadAll returns every row up to the last non-empty one.
	ReadAll(ctx context.Context) ([][]string, error)
	Dimensions(ctx context.Context) (Grid, error)
	// Resize grows the grid; smaller values are ignored.
	Resize(ctx context.Context, grid Grid) error
	// DeleteRows removes rows start..end inclusive and shifts the rest up.
	DeleteRows(ctx context.Context, start, end int) error
	// BatchWrite applies every write or none of them.
	BatchWrite(ctx context.Context, writes []RangeWrite) error
}
