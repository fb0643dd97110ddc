package postgres

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	if !isNotFound(fmt.Errorf("get sheet: %w", sql.ErrNoRows)) {
		t.Fatalf("expected wrapped ErrNoRows to match")
	}
	if isNotFound(fmt.Errorf("boom")) {
		t.Fatalf("expected unrelated error not to match")
	}
}

func TestIsSerializationFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization", err: &pq.Error{Code: "40001"}, want: true},
		{name: "deadlock wrapped", err: fmt.Errorf("commit: %w", &pq.Error{Code: "40P01"}), want: true},
		{name: "unique violation", err: &pq.Error{Code: "23505"}, want: false},
		{name: "plain", err: fmt.Errorf("pq: relation ledger_rows does not exist"), want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := isSerializationFailure(tc.err); got != tc.want {
				t.Fatalf("expected %v, got=%v", tc.want, got)
			}
		})
	}
}
