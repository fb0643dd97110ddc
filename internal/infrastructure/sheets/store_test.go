package sheets

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
	"github.com/stretchr/testify/require"
	sheetsapi "google.golang.org/api/sheets/v4"
)

type fakeSpreadsheet struct {
	mu          sync.Mutex
	tabs        []*sheetsapi.SheetProperties
	values      [][]interface{}
	valueWrites []sheetsapi.BatchUpdateValuesRequest
	updates     []sheetsapi.BatchUpdateSpreadsheetRequest
}

func (f *fakeSpreadsheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("content-type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		writeJSON(w, sheetsapi.ValueRange{Values: f.values})
	case r.Method == http.MethodGet:
		sheets := make([]*sheetsapi.Sheet, 0, len(f.tabs))
		for _, tab := range f.tabs {
			sheets = append(sheets, &sheetsapi.Sheet{Properties: tab})
		}
		writeJSON(w, sheetsapi.Spreadsheet{Sheets: sheets})
	case strings.HasSuffix(path, "/values:batchUpdate"):
		var req sheetsapi.BatchUpdateValuesRequest
		_ = sonic.Unmarshal(body, &req)
		f.valueWrites = append(f.valueWrites, req)
		writeJSON(w, sheetsapi.BatchUpdateValuesResponse{})
	case strings.HasSuffix(path, ":batchUpdate"):
		var req sheetsapi.BatchUpdateSpreadsheetRequest
		_ = sonic.Unmarshal(body, &req)
		f.updates = append(f.updates, req)
		replies := make([]*sheetsapi.Response, 0, len(req.Requests))
		for _, item := range req.Requests {
			reply := &sheetsapi.Response{}
			if item.AddSheet != nil {
				props := item.AddSheet.Properties
				props.SheetId = 42
				f.tabs = append(f.tabs, props)
				reply.AddSheet = &sheetsapi.AddSheetResponse{Properties: props}
			}
			replies = append(replies, reply)
		}
		writeJSON(w, sheetsapi.BatchUpdateSpreadsheetResponse{Replies: replies})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	raw, _ := sonic.Marshal(v)
	_, _ = w.Write(raw)
}

func newTestStore(t *testing.T, fake *fakeSpreadsheet) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := Config{
		SpreadsheetID: "sheet-1",
		Title:         "Lines",
		Endpoint:      srv.URL + "/",
		HTTPClient:    srv.Client(),
		Initial:       ledger.Grid{Rows: 30, Cols: ledger.Width},
	}
	svc, err := NewService(context.Background(), cfg)
	require.NoError(t, err)
	store, err := NewStore(svc, cfg)
	require.NoError(t, err)
	return store
}

func linesTab(rows, cols int64) *sheetsapi.SheetProperties {
	return &sheetsapi.SheetProperties{
		SheetId:        7,
		Title:          "Lines",
		GridProperties: &sheetsapi.GridProperties{RowCount: rows, ColumnCount: cols},
	}
}

func TestStore_BatchWriteSendsOneRequest(t *testing.T) {
	t.Parallel()

	fake := &fakeSpreadsheet{tabs: []*sheetsapi.SheetProperties{linesTab(20, 18)}}
	store := newTestStore(t, fake)

	err := store.BatchWrite(context.Background(), []ledger.RangeWrite{
		{TopRow: 1, Values: [][]string{ledger.Header()}},
		{TopRow: 2, Values: [][]string{ledger.PadRow([]string{"", "Miami"}), ledger.PadRow([]string{"", "Buffalo"})}},
	})
	require.NoError(t, err)

	require.Len(t, fake.valueWrites, 1)
	req := fake.valueWrites[0]
	require.Equal(t, "USER_ENTERED", req.ValueInputOption)
	require.Len(t, req.Data, 2)
	require.Equal(t, "'Lines'!A1:R1", req.Data[0].Range)
	require.Equal(t, "'Lines'!A2:R3", req.Data[1].Range)
	require.Equal(t, "Buffalo", req.Data[1].Values[1][1])
}

func TestStore_BatchWriteRejectsOutOfGrid(t *testing.T) {
	t.Parallel()

	fake := &fakeSpreadsheet{tabs: []*sheetsapi.SheetProperties{linesTab(5, 18)}}
	store := newTestStore(t, fake)

	err := store.BatchWrite(context.Background(), []ledger.RangeWrite{
		{TopRow: 2, Values: [][]string{{"ok"}}},
		{TopRow: 5, Values: [][]string{{"away"}, {"home"}}},
	})
	if !errors.Is(err, ledger.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got=%v", err)
	}
	require.Empty(t, fake.valueWrites)
}

func TestStore_DeleteRowsUsesZeroBasedHalfOpenRange(t *testing.T) {
	t.Parallel()

	fake := &fakeSpreadsheet{tabs: []*sheetsapi.SheetProperties{linesTab(20, 18)}}
	store := newTestStore(t, fake)

	require.NoError(t, store.DeleteRows(context.Background(), 4, 5))
	require.Len(t, fake.updates, 1)
	del := fake.updates[0].Requests[0].DeleteDimension
	require.NotNil(t, del)
	require.Equal(t, int64(7), del.Range.SheetId)
	require.Equal(t, "ROWS", del.Range.Dimension)
	require.Equal(t, int64(3), del.Range.StartIndex)
	require.Equal(t, int64(5), del.Range.EndIndex)
}

func TestStore_ResizeOnlyGrows(t *testing.T) {
	t.Parallel()

	fake := &fakeSpreadsheet{tabs: []*sheetsapi.SheetProperties{linesTab(20, 18)}}
	store := newTestStore(t, fake)

	require.NoError(t, store.Resize(context.Background(), ledger.Grid{Rows: 10, Cols: 8}))
	require.Empty(t, fake.updates)

	require.NoError(t, store.Resize(context.Background(), ledger.Grid{Rows: 64, Cols: 8}))
	require.Len(t, fake.updates, 1)
	props := fake.updates[0].Requests[0].UpdateSheetProperties
	require.NotNil(t, props)
	require.Equal(t, int64(64), props.Properties.GridProperties.RowCount)
	require.Equal(t, int64(18), props.Properties.GridProperties.ColumnCount)
}

func TestStore_ReadAllTrimsTrailingBlankRows(t *testing.T) {
	t.Parallel()

	fake := &fakeSpreadsheet{
		tabs: []*sheetsapi.SheetProperties{linesTab(20, 18)},
		values: [][]interface{}{
			{"Logo", "Team"},
			{`=IMAGE("https://a.espncdn.com/mia.png", 1)`, "Miami"},
			{"", ""},
		},
	}
	store := newTestStore(t, fake)

	rows, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, `=IMAGE("https://a.espncdn.com/mia.png", 1)`, rows[1][0])
}

func TestStore_DimensionsAddsMissingTab(t *testing.T) {
	t.Parallel()

	fake := &fakeSpreadsheet{}
	store := newTestStore(t, fake)

	grid, err := store.Dimensions(context.Background())
	require.NoError(t, err)
	require.Equal(t, ledger.Grid{Rows: 30, Cols: ledger.Width}, grid)
	require.Len(t, fake.updates, 1)
	require.NotNil(t, fake.updates[0].Requests[0].AddSheet)
	require.Equal(t, "Lines", fake.updates[0].Requests[0].AddSheet.Properties.Title)
}

func TestReadRoster_UnwrapsLogoFormula(t *testing.T) {
	t.Parallel()

	fake := &fakeSpreadsheet{values: [][]interface{}{
		{"#", "Team", "Abbr", "", "", "Logo"},
		{"1", "Ohio State Buckeyes", "osu", "", "", `=IMAGE("https://a.espncdn.com/osu.png", 1)`},
	}}
	store := newTestStore(t, fake)

	rows, err := ReadRoster(context.Background(), store.svc, "roster-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "https://a.espncdn.com/osu.png", rows[1][5])
}

func TestImageURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: `=IMAGE("https://x/y.png", 1)`, want: "https://x/y.png"},
		{in: `=image("https://x/y.png")`, want: "https://x/y.png"},
		{in: "https://x/raw.png", want: "https://x/raw.png"},
		{in: `=IMAGE(A1)`, want: `=IMAGE(A1)`},
	}
	for _, tc := range tests {
		if got := imageURL(tc.in); got != tc.want {
			t.Fatalf("imageURL(%q): expected %q, got=%q", tc.in, tc.want, got)
		}
	}
}
