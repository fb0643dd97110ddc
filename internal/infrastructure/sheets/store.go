package sheets

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	valueInputUserEntered = "USER_ENTERED"
	valueRenderFormula    = "FORMULA"
	dimensionRows         = "ROWS"
)

type Config struct {
	SpreadsheetID   string
	Title           string
	CredentialsFile string
	// Endpoint and HTTPClient override the Google defaults, mostly for tests.
	Endpoint   string
	HTTPClient *http.Client
	// Initial is the grid used when the tab has to be created.
	Initial ledger.Grid
}

func NewService(ctx context.Context, cfg Config) (*sheetsapi.Service, error) {
	opts := make([]option.ClientOption, 0, 3)
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	} else if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if strings.TrimSpace(cfg.Endpoint) != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, crerr.Wrap(err, "create sheets service")
	}
	return svc, nil
}

// Store is a ledger.Store over one tab of a Google spreadsheet.
type Store struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	title         string
	initial       ledger.Grid

	mu      sync.Mutex
	sheetID *int64
}

func NewStore(svc *sheetsapi.Service, cfg Config) (*Store, error) {
	if svc == nil {
		return nil, fmt.Errorf("sheets service is required")
	}
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	title := strings.TrimSpace(cfg.Title)
	if title == "" {
		return nil, fmt.Errorf("sheet title is required")
	}
	initial := cfg.Initial
	if initial.Rows <= ledger.HeaderRow || initial.Cols <= 0 {
		initial = ledger.Grid{Rows: 200, Cols: ledger.Width}
	}
	return &Store{svc: svc, spreadsheetID: cfg.SpreadsheetID, title: title, initial: initial}, nil
}

func (s *Store) ReadAll(ctx context.Context) ([][]string, error) {
	if _, err := s.ensureTab(ctx); err != nil {
		return nil, err
	}
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, quoteTitle(s.title)+"!A1:"+ledger.ColumnLetter(ledger.Width-1)).
		ValueRenderOption(valueRenderFormula).
		Context(ctx).
		Do()
	if err != nil {
		return nil, crerr.Wrapf(err, "read %s", s.title)
	}
	return trimTrailingBlank(stringRows(resp.Values)), nil
}

func (s *Store) Dimensions(ctx context.Context) (ledger.Grid, error) {
	props, err := s.properties(ctx)
	if err != nil {
		return ledger.Grid{}, err
	}
	if props == nil {
		if _, err := s.ensureTab(ctx); err != nil {
			return ledger.Grid{}, err
		}
		return s.initial, nil
	}
	return gridOf(props), nil
}

func (s *Store) Resize(ctx context.Context, grid ledger.Grid) error {
	current, err := s.Dimensions(ctx)
	if err != nil {
		return err
	}
	want := current
	if grid.Rows > want.Rows {
		want.Rows = grid.Rows
	}
	if grid.Cols > want.Cols {
		want.Cols = grid.Cols
	}
	if want == current {
		return nil
	}

	id, err := s.ensureTab(ctx)
	if err != nil {
		return err
	}
	return s.batchUpdate(ctx, &sheetsapi.Request{
		UpdateSheetProperties: &sheetsapi.UpdateSheetPropertiesRequest{
			Properties: &sheetsapi.SheetProperties{
				SheetId:         id,
				GridProperties:  &sheetsapi.GridProperties{RowCount: int64(want.Rows), ColumnCount: int64(want.Cols)},
				ForceSendFields: []string{"SheetId"},
			},
			Fields: "gridProperties(rowCount,columnCount)",
		},
	}, "resize %s to %dx%d", s.title, want.Rows, want.Cols)
}

func (s *Store) DeleteRows(ctx context.Context, start, end int) error {
	grid, err := s.Dimensions(ctx)
	if err != nil {
		return err
	}
	if start < 1 || end < start || end > grid.Rows {
		return fmt.Errorf("%w: delete rows %d..%d of %d", ledger.ErrOutOfBounds, start, end, grid.Rows)
	}
	if grid.Rows-(end-start+1) <= ledger.HeaderRow {
		return fmt.Errorf("delete rows %d..%d would leave no rows below the header", start, end)
	}

	id, err := s.ensureTab(ctx)
	if err != nil {
		return err
	}
	return s.batchUpdate(ctx, &sheetsapi.Request{
		DeleteDimension: &sheetsapi.DeleteDimensionRequest{
			Range: &sheetsapi.DimensionRange{
				SheetId:         id,
				Dimension:       dimensionRows,
				StartIndex:      int64(start - 1),
				EndIndex:        int64(end),
				ForceSendFields: []string{"SheetId", "StartIndex"},
			},
		},
	}, "delete rows %d..%d", start, end)
}

// BatchWrite sends every range in one values.batchUpdate call.
func (s *Store) BatchWrite(ctx context.Context, writes []ledger.RangeWrite) error {
	if len(writes) == 0 {
		return nil
	}
	grid, err := s.Dimensions(ctx)
	if err != nil {
		return err
	}

	data := make([]*sheetsapi.ValueRange, 0, len(writes))
	for _, w := range writes {
		if w.TopRow < 1 || w.BottomRow() > grid.Rows || w.Width() > grid.Cols {
			return fmt.Errorf("%w: %s in %dx%d grid", ledger.ErrOutOfBounds, w.A1(s.title), grid.Rows, grid.Cols)
		}
		if len(w.Values) == 0 {
			continue
		}
		data = append(data, &sheetsapi.ValueRange{
			Range:  w.A1(quoteTitle(s.title)),
			Values: interfaceRows(w.Values),
		})
	}
	if len(data) == 0 {
		return nil
	}

	_, err = s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: valueInputUserEntered,
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return crerr.Wrapf(err, "batch write %d ranges to %s", len(data), s.title)
	}
	return nil
}

func (s *Store) batchUpdate(ctx context.Context, req *sheetsapi.Request, format string, args ...any) error {
	_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{req},
	}).Context(ctx).Do()
	if err != nil {
		return crerr.Wrapf(err, format, args...)
	}
	return nil
}

// properties returns nil when the tab does not exist yet.
func (s *Store) properties(ctx context.Context) (*sheetsapi.SheetProperties, error) {
	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets(properties(sheetId,title,gridProperties(rowCount,columnCount)))").
		Context(ctx).
		Do()
	if err != nil {
		return nil, crerr.Wrapf(err, "get spreadsheet %s", s.spreadsheetID)
	}
	for _, sheet := range resp.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == s.title {
			s.rememberSheetID(sheet.Properties.SheetId)
			return sheet.Properties, nil
		}
	}
	return nil, nil
}

// ensureTab returns the numeric id of the tab, adding it when missing.
func (s *Store) ensureTab(ctx context.Context) (int64, error) {
	s.mu.Lock()
	if s.sheetID != nil {
		id := *s.sheetID
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	props, err := s.properties(ctx)
	if err != nil {
		return 0, err
	}
	if props != nil {
		return props.SheetId, nil
	}

	resp, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{
					Title: s.title,
					GridProperties: &sheetsapi.GridProperties{
						RowCount:    int64(s.initial.Rows),
						ColumnCount: int64(s.initial.Cols),
					},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, crerr.Wrapf(err, "add sheet %s", s.title)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			s.rememberSheetID(reply.AddSheet.Properties.SheetId)
			return reply.AddSheet.Properties.SheetId, nil
		}
	}
	return 0, crerr.Newf("add sheet %s returned no properties", s.title)
}

func (s *Store) rememberSheetID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheetID = &id
}

func gridOf(props *sheetsapi.SheetProperties) ledger.Grid {
	if props.GridProperties == nil {
		return ledger.Grid{}
	}
	return ledger.Grid{Rows: int(props.GridProperties.RowCount), Cols: int(props.GridProperties.ColumnCount)}
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func stringRows(values [][]interface{}) [][]string {
	out := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			if v == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, fmt.Sprint(v))
		}
		out = append(out, cells)
	}
	return out
}

func interfaceRows(values [][]string) [][]interface{} {
	out := make([][]interface{}, 0, len(values))
	for _, row := range values {
		cells := make([]interface{}, 0, len(row))
		for _, v := range row {
			cells = append(cells, v)
		}
		out = append(out, cells)
	}
	return out
}

func trimTrailingBlank(rows [][]string) [][]string {
	last := len(rows)
	for last > 0 && blankRow(rows[last-1]) {
		last--
	}
	return rows[:last]
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
