package sheets

import (
	"context"
	"strings"

	crerr "github.com/cockroachdb/errors"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// ReadRoster returns columns A..F of the first tab of the roster spreadsheet,
// header row included. Formulas are rendered so logo links stay readable.
func ReadRoster(ctx context.Context, svc *sheetsapi.Service, spreadsheetID string) ([][]string, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, nil
	}

	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, "A1:F").
		ValueRenderOption(valueRenderFormula).
		Context(ctx).
		Do()
	if err != nil {
		return nil, crerr.Wrapf(err, "read roster %s", spreadsheetID)
	}
	rows := stringRows(resp.Values)
	for i, row := range rows {
		if len(row) > 5 {
			row[5] = imageURL(row[5])
		}
		rows[i] = row
	}
	return rows, nil
}

// imageURL unwraps =IMAGE("url", ...) into url; other values pass through.
func imageURL(v string) string {
	v = strings.TrimSpace(v)
	upper := strings.ToUpper(v)
	if !strings.HasPrefix(upper, "=IMAGE(") {
		return v
	}
	rest := v[len("=IMAGE("):]
	start := strings.IndexByte(rest, '"')
	if start < 0 {
		return v
	}
	end := strings.IndexByte(rest[start+1:], '"')
	if end < 0 {
		return v
	}
	return rest[start+1 : start+1+end]
}
