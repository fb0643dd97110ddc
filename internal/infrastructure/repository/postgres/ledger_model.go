package postgres

import (
	"time"

	"github.com/lib/pq"
)

const (
	tableLedgerSheets = "ledger_sheets"
	tableLedgerRows   = "ledger_rows"
	tablePurgeArchive = "ledger_purge_archive"
)

type ledgerSheetTableModel struct {
	Title    string `db:"title"`
	RowCount int    `db:"row_count"`
	ColCount int    `db:"col_count"`
}

type ledgerRowTableModel struct {
	RowNum int            `db:"row_num"`
	Cells  pq.StringArray `db:"cells"`
}

type purgeArchiveInsertModel struct {
	PurgedAt time.Time `db:"purged_at"`
	League   string    `db:"league"`
	WeekTag  string    `db:"week_tag"`
	GameKey  string    `db:"game_key"`
	Payload  string    `db:"payload"`
}
