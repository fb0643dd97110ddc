package postgres

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	qb "github.com/riskibarqy/lines-ledger/internal/platform/querybuilder"
	"github.com/riskibarqy/lines-ledger/internal/usecase"
)

// ArchiveRepository stores one JSONB row per purged entry. A batch is a single
// multi-row INSERT.
type ArchiveRepository struct {
	db *sqlx.DB
}

func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

func (r *ArchiveRepository) Archive(ctx context.Context, batch usecase.ArchiveBatch) error {
	if len(batch.Entries) == 0 {
		return nil
	}

	rows := make([]purgeArchiveInsertModel, 0, len(batch.Entries))
	for _, entry := range batch.Entries {
		payload, err := sonic.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal archived entry %s: %w", entry.GameKey, err)
		}
		rows = append(rows, purgeArchiveInsertModel{
			PurgedAt: batch.PurgedAt,
			League:   entry.League,
			WeekTag:  entry.WeekTag,
			GameKey:  entry.GameKey,
			Payload:  string(payload),
		})
	}

	query, args, err := qb.InsertModels(tablePurgeArchive, rows, "")
	if err != nil {
		return fmt.Errorf("build archive insert query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %d archived entries: %w", len(rows), err)
	}
	return nil
}
