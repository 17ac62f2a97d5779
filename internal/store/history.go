package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/kubev2v/inventory-scan-agent/internal/models"
)

// HistoryStore keeps the bounded log of recently recorded scans. The bound is
// enforced on every append: the insert and the eviction of everything older
// than the newest maxItems entries run in one batch.
type HistoryStore struct {
	db       *DB
	ready    readyFunc
	maxItems int
}

func NewHistoryStore(db *DB, ready readyFunc, maxItems int) *HistoryStore {
	if maxItems <= 0 {
		maxItems = DefaultHistoryMaxItems
	}
	return &HistoryStore{db: db, ready: ready, maxItems: maxItems}
}

func (s *HistoryStore) MaxItems() int {
	return s.maxItems
}

// Append adds item as the newest entry. An empty item id is generated.
func (s *HistoryStore) Append(ctx context.Context, item models.ScanHistoryItem) (*models.ScanHistoryItem, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	if item.ID == "" {
		item.ID = newID()
	}
	item.CapturedAt = item.CapturedAt.UTC()

	query, args, err := sq.Insert("scan_history").
		Columns(historyColumns...).
		Values(historyValues(item)...).
		ToSql()
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecBatch(ctx, []Statement{
		{Query: query, Args: args},
		{Query: queryEvictHistory, Args: []any{s.maxItems}},
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns at most limit entries, newest first. A limit <= 0 returns the
// whole log.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]models.ScanHistoryItem, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.maxItems {
		limit = s.maxItems
	}

	query, args, err := sq.Select(historyColumns...).
		From("scan_history").
		OrderBy("seq DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	var items []models.ScanHistoryItem
	err = s.db.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			item, err := historyItemRow(rows)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	}, query, args...)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *HistoryStore) Clear(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, queryClearHistory)
	return err
}
