package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/kubev2v/inventory-scan-agent/internal/models"
	srvErrors "github.com/kubev2v/inventory-scan-agent/pkg/errors"
)

type ScanStore struct {
	db    *DB
	ready readyFunc
	now   func() time.Time
}

func NewScanStore(db *DB, ready readyFunc, now func() time.Time) *ScanStore {
	return &ScanStore{db: db, ready: ready, now: now}
}

// Create stores a new scan. The id is generated here, the record starts
// unsynced and without a remote id.
func (s *ScanStore) Create(ctx context.Context, in models.NewScan) (*models.ScanRecord, error) {
	if len(in.ImageURIs) > models.MaxScanImages {
		return nil, srvErrors.NewValidationError("image_uris",
			fmt.Sprintf("%d images given, at most %d allowed", len(in.ImageURIs), models.MaxScanImages))
	}
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	capturedAt := in.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}

	rec := models.ScanRecord{
		ID:                 newID(),
		CampaignID:         in.CampaignID,
		GroupID:            in.GroupID,
		LocationID:         in.LocationID,
		LocationName:       in.LocationName,
		CodeArticle:        in.CodeArticle,
		ArticleID:          in.ArticleID,
		ArticleDescription: in.ArticleDescription,
		Comment:            in.Comment,
		CustomDescription:  in.CustomDescription,
		Observation:        in.Observation,
		SerialNumber:       in.SerialNumber,
		ConditionState:     in.ConditionState,
		CapturedAt:         capturedAt.UTC(),
		CaptureSource:      in.CaptureSource,
		Status:             in.Status,
		StatusLabel:        in.StatusLabel,
		IsSynced:           false,
		UpdatedAt:          now,
	}
	copy(rec.ImageURIs[:], in.ImageURIs)

	query, args, err := sq.Insert("scans").
		Columns(scanColumns...).
		Values(scanValues(rec)...).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return nil, err
	}

	zap.S().Named("scan_store").Debugw("scan created", "id", rec.ID, "campaign_id", rec.CampaignID, "code_article", rec.CodeArticle)
	return &rec, nil
}

// Get returns the scan with the given id.
func (s *ScanStore) Get(ctx context.Context, id string) (*models.ScanRecord, error) {
	scans, err := s.List(ctx, ByID(id), WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(scans) == 0 {
		return nil, srvErrors.NewScanNotFoundError(id)
	}
	return &scans[0], nil
}

// List returns the scans matching every option, most recently captured first.
func (s *ScanStore) List(ctx context.Context, opts ...ListOption) ([]models.ScanRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	builder := sq.Select(scanColumns...).From("scans")
	for _, opt := range opts {
		builder = opt(builder)
	}
	builder = builder.OrderBy("captured_at DESC", "id DESC")

	return s.list(ctx, builder)
}

// ListPending returns unsynced scans, oldest first, in the order they should
// be submitted. A limit of 0 returns all of them.
func (s *ScanStore) ListPending(ctx context.Context, limit uint64) ([]models.ScanRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	builder := sq.Select(scanColumns...).From("scans")
	builder = BySynced(false)(builder)
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	builder = builder.OrderBy("captured_at ASC", "id ASC")

	return s.list(ctx, builder)
}

func (s *ScanStore) list(ctx context.Context, builder sq.SelectBuilder) ([]models.ScanRecord, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var scans []models.ScanRecord
	err = s.db.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			rec, err := scanRecordRow(rows)
			if err != nil {
				return err
			}
			scans = append(scans, rec)
		}
		return nil
	}, query, args...)
	if err != nil {
		return nil, err
	}
	return scans, nil
}

func (s *ScanStore) Count(ctx context.Context, opts ...ListOption) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	builder := sq.Select("COUNT(*)").From("scans")
	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.Query(ctx, func(rows *sql.Rows) error {
		if rows.Next() {
			return rows.Scan(&count)
		}
		return nil
	}, query, args...)
	return count, err
}

// UpdateDetails changes the operator fields of a scan. The scan always goes
// back to unsynced, even when every value is unchanged.
func (s *ScanStore) UpdateDetails(ctx context.Context, update models.ScanDetailsUpdate) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	builder := sq.Update("scans").
		Set("is_synced", 0).
		Set("updated_at", formatTime(s.now())).
		Where(sq.Eq{"id": update.ID})
	if update.ConditionState != nil {
		builder = builder.Set("condition_state", *update.ConditionState)
	}
	if update.Observation != nil {
		builder = builder.Set("observation", *update.Observation)
	}
	if update.SerialNumber != nil {
		builder = builder.Set("serial_number", *update.SerialNumber)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	res, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return srvErrors.NewScanNotFoundError(update.ID)
	}
	return nil
}

// MarkSynced records remote acknowledgements in one transaction and returns
// how many scans were updated. Unknown local ids are skipped. Nothing is
// written when acks is empty.
func (s *ScanStore) MarkSynced(ctx context.Context, acks []models.SyncAck) (int64, error) {
	if len(acks) == 0 {
		return 0, nil
	}
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	now := formatTime(s.now())
	stmts := make([]Statement, 0, len(acks))
	for _, ack := range acks {
		stmts = append(stmts, Statement{
			Query: queryMarkScanSynced,
			Args:  []any{ack.RemoteID, now, ack.LocalID},
		})
	}

	results, err := s.db.ExecBatch(ctx, stmts)
	if err != nil {
		return 0, err
	}

	var updated int64
	for _, r := range results {
		updated += r.RowsAffected
	}

	zap.S().Named("scan_store").Infow("scans marked synced", "acks", len(acks), "updated", updated)
	return updated, nil
}

// Stats counts synced and pending scans per campaign.
func (s *ScanStore) Stats(ctx context.Context) ([]models.ScanStats, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var stats []models.ScanStats
	err := s.db.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			var st models.ScanStats
			if err := rows.Scan(&st.CampaignID, &st.Total, &st.Synced); err != nil {
				return err
			}
			st.Pending = st.Total - st.Synced
			stats = append(stats, st)
		}
		return nil
	}, queryScanStats)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

type ListOption func(sq.SelectBuilder) sq.SelectBuilder

func ByID(id string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"id": id})
	}
}

func ByCampaign(campaignID string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if campaignID == "" {
			return b
		}
		return b.Where(sq.Eq{"campaign_id": campaignID})
	}
}

func ByGroup(groupID string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if groupID == "" {
			return b
		}
		return b.Where(sq.Eq{"group_id": groupID})
	}
}

func ByLocation(locationID string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if locationID == "" {
			return b
		}
		return b.Where(sq.Eq{"location_id": locationID})
	}
}

func ByCodeArticle(code string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if code == "" {
			return b
		}
		return b.Where(sq.Eq{"code_article": code})
	}
}

func BySynced(synced bool) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"is_synced": boolToInt(synced)})
	}
}

func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if limit == 0 {
			return b
		}
		return b.Limit(limit)
	}
}

// FilterOptions turns a ScanFilter into list options.
func FilterOptions(f models.ScanFilter) []ListOption {
	opts := []ListOption{
		ByCampaign(f.CampaignID),
		ByGroup(f.GroupID),
		ByLocation(f.LocationID),
	}
	if f.IsSynced != nil {
		opts = append(opts, BySynced(*f.IsSynced))
	}
	if f.Limit > 0 {
		opts = append(opts, WithLimit(f.Limit))
	}
	return opts
}
