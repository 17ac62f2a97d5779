package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/kubev2v/inventory-scan-agent/internal/models"
	"github.com/kubev2v/inventory-scan-agent/internal/store"
	srvErrors "github.com/kubev2v/inventory-scan-agent/pkg/errors"
)

type ScanService struct {
	store *store.Store
}

func NewScanService(st *store.Store) *ScanService {
	return &ScanService{store: st}
}

type ScanListResult struct {
	Scans []models.ScanRecord
	Total int
}

// SyncOutcome is the result of applying one round of remote answers.
type SyncOutcome struct {
	Updated  int64
	Rejected []models.SubmissionResult
}

// Record stores a captured scan and adds it to the history log. The scan is
// the record of truth: a history failure is logged and not returned.
func (s *ScanService) Record(ctx context.Context, in models.NewScan) (*models.ScanRecord, error) {
	if err := s.store.EnsureReady(ctx); err != nil {
		return nil, err
	}

	if in.ArticleID == nil && in.CodeArticle != "" {
		article, err := s.store.Catalog().FindArticleByCode(ctx, in.CodeArticle)
		switch {
		case err == nil:
			in.ArticleID = &article.ID
			if in.ArticleDescription == "" {
				in.ArticleDescription = article.Description
			}
		case srvErrors.IsResourceNotFoundError(err):
		default:
			return nil, err
		}
	}

	rec, err := s.store.Scans().Create(ctx, in)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.History().Append(ctx, models.NewHistoryItem(*rec)); err != nil {
		zap.S().Named("scan_service").Warnw("failed to append scan to history", "scan_id", rec.ID, "error", err)
	}

	zap.S().Named("scan_service").Infow("scan recorded", "id", rec.ID, "campaign_id", rec.CampaignID, "code_article", rec.CodeArticle, "matched", rec.ArticleID != nil)
	return rec, nil
}

func (s *ScanService) List(ctx context.Context, filter models.ScanFilter) (*ScanListResult, error) {
	scans, err := s.store.Scans().List(ctx, store.FilterOptions(filter)...)
	if err != nil {
		return nil, err
	}

	// total without the limit
	countFilter := filter
	countFilter.Limit = 0
	total, err := s.store.Scans().Count(ctx, store.FilterOptions(countFilter)...)
	if err != nil {
		return nil, err
	}

	return &ScanListResult{
		Scans: scans,
		Total: total,
	}, nil
}

func (s *ScanService) Get(ctx context.Context, id string) (*models.ScanRecord, error) {
	return s.store.Scans().Get(ctx, id)
}

// EditDetails updates the operator fields and returns the updated scan.
func (s *ScanService) EditDetails(ctx context.Context, update models.ScanDetailsUpdate) (*models.ScanRecord, error) {
	if err := s.store.Scans().UpdateDetails(ctx, update); err != nil {
		return nil, err
	}
	return s.store.Scans().Get(ctx, update.ID)
}

// Pending returns the scans waiting for submission, oldest first.
func (s *ScanService) Pending(ctx context.Context, limit uint64) ([]models.ScanRecord, error) {
	return s.store.Scans().ListPending(ctx, limit)
}

// ApplySyncResults marks the accepted results as synced in one batch. Rejected
// results are logged and handed back untouched.
func (s *ScanService) ApplySyncResults(ctx context.Context, results []models.SubmissionResult) (*SyncOutcome, error) {
	log := zap.S().Named("scan_service")

	acks := make([]models.SyncAck, 0, len(results))
	outcome := &SyncOutcome{}
	for _, r := range results {
		if r.Accepted() {
			acks = append(acks, models.SyncAck{LocalID: r.LocalID, RemoteID: r.RemoteID})
			continue
		}
		log.Warnw("scan rejected by remote", "local_id", r.LocalID, "success", r.Success, "errors", r.Errors)
		outcome.Rejected = append(outcome.Rejected, r)
	}

	updated, err := s.store.Scans().MarkSynced(ctx, acks)
	if err != nil {
		return nil, err
	}
	outcome.Updated = updated

	log.Infow("sync results applied", "accepted", len(acks), "updated", updated, "rejected", len(outcome.Rejected))
	return outcome, nil
}

func (s *ScanService) Stats(ctx context.Context) ([]models.ScanStats, error) {
	return s.store.Scans().Stats(ctx)
}
