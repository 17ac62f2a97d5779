package store

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/kubev2v/inventory-scan-agent/internal/models"
	srvErrors "github.com/kubev2v/inventory-scan-agent/pkg/errors"
)

// CatalogStore caches the reference data downloaded from the remote system:
// campaigns, their groups, locations and articles. Every replace runs as one
// batch, so readers see either the old or the new catalog.
type CatalogStore struct {
	db    *DB
	ready readyFunc
	now   func() time.Time
}

func NewCatalogStore(db *DB, ready readyFunc, now func() time.Time) *CatalogStore {
	return &CatalogStore{db: db, ready: ready, now: now}
}

func (s *CatalogStore) ReplaceCampaigns(ctx context.Context, campaigns []models.Campaign) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	now := formatTime(s.now())
	stmts := []Statement{{Query: queryDeleteCampaigns}}
	for _, c := range campaigns {
		stmts = append(stmts, Statement{
			Query: queryInsertCampaign,
			Args:  []any{c.ID, c.Name, formatTimePtr(c.StartsAt), formatTimePtr(c.EndsAt), now},
		})
	}

	if _, err := s.db.ExecBatch(ctx, stmts); err != nil {
		return err
	}
	zap.S().Named("catalog_store").Infow("campaigns replaced", "count", len(campaigns))
	return nil
}

func (s *CatalogStore) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var campaigns []models.Campaign
	err := s.db.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				c        models.Campaign
				startsAt sql.NullString
				endsAt   sql.NullString
			)
			if err := rows.Scan(&c.ID, &c.Name, &startsAt, &endsAt); err != nil {
				return err
			}
			var err error
			if c.StartsAt, err = parseTimePtr(startsAt); err != nil {
				return err
			}
			if c.EndsAt, err = parseTimePtr(endsAt); err != nil {
				return err
			}
			campaigns = append(campaigns, c)
		}
		return nil
	}, queryListCampaigns)
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

// ReplaceGroups replaces the groups of one campaign together with their
// location assignments. Groups of other campaigns are untouched.
func (s *CatalogStore) ReplaceGroups(ctx context.Context, campaignID string, groups []models.Group) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	now := formatTime(s.now())
	stmts := []Statement{
		{Query: queryDeleteGroupLocations, Args: []any{campaignID}},
		{Query: queryDeleteGroups, Args: []any{campaignID}},
	}
	for _, g := range groups {
		stmts = append(stmts, Statement{
			Query: queryInsertGroup,
			Args:  []any{g.ID, campaignID, g.Name, now},
		})
		for _, locationID := range g.LocationIDs {
			stmts = append(stmts, Statement{
				Query: queryInsertGroupLocation,
				Args:  []any{g.ID, locationID},
			})
		}
	}

	if _, err := s.db.ExecBatch(ctx, stmts); err != nil {
		return err
	}
	zap.S().Named("catalog_store").Infow("groups replaced", "campaign_id", campaignID, "count", len(groups))
	return nil
}

func (s *CatalogStore) ListGroups(ctx context.Context, campaignID string) ([]models.Group, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var groups []models.Group
	err := s.db.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				g          models.Group
				locationID sql.NullString
			)
			if err := rows.Scan(&g.ID, &g.CampaignID, &g.Name, &locationID); err != nil {
				return err
			}
			if n := len(groups); n == 0 || groups[n-1].ID != g.ID {
				groups = append(groups, g)
			}
			if locationID.Valid {
				last := &groups[len(groups)-1]
				last.LocationIDs = append(last.LocationIDs, locationID.String)
			}
		}
		return nil
	}, queryListGroups, campaignID)
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *CatalogStore) UpsertLocations(ctx context.Context, locations []models.Location) error {
	if len(locations) == 0 {
		return nil
	}
	if err := s.ready(ctx); err != nil {
		return err
	}

	now := formatTime(s.now())
	stmts := make([]Statement, 0, len(locations))
	for _, l := range locations {
		stmts = append(stmts, Statement{
			Query: queryUpsertLocation,
			Args:  []any{l.ID, l.Name, l.Code, now},
		})
	}

	_, err := s.db.ExecBatch(ctx, stmts)
	return err
}

// ListLocations returns every cached location, or only those assigned to
// groupID when it is set.
func (s *CatalogStore) ListLocations(ctx context.Context, groupID string) ([]models.Location, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	builder := sq.Select("l.id", "l.name", "l.code").From("locations l")
	if groupID != "" {
		builder = builder.
			Join("group_locations gl ON gl.location_id = l.id").
			Where(sq.Eq{"gl.group_id": groupID})
	}
	query, args, err := builder.OrderBy("l.name", "l.id").ToSql()
	if err != nil {
		return nil, err
	}

	var locations []models.Location
	err = s.db.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				l    models.Location
				code sql.NullString
			)
			if err := rows.Scan(&l.ID, &l.Name, &code); err != nil {
				return err
			}
			l.Code = code.String
			locations = append(locations, l)
		}
		return nil
	}, query, args...)
	if err != nil {
		return nil, err
	}
	return locations, nil
}

// ReplaceArticles replaces the whole article catalog.
func (s *CatalogStore) ReplaceArticles(ctx context.Context, articles []models.Article) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	now := formatTime(s.now())
	stmts := []Statement{
		{Query: queryDeleteArticleLocations},
		{Query: queryDeleteArticles},
	}
	for _, a := range articles {
		stmts = append(stmts, Statement{
			Query: queryInsertArticle,
			Args:  []any{a.ID, a.Code, a.Barcode, a.Description, now},
		})
		for _, locationID := range a.LocationIDs {
			stmts = append(stmts, Statement{
				Query: queryInsertArticleLocation,
				Args:  []any{a.ID, locationID},
			})
		}
	}

	if _, err := s.db.ExecBatch(ctx, stmts); err != nil {
		return err
	}
	zap.S().Named("catalog_store").Infow("articles replaced", "count", len(articles))
	return nil
}

// FindArticleByCode looks an article up by its code, then by its barcode.
func (s *CatalogStore) FindArticleByCode(ctx context.Context, code string) (*models.Article, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var article *models.Article
	err := s.db.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				a          models.Article
				barcode    sql.NullString
				locationID sql.NullString
			)
			if err := rows.Scan(&a.ID, &a.Code, &barcode, &a.Description, &locationID); err != nil {
				return err
			}
			if article == nil {
				a.Barcode = barcode.String
				article = &a
			}
			if locationID.Valid {
				article.LocationIDs = append(article.LocationIDs, locationID.String)
			}
		}
		return nil
	}, queryFindArticle, code, code, code)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, srvErrors.NewResourceNotFoundError("article", code)
	}
	return article, nil
}
