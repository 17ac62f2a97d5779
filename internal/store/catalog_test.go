package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/inventory-scan-agent/internal/models"
	"github.com/kubev2v/inventory-scan-agent/internal/store"
	srvErrors "github.com/kubev2v/inventory-scan-agent/pkg/errors"
)

var _ = Describe("CatalogStore", func() {
	var (
		ctx context.Context
		db  *store.DB
		s   *store.Store
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())

		s = store.NewStore(db)
	})

	AfterEach(func() {
		if s != nil {
			_ = s.Close()
		}
	})

	Context("Campaigns", func() {
		It("should replace the campaign list", func() {
			starts := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
			err := s.Catalog().ReplaceCampaigns(ctx, []models.Campaign{
				{ID: "c1", Name: "Spring count", StartsAt: &starts},
				{ID: "c2", Name: "Autumn count"},
			})
			Expect(err).NotTo(HaveOccurred())

			err = s.Catalog().ReplaceCampaigns(ctx, []models.Campaign{
				{ID: "c3", Name: "Annual audit", StartsAt: &starts},
			})
			Expect(err).NotTo(HaveOccurred())

			campaigns, err := s.Catalog().ListCampaigns(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(campaigns).To(HaveLen(1))
			Expect(campaigns[0].ID).To(Equal("c3"))
			Expect(campaigns[0].StartsAt).To(HaveValue(Equal(starts)))
			Expect(campaigns[0].EndsAt).To(BeNil())
		})

		// Given a stored campaign list
		// When a replacement contains a duplicate id
		// Then the batch fails and the previous list is intact
		It("should keep the previous list when the replacement fails", func() {
			Expect(s.Catalog().ReplaceCampaigns(ctx, []models.Campaign{{ID: "c1", Name: "Spring count"}})).To(Succeed())

			err := s.Catalog().ReplaceCampaigns(ctx, []models.Campaign{
				{ID: "c2", Name: "A"},
				{ID: "c2", Name: "B"},
			})
			Expect(err).To(HaveOccurred())
			Expect(srvErrors.IsBatchError(err)).To(BeTrue())

			campaigns, err := s.Catalog().ListCampaigns(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(campaigns).To(HaveLen(1))
			Expect(campaigns[0].ID).To(Equal("c1"))
		})
	})

	Context("Groups and locations", func() {
		BeforeEach(func() {
			Expect(s.Catalog().UpsertLocations(ctx, []models.Location{
				{ID: "l1", Name: "Dock A", Code: "DA"},
				{ID: "l2", Name: "Dock B"},
				{ID: "l3", Name: "Archive"},
			})).To(Succeed())

			Expect(s.Catalog().ReplaceGroups(ctx, "c1", []models.Group{
				{ID: "g1", Name: "North wing", LocationIDs: []string{"l1", "l2"}},
				{ID: "g2", Name: "Basement", LocationIDs: []string{"l3"}},
			})).To(Succeed())
			Expect(s.Catalog().ReplaceGroups(ctx, "c2", []models.Group{
				{ID: "g9", Name: "Other campaign", LocationIDs: []string{"l1"}},
			})).To(Succeed())
		})

		It("should list groups of one campaign with their locations", func() {
			groups, err := s.Catalog().ListGroups(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(groups).To(Equal([]models.Group{
				{ID: "g2", CampaignID: "c1", Name: "Basement", LocationIDs: []string{"l3"}},
				{ID: "g1", CampaignID: "c1", Name: "North wing", LocationIDs: []string{"l1", "l2"}},
			}))
		})

		It("should replace only the groups of the given campaign", func() {
			Expect(s.Catalog().ReplaceGroups(ctx, "c1", []models.Group{
				{ID: "g3", Name: "Roof"},
			})).To(Succeed())

			groups, err := s.Catalog().ListGroups(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(groups).To(HaveLen(1))
			Expect(groups[0].ID).To(Equal("g3"))
			Expect(groups[0].LocationIDs).To(BeEmpty())

			other, err := s.Catalog().ListGroups(ctx, "c2")
			Expect(err).NotTo(HaveOccurred())
			Expect(other).To(HaveLen(1))
			Expect(other[0].LocationIDs).To(Equal([]string{"l1"}))
		})

		It("should list locations of a group", func() {
			locations, err := s.Catalog().ListLocations(ctx, "g1")
			Expect(err).NotTo(HaveOccurred())
			Expect(locations).To(Equal([]models.Location{
				{ID: "l1", Name: "Dock A", Code: "DA"},
				{ID: "l2", Name: "Dock B"},
			}))

			all, err := s.Catalog().ListLocations(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
		})

		It("should update an existing location", func() {
			Expect(s.Catalog().UpsertLocations(ctx, []models.Location{{ID: "l2", Name: "Dock B (east)"}})).To(Succeed())

			all, err := s.Catalog().ListLocations(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(ContainElement(models.Location{ID: "l2", Name: "Dock B (east)"}))
			Expect(all).To(HaveLen(3))
		})
	})

	Context("Articles", func() {
		BeforeEach(func() {
			Expect(s.Catalog().ReplaceArticles(ctx, []models.Article{
				{ID: "a1", Code: "X123", Barcode: "3760001", Description: "Office chair", LocationIDs: []string{"l1", "l2"}},
				{ID: "a2", Code: "Y456", Description: "Desk"},
			})).To(Succeed())
		})

		It("should find an article by code", func() {
			article, err := s.Catalog().FindArticleByCode(ctx, "X123")
			Expect(err).NotTo(HaveOccurred())
			Expect(article.ID).To(Equal("a1"))
			Expect(article.LocationIDs).To(Equal([]string{"l1", "l2"}))
		})

		It("should find an article by barcode", func() {
			article, err := s.Catalog().FindArticleByCode(ctx, "3760001")
			Expect(err).NotTo(HaveOccurred())
			Expect(article.Code).To(Equal("X123"))
		})

		It("should return ResourceNotFoundError for an unknown code", func() {
			_, err := s.Catalog().FindArticleByCode(ctx, "nope")
			Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
		})

		It("should drop articles missing from the replacement", func() {
			Expect(s.Catalog().ReplaceArticles(ctx, []models.Article{{ID: "a2", Code: "Y456", Description: "Desk"}})).To(Succeed())

			_, err := s.Catalog().FindArticleByCode(ctx, "X123")
			Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
			Expect(countRows(ctx, db, `SELECT COUNT(*) FROM article_locations`)).To(Equal(0))
		})
	})
})
