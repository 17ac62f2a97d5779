package store_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/inventory-scan-agent/internal/models"
	"github.com/kubev2v/inventory-scan-agent/internal/store"
)

var _ = Describe("HistoryStore", func() {
	const bound = 5

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

		s = store.NewStore(db, store.WithClock(newFakeClock().Now), store.WithHistoryMaxItems(bound))
	})

	AfterEach(func() {
		if s != nil {
			_ = s.Close()
		}
	})

	appendN := func(n int) {
		for i := 0; i < n; i++ {
			_, err := s.History().Append(ctx, models.ScanHistoryItem{
				CodeArticle: fmt.Sprintf("A-%d", i),
				Status:      models.ScanStatusScanned,
			})
			Expect(err).NotTo(HaveOccurred())
		}
	}

	It("should fall back to the default bound", func() {
		other := store.NewStore(db, store.WithHistoryMaxItems(0))
		Expect(other.History().MaxItems()).To(Equal(store.DefaultHistoryMaxItems))
		Expect(s.History().MaxItems()).To(Equal(bound))
	})

	It("should generate an id and keep the projection fields", func() {
		scanID := "scan-1"
		item, err := s.History().Append(ctx, models.ScanHistoryItem{
			ScanID:         &scanID,
			CodeArticle:    "X123",
			Description:    "Office chair",
			ImageURI:       "file:///chair.jpg",
			Status:         models.ScanStatusFound,
			StatusLabel:    "Trouvé",
			LocationName:   "Dock A",
			Observation:    "dent",
			SerialNumber:   "SN-9",
			ConditionState: "used",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(item.ID).NotTo(BeEmpty())

		items, err := s.History().List(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(1))
		Expect(items[0].ID).To(Equal(item.ID))
		Expect(items[0].ScanID).To(HaveValue(Equal("scan-1")))
		Expect(items[0].Description).To(Equal("Office chair"))
		Expect(items[0].StatusLabel).To(Equal("Trouvé"))
		Expect(items[0].ConditionState).To(Equal("used"))
	})

	// Given a history bounded to N entries
	// When N+1 entries are appended
	// Then exactly N remain, newest first, and the oldest is gone from storage
	It("should evict the oldest entry at write time", func() {
		// Act
		appendN(bound + 1)

		// Assert
		items, err := s.History().List(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(bound))
		Expect(items[0].CodeArticle).To(Equal(fmt.Sprintf("A-%d", bound)))
		Expect(items[bound-1].CodeArticle).To(Equal("A-1"))

		Expect(countRows(ctx, db, `SELECT COUNT(*) FROM scan_history`)).To(Equal(bound))
		Expect(countRows(ctx, db, `SELECT COUNT(*) FROM scan_history WHERE code_article = 'A-0'`)).To(Equal(0))
	})

	It("should apply the list limit", func() {
		appendN(4)

		items, err := s.History().List(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(2))
		Expect(items[0].CodeArticle).To(Equal("A-3"))
	})

	It("should clear the log", func() {
		appendN(3)

		Expect(s.History().Clear(ctx)).To(Succeed())

		items, err := s.History().List(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(BeEmpty())
	})
})
