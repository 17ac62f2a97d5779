package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kubev2v/inventory-scan-agent/internal/models"
	"github.com/kubev2v/inventory-scan-agent/internal/store"
	"github.com/kubev2v/inventory-scan-agent/internal/store/migrations"
	srvErrors "github.com/kubev2v/inventory-scan-agent/pkg/errors"
)

var _ = Describe("Store", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("EnsureReady", func() {
		var s *store.Store

		BeforeEach(func() {
			db, err := store.NewDB(":memory:")
			Expect(err).NotTo(HaveOccurred())
			s = store.NewStore(db)
		})

		AfterEach(func() {
			_ = s.Close()
		})

		// Given many callers reaching the store before it was initialized
		// When they all call EnsureReady at once
		// Then the schema is created exactly once
		It("should share one initialization between concurrent first callers", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 20)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- s.EnsureReady(ctx)
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(store.SchemaRuns(s)).To(Equal(1))
			Expect(s.SchemaReport().CreatedTables).To(ConsistOf(migrations.TableNames()))
		})

		It("should not run again once ready", func() {
			Expect(s.EnsureReady(ctx)).To(Succeed())
			Expect(s.EnsureReady(ctx)).To(Succeed())

			_, err := s.Scans().List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.SchemaRuns(s)).To(Equal(1))
		})
	})

	Context("Initialization failure", func() {
		// Given a store whose database directory is missing
		// When the first operation fails and the directory appears
		// Then the next operation initializes the schema and succeeds
		It("should retry initialization after a failure", func() {
			dir := filepath.Join(GinkgoT().TempDir(), "data")
			db, err := store.NewDB(filepath.Join(dir, "scans.db"))
			Expect(err).NotTo(HaveOccurred())
			s := store.NewStore(db)
			defer s.Close()

			_, err = s.Scans().Create(ctx, models.NewScan{CampaignID: "c1", CodeArticle: "A-1"})
			Expect(err).To(HaveOccurred())
			Expect(srvErrors.IsOpenError(err)).To(BeTrue())

			Expect(os.MkdirAll(dir, 0o755)).To(Succeed())

			rec, err := s.Scans().Create(ctx, models.NewScan{CampaignID: "c1", CodeArticle: "A-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.ID).NotTo(BeEmpty())
			Expect(store.SchemaRuns(s)).To(Equal(2))
		})
	})

	Context("Incompatible table", func() {
		// Given a database whose history table lacks its sequence column
		// When the store is used twice
		// Then both calls fail and the blocking table is logged each time
		It("should fail every call and log the blocking table", func() {
			// Arrange
			core, logs := observer.New(zap.ErrorLevel)
			restore := zap.ReplaceGlobals(zap.New(core))
			defer restore()

			db, err := store.NewDB(":memory:")
			Expect(err).NotTo(HaveOccurred())
			s := store.NewStore(db)
			defer s.Close()
			_, err = db.Exec(ctx, `CREATE TABLE scan_history (id TEXT PRIMARY KEY)`)
			Expect(err).NotTo(HaveOccurred())

			// Act
			first := s.EnsureReady(ctx)
			second := s.EnsureReady(ctx)

			// Assert
			for _, err := range []error{first, second} {
				var keyErr *migrations.KeyColumnError
				Expect(errors.As(err, &keyErr)).To(BeTrue())
				Expect(keyErr.Table).To(Equal("scan_history"))
			}
			Expect(store.SchemaRuns(s)).To(Equal(2))

			entries := logs.FilterMessage("schema initialization blocked by an incompatible table").All()
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].ContextMap()).To(HaveKeyWithValue("table", "scan_history"))
			Expect(entries[0].ContextMap()).To(HaveKeyWithValue("column", "seq"))
		})
	})

	Context("Restart", func() {
		// Given scans written by a first process
		// When a second process opens the same file
		// Then the scans are still there and no schema change is needed
		It("should keep data across reopen", func() {
			path := filepath.Join(GinkgoT().TempDir(), "scans.db")

			db1, err := store.NewDB(path)
			Expect(err).NotTo(HaveOccurred())
			s1 := store.NewStore(db1)
			rec, err := s1.Scans().Create(ctx, models.NewScan{CampaignID: "c1", CodeArticle: "A-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(s1.Close()).To(Succeed())

			db2, err := store.NewDB(path)
			Expect(err).NotTo(HaveOccurred())
			s2 := store.NewStore(db2)
			defer s2.Close()

			got, err := s2.Scans().Get(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.CodeArticle).To(Equal("A-1"))
			Expect(s2.SchemaReport().Changed()).To(BeFalse())
		})
	})
})
