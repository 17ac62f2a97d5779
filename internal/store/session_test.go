package store_test

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/inventory-scan-agent/internal/models"
	"github.com/kubev2v/inventory-scan-agent/internal/store"
)

var _ = Describe("SessionStore", func() {
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

	snapshot := models.SessionSnapshot{
		Campaign: &models.Ref{ID: "c1", Name: "Spring count"},
		Group:    &models.Ref{ID: "g1", Name: "North wing"},
		Location: &models.Ref{ID: "l1", Name: "Dock A"},
	}

	Context("Load", func() {
		// Given an empty session store
		// When we load the snapshot
		// Then it should return nil without error
		It("should return nil when nothing was saved", func() {
			// Act
			loaded, err := s.Session().Load(ctx)

			// Assert
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		// Given an unparsable value stored under the snapshot key
		// When we load the snapshot
		// Then it should return nil without error
		DescribeTable("should treat a corrupt value as absent",
			func(raw string) {
				// Arrange
				Expect(s.EnsureReady(ctx)).To(Succeed())
				_, err := db.Exec(ctx, `INSERT INTO metadata (key, value) VALUES ('session_snapshot', ?)`, raw)
				Expect(err).NotTo(HaveOccurred())

				// Act
				loaded, err := s.Session().Load(ctx)

				// Assert
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded).To(BeNil())
			},
			Entry("truncated json", "{not json"),
			Entry("empty string", ""),
			Entry("json null", "null"),
			Entry("empty object", "{}"),
			Entry("wrong shape", `["campaign"]`),
		)
	})

	Context("Save", func() {
		// Given a complete snapshot
		// When we save and load it
		// Then the loaded value equals the saved one
		It("should round-trip a snapshot", func() {
			// Act
			err := s.Session().Save(ctx, snapshot)
			Expect(err).NotTo(HaveOccurred())

			// Assert
			loaded, err := s.Session().Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(*loaded).To(Equal(snapshot))
		})

		// Given an existing snapshot
		// When a partial snapshot is saved
		// Then it replaces the previous one wholesale
		It("should overwrite the previous snapshot", func() {
			// Arrange
			Expect(s.Session().Save(ctx, snapshot)).To(Succeed())

			// Act
			next := models.SessionSnapshot{Campaign: &models.Ref{ID: "c2", Name: "Autumn count"}}
			Expect(s.Session().Save(ctx, next)).To(Succeed())

			// Assert
			loaded, err := s.Session().Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(*loaded).To(Equal(next))
			Expect(loaded.Group).To(BeNil())
			Expect(countRows(ctx, db, `SELECT COUNT(*) FROM metadata WHERE key = 'session_snapshot'`)).To(Equal(1))
		})
	})

	Context("Clear", func() {
		It("should remove the snapshot", func() {
			Expect(s.Session().Save(ctx, snapshot)).To(Succeed())

			Expect(s.Session().Clear(ctx)).To(Succeed())

			loaded, err := s.Session().Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		It("should keep the schema version", func() {
			Expect(s.Session().Clear(ctx)).To(Succeed())
			Expect(countRows(ctx, db, `SELECT COUNT(*) FROM metadata WHERE key = 'schema_version'`)).To(Equal(1))
		})
	})

	Context("Concurrent writes", func() {
		// Given multiple goroutines saving snapshots simultaneously
		// When all of them finish
		// Then every save succeeded and the stored snapshot is one of the written ones
		It("should handle concurrent writes from multiple goroutines", func() {
			const numGoroutines = 50
			var wg sync.WaitGroup
			errs := make(chan error, numGoroutines)
			written := make(map[string]struct{}, numGoroutines)

			for i := 0; i < numGoroutines; i++ {
				id := fmt.Sprintf("c%d", i)
				written[id] = struct{}{}
				wg.Add(1)
				go func(idx int, id string) {
					defer wg.Done()
					snap := models.SessionSnapshot{Campaign: &models.Ref{ID: id, Name: fmt.Sprintf("Campaign %d", idx)}}
					if err := s.Session().Save(ctx, snap); err != nil {
						errs <- fmt.Errorf("goroutine %d: %w", idx, err)
					}
				}(i, id)
			}

			wg.Wait()
			close(errs)

			var collected []error
			for err := range errs {
				collected = append(collected, err)
			}
			Expect(collected).To(BeEmpty(), "Expected no errors from concurrent writes, got: %v", collected)

			loaded, err := s.Session().Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).NotTo(BeNil())
			Expect(written).To(HaveKey(loaded.Campaign.ID))
		})

		// Given one goroutine saving a sequence of snapshots while others read
		// When the writer finishes
		// Then the stored snapshot is the writer's last one
		It("should keep the writer's own order", func() {
			const writes = 30
			var wg sync.WaitGroup

			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for j := 0; j < writes; j++ {
					snap := models.SessionSnapshot{Location: &models.Ref{ID: fmt.Sprintf("l%d", j)}}
					Expect(s.Session().Save(ctx, snap)).To(Succeed())
				}
			}()
			for r := 0; r < 5; r++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					for j := 0; j < writes; j++ {
						_, err := s.Session().Load(ctx)
						Expect(err).NotTo(HaveOccurred())
					}
				}()
			}
			wg.Wait()

			loaded, err := s.Session().Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Location.ID).To(Equal(fmt.Sprintf("l%d", writes-1)))
		})
	})
})
