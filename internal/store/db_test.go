package store_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/inventory-scan-agent/internal/store"
	srvErrors "github.com/kubev2v/inventory-scan-agent/pkg/errors"
)

func countRows(ctx context.Context, db *store.DB, query string, args ...any) int {
	var n int
	err := db.Query(ctx, func(rows *sql.Rows) error {
		if rows.Next() {
			return rows.Scan(&n)
		}
		return nil
	}, query, args...)
	Expect(err).NotTo(HaveOccurred())
	return n
}

var _ = Describe("DB", func() {
	var (
		ctx context.Context
		db  *store.DB
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())

		err = db.ExecScript(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY, n INTEGER NOT NULL)`)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			_ = db.Close()
		}
	})

	It("should reject an empty path", func() {
		_, err := store.NewDB("")
		Expect(err).To(HaveOccurred())
	})

	It("should open the connection lazily", func() {
		lazy, err := store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())
		defer lazy.Close()

		Expect(lazy.Opens()).To(Equal(0))

		_, err = lazy.Exec(ctx, `CREATE TABLE t (x INTEGER)`)
		Expect(err).NotTo(HaveOccurred())
		_, err = lazy.Exec(ctx, `INSERT INTO t (x) VALUES (1)`)
		Expect(err).NotTo(HaveOccurred())

		Expect(lazy.Opens()).To(Equal(1))
	})

	Context("Exec", func() {
		It("should report rows affected", func() {
			_, err := db.Exec(ctx, `INSERT INTO items (id, n) VALUES ('a', 1), ('b', 2)`)
			Expect(err).NotTo(HaveOccurred())

			res, err := db.Exec(ctx, `UPDATE items SET n = n + 1`)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.RowsAffected).To(Equal(int64(2)))
		})

		// Given a failing statement queued between two valid ones
		// When all three are submitted
		// Then only the failing caller sees an error
		It("should isolate a failing statement", func() {
			_, err := db.Exec(ctx, `INSERT INTO items (id, n) VALUES ('a', 1)`)
			Expect(err).NotTo(HaveOccurred())

			_, err = db.Exec(ctx, `INSERT INTO items (id, n) VALUES ('a', 2)`)
			Expect(err).To(HaveOccurred())
			Expect(srvErrors.IsStatementError(err)).To(BeTrue())

			var stmtErr *srvErrors.StatementError
			Expect(err).To(BeAssignableToTypeOf(stmtErr))
			Expect(err.(*srvErrors.StatementError).IsConstraint()).To(BeTrue())

			_, err = db.Exec(ctx, `INSERT INTO items (id, n) VALUES ('b', 2)`)
			Expect(err).NotTo(HaveOccurred())
			Expect(countRows(ctx, db, `SELECT COUNT(*) FROM items`)).To(Equal(2))
		})
	})

	Context("ExecBatch", func() {
		It("should apply every statement", func() {
			results, err := db.ExecBatch(ctx, []store.Statement{
				{Query: `INSERT INTO items (id, n) VALUES (?, ?)`, Args: []any{"a", 1}},
				{Query: `INSERT INTO items (id, n) VALUES (?, ?)`, Args: []any{"b", 2}},
				{Query: `UPDATE items SET n = 10 WHERE id = ?`, Args: []any{"missing"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[2].RowsAffected).To(Equal(int64(0)))
			Expect(countRows(ctx, db, `SELECT COUNT(*) FROM items`)).To(Equal(2))
		})

		// Given a batch whose last statement violates a constraint
		// When the batch runs
		// Then nothing of the batch is visible afterwards
		It("should roll back the whole batch on failure", func() {
			_, err := db.ExecBatch(ctx, []store.Statement{
				{Query: `INSERT INTO items (id, n) VALUES (?, ?)`, Args: []any{"a", 1}},
				{Query: `INSERT INTO items (id, n) VALUES (?, ?)`, Args: []any{"b", 2}},
				{Query: `INSERT INTO items (id, n) VALUES (?, ?)`, Args: []any{"a", 3}},
			})
			Expect(err).To(HaveOccurred())
			Expect(srvErrors.IsBatchError(err)).To(BeTrue())
			Expect(srvErrors.IsStatementError(err)).To(BeTrue())
			Expect(err.(*srvErrors.BatchError).Index()).To(Equal(2))

			Expect(countRows(ctx, db, `SELECT COUNT(*) FROM items`)).To(Equal(0))
		})

		It("should not open the database for an empty batch", func() {
			fresh, err := store.NewDB(":memory:")
			Expect(err).NotTo(HaveOccurred())
			defer fresh.Close()

			results, err := fresh.ExecBatch(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
			Expect(fresh.Opens()).To(Equal(0))
		})
	})

	Context("Concurrency", func() {
		// Given many goroutines each incrementing a counter in read-modify-write batches
		// When they all run at once
		// Then no increment is lost
		It("should totally order concurrent operations", func() {
			_, err := db.Exec(ctx, `INSERT INTO items (id, n) VALUES ('counter', 0)`)
			Expect(err).NotTo(HaveOccurred())

			const workers = 20
			const perWorker = 10
			var wg sync.WaitGroup
			errs := make(chan error, workers*perWorker)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					for j := 0; j < perWorker; j++ {
						_, err := db.ExecBatch(ctx, []store.Statement{
							{Query: `UPDATE items SET n = (SELECT n FROM items WHERE id = 'counter') + 1 WHERE id = 'counter'`},
						})
						if err != nil {
							errs <- err
						}
					}
				}()
			}
			wg.Wait()
			close(errs)
			Expect(errs).To(BeEmpty())

			Expect(countRows(ctx, db, `SELECT n FROM items WHERE id = 'counter'`)).To(Equal(workers * perWorker))
		})
	})

	Context("Open failure", func() {
		// Given a database path whose directory does not exist yet
		// When an operation runs, the directory is created, and another runs
		// Then the first fails with OpenError and the second succeeds
		It("should not remember an open failure", func() {
			dir := filepath.Join(GinkgoT().TempDir(), "not-yet")
			path := filepath.Join(dir, "scans.db")

			fileDB, err := store.NewDB(path)
			Expect(err).NotTo(HaveOccurred())
			defer fileDB.Close()

			_, err = fileDB.Exec(ctx, `CREATE TABLE t (x INTEGER)`)
			Expect(err).To(HaveOccurred())
			Expect(srvErrors.IsOpenError(err)).To(BeTrue())
			Expect(fileDB.Opens()).To(Equal(0))

			Expect(os.MkdirAll(dir, 0o755)).To(Succeed())

			_, err = fileDB.Exec(ctx, `CREATE TABLE t (x INTEGER)`)
			Expect(err).NotTo(HaveOccurred())
			Expect(fileDB.Opens()).To(Equal(1))
		})

		It("should use WAL journaling on a file database", func() {
			path := filepath.Join(GinkgoT().TempDir(), "scans.db")
			fileDB, err := store.NewDB(path)
			Expect(err).NotTo(HaveOccurred())
			defer fileDB.Close()

			var mode string
			err = fileDB.Query(ctx, func(rows *sql.Rows) error {
				if rows.Next() {
					return rows.Scan(&mode)
				}
				return nil
			}, `PRAGMA journal_mode`)
			Expect(err).NotTo(HaveOccurred())
			Expect(mode).To(Equal("wal"))
		})
	})

	Context("Close", func() {
		It("should fail operations after Close", func() {
			Expect(db.Close()).To(Succeed())

			_, err := db.Exec(ctx, `INSERT INTO items (id, n) VALUES ('a', 1)`)
			Expect(err).To(MatchError(srvErrors.ErrClosed))
			db = nil
		})

		// Given an operation queued behind the close of the connection
		// When the worker reaches it
		// Then it fails with ErrClosed instead of opening a new connection
		It("should not reopen the connection for work queued behind Close", func() {
			// Arrange
			Expect(db.Opens()).To(Equal(1))
			Expect(store.ShutdownWorker(db)).To(Succeed())

			// Act
			_, err := db.Exec(ctx, `INSERT INTO items (id, n) VALUES ('a', 1)`)

			// Assert
			Expect(err).To(MatchError(srvErrors.ErrClosed))
			Expect(db.Opens()).To(Equal(1))
			Expect(db.Close()).To(Succeed())
			db = nil
		})
	})
})
