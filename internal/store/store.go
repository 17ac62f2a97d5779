package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kubev2v/inventory-scan-agent/internal/store/migrations"
)

const DefaultHistoryMaxItems = 50

// readyFunc is called by every sub-store before touching its tables.
type readyFunc func(ctx context.Context) error

type storeOptions struct {
	now             func() time.Time
	historyMaxItems int
}

type Option func(*storeOptions)

// WithClock replaces the time source used for captured_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithHistoryMaxItems bounds the scan history log. Values <= 0 keep the default.
func WithHistoryMaxItems(n int) Option {
	return func(o *storeOptions) {
		if n > 0 {
			o.historyMaxItems = n
		}
	}
}

// Store provides access to all storage repositories.
type Store struct {
	db      *DB
	group   singleflight.Group
	ready   atomic.Bool
	mu      sync.Mutex
	report  migrations.Report
	runs    atomic.Int32
	scans   *ScanStore
	history *HistoryStore
	session *SessionStore
	catalog *CatalogStore
}

func NewStore(db *DB, opts ...Option) *Store {
	o := storeOptions{
		now:             time.Now,
		historyMaxItems: DefaultHistoryMaxItems,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{db: db}
	s.scans = NewScanStore(db, s.EnsureReady, o.now)
	s.history = NewHistoryStore(db, s.EnsureReady, o.historyMaxItems)
	s.session = NewSessionStore(db, s.EnsureReady, o.now)
	s.catalog = NewCatalogStore(db, s.EnsureReady, o.now)
	return s
}

// EnsureReady creates or upgrades the schema once per process. Concurrent
// first callers share one initialization. A failed initialization is not
// remembered: the next caller runs it again.
func (s *Store) EnsureReady(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}

	_, err, shared := s.group.Do("schema", func() (any, error) {
		if s.ready.Load() {
			return nil, nil
		}
		s.runs.Add(1)
		report, err := migrations.Run(context.WithoutCancel(ctx), s.db)
		if err != nil {
			log := zap.S().Named("store")
			var keyErr *migrations.KeyColumnError
			if errors.As(err, &keyErr) {
				log.Errorw("schema initialization blocked by an incompatible table",
					"path", s.db.Path(), "table", keyErr.Table, "column", keyErr.Column, "error", err)
			} else {
				log.Errorw("schema initialization failed", "path", s.db.Path(), "error", err)
			}
			return nil, err
		}
		s.mu.Lock()
		s.report = report
		s.mu.Unlock()
		s.ready.Store(true)
		return nil, nil
	})
	if shared {
		zap.S().Named("store").Debugw("schema initialization shared", "error", err)
	}
	return err
}

// SchemaReport returns what the schema initialization changed. It is empty
// until EnsureReady succeeded.
func (s *Store) SchemaReport() migrations.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

func (s *Store) DB() *DB {
	return s.db
}

func (s *Store) Scans() *ScanStore {
	return s.scans
}

func (s *Store) History() *HistoryStore {
	return s.history
}

func (s *Store) Session() *SessionStore {
	return s.session
}

func (s *Store) Catalog() *CatalogStore {
	return s.catalog
}

func (s *Store) Close() error {
	return s.db.Close()
}
