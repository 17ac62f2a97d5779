// Package store implements the local persistence layer of the scan agent.
//
// Scans are recorded on a device without guaranteed connectivity and kept in
// an embedded SQLite database (modernc.org/sqlite) until the remote system
// acknowledges them. The database also caches the catalog downloaded from the
// remote system and the operator's last session choice.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                         Store (facade)                          │
//	│                  EnsureReady → migrations.Run                   │
//	├────────────────┬────────────────┬───────────────┬───────────────┤
//	│   ScanStore    │  HistoryStore  │ SessionStore  │ CatalogStore  │
//	│       ▼        │       ▼        │       ▼       │       ▼       │
//	│     scans      │  scan_history  │   metadata    │ campaigns,    │
//	│                │                │               │ groups, ...   │
//	├────────────────┴────────────────┴───────────────┴───────────────┤
//	│                               DB                                │
//	│     Exec / Query / ExecBatch  →  serial scheduler  →  *sql.DB   │
//	└─────────────────────────────────────────────────────────────────┘
//
// # DB
//
// DB owns the single connection and a one-worker scheduler. Every statement
// and every batch is one work item, so statements never interleave and each
// caller's operations run in the order it submitted them.
//
// The connection is opened by the first operation, not by NewDB. The pragmas
// are applied once, right after a successful open:
//
//	PRAGMA journal_mode=WAL
//	PRAGMA busy_timeout=<ms>
//	PRAGMA synchronous=NORMAL
//	PRAGMA foreign_keys=OFF
//
// If the open fails, the triggering operation gets an OpenError and the next
// operation tries again.
//
// Reads hand their rows to a callback that runs inside the queue turn:
//
//	err := db.Query(ctx, func(rows *sql.Rows) error {
//	    for rows.Next() { ... }
//	    return nil
//	}, "SELECT id FROM scans WHERE campaign_id = ?", campaignID)
//
// ExecBatch runs its statements in one transaction. Any failing statement
// rolls back the whole batch and is reported as a BatchError carrying its
// index. An empty batch never reaches the database.
//
// # Initialization Flow
//
//	NewDB(path)
//	    └── nothing is opened yet
//
//	NewStore(db, opts...)
//	    └── builds the sub-stores, each with the EnsureReady guard
//
//	first sub-store call
//	    └── EnsureReady(ctx)         (singleflight, remembered on success)
//	            └── migrations.Run()
//	                    ├── CREATE TABLE IF NOT EXISTS ...
//	                    ├── PRAGMA table_info + ALTER TABLE ADD COLUMN
//	                    ├── CREATE INDEX IF NOT EXISTS ...
//	                    └── metadata.schema_version
//
// # ScanStore
//
// Methods:
//   - Create(ctx, NewScan) → *ScanRecord (UUIDv7 id, unsynced, no remote id)
//   - Get(ctx, id) → *ScanRecord or ResourceNotFoundError
//   - List(ctx, opts...) → []ScanRecord, ORDER BY captured_at DESC
//   - ListPending(ctx, limit) → unsynced, oldest first
//   - Count(ctx, opts...) → int
//   - UpdateDetails(ctx, ScanDetailsUpdate) → always resets is_synced
//   - MarkSynced(ctx, []SyncAck) → rows updated, one batch
//   - Stats(ctx) → per campaign totals
//
// List Options:
//
//	scans, err := store.Scans().List(ctx,
//	    store.ByCampaign("c1"),
//	    store.ByGroup("g1"),
//	    store.BySynced(false),
//	    store.WithLimit(100),
//	)
//
// Empty ids are ignored, so FilterOptions(models.ScanFilter{}) lists every scan.
//
// # HistoryStore
//
// Bounded log of recently recorded scans. Append inserts the entry and deletes
// everything older than the newest MaxItems entries in the same batch, so the
// table never holds more than MaxItems rows. Entries are ordered by an
// AUTOINCREMENT sequence, newest first.
//
// # SessionStore
//
// The last chosen campaign, group and location, stored as JSON under the
// metadata key "session_snapshot". Load returns nil when the key is missing
// or its value does not decode.
//
// # CatalogStore
//
// Cached reference data. Replacements run as one batch:
//
//	┌───────────────────┬──────────────────────────────────────────────┐
//	│  Method           │  Tables                                      │
//	├───────────────────┼──────────────────────────────────────────────┤
//	│  ReplaceCampaigns │  campaigns                                   │
//	│  ReplaceGroups    │  "groups", group_locations (one campaign)    │
//	│  UpsertLocations  │  locations                                   │
//	│  ReplaceArticles  │  articles, article_locations                 │
//	└───────────────────┴──────────────────────────────────────────────┘
//
// "groups" is a keyword and is always quoted.
//
// # Timestamps
//
// All timestamps are stored as UTC text in the fixed width layout
// 2006-01-02T15:04:05.000000000Z; text order is time order.
//
// # QueryInterceptor
//
// All statements go through a QueryInterceptor that logs query, arguments,
// duration and error at debug level under the "store" logger.
package store
