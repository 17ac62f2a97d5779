package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kubev2v/inventory-scan-agent/internal/models"
	srvErrors "github.com/kubev2v/inventory-scan-agent/pkg/errors"
)

const sessionSnapshotKey = "session_snapshot"

// SessionStore persists the operator's last campaign/group/location choice
// as a single JSON value in the metadata table.
type SessionStore struct {
	db    *DB
	ready readyFunc
	now   func() time.Time
}

func NewSessionStore(db *DB, ready readyFunc, now func() time.Time) *SessionStore {
	return &SessionStore{db: db, ready: ready, now: now}
}

// Save replaces the stored snapshot.
func (s *SessionStore) Save(ctx context.Context, snapshot models.SessionSnapshot) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}

	_, err = s.db.Exec(ctx, queryUpsertMetadata, sessionSnapshotKey, string(data), formatTime(s.now()))
	return err
}

// Load returns the stored snapshot, or nil when there is none. A value that
// cannot be decoded, or that holds no selection, is treated as absent.
func (s *SessionStore) Load(ctx context.Context) (*models.SessionSnapshot, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var (
		raw   string
		found bool
	)
	err := s.db.Query(ctx, func(rows *sql.Rows) error {
		if rows.Next() {
			found = true
			return rows.Scan(&raw)
		}
		return nil
	}, queryGetMetadata, sessionSnapshotKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	snapshot, err := decodeSnapshot(raw)
	if err != nil {
		zap.S().Named("session_store").Warnw("ignoring stored session snapshot", "error", err)
		return nil, nil
	}
	return snapshot, nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, queryDeleteMetadata, sessionSnapshotKey)
	return err
}

// decodeSnapshot returns nil for a value that decodes to no selection at all
// (null or {}).
func decodeSnapshot(raw string) (*models.SessionSnapshot, error) {
	var snapshot *models.SessionSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", srvErrors.ErrCorruptSnapshot, err)
	}
	if snapshot == nil || *snapshot == (models.SessionSnapshot{}) {
		return nil, nil
	}
	return snapshot, nil
}
