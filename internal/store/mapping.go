package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kubev2v/inventory-scan-agent/internal/models"
)

// timeLayout is fixed width, so ORDER BY on the text column is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newID returns a time-ordered id: 48 bits of millisecond timestamp followed
// by random bits.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

var scanColumns = []string{
	"id",
	"remote_id",
	"code_article",
	"article_id",
	"article_description",
	"campaign_id",
	"group_id",
	"location_id",
	"location_name",
	"comment",
	"custom_description",
	"observation",
	"serial_number",
	"condition_state",
	"captured_at",
	"capture_source",
	"image_uri_1",
	"image_uri_2",
	"image_uri_3",
	"status",
	"status_label",
	"is_synced",
	"updated_at",
}

// scanValues returns the row values of s in scanColumns order.
func scanValues(s models.ScanRecord) []any {
	return []any{
		s.ID,
		nullableString(s.RemoteID),
		s.CodeArticle,
		nullableString(s.ArticleID),
		s.ArticleDescription,
		s.CampaignID,
		s.GroupID,
		s.LocationID,
		s.LocationName,
		s.Comment,
		s.CustomDescription,
		s.Observation,
		s.SerialNumber,
		s.ConditionState,
		formatTime(s.CapturedAt),
		string(s.CaptureSource),
		s.ImageURIs[0],
		s.ImageURIs[1],
		s.ImageURIs[2],
		string(s.Status),
		s.StatusLabel,
		boolToInt(s.IsSynced),
		formatTime(s.UpdatedAt),
	}
}

// scanRecordRow reads one row selected with scanColumns. Columns added by
// later schema versions are NULL on rows written before them.
func scanRecordRow(rows *sql.Rows) (models.ScanRecord, error) {
	var (
		rec                models.ScanRecord
		remoteID           sql.NullString
		articleID          sql.NullString
		articleDescription sql.NullString
		locationName       sql.NullString
		comment            sql.NullString
		customDescription  sql.NullString
		observation        sql.NullString
		serialNumber       sql.NullString
		conditionState     sql.NullString
		capturedAt         string
		captureSource      sql.NullString
		images             [models.MaxScanImages]sql.NullString
		status             string
		statusLabel        sql.NullString
		isSynced           int
		updatedAt          string
	)

	err := rows.Scan(
		&rec.ID,
		&remoteID,
		&rec.CodeArticle,
		&articleID,
		&articleDescription,
		&rec.CampaignID,
		&rec.GroupID,
		&rec.LocationID,
		&locationName,
		&comment,
		&customDescription,
		&observation,
		&serialNumber,
		&conditionState,
		&capturedAt,
		&captureSource,
		&images[0],
		&images[1],
		&images[2],
		&status,
		&statusLabel,
		&isSynced,
		&updatedAt,
	)
	if err != nil {
		return rec, err
	}

	rec.RemoteID = stringPtr(remoteID)
	rec.ArticleID = stringPtr(articleID)
	rec.ArticleDescription = articleDescription.String
	rec.LocationName = locationName.String
	rec.Comment = comment.String
	rec.CustomDescription = customDescription.String
	rec.Observation = observation.String
	rec.SerialNumber = serialNumber.String
	rec.ConditionState = conditionState.String
	rec.CaptureSource = models.CaptureSource(captureSource.String)
	for i := range images {
		rec.ImageURIs[i] = images[i].String
	}
	rec.Status = models.ScanStatus(status)
	rec.StatusLabel = statusLabel.String
	rec.IsSynced = isSynced != 0

	if rec.CapturedAt, err = parseTime(capturedAt); err != nil {
		return rec, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return rec, err
	}
	return rec, nil
}

var historyColumns = []string{
	"id",
	"scan_id",
	"code_article",
	"description",
	"image_uri",
	"status",
	"status_label",
	"captured_at",
	"location_name",
	"observation",
	"serial_number",
	"condition_state",
}

func historyValues(h models.ScanHistoryItem) []any {
	return []any{
		h.ID,
		nullableString(h.ScanID),
		h.CodeArticle,
		h.Description,
		h.ImageURI,
		string(h.Status),
		h.StatusLabel,
		formatTime(h.CapturedAt),
		h.LocationName,
		h.Observation,
		h.SerialNumber,
		h.ConditionState,
	}
}

func historyItemRow(rows *sql.Rows) (models.ScanHistoryItem, error) {
	var (
		item           models.ScanHistoryItem
		scanID         sql.NullString
		description    sql.NullString
		imageURI       sql.NullString
		status         string
		statusLabel    sql.NullString
		capturedAt     string
		locationName   sql.NullString
		observation    sql.NullString
		serialNumber   sql.NullString
		conditionState sql.NullString
	)

	err := rows.Scan(
		&item.ID,
		&scanID,
		&item.CodeArticle,
		&description,
		&imageURI,
		&status,
		&statusLabel,
		&capturedAt,
		&locationName,
		&observation,
		&serialNumber,
		&conditionState,
	)
	if err != nil {
		return item, err
	}

	item.ScanID = stringPtr(scanID)
	item.Description = description.String
	item.ImageURI = imageURI.String
	item.Status = models.ScanStatus(status)
	item.StatusLabel = statusLabel.String
	item.LocationName = locationName.String
	item.Observation = observation.String
	item.SerialNumber = serialNumber.String
	item.ConditionState = conditionState.String
	item.CapturedAt, err = parseTime(capturedAt)
	return item, err
}
