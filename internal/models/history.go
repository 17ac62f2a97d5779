package models

import "time"

// ScanHistoryItem is the display projection of a recorded scan kept in the
// bounded recent-activity log.
type ScanHistoryItem struct {
	ID             string
	ScanID         *string
	CodeArticle    string
	Description    string
	ImageURI       string
	Status         ScanStatus
	StatusLabel    string
	CapturedAt     time.Time
	LocationName   string
	Observation    string
	SerialNumber   string
	ConditionState string
}

// NewHistoryItem projects a scan into a history entry.
func NewHistoryItem(scan ScanRecord) ScanHistoryItem {
	id := scan.ID
	return ScanHistoryItem{
		ScanID:         &id,
		CodeArticle:    scan.CodeArticle,
		Description:    scan.Description(),
		ImageURI:       scan.ImageURIs[0],
		Status:         scan.Status,
		StatusLabel:    scan.StatusLabel,
		CapturedAt:     scan.CapturedAt,
		LocationName:   scan.LocationName,
		Observation:    scan.Observation,
		SerialNumber:   scan.SerialNumber,
		ConditionState: scan.ConditionState,
	}
}
