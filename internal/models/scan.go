package models

import "time"

type ScanStatus string

const (
	ScanStatusScanned   ScanStatus = "scanned"
	ScanStatusFound     ScanStatus = "found"
	ScanStatusNotFound  ScanStatus = "not_found"
	ScanStatusMisplaced ScanStatus = "misplaced"
	ScanStatusSurplus   ScanStatus = "surplus"
)

type CaptureSource string

const (
	CaptureSourceCamera CaptureSource = "camera"
	CaptureSourceManual CaptureSource = "manual"
)

// MaxScanImages is the number of image references a scan can carry.
const MaxScanImages = 3

// ScanRecord is one inventory-count event captured on the device.
//
// ID and CapturedAt are immutable once the record exists. IsSynced only
// becomes true through mark-synced; any edit of the operator fields resets it.
type ScanRecord struct {
	ID                 string
	RemoteID           *string
	CampaignID         string
	GroupID            string
	LocationID         string
	LocationName       string
	CodeArticle        string
	ArticleID          *string
	ArticleDescription string
	Comment            string
	CustomDescription  string
	Observation        string
	SerialNumber       string
	ConditionState     string
	CapturedAt         time.Time
	CaptureSource      CaptureSource
	ImageURIs          [MaxScanImages]string
	Status             ScanStatus
	StatusLabel        string
	IsSynced           bool
	UpdatedAt          time.Time
}

// Description returns the text shown for the scanned article.
func (s ScanRecord) Description() string {
	if s.CustomDescription != "" {
		return s.CustomDescription
	}
	if s.ArticleDescription != "" {
		return s.ArticleDescription
	}
	return s.CodeArticle
}

// NewScan holds the fields supplied when a scan is captured. A zero
// CapturedAt means "now".
type NewScan struct {
	CampaignID         string
	GroupID            string
	LocationID         string
	LocationName       string
	CodeArticle        string
	ArticleID          *string
	ArticleDescription string
	Comment            string
	CustomDescription  string
	Observation        string
	SerialNumber       string
	ConditionState     string
	CapturedAt         time.Time
	CaptureSource      CaptureSource
	ImageURIs          []string
	Status             ScanStatus
	StatusLabel        string
}

// ScanDetailsUpdate edits the operator fields of a scan. Nil fields keep
// their stored value.
type ScanDetailsUpdate struct {
	ID             string
	ConditionState *string
	Observation    *string
	SerialNumber   *string
}

// SyncAck pairs a local scan id with the id the remote system assigned.
type SyncAck struct {
	LocalID  string
	RemoteID string
}

// ScanFilter narrows a scan listing. Empty fields are ignored.
type ScanFilter struct {
	CampaignID string
	GroupID    string
	LocationID string
	IsSynced   *bool
	Limit      uint64
}

// ScanStats counts scans per campaign.
type ScanStats struct {
	CampaignID string
	Total      int
	Synced     int
	Pending    int
}
