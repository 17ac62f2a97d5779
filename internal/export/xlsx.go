package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kubev2v/inventory-scan-agent/internal/models"
)

const ScanSheet = "Scans"

var scanHeader = []any{
	"ID",
	"Remote ID",
	"Campaign",
	"Group",
	"Location",
	"Location name",
	"Code",
	"Article ID",
	"Description",
	"Comment",
	"Observation",
	"Serial number",
	"Condition",
	"Status",
	"Status label",
	"Source",
	"Image 1",
	"Image 2",
	"Image 3",
	"Captured at",
	"Updated at",
	"Synced",
}

// WriteXLSX writes scans as a workbook with a single "Scans" sheet: one
// header row, then one row per scan in the given order.
func WriteXLSX(w io.Writer, scans []models.ScanRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ScanSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(ScanSheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := sw.SetRow("A1", scanHeader, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, s := range scans {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, scanRow(s)); err != nil {
			return fmt.Errorf("write scan %s: %w", s.ID, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}

func scanRow(s models.ScanRecord) []any {
	synced := "no"
	if s.IsSynced {
		synced = "yes"
	}
	return []any{
		s.ID,
		deref(s.RemoteID),
		s.CampaignID,
		s.GroupID,
		s.LocationID,
		s.LocationName,
		s.CodeArticle,
		deref(s.ArticleID),
		s.Description(),
		s.Comment,
		s.Observation,
		s.SerialNumber,
		s.ConditionState,
		string(s.Status),
		s.StatusLabel,
		string(s.CaptureSource),
		s.ImageURIs[0],
		s.ImageURIs[1],
		s.ImageURIs[2],
		formatTime(s.CapturedAt),
		formatTime(s.UpdatedAt),
		synced,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
