// Package report renders sync state as spreadsheets for editors.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/journal-portal/backend/internal/domain"
)

const mappingsSheet = "Mappings"

var mappingsHeader = []any{
	"OJS submission", "Local submission", "Direction", "Status", "Last synced",
}

// WriteMappings writes one row per mapping to w as an xlsx workbook.
func WriteMappings(w io.Writer, journal *domain.Journal, mappings []*domain.SyncMapping) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", mappingsSheet); err != nil {
		return err
	}
	if err := wb.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("%s OJS mappings", journal.Name),
		Created: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}

	if err := wb.SetSheetRow(mappingsSheet, "A1", &mappingsHeader); err != nil {
		return err
	}
	bold, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := wb.SetRowStyle(mappingsSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, m := range mappings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			m.RemoteSubmissionID,
			m.SubmissionID.String(),
			string(m.SyncDirection),
			string(m.SyncStatus),
			m.LastSyncedAt.UTC().Format(time.DateTime),
		}
		if err := wb.SetSheetRow(mappingsSheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	if err := wb.SetColWidth(mappingsSheet, "B", "B", 38); err != nil {
		return err
	}
	if err := wb.SetColWidth(mappingsSheet, "E", "E", 20); err != nil {
		return err
	}
	return wb.Write(w)
}
