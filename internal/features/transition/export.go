package transition

import (
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Transitions"

var exportColumns = []string{
	"ID", "Workflow", "Entity Type", "Entity ID", "From Group", "To Group",
	"Status", "Attempts", "Error", "Created", "Completed",
}

func exportRow(t Transition) []interface{} {
	completed := ""
	if t.CompletedAt != nil {
		completed = t.CompletedAt.UTC().Format(time.RFC3339)
	}
	return []interface{}{
		t.ID.Hex(),
		t.WorkflowID.Hex(),
		t.EntityType,
		t.EntityID,
		t.SourceUserGroupID,
		t.TargetUserGroupID,
		string(t.Status),
		t.AttemptCount,
		t.ErrorMessage,
		t.CreatedAt.UTC().Format(time.RFC3339),
		completed,
	}
}

// WriteXLSX renders transitions as a single-sheet workbook.
func WriteXLSX(items []Transition) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, col)
		f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	for rowIdx, t := range items {
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		row := exportRow(t)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	for i := range exportColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(exportSheet, col, col, 18)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
