package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const sheetName = "Messages"

var headers = []string{"Date", "Message", "Reads", "Reactions", "Comments", "ER (%)", "Msg ID", "Chat ID"}

// BuildWorkbook renders per-message statistics as an xlsx workbook, one row
// per message plus a summary row with the period totals.
func BuildWorkbook(result *entity.AnalyticsResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for i, st := range result.MessageStats {
		row := i + 2
		values := []interface{}{
			st.Date.Format("02.01.2006 15:04"),
			st.Text,
			st.Readers,
			st.Reactions,
			st.ThreadComments,
			st.ER,
			st.ID,
			st.ChatID,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", row, err)
			}
		}
	}

	summaryRow := len(result.MessageStats) + 3
	summary := map[string]interface{}{
		"A": "Total",
		"C": result.Metrics.TotalReads,
		"D": result.Metrics.TotalReactions,
		"E": result.Metrics.TotalThreadMessages,
		"F": result.EngagementRate,
	}
	for col, v := range summary {
		if err := f.SetCellValue(sheetName, fmt.Sprintf("%s%d", col, summaryRow), v); err != nil {
			return nil, fmt.Errorf("writing summary: %w", err)
		}
	}

	// Message text needs room; the rest are narrow numerics.
	if err := f.SetColWidth(sheetName, "A", "A", 18); err != nil {
		return nil, fmt.Errorf("setting column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "B", 60); err != nil {
		return nil, fmt.Errorf("setting column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "C", "H", 12); err != nil {
		return nil, fmt.Errorf("setting column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serializing workbook: %w", err)
	}
	return buf, nil
}

// FileName builds the download name for a workbook generated at the given
// time.
func FileName(now time.Time) string {
	return fmt.Sprintf("engagement-%s.xlsx", now.Format("2006-01-02-150405"))
}
