package services

import (
	"context"
	"fmt"
	"time"

	"bungalow-backend/models"
	"bungalow-backend/utils"

	"github.com/xuri/excelize/v2"
)

const calendarSheet = "Calendar"

var statusFill = map[models.ReservationStatus]string{
	"":                          "#C6EFCE",
	models.ReservationPending:   "#FFEB9C",
	models.ReservationConfirmed: "#FFC7CE",
	models.ReservationCancelled: "#D9D9D9",
	models.ReservationCompleted: "#DDEBF7",
}

// BuildCalendarWorkbook lays the grid out as one row per bungalow and one
// column per date. Each cell holds the occupancy count, filled by the day's
// summary status.
func BuildCalendarWorkbook(rows []BungalowCalendar, start, end time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", calendarSheet); err != nil {
		return nil, fmt.Errorf("error naming sheet: %w", err)
	}

	days := utils.DaysInRange(start, end)
	f.SetCellValue(calendarSheet, "A1", fmt.Sprintf("Period: %s - %s", utils.FormatDate(start), utils.FormatDate(end)))
	f.SetCellValue(calendarSheet, "A2", "Bungalow")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating header style: %w", err)
	}

	for i, day := range days {
		cell, _ := excelize.CoordinatesToCellName(i+2, 2)
		f.SetCellValue(calendarSheet, cell, day.Format("02.01"))
		f.SetCellStyle(calendarSheet, cell, cell, headerStyle)
	}

	styles := make(map[models.ReservationStatus]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			return nil, fmt.Errorf("error creating cell style: %w", err)
		}
		styles[status] = id
	}

	for r, row := range rows {
		rowNum := r + 3
		nameCell, _ := excelize.CoordinatesToCellName(1, rowNum)
		f.SetCellValue(calendarSheet, nameCell, row.BungalowName)

		for c, day := range row.Days {
			cell, _ := excelize.CoordinatesToCellName(c+2, rowNum)
			f.SetCellValue(calendarSheet, cell, day.Count)
			if style, ok := styles[day.Status]; ok {
				f.SetCellStyle(calendarSheet, cell, cell, style)
			}
		}
	}

	f.SetColWidth(calendarSheet, "A", "A", 25)
	if len(days) > 0 {
		lastCol, _ := excelize.ColumnNumberToName(len(days) + 1)
		f.SetColWidth(calendarSheet, "B", lastCol, 7)
		f.MergeCell(calendarSheet, "A1", lastCol+"1")
	}
	return f, nil
}

func (s *AvailabilityService) ExportWorkbook(ctx context.Context, start, end time.Time) (*excelize.File, error) {
	rows, err := s.Grid(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return BuildCalendarWorkbook(rows, utils.DateOf(start), utils.DateOf(end))
}
