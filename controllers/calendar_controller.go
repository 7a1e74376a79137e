package controllers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bungalow-backend/services"
	"bungalow-backend/utils"

	"github.com/gin-gonic/gin"
)

type CalendarController struct {
	AvailabilitySvc *services.AvailabilityService
}

func NewCalendarController(svc *services.AvailabilityService) *CalendarController {
	return &CalendarController{AvailabilitySvc: svc}
}

// calendarRange reads ?month=YYYY-MM or ?start=&end=; month wins when both
// are present.
func calendarRange(c *gin.Context) (time.Time, time.Time, bool) {
	if month := strings.TrimSpace(c.Query("month")); month != "" {
		first, last, err := utils.ParseMonth(month)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "error.validation", "month must be YYYY-MM", err.Error())
			return time.Time{}, time.Time{}, false
		}
		return first, last, true
	}
	if c.Query("start") == "" || c.Query("end") == "" {
		utils.JSONError(c, http.StatusBadRequest, "error.validation", "either month or start and end are required")
		return time.Time{}, time.Time{}, false
	}
	start, ok := queryDate(c, "start")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := queryDate(c, "end")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// ----------------------------------------------------
// GET /api/admin/calendar
// ----------------------------------------------------

func (ctrl *CalendarController) Range(c *gin.Context) {
	start, end, ok := calendarRange(c)
	if !ok {
		return
	}

	var bungalowID uint
	if raw := strings.TrimSpace(c.Query("bungalowId")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "error.validation", "bungalowId must be a positive integer")
			return
		}
		bungalowID = uint(id)
	}

	days, err := ctrl.AvailabilitySvc.Range(c.Request.Context(), start, end, bungalowID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"start": utils.FormatDate(start),
		"end":   utils.FormatDate(end),
		"days":  days,
	})
}

func (ctrl *CalendarController) Grid(c *gin.Context) {
	start, end, ok := calendarRange(c)
	if !ok {
		return
	}
	rows, err := ctrl.AvailabilitySvc.Grid(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"start":     utils.FormatDate(start),
		"end":       utils.FormatDate(end),
		"bungalows": rows,
	})
}

// Export streams the grid as an xlsx workbook.
func (ctrl *CalendarController) Export(c *gin.Context) {
	start, end, ok := calendarRange(c)
	if !ok {
		return
	}
	f, err := ctrl.AvailabilitySvc.ExportWorkbook(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("warning: closing workbook: %v", err)
		}
	}()

	fileName := fmt.Sprintf("calendar_%s_to_%s.xlsx", utils.FormatDate(start), utils.FormatDate(end))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		log.Printf("❌ writing calendar export: %v", err)
	}
}
