package controllers

import (
	"net/http"

	"bungalow-backend/services"
	"bungalow-backend/utils"

	"github.com/gin-gonic/gin"
)

type ratePayload struct {
	RoomID             uint     `json:"roomId" binding:"required"`
	StartDate          string   `json:"startDate" binding:"required,isodate"`
	EndDate            string   `json:"endDate" binding:"required,isodate"`
	DiscountPercentage *float64 `json:"discountPercentage" binding:"required"`
}

func (p ratePayload) toInput() services.RateInput {
	start, _ := utils.ParseISODate(p.StartDate)
	end, _ := utils.ParseISODate(p.EndDate)
	return services.RateInput{
		RoomID:             p.RoomID,
		StartDate:          start,
		EndDate:            end,
		DiscountPercentage: *p.DiscountPercentage,
	}
}

type SeasonalRateController struct {
	RateSvc *services.SeasonalRateService
}

func NewSeasonalRateController(svc *services.SeasonalRateService) *SeasonalRateController {
	RegisterValidators()
	return &SeasonalRateController{RateSvc: svc}
}

// ListForRoom: GET /api/seasonal_rates/rooms/:roomId
func (ctrl *SeasonalRateController) ListForRoom(c *gin.Context) {
	roomID, ok := parseIDParam(c, "roomId")
	if !ok {
		return
	}
	rates, err := ctrl.RateSvc.RatesForRoom(roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rates)
}

func (ctrl *SeasonalRateController) ListAll(c *gin.Context) {
	rates, err := ctrl.RateSvc.ListAll()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rates)
}

func (ctrl *SeasonalRateController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rate, err := ctrl.RateSvc.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rate)
}

func (ctrl *SeasonalRateController) Create(c *gin.Context) {
	var payload ratePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	rate, err := ctrl.RateSvc.Create(payload.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rate)
}

func (ctrl *SeasonalRateController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var payload ratePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	rate, err := ctrl.RateSvc.Update(id, payload.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rate)
}

func (ctrl *SeasonalRateController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.RateSvc.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "seasonal rate deleted"})
}
