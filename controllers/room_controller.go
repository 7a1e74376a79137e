package controllers

import (
	"net/http"

	"bungalow-backend/services"
	"bungalow-backend/utils"

	"github.com/gin-gonic/gin"
)

type roomPayload struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" binding:"required"`
	Capacity    int      `json:"capacity" binding:"gte=0"`
	Status      string   `json:"status"`
}

func (p roomPayload) toInput() services.RoomInput {
	return services.RoomInput{
		Name:        p.Name,
		Description: p.Description,
		Price:       *p.Price,
		Capacity:    p.Capacity,
		Status:      p.Status,
	}
}

type RoomController struct {
	RoomSvc *services.RoomService
	RateSvc *services.SeasonalRateService
}

func NewRoomController(rooms *services.RoomService, rates *services.SeasonalRateService) *RoomController {
	RegisterValidators()
	return &RoomController{RoomSvc: rooms, RateSvc: rates}
}

// ----------------------------------------------------
// 1. List Rooms (GET /api/rooms?page=&size=&sort=)
// ----------------------------------------------------

func (ctrl *RoomController) List(c *gin.Context) {
	page, ok := queryInt(c, "page", 0)
	if !ok {
		return
	}
	size, ok := queryInt(c, "size", 10)
	if !ok {
		return
	}
	result, err := ctrl.RoomSvc.Page(page, size, c.Query("sort"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ----------------------------------------------------
// 2. Get Room (GET /api/rooms/:id)
// ----------------------------------------------------

func (ctrl *RoomController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	room, err := ctrl.RoomSvc.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// ----------------------------------------------------
// 3. Prices (GET /api/rooms/:id/price, /api/rooms/:id/quote)
// ----------------------------------------------------

func (ctrl *RoomController) Price(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	day, ok := queryDate(c, "date")
	if !ok {
		return
	}
	quote, err := ctrl.RateSvc.EffectivePrice(id, day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (ctrl *RoomController) Quote(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	checkIn, ok := queryDate(c, "checkIn")
	if !ok {
		return
	}
	checkOut, ok := queryDate(c, "checkOut")
	if !ok {
		return
	}
	quote, err := ctrl.RateSvc.Quote(id, checkIn, checkOut)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// ----------------------------------------------------
// 4. Staff catalog edits (POST/PUT/DELETE /api/rooms)
// ----------------------------------------------------

func (ctrl *RoomController) Create(c *gin.Context) {
	var payload roomPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	room, err := ctrl.RoomSvc.Create(payload.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (ctrl *RoomController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var payload roomPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	room, err := ctrl.RoomSvc.Update(id, payload.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (ctrl *RoomController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.RoomSvc.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"id": id})
}
