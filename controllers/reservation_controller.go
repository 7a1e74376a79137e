package controllers

import (
	"net/http"
	"strings"

	"bungalow-backend/middleware"
	"bungalow-backend/models"
	"bungalow-backend/services"
	"bungalow-backend/utils"

	"github.com/gin-gonic/gin"
)

type createReservationPayload struct {
	BungalowID    uint   `json:"bungalowId"`
	BungalowName  string `json:"bungalowName" binding:"required_without=BungalowID"`
	CheckInDate   string `json:"checkInDate" binding:"required,isodate"`
	CheckOutDate  string `json:"checkOutDate" binding:"required,isodate"`
	CustomerID    uint   `json:"customerId"`
	CustomerEmail string `json:"customerEmail" binding:"required,email"`
	CustomerName  string `json:"customerName"`
}

type ReservationController struct {
	ReservationSvc *services.ReservationService
}

func NewReservationController(svc *services.ReservationService) *ReservationController {
	RegisterValidators()
	return &ReservationController{ReservationSvc: svc}
}

// ----------------------------------------------------
// Staff views (GET /api/admin/reservations)
// ----------------------------------------------------

func (ctrl *ReservationController) AdminList(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	perPage, ok := queryInt(c, "per_page", 20)
	if !ok {
		return
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 20
	}

	reservations, total, err := ctrl.ReservationSvc.ListAll(c.Query("status"), page, perPage)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONPage(c, http.StatusOK, reservations, utils.PageMeta{Page: page, PerPage: perPage, Total: total})
}

func (ctrl *ReservationController) AdminGet(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	r, err := ctrl.ReservationSvc.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	setVersionTag(c, r.Version)
	c.JSON(http.StatusOK, r)
}

func (ctrl *ReservationController) Events(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	events, err := ctrl.ReservationSvc.ListEvents(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// ----------------------------------------------------
// Transitions (PUT /api/admin/reservations/:id/<action>)
// ----------------------------------------------------

func (ctrl *ReservationController) Approve(c *gin.Context) {
	ctrl.transition(c, ctrl.ReservationSvc.Approve)
}

func (ctrl *ReservationController) Cancel(c *gin.Context) {
	ctrl.transition(c, ctrl.ReservationSvc.Cancel)
}

func (ctrl *ReservationController) MarkPaid(c *gin.Context) {
	ctrl.transition(c, ctrl.ReservationSvc.MarkPaid)
}

func (ctrl *ReservationController) MarkUnpaid(c *gin.Context) {
	ctrl.transition(c, ctrl.ReservationSvc.MarkUnpaid)
}

func (ctrl *ReservationController) transition(c *gin.Context, apply func(services.TransitionRequest) (*models.Reservation, error)) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	version, ok := expectedVersion(c)
	if !ok {
		return
	}

	req := services.TransitionRequest{ID: id, ExpectedVersion: version}
	if session, ok := middleware.SessionFrom(c); ok {
		req.Actor = session.Email
	}

	r, err := apply(req)
	if err != nil {
		respondError(c, err)
		return
	}
	setVersionTag(c, r.Version)
	c.JSON(http.StatusOK, r)
}

// ----------------------------------------------------
// Customer views (/api/customers/reservations)
// ----------------------------------------------------

func (ctrl *ReservationController) CustomerList(c *gin.Context) {
	session, _ := middleware.SessionFrom(c)

	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		email = session.Email
	}
	if !session.CanActFor(email) {
		utils.JSONError(c, http.StatusForbidden, "error.forbidden", "cannot read reservations of another customer")
		return
	}

	reservations, err := ctrl.ReservationSvc.ListForCustomer(email, c.DefaultQuery("filter", services.FilterAll))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

func (ctrl *ReservationController) CustomerCreate(c *gin.Context) {
	var payload createReservationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	session, _ := middleware.SessionFrom(c)
	if !session.CanActFor(payload.CustomerEmail) {
		utils.JSONError(c, http.StatusForbidden, "error.forbidden", "cannot book on behalf of another customer")
		return
	}
	if !session.IsAdmin() {
		payload.CustomerID = session.UserID
	}

	// Both dates already passed the isodate binding check.
	checkIn, _ := utils.ParseISODate(payload.CheckInDate)
	checkOut, _ := utils.ParseISODate(payload.CheckOutDate)

	r, err := ctrl.ReservationSvc.Create(services.CreateReservationInput{
		BungalowID:    payload.BungalowID,
		BungalowName:  payload.BungalowName,
		CheckInDate:   checkIn,
		CheckOutDate:  checkOut,
		CustomerID:    payload.CustomerID,
		CustomerEmail: payload.CustomerEmail,
		CustomerName:  payload.CustomerName,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	setVersionTag(c, r.Version)
	c.JSON(http.StatusCreated, r)
}
