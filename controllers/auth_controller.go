package controllers

import (
	"net/http"
	"time"

	"bungalow-backend/middleware"
	"bungalow-backend/services"
	"bungalow-backend/utils"

	"github.com/gin-gonic/gin"
)

type loginPayload struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthController struct {
	AdminSvc *services.AdminService
	Sessions *middleware.SessionManager
}

func NewAuthController(admins *services.AdminService, sessions *middleware.SessionManager) *AuthController {
	return &AuthController{AdminSvc: admins, Sessions: sessions}
}

// Login issues a staff session token.
func (ctrl *AuthController) Login(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "error.invalidPayload", "username and password required")
		return
	}

	admin, err := ctrl.AdminSvc.Authenticate(payload.Username, payload.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, expires, err := ctrl.Sessions.Issue(middleware.Session{
		UserID: admin.ID,
		Email:  admin.Username,
		Role:   middleware.RoleAdmin,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": expires.UTC().Format(time.RFC3339),
		"user": gin.H{
			"id":        admin.ID,
			"full_name": admin.FullName,
			"username":  admin.Username,
			"role":      middleware.RoleAdmin,
		},
	})
}

func (ctrl *AuthController) Me(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "error.unauthorized", "no session")
		return
	}
	c.JSON(http.StatusOK, session)
}
