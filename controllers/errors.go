package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"bungalow-backend/services"
	"bungalow-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the "isodate" tag to gin's validator so payload
// dates are checked at bind time.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err := v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := utils.ParseISODate(fl.Field().String())
			return err == nil
		})
		if err != nil {
			log.Printf("warning: cannot register isodate validator: %v", err)
		}
	})
}

// respondError maps service errors to the {"error": {...}} envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.JSONError(c, http.StatusBadRequest, "error.validation", "request is invalid", err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "error.notFound", "resource not found", err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		utils.JSONError(c, http.StatusConflict, "error.invalidTransition", "status change not allowed", err.Error())
	case errors.Is(err, services.ErrDoubleBooking):
		utils.JSONError(c, http.StatusConflict, "error.doubleBooking", "bungalow already booked for these dates", err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.JSONError(c, http.StatusConflict, "error.conflict", "resource was modified, reload and retry", err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.JSONError(c, http.StatusUnauthorized, "error.invalidCredentials", "invalid username or password")
	default:
		log.Printf("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		_ = c.Error(err)
		utils.JSONError(c, http.StatusInternalServerError, "error.internal", "unexpected server error")
	}
}

func respondBindError(c *gin.Context, err error) {
	utils.JSONError(c, http.StatusBadRequest, "error.invalidPayload", "invalid request payload", err.Error())
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.JSONError(c, http.StatusBadRequest, "error.invalidId", fmt.Sprintf("%s must be a positive integer", name))
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "error.validation", fmt.Sprintf("%s must be an integer", key))
		return 0, false
	}
	return n, true
}

func queryDate(c *gin.Context, key string) (time.Time, bool) {
	t, err := utils.ParseISODate(c.Query(key))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "error.validation", fmt.Sprintf("%s must be a YYYY-MM-DD date", key), err.Error())
		return time.Time{}, false
	}
	return t, true
}

// expectedVersion reads the optimistic concurrency token from If-Match.
// Both `3` and `"3"` (and weak W/"3") are accepted.
func expectedVersion(c *gin.Context) (*uint, bool) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" || raw == "*" {
		return nil, true
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "error.validation", "If-Match must carry a reservation version")
		return nil, false
	}
	version := uint(v)
	return &version, true
}

func setVersionTag(c *gin.Context, version uint) {
	c.Header("ETag", fmt.Sprintf(`"%d"`, version))
}
