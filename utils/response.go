package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

type PageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"status": "success", "data": data})
}

// JSONError writes {"error": {"code", "message", "details"}} and aborts the chain.
func JSONError(c *gin.Context, status int, code, message string, details ...string) {
	body := gin.H{"code": code, "message": message}
	if len(details) > 0 && details[0] != "" {
		body["details"] = details[0]
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// JSONPage writes a plain array body and reports paging in headers, so list
// consumers that expect an array keep working.
func JSONPage(c *gin.Context, status int, data interface{}, meta PageMeta) {
	c.Header("X-Total-Count", strconv.FormatInt(meta.Total, 10))
	c.Header("X-Page", strconv.Itoa(meta.Page))
	c.Header("X-Per-Page", strconv.Itoa(meta.PerPage))
	c.JSON(status, data)
}
