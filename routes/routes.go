package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bungalow-backend/controllers"
	"bungalow-backend/middleware"
)

type Handlers struct {
	Auth         *controllers.AuthController
	Reservations *controllers.ReservationController
	Calendar     *controllers.CalendarController
	Rooms        *controllers.RoomController
	Rates        *controllers.SeasonalRateController
}

type Options struct {
	CORSOrigins    []string
	MetricsEnabled bool
}

func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "If-Match"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "ETag", "X-Total-Count", "X-Page", "X-Per-Page"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}
}

// SetupRouter wires every handler. Staff routes need an admin session,
// customer routes accept customer or admin sessions.
func SetupRouter(h Handlers, sessions *middleware.SessionManager, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	staff := sessions.Require(middleware.RoleAdmin)
	anySession := sessions.Require(middleware.RoleCustomer, middleware.RoleAdmin)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.GET("/me", anySession, h.Auth.Me)
		}

		rooms := api.Group("/rooms")
		{
			rooms.GET("", h.Rooms.List)
			rooms.GET("/:id", h.Rooms.Get)
			rooms.GET("/:id/price", h.Rooms.Price)
			rooms.GET("/:id/quote", h.Rooms.Quote)
			rooms.POST("", staff, h.Rooms.Create)
			rooms.PUT("/:id", staff, h.Rooms.Update)
			rooms.DELETE("/:id", staff, h.Rooms.Delete)
		}

		rates := api.Group("/seasonal_rates")
		{
			rates.GET("/rooms/:roomId", h.Rates.ListForRoom)
			rates.POST("", staff, h.Rates.Create)
			rates.PUT("/:id", staff, h.Rates.Update)
			rates.DELETE("/:id", staff, h.Rates.Delete)
		}

		customers := api.Group("/customers", anySession)
		{
			customers.GET("/reservations", h.Reservations.CustomerList)
			customers.POST("/reservations", h.Reservations.CustomerCreate)
		}

		admin := api.Group("/admin", staff)
		{
			admin.GET("/reservations", h.Reservations.AdminList)
			admin.GET("/reservations/:id", h.Reservations.AdminGet)
			admin.GET("/reservations/:id/events", h.Reservations.Events)
			admin.PUT("/reservations/:id/approve", h.Reservations.Approve)
			admin.PUT("/reservations/:id/cancel", h.Reservations.Cancel)
			admin.PUT("/reservations/:id/mark-paid", h.Reservations.MarkPaid)
			admin.PUT("/reservations/:id/mark-unpaid", h.Reservations.MarkUnpaid)

			admin.GET("/calendar", h.Calendar.Range)
			admin.GET("/calendar/grid", h.Calendar.Grid)
			admin.GET("/calendar/export", h.Calendar.Export)

			admin.GET("/seasonal_rates", h.Rates.ListAll)
			admin.GET("/seasonal_rates/:id", h.Rates.Get)
			admin.POST("/seasonal_rates", h.Rates.Create)
			admin.PUT("/seasonal_rates/:id", h.Rates.Update)
			admin.DELETE("/seasonal_rates/:id", h.Rates.Delete)
		}
	}

	return r
}
