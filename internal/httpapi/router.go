package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/auntor69/ewu-hub-3.0/internal/auth"
	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
)

// NewRouter wires the JSON gateway. gatherer backs /metrics.
func NewRouter(h *Handler, tokens *auth.Tokens, accounts calendar.AccountStore, gatherer prometheus.Gatherer, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLog(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.Use(JWTAuth(tokens, accounts))
	{
		v1.GET("/availability/seats", h.SeatAvailability)
		v1.GET("/availability/equipment", h.EquipmentAvailability)

		v1.POST("/reservations/seats", h.ReserveSeats)
		v1.POST("/reservations/equipment", h.ReserveEquipment)
		v1.POST("/reservations/rooms", RequireRole(calendar.RoleFaculty, calendar.RoleAdmin), h.ReserveRoom)

		v1.GET("/bookings/mine", h.MyBookings)
		v1.POST("/bookings/:id/cancel", h.Cancel)

		staff := v1.Group("")
		staff.Use(RequireRole(calendar.RoleStaff, calendar.RoleAdmin))
		staff.POST("/checkin", h.CheckIn)
		staff.GET("/bookings/day", h.DayBookings)
	}
	return r
}
