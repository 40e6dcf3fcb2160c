package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/reservation"
)

type Handler struct {
	svc *reservation.Service
	now func() time.Time
}

func NewHandler(svc *reservation.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
}

type windowQuery struct {
	Start time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	End   time.Time `form:"end"   binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}

func (h *Handler) partition(c *gin.Context, pool []model.Resource, w windowQuery) {
	free, busy, err := h.svc.Partition(c.Request.Context(), pool, w.Start, w.End)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available": toResourceViews(free),
		"busy":      toResourceViews(busy),
	})
}

// GET /v1/availability/seats?start=RFC3339&end=RFC3339
func (h *Handler) SeatAvailability(c *gin.Context) {
	var w windowQuery
	if err := c.ShouldBindQuery(&w); err != nil {
		badRequest(c, err)
		return
	}
	pool, err := h.svc.SeatPool(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	h.partition(c, pool, w)
}

// GET /v1/availability/equipment?type=...&room=...&start=...&end=...
func (h *Handler) EquipmentAvailability(c *gin.Context) {
	var w windowQuery
	if err := c.ShouldBindQuery(&w); err != nil {
		badRequest(c, err)
		return
	}
	pool, err := h.svc.EquipmentPool(c.Request.Context(), c.Query("type"), c.Query("room"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.partition(c, pool, w)
}

type windowBody struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end"   binding:"required"`
}

func (h *Handler) reserve(c *gin.Context, sel reservation.Selection, w windowBody) {
	res, err := h.svc.Reserve(c.Request.Context(), actorOf(c), sel, w.Start, w.End)
	if err != nil {
		writeError(c, err)
		return
	}
	body := gin.H{"bookings": toBookingViews(res.Bookings)}
	if res.Group != nil {
		body["group_id"] = res.Group.ID.String()
	}
	c.JSON(http.StatusCreated, body)
}

// POST /v1/reservations/seats
func (h *Handler) ReserveSeats(c *gin.Context) {
	var in struct {
		windowBody
		ResourceIDs []uuid.UUID `json:"resource_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	h.reserve(c, reservation.SpecificOf(model.ResourceKindLibrarySeat, in.ResourceIDs...), in.windowBody)
}

// POST /v1/reservations/equipment: units are auto-assigned.
func (h *Handler) ReserveEquipment(c *gin.Context) {
	var in struct {
		windowBody
		EquipmentType string `json:"equipment_type" binding:"required"`
		Room          string `json:"room"`
		Count         int    `json:"count" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	pool, err := h.svc.EquipmentPool(c.Request.Context(), in.EquipmentType, in.Room)
	if err != nil {
		writeError(c, err)
		return
	}
	h.reserve(c, reservation.AutoAssign(pool, in.Count), in.windowBody)
}

// POST /v1/reservations/rooms (faculty/admin)
func (h *Handler) ReserveRoom(c *gin.Context) {
	var in struct {
		windowBody
		RoomCode string `json:"room_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	room, err := h.svc.RoomByCode(c.Request.Context(), in.RoomCode)
	if err != nil {
		writeError(c, err)
		return
	}
	h.reserve(c, reservation.SpecificOf(model.ResourceKindRoom, room.ID), in.windowBody)
}

// POST /v1/bookings/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, reservation.ErrBookingNotFound)
		return
	}
	b, err := h.svc.Cancel(c.Request.Context(), actorOf(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": toBookingView(*b)})
}

// GET /v1/bookings/mine?page=1&page_size=20
func (h *Handler) MyBookings(c *gin.Context) {
	page, size := pageQuery(c)
	p, err := h.svc.ListMyBookings(c.Request.Context(), actorOf(c), page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPageView(p, toBookingViews))
}

// POST /v1/checkin (staff/admin)
func (h *Handler) CheckIn(c *gin.Context) {
	var in struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.svc.CheckIn(c.Request.Context(), actorOf(c), in.Code, h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": toBookingView(*b)})
}

// GET /v1/bookings/day?day=RFC3339 (staff/admin); defaults to today.
func (h *Handler) DayBookings(c *gin.Context) {
	day := h.now()
	if v := c.Query("day"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			badRequest(c, err)
			return
		}
		day = t
	}
	page, size := pageQuery(c)
	p, err := h.svc.ListDayBookings(c.Request.Context(), actorOf(c), day, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPageView(p, toBookingViews))
}
