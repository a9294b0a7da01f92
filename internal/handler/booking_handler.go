package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/moveboard/service-booking/internal/application"
	"github.com/moveboard/service-booking/internal/auth"
	bookingDomain "github.com/moveboard/service-booking/internal/domain/booking"
	"github.com/moveboard/service-booking/internal/middleware"
	"github.com/moveboard/service-booking/internal/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.Auth(jwtManager)
	staffMW := middleware.RequireRole(auth.RoleMoverStaff, auth.RoleAdmin)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.GET("/:id/history", h.GetHistory)
		bookings.GET("/number/:number", h.GetBookingByNumber)
		bookings.POST("/:id/start", staffMW, h.StartMove)
		bookings.POST("/:id/complete", staffMW, h.CompleteMove)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.POST("/:id/rebook", h.RebookBooking)
		bookings.POST("/:id/assign-truck", staffMW, h.AssignTruck)
	}

	availability := r.Group("/api/v1/availability")
	availability.Use(authMW)
	{
		availability.GET("", h.CheckAvailability)
	}

	trucks := r.Group("/api/v1/trucks")
	trucks.Use(authMW, staffMW)
	{
		trucks.GET("/:id/schedule", h.TruckSchedule)
	}
}

type createBookingBody struct {
	TruckID  *uuid.UUID                    `json:"truck_id"`
	Customer bookingDomain.CustomerContact `json:"customer" binding:"required"`
	Move     bookingDomain.MoveDetails     `json:"move" binding:"required"`
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var body createBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), application.CreateBookingRequest{
		OrgID:    claims.OrgID,
		TruckID:  body.TruckID,
		Customer: body.Customer,
		Move:     body.Move,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListBookings handles GET /api/v1/bookings, scoped to the caller's organization.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	page, limit := parsePagination(c)
	items, total, err := h.service.ListBookings(c.Request.Context(), claims.OrgID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, items, page, limit, total)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// GetBookingByNumber handles GET /api/v1/bookings/number/:number.
func (h *BookingHandler) GetBookingByNumber(c *gin.Context) {
	result, err := h.service.GetBookingByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// GetHistory handles GET /api/v1/bookings/:id/history.
func (h *BookingHandler) GetHistory(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	records, err := h.service.GetHistory(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, records)
}

// StartMove handles POST /api/v1/bookings/:id/start.
func (h *BookingHandler) StartMove(c *gin.Context) {
	h.transition(c, bookingDomain.StatusInProgress, "move started")
}

// CompleteMove handles POST /api/v1/bookings/:id/complete.
func (h *BookingHandler) CompleteMove(c *gin.Context) {
	h.transition(c, bookingDomain.StatusCompleted, "move completed")
}

func (h *BookingHandler) transition(c *gin.Context, to bookingDomain.BookingStatus, defaultReason string) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.Reason == "" {
		body.Reason = defaultReason
	}

	result, err := h.service.Transition(c.Request.Context(), application.TransitionRequest{
		BookingID: bookingID,
		ToStatus:  to,
		ActorID:   &claims.UserID,
		ActorType: actorTypeForRole(claims.Role),
		Reason:    body.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	result, err := h.service.CancelBooking(c.Request.Context(), application.CancelBookingRequest{
		BookingID: bookingID,
		ActorID:   &claims.UserID,
		ActorType: actorTypeForRole(claims.Role),
		Reason:    body.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// RebookBooking handles POST /api/v1/bookings/:id/rebook.
func (h *BookingHandler) RebookBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	var body struct {
		MoveDate time.Time `json:"move_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Rebook(c.Request.Context(), bookingID, body.MoveDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// AssignTruck handles POST /api/v1/bookings/:id/assign-truck.
func (h *BookingHandler) AssignTruck(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	var body struct {
		TruckID uuid.UUID `json:"truck_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AssignTruck(c.Request.Context(), bookingID, body.TruckID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// CheckAvailability handles GET /api/v1/availability.
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	truckID, err := uuid.Parse(c.Query("truck_id"))
	if err != nil {
		response.BadRequest(c, "invalid truck ID")
		return
	}

	moveDate, err := time.Parse(time.RFC3339, c.Query("move_date"))
	if err != nil {
		response.BadRequest(c, "move_date must be RFC3339")
		return
	}

	durationHours, err := strconv.ParseFloat(c.DefaultQuery("duration_hours", "4"), 64)
	if err != nil {
		response.BadRequest(c, "invalid duration_hours")
		return
	}

	result, err := h.service.CheckAvailability(c.Request.Context(), truckID, moveDate, durationHours)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// TruckSchedule handles GET /api/v1/trucks/:id/schedule.
func (h *BookingHandler) TruckSchedule(c *gin.Context) {
	truckID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid truck ID")
		return
	}

	schedule, err := h.service.TruckSchedule(c.Request.Context(), truckID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, schedule)
}

func actorTypeForRole(role string) bookingDomain.ActorType {
	switch role {
	case auth.RoleMoverStaff:
		return bookingDomain.ActorMoverStaff
	case auth.RoleAdmin:
		return bookingDomain.ActorAdmin
	default:
		return bookingDomain.ActorCustomer
	}
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
