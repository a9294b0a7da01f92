package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/moveboard/service-booking/internal/application"
	"github.com/moveboard/service-booking/internal/auth"
	bookingDomain "github.com/moveboard/service-booking/internal/domain/booking"
	"github.com/moveboard/service-booking/internal/middleware"
	"github.com/moveboard/service-booking/internal/response"
)

// PricingHandler handles HTTP requests for quotes and pricing configuration.
type PricingHandler struct {
	bookings *application.BookingService
	pricing  *application.PricingService
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(bookings *application.BookingService, pricing *application.PricingService) *PricingHandler {
	return &PricingHandler{bookings: bookings, pricing: pricing}
}

// RegisterRoutes registers pricing routes on the given router group.
func (h *PricingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.Auth(jwtManager)

	quotes := r.Group("/api/v1/quotes")
	quotes.Use(authMW)
	{
		quotes.POST("", h.Quote)
	}

	configs := r.Group("/api/v1/pricing-config")
	configs.Use(authMW, middleware.RequireRole(auth.RoleMoverStaff, auth.RoleAdmin))
	{
		configs.GET("", h.GetConfig)
		configs.PUT("", h.PutConfig)
	}
}

// Quote handles POST /api/v1/quotes. It prices a prospective move without
// creating anything.
func (h *PricingHandler) Quote(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var move bookingDomain.MoveDetails
	if err := c.ShouldBindJSON(&move); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	breakdown, err := h.bookings.Quote(c.Request.Context(), claims.OrgID, move)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, breakdown)
}

// GetConfig handles GET /api/v1/pricing-config.
func (h *PricingHandler) GetConfig(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	cfg, err := h.pricing.GetActiveConfig(c.Request.Context(), claims.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, cfg)
}

// PutConfig handles PUT /api/v1/pricing-config. The raw body goes through the
// strict config parser, so unknown fields are rejected rather than silently
// dropped.
func (h *PricingHandler) PutConfig(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "failed to read request body")
		return
	}

	cfg, err := h.pricing.PutConfig(c.Request.Context(), claims.OrgID, raw)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, cfg)
}
