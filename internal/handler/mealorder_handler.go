package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	"github.com/stpp-dev/rekod-sekolah-api/internal/service"
	appErrors "github.com/stpp-dev/rekod-sekolah-api/pkg/errors"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/response"
)

// MealOrderHandler exposes daily meal order endpoints.
type MealOrderHandler struct {
	orders *service.MealOrderService
}

// NewMealOrderHandler constructs MealOrderHandler.
func NewMealOrderHandler(orders *service.MealOrderService) *MealOrderHandler {
	return &MealOrderHandler{orders: orders}
}

// Create godoc
// @Summary File a daily meal order with the food supplier
// @Tags MealOrders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateMealOrderRequest true "Meal order"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /meal-orders [post]
func (h *MealOrderHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateMealOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	order, err := h.orders.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, order)
}

// List godoc
// @Summary List filed meal orders, newest first
// @Tags MealOrders
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} response.Envelope
// @Router /meal-orders [get]
func (h *MealOrderHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	orders, pagination, err := h.orders.List(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orders, pagination)
}
