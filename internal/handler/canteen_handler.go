package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	"github.com/stpp-dev/rekod-sekolah-api/internal/service"
	appErrors "github.com/stpp-dev/rekod-sekolah-api/pkg/errors"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/response"
)

// CanteenHandler exposes the day's lunch distribution endpoints.
type CanteenHandler struct {
	canteen *service.CanteenService
	metrics *service.MetricsService
}

// NewCanteenHandler constructs CanteenHandler.
func NewCanteenHandler(canteen *service.CanteenService, metrics *service.MetricsService) *CanteenHandler {
	return &CanteenHandler{canteen: canteen, metrics: metrics}
}

type setLunchRequest struct {
	Received *bool `json:"received" binding:"required"`
}

// Today godoc
// @Summary List today's present students and their lunch state
// @Tags Canteen
// @Produce json
// @Security BearerAuth
// @Param gradeId query string false "Filter by grade"
// @Param search query string false "Search by name or code"
// @Success 200 {object} response.Envelope
// @Router /canteen/today [get]
func (h *CanteenHandler) Today(c *gin.Context) {
	filter := models.StudentFilter{
		GradeID: c.Query("gradeId"),
		Search:  strings.TrimSpace(c.Query("search")),
	}
	rows, err := h.canteen.TodayView(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// SetLunch godoc
// @Summary Record or revert a lunch hand-out for a student
// @Tags Canteen
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param payload body setLunchRequest true "Received flag"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /canteen/today/{studentId} [put]
func (h *CanteenHandler) SetLunch(c *gin.Context) {
	var req setLunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	record, err := h.canteen.SetLunch(c.Request.Context(), c.Param("studentId"), *req.Received)
	if err != nil {
		response.Error(c, err)
		return
	}
	if *req.Received && h.metrics != nil {
		h.metrics.RecordLunch()
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// MarkAll godoc
// @Summary Mark lunch received for every present student in the filtered view
// @Tags Canteen
// @Produce json
// @Security BearerAuth
// @Param gradeId query string false "Filter by grade"
// @Param search query string false "Search by name or code"
// @Success 200 {object} response.Envelope
// @Router /canteen/today/mark-all [post]
func (h *CanteenHandler) MarkAll(c *gin.Context) {
	filter := models.StudentFilter{
		GradeID: c.Query("gradeId"),
		Search:  strings.TrimSpace(c.Query("search")),
	}
	result, err := h.canteen.MarkAllLunch(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
