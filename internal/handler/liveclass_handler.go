package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andile-m/brightclass-api/internal/models"
	"github.com/andile-m/brightclass-api/internal/service"
	appErrors "github.com/andile-m/brightclass-api/pkg/errors"
	"github.com/andile-m/brightclass-api/pkg/response"
)

type liveClassService interface {
	Create(ctx context.Context, claims *models.JWTClaims, req service.CreateLiveClassRequest) (*models.LiveClass, error)
	ListUpcomingForStudent(ctx context.Context, claims *models.JWTClaims) ([]models.LiveClassDetail, error)
	ListForInstructor(ctx context.Context, claims *models.JWTClaims) ([]models.LiveClassDetail, error)
	GetByID(ctx context.Context, claims *models.JWTClaims, id string) (*models.LiveClassDetail, error)
	Update(ctx context.Context, claims *models.JWTClaims, req service.UpdateLiveClassRequest) (*models.LiveClassDetail, error)
	Delete(ctx context.Context, claims *models.JWTClaims, id string) error
	ExportSchedule(ctx context.Context, claims *models.JWTClaims, format service.ExportFormat) (*service.ScheduleExport, error)
}

// LiveClassHandler wires HTTP endpoints to the live class service.
type LiveClassHandler struct {
	service liveClassService
}

// NewLiveClassHandler creates a new handler.
func NewLiveClassHandler(svc liveClassService) *LiveClassHandler {
	return &LiveClassHandler{service: svc}
}

// Create godoc
// @Summary Schedule a live class
// @Description Create a live class owned by the authenticated instructor
// @Tags LiveClasses
// @Accept json
// @Produce json
// @Param payload body service.CreateLiveClassRequest true "Live class payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /live-class/create [post]
func (h *LiveClassHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateLiveClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "all required fields must be filled, including at least one student"))
		return
	}

	class, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Live class created successfully", class)
}

// Upcoming godoc
// @Summary List upcoming classes for the caller
// @Description Classes the caller is enrolled in that have not yet ended
// @Tags LiveClasses
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /live-class/upcoming [get]
func (h *LiveClassHandler) Upcoming(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	classes, err := h.service.ListUpcomingForStudent(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", classes)
}

// TeacherClasses godoc
// @Summary List the instructor's own upcoming classes
// @Tags LiveClasses
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /live-class/teacher [get]
func (h *LiveClassHandler) TeacherClasses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	classes, err := h.service.ListForInstructor(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", classes)
}

// Join godoc
// @Summary Fetch a class for joining
// @Description Full class detail including the meeting link. The caller must
// be on the roster or be the owning instructor.
// @Tags LiveClasses
// @Produce json
// @Param classId query string true "Class id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /live-class/join [get]
func (h *LiveClassHandler) Join(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.GetByID(c.Request.Context(), claims, c.Query("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Live class fetched successfully", detail)
}

// Update godoc
// @Summary Update a live class
// @Description Apply a sparse patch to a class owned by the caller
// @Tags LiveClasses
// @Accept json
// @Produce json
// @Param payload body service.UpdateLiveClassRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /live-class/update [put]
func (h *LiveClassHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateLiveClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	detail, err := h.service.Update(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Live class updated successfully", detail)
}

// Delete godoc
// @Summary Delete a live class
// @Description Permanently remove a class owned by the caller
// @Tags LiveClasses
// @Accept json
// @Produce json
// @Param payload body object true "Body with classId"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /live-class/delete [delete]
func (h *LiveClassHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		ClassID string `json:"classId"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || payload.ClassID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId is required"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims, payload.ClassID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Live class deleted successfully", nil)
}

// Export godoc
// @Summary Export the instructor's schedule
// @Description Render the caller's upcoming classes as CSV or PDF
// @Tags LiveClasses
// @Produce octet-stream
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /live-class/export [get]
func (h *LiveClassHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportCSV)))
	doc, err := h.service.ExportSchedule(c.Request.Context(), claims, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}
