package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-issue-tracker/internal/middleware"
	"github.com/noah-isme/lab-issue-tracker/internal/models"
	"github.com/noah-isme/lab-issue-tracker/internal/service"
	appErrors "github.com/noah-isme/lab-issue-tracker/pkg/errors"
	"github.com/noah-isme/lab-issue-tracker/pkg/response"
)

type labService interface {
	List(ctx context.Context, actor *models.JWTClaims, filter models.LabFilter) ([]models.Lab, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Lab, error)
	Create(ctx context.Context, actor *models.JWTClaims, req service.LabRequest) (*models.Lab, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req service.LabRequest) (*models.Lab, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	OverrideStatus(ctx context.Context, actor *models.JWTClaims, id string, req service.LabStatusRequest) (*models.Lab, error)
}

// LabHandler exposes lab management endpoints.
type LabHandler struct {
	service labService
}

// NewLabHandler constructs a lab handler.
func NewLabHandler(svc labService) *LabHandler {
	return &LabHandler{service: svc}
}

// List godoc
// @Summary List labs
// @Tags Labs
// @Produce json
// @Security BearerAuth
// @Param type query string false "Lab or Classroom"
// @Param status query string false "normal or issue"
// @Success 200 {object} response.Envelope
// @Router /labs [get]
func (h *LabHandler) List(c *gin.Context) {
	filter := models.LabFilter{
		Type:   models.LabType(c.Query("type")),
		Status: models.LabStatus(c.Query("status")),
	}
	labs, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, labs, map[string]interface{}{"total": len(labs)})
}

// Get godoc
// @Summary Get lab
// @Tags Labs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lab ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorBody
// @Router /labs/{id} [get]
func (h *LabHandler) Get(c *gin.Context) {
	lab, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lab)
}

// Create godoc
// @Summary Create lab
// @Tags Labs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.LabRequest true "Lab payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /labs [post]
func (h *LabHandler) Create(c *gin.Context) {
	var req service.LabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lab payload"))
		return
	}
	lab, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.AuditResourceIDKey, lab.ID)
	response.Created(c, lab)
}

// Update godoc
// @Summary Update lab
// @Description Replace name, type and equipment. Status is not changed.
// @Tags Labs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lab ID"
// @Param payload body service.LabRequest true "Lab payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /labs/{id} [put]
func (h *LabHandler) Update(c *gin.Context) {
	var req service.LabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lab payload"))
		return
	}
	lab, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lab)
}

// Delete godoc
// @Summary Delete lab
// @Description Deletes the lab and all of its issues.
// @Tags Labs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lab ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorBody
// @Router /labs/{id} [delete]
func (h *LabHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "lab deleted")
}

// UpdateStatus godoc
// @Summary Override lab status
// @Description Manually set normal or issue. The next issue event derives the status again.
// @Tags Labs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lab ID"
// @Param payload body service.LabStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /labs/{id}/status [patch]
func (h *LabHandler) UpdateStatus(c *gin.Context) {
	var req service.LabStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	lab, err := h.service.OverrideStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lab)
}
