package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-issue-tracker/internal/middleware"
	"github.com/noah-isme/lab-issue-tracker/internal/models"
	"github.com/noah-isme/lab-issue-tracker/internal/service"
	appErrors "github.com/noah-isme/lab-issue-tracker/pkg/errors"
	"github.com/noah-isme/lab-issue-tracker/pkg/export"
	"github.com/noah-isme/lab-issue-tracker/pkg/response"
)

type issueService interface {
	Report(ctx context.Context, actor *models.JWTClaims, req service.ReportIssueRequest) (*models.IssueDetail, error)
	Resolve(ctx context.Context, actor *models.JWTClaims, id string) (*models.IssueDetail, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	List(ctx context.Context, actor *models.JWTClaims, filter models.IssueFilter) ([]models.IssueDetail, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.IssueDetail, error)
}

type issueExporter interface {
	ExportIssues(ctx context.Context, actor *models.JWTClaims, filter models.IssueFilter, format export.Format) (*service.ExportFile, error)
}

// IssueHandler exposes the issue lifecycle endpoints.
type IssueHandler struct {
	service  issueService
	exporter issueExporter
}

// NewIssueHandler constructs an issue handler.
func NewIssueHandler(svc issueService, exporter issueExporter) *IssueHandler {
	return &IssueHandler{service: svc, exporter: exporter}
}

// List godoc
// @Summary List issues
// @Description All issues, newest first, joined with lab and reporter.
// @Tags Issues
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /issues [get]
func (h *IssueHandler) List(c *gin.Context) {
	h.list(c, models.IssueFilter{Scope: models.IssueScopeAll})
}

// ListResolved godoc
// @Summary List resolved issues
// @Description Resolved issues ordered by resolution time, newest first.
// @Tags Issues
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /issues/resolved [get]
func (h *IssueHandler) ListResolved(c *gin.Context) {
	h.list(c, models.IssueFilter{Scope: models.IssueScopeResolved})
}

// ListByLab godoc
// @Summary List issues of a lab
// @Tags Issues
// @Produce json
// @Security BearerAuth
// @Param labId path string true "Lab ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorBody
// @Router /issues/lab/{labId} [get]
func (h *IssueHandler) ListByLab(c *gin.Context) {
	h.list(c, models.IssueFilter{Scope: models.IssueScopeLab, LabID: c.Param("labId")})
}

func (h *IssueHandler) list(c *gin.Context, filter models.IssueFilter) {
	issues, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issues, map[string]interface{}{"total": len(issues)})
}

// Get godoc
// @Summary Get issue
// @Tags Issues
// @Produce json
// @Security BearerAuth
// @Param id path string true "Issue ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorBody
// @Router /issues/{id} [get]
func (h *IssueHandler) Get(c *gin.Context) {
	issue, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issue)
}

// Report godoc
// @Summary Report issue
// @Tags Issues
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.ReportIssueRequest true "Issue payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /issues [post]
func (h *IssueHandler) Report(c *gin.Context) {
	var req service.ReportIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid issue payload"))
		return
	}
	issue, err := h.service.Report(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.AuditResourceIDKey, issue.ID)
	response.Created(c, issue)
}

// Resolve godoc
// @Summary Resolve issue
// @Tags Issues
// @Produce json
// @Security BearerAuth
// @Param id path string true "Issue ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /issues/{id}/resolve [patch]
func (h *IssueHandler) Resolve(c *gin.Context) {
	issue, err := h.service.Resolve(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issue)
}

// Delete godoc
// @Summary Delete issue
// @Tags Issues
// @Produce json
// @Security BearerAuth
// @Param id path string true "Issue ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /issues/{id} [delete]
func (h *IssueHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "issue deleted")
}

// Export godoc
// @Summary Export issues
// @Tags Issues
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Param filter query string false "all, resolved or lab"
// @Param labId query string false "Lab ID when filter=lab"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /issues/export [get]
func (h *IssueHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return
	}
	filter := models.IssueFilter{Scope: models.IssueScope(c.DefaultQuery("filter", string(models.IssueScopeAll))), LabID: c.Query("labId")}
	if filter.LabID != "" && c.Query("filter") == "" {
		filter.Scope = models.IssueScopeLab
	}

	file, err := h.exporter.ExportIssues(c.Request.Context(), claimsFromContext(c), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
