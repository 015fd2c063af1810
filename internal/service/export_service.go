package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-issue-tracker/internal/models"
	"github.com/noah-isme/lab-issue-tracker/internal/policy"
	appErrors "github.com/noah-isme/lab-issue-tracker/pkg/errors"
	"github.com/noah-isme/lab-issue-tracker/pkg/export"
)

type issueLister interface {
	list(ctx context.Context, filter models.IssueFilter) ([]models.IssueDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered issue listing ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders issue listings as CSV or PDF.
type ExportService struct {
	issues issueLister
	policy *policy.Policy
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(issues *IssueService, pol *policy.Policy, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pol == nil {
		pol = policy.Default()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		issues: issues,
		policy: pol,
		csv:    csv,
		pdf:    pdf,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ExportIssues renders the same listing List returns for filter.
func (s *ExportService) ExportIssues(ctx context.Context, actor *models.JWTClaims, filter models.IssueFilter, format export.Format) (*ExportFile, error) {
	if err := s.policy.Authorize(actor, policy.ActionIssueExport); err != nil {
		return nil, err
	}

	issues, err := s.issues.list(ctx, filter)
	if err != nil {
		return nil, err
	}
	dataset := issueDataset(issues, filter)

	var payload []byte
	switch format {
	case export.FormatCSV:
		payload, err = s.csv.Render(dataset)
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("issues exported",
		zap.String("format", string(format)),
		zap.String("scope", string(filter.Scope)),
		zap.Int("rows", len(issues)),
		zap.String("actor_id", actor.UserID),
	)
	return &ExportFile{
		Filename:    fmt.Sprintf("issues_%s_%s.%s", scopeLabel(filter), s.now().Format("20060102_150405"), format),
		ContentType: format.ContentType(),
		Data:        payload,
	}, nil
}

func issueDataset(issues []models.IssueDetail, filter models.IssueFilter) export.Dataset {
	ds := export.Dataset{
		Title:   "Issues: " + scopeLabel(filter),
		Headers: []string{"ID", "Lab", "Type", "Equipment", "Description", "Status", "Reported By", "Created At", "Resolved At"},
	}
	for _, issue := range issues {
		resolvedAt := ""
		if issue.ResolvedAt != nil {
			resolvedAt = issue.ResolvedAt.UTC().Format(time.RFC3339)
		}
		ds.AddRow(
			issue.ID,
			issue.Lab.Name,
			string(issue.Lab.Type),
			string(issue.EquipmentType),
			issue.Description,
			string(issue.Status),
			issue.Reporter.Email,
			issue.CreatedAt.UTC().Format(time.RFC3339),
			resolvedAt,
		)
	}
	return ds
}

func scopeLabel(filter models.IssueFilter) string {
	switch filter.Scope {
	case models.IssueScopeResolved:
		return "resolved"
	case models.IssueScopeLab:
		return "lab-" + strings.ReplaceAll(filter.LabID, "/", "-")
	default:
		return "all"
	}
}
