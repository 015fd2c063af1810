package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-issue-tracker/internal/models"
	"github.com/noah-isme/lab-issue-tracker/internal/policy"
	appErrors "github.com/noah-isme/lab-issue-tracker/pkg/errors"
)

type issueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	FindByID(ctx context.Context, id string) (*models.Issue, error)
	FindDetailByID(ctx context.Context, id string) (*models.IssueDetail, error)
	List(ctx context.Context, filter models.IssueFilter) ([]models.IssueDetail, error)
	MarkResolved(ctx context.Context, id string, resolvedAt time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	CountOpenByLab(ctx context.Context, labID string) (int, error)
}

type labLookup interface {
	FindByID(ctx context.Context, id string) (*models.Lab, error)
}

// ReportIssueRequest is the payload for reporting a fault.
type ReportIssueRequest struct {
	LabID         string               `json:"labId" validate:"required"`
	EquipmentType models.EquipmentType `json:"equipmentType" validate:"required,oneof=general computers lights fans smartBoard"`
	Description   string               `json:"description" validate:"required"`
}

const (
	issueEventReported = "reported"
	issueEventResolved = "resolved"
	issueEventDeleted  = "deleted"
)

// IssueService implements the issue lifecycle. Every mutation ends by reconciling the owning
// lab's status.
type IssueService struct {
	issues     issueRepository
	labs       labLookup
	reconciler *Reconciler
	policy     *policy.Policy
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewIssueService constructs IssueService.
func NewIssueService(issues issueRepository, labs labLookup, reconciler *Reconciler, pol *policy.Policy, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *IssueService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pol == nil {
		pol = policy.Default()
	}
	return &IssueService{
		issues:     issues,
		labs:       labs,
		reconciler: reconciler,
		policy:     pol,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Report files a new open issue against an existing lab.
func (s *IssueService) Report(ctx context.Context, actor *models.JWTClaims, req ReportIssueRequest) (*models.IssueDetail, error) {
	if err := s.policy.Authorize(actor, policy.ActionIssueReport); err != nil {
		return nil, err
	}

	req.Description = strings.TrimSpace(req.Description)
	req.LabID = strings.TrimSpace(req.LabID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid issue payload")
	}

	if _, err := s.labs.FindByID(ctx, req.LabID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab")
	}

	issue := &models.Issue{
		LabID:         req.LabID,
		ReportedBy:    actor.UserID,
		EquipmentType: req.EquipmentType,
		Description:   req.Description,
		Status:        models.IssueStatusOpen,
		CreatedAt:     s.now(),
	}
	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create issue")
	}
	s.metrics.RecordIssueEvent(issueEventReported)

	if err := s.reconciler.reconcileAfter(ctx, issue.LabID, "report"); err != nil {
		return nil, err
	}

	s.logger.Info("issue reported",
		zap.String("issue_id", issue.ID),
		zap.String("lab_id", issue.LabID),
		zap.String("reported_by", actor.UserID),
		zap.String("equipment_type", string(issue.EquipmentType)),
	)
	return s.loadDetail(ctx, issue.ID)
}

// Resolve closes an open issue. Resolving twice is rejected so resolvedAt keeps the first
// resolution time.
func (s *IssueService) Resolve(ctx context.Context, actor *models.JWTClaims, id string) (*models.IssueDetail, error) {
	if err := s.policy.Authorize(actor, policy.ActionIssueResolve); err != nil {
		return nil, err
	}

	issue, err := s.findIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.Status == models.IssueStatusResolved {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "issue already resolved")
	}

	resolvedAt := s.now()
	if resolvedAt.Before(issue.CreatedAt) {
		resolvedAt = issue.CreatedAt
	}
	updated, err := s.issues.MarkResolved(ctx, issue.ID, resolvedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve issue")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "issue already resolved")
	}
	s.metrics.RecordIssueEvent(issueEventResolved)

	if err := s.reconciler.reconcileAfter(ctx, issue.LabID, "resolve"); err != nil {
		return nil, err
	}

	s.logger.Info("issue resolved",
		zap.String("issue_id", issue.ID),
		zap.String("lab_id", issue.LabID),
		zap.String("resolved_by", actor.UserID),
	)
	return s.loadDetail(ctx, issue.ID)
}

// Delete removes an issue regardless of its status.
func (s *IssueService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := s.policy.Authorize(actor, policy.ActionIssueDelete); err != nil {
		return err
	}

	issue, err := s.findIssue(ctx, id)
	if err != nil {
		return err
	}

	if err := s.issues.Delete(ctx, issue.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "issue not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete issue")
	}
	s.metrics.RecordIssueEvent(issueEventDeleted)

	if err := s.reconciler.reconcileAfter(ctx, issue.LabID, "delete"); err != nil {
		return err
	}

	s.logger.Info("issue deleted",
		zap.String("issue_id", issue.ID),
		zap.String("lab_id", issue.LabID),
		zap.String("deleted_by", actor.UserID),
	)
	return nil
}

// List returns issues for the requested scope, each joined with lab and reporter.
func (s *IssueService) List(ctx context.Context, actor *models.JWTClaims, filter models.IssueFilter) ([]models.IssueDetail, error) {
	if err := s.policy.Authorize(actor, policy.ActionIssueRead); err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

// Get returns a single joined issue.
func (s *IssueService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.IssueDetail, error) {
	if err := s.policy.Authorize(actor, policy.ActionIssueRead); err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, id)
}

func (s *IssueService) list(ctx context.Context, filter models.IssueFilter) ([]models.IssueDetail, error) {
	switch filter.Scope {
	case "":
		filter.Scope = models.IssueScopeAll
	case models.IssueScopeAll, models.IssueScopeResolved:
	case models.IssueScopeLab:
		if strings.TrimSpace(filter.LabID) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "lab id is required")
		}
		if _, err := s.labs.FindByID(ctx, filter.LabID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "lab not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown issue filter")
	}

	issues, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list issues")
	}
	return issues, nil
}

func (s *IssueService) findIssue(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := s.issues.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "issue not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load issue")
	}
	return issue, nil
}

func (s *IssueService) loadDetail(ctx context.Context, id string) (*models.IssueDetail, error) {
	detail, err := s.issues.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "issue not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load issue")
	}
	return detail, nil
}
