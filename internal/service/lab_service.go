package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-issue-tracker/internal/models"
	"github.com/noah-isme/lab-issue-tracker/internal/policy"
	appErrors "github.com/noah-isme/lab-issue-tracker/pkg/errors"
)

type labRepository interface {
	List(ctx context.Context, filter models.LabFilter) ([]models.Lab, error)
	FindByID(ctx context.Context, id string) (*models.Lab, error)
	Create(ctx context.Context, lab *models.Lab) error
	Update(ctx context.Context, lab *models.Lab) error
	UpdateStatus(ctx context.Context, id string, status models.LabStatus) error
	Delete(ctx context.Context, id string) error
}

// LabRequest is the payload for creating or updating a lab.
type LabRequest struct {
	Name      string           `json:"labName" validate:"required"`
	Type      models.LabType   `json:"type" validate:"required,oneof=Lab Classroom"`
	Equipment models.Equipment `json:"equipment"`
}

// LabStatusRequest carries a manual status override.
type LabStatusRequest struct {
	Status models.LabStatus `json:"status" validate:"required"`
}

// LabService manages rooms and their equipment inventory.
type LabService struct {
	labs      labRepository
	policy    *policy.Policy
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLabService constructs LabService.
func NewLabService(labs labRepository, pol *policy.Policy, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LabService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pol == nil {
		pol = policy.Default()
	}
	return &LabService{labs: labs, policy: pol, metrics: metrics, validator: validate, logger: logger}
}

// List returns labs matching the filter, newest first.
func (s *LabService) List(ctx context.Context, actor *models.JWTClaims, filter models.LabFilter) ([]models.Lab, error) {
	if err := s.policy.Authorize(actor, policy.ActionLabRead); err != nil {
		return nil, err
	}
	if filter.Type != "" && filter.Type != models.LabTypeLab && filter.Type != models.LabTypeClassroom {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown lab type")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown lab status")
	}

	labs, err := s.labs.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list labs")
	}
	return labs, nil
}

// Get returns one lab.
func (s *LabService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Lab, error) {
	if err := s.policy.Authorize(actor, policy.ActionLabRead); err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

// Create adds a lab. New labs have no issues and therefore start normal.
func (s *LabService) Create(ctx context.Context, actor *models.JWTClaims, req LabRequest) (*models.Lab, error) {
	if err := s.policy.Authorize(actor, policy.ActionLabCreate); err != nil {
		return nil, err
	}
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	lab := &models.Lab{
		Name:      req.Name,
		Type:      req.Type,
		Equipment: req.Equipment,
		Status:    models.LabStatusNormal,
	}
	if err := s.labs.Create(ctx, lab); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lab")
	}

	s.logger.Info("lab created", zap.String("lab_id", lab.ID), zap.String("created_by", actor.UserID))
	return lab, nil
}

// Update replaces the descriptive fields of a lab. The status is owned by reconciliation and
// is not changed here.
func (s *LabService) Update(ctx context.Context, actor *models.JWTClaims, id string, req LabRequest) (*models.Lab, error) {
	if err := s.policy.Authorize(actor, policy.ActionLabUpdate); err != nil {
		return nil, err
	}
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	lab, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	lab.Name = req.Name
	lab.Type = req.Type
	lab.Equipment = req.Equipment

	if err := s.labs.Update(ctx, lab); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lab")
	}

	s.logger.Info("lab updated", zap.String("lab_id", lab.ID), zap.String("updated_by", actor.UserID))
	return lab, nil
}

// Delete removes the lab and every issue filed against it.
func (s *LabService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := s.policy.Authorize(actor, policy.ActionLabDelete); err != nil {
		return err
	}

	if err := s.labs.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lab")
	}

	s.logger.Info("lab deleted", zap.String("lab_id", id), zap.String("deleted_by", actor.UserID))
	return nil
}

// OverrideStatus writes a status chosen by an administrator. The next issue event on the lab
// derives the status again from its open issues.
func (s *LabService) OverrideStatus(ctx context.Context, actor *models.JWTClaims, id string, req LabStatusRequest) (*models.Lab, error) {
	if err := s.policy.Authorize(actor, policy.ActionLabOverrideStatus); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be normal or issue")
	}

	lab, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := lab.Status

	if err := s.labs.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lab status")
	}
	lab.Status = req.Status

	if previous != req.Status {
		s.metrics.RecordStatusTransition(previous, req.Status, transitionSourceOverride)
	}
	s.logger.Info("lab status overridden",
		zap.String("lab_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(req.Status)),
		zap.String("actor_id", actor.UserID),
	)
	return lab, nil
}

func (s *LabService) validate(req *LabRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lab payload")
	}
	return nil
}

func (s *LabService) find(ctx context.Context, id string) (*models.Lab, error) {
	lab, err := s.labs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab")
	}
	return lab, nil
}
