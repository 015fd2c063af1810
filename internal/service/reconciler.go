package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-issue-tracker/internal/models"
	appErrors "github.com/noah-isme/lab-issue-tracker/pkg/errors"
)

type labStatusStore interface {
	FindByID(ctx context.Context, id string) (*models.Lab, error)
	UpdateStatus(ctx context.Context, id string, status models.LabStatus) error
}

type openIssueCounter interface {
	CountOpenByLab(ctx context.Context, labID string) (int, error)
}

const (
	transitionSourceReconcile = "reconcile"
	transitionSourceOverride  = "override"
)

// DeriveLabStatus maps an open-issue count to the lab status.
func DeriveLabStatus(openCount int) models.LabStatus {
	if openCount > 0 {
		return models.LabStatusIssue
	}
	return models.LabStatusNormal
}

// Reconciler recomputes a lab's status from its open issues. It is the only regular writer
// of labs.status.
type Reconciler struct {
	labs    labStatusStore
	issues  openIssueCounter
	metrics *MetricsService
	logger  *zap.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(labs labStatusStore, issues openIssueCounter, metrics *MetricsService, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{labs: labs, issues: issues, metrics: metrics, logger: logger}
}

// Reconcile derives the lab status from the current open-issue count and stores it when it
// differs. Calling it again without intervening issue changes writes nothing.
func (r *Reconciler) Reconcile(ctx context.Context, labID string) (models.LabStatus, error) {
	start := time.Now()
	defer func() { r.metrics.ObserveReconcile(time.Since(start)) }()

	lab, err := r.labs.FindByID(ctx, labID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab")
	}

	open, err := r.issues.CountOpenByLab(ctx, labID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open issues")
	}

	next := DeriveLabStatus(open)
	if next == lab.Status {
		return next, nil
	}

	if err := r.labs.UpdateStatus(ctx, labID, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lab status")
	}

	r.metrics.RecordStatusTransition(lab.Status, next, transitionSourceReconcile)
	r.logger.Debug("lab status reconciled",
		zap.String("lab_id", labID),
		zap.String("from", string(lab.Status)),
		zap.String("to", string(next)),
		zap.Int("open_issues", open),
	)
	return next, nil
}

// reconcileAfter runs reconciliation as the tail of a lifecycle operation. A lab that has
// vanished in the meantime is logged and tolerated.
func (r *Reconciler) reconcileAfter(ctx context.Context, labID, operation string) error {
	if _, err := r.Reconcile(ctx, labID); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			r.logger.Warn("lab vanished before reconciliation",
				zap.String("lab_id", labID),
				zap.String("operation", operation),
			)
			return nil
		}
		return err
	}
	return nil
}
