package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-issue-tracker/internal/models"
)

const issueDetailSelect = `SELECT i.id, i.lab_id, i.reported_by, i.equipment_type, i.description, i.status, i.created_at, i.resolved_at, ` +
	`l.id AS "lab.id", l.name AS "lab.name", l.type AS "lab.type", ` +
	`u.id AS "reporter.id", u.name AS "reporter.name", u.email AS "reporter.email" ` +
	`FROM issues i JOIN labs l ON l.id = i.lab_id JOIN users u ON u.id = i.reported_by`

// IssueRepository manages persistence for issues.
type IssueRepository struct {
	db *sqlx.DB
}

// NewIssueRepository constructs an issue repository.
func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Create persists a new issue.
func (r *IssueRepository) Create(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO issues (id, lab_id, reported_by, equipment_type, description, status, created_at, resolved_at) VALUES (:id, :lab_id, :reported_by, :equipment_type, :description, :status, :created_at, :resolved_at)`
	if _, err := r.db.NamedExecContext(ctx, query, issue); err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	return nil
}

// FindByID returns the bare issue record.
func (r *IssueRepository) FindByID(ctx context.Context, id string) (*models.Issue, error) {
	const query = `SELECT id, lab_id, reported_by, equipment_type, description, status, created_at, resolved_at FROM issues WHERE id = $1`
	var issue models.Issue
	if err := r.db.GetContext(ctx, &issue, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find issue: %w", err)
	}
	return &issue, nil
}

// FindDetailByID returns the issue joined with lab and reporter summaries.
func (r *IssueRepository) FindDetailByID(ctx context.Context, id string) (*models.IssueDetail, error) {
	var detail models.IssueDetail
	if err := r.db.GetContext(ctx, &detail, issueDetailSelect+" WHERE i.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find issue detail: %w", err)
	}
	return &detail, nil
}

// List returns joined issues for the filter scope.
func (r *IssueRepository) List(ctx context.Context, filter models.IssueFilter) ([]models.IssueDetail, error) {
	var (
		query string
		args  []interface{}
	)
	switch filter.Scope {
	case models.IssueScopeResolved:
		query = issueDetailSelect + " WHERE i.status = $1 ORDER BY i.resolved_at DESC"
		args = append(args, models.IssueStatusResolved)
	case models.IssueScopeLab:
		query = issueDetailSelect + " WHERE i.lab_id = $1 ORDER BY i.created_at DESC"
		args = append(args, filter.LabID)
	default:
		query = issueDetailSelect + " ORDER BY i.created_at DESC"
	}

	issues := []models.IssueDetail{}
	if err := r.db.SelectContext(ctx, &issues, query, args...); err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	return issues, nil
}

// MarkResolved transitions an open issue to resolved. It reports false when the issue was
// not open anymore.
func (r *IssueRepository) MarkResolved(ctx context.Context, id string, resolvedAt time.Time) (bool, error) {
	const query = `UPDATE issues SET status = $2, resolved_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.IssueStatusResolved, resolvedAt, models.IssueStatusOpen)
	if err != nil {
		return false, fmt.Errorf("resolve issue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve issue rows: %w", err)
	}
	return n > 0, nil
}

// Delete removes an issue. Returns sql.ErrNoRows if nothing was deleted.
func (r *IssueRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	return requireAffected(res)
}

// CountOpenByLab returns the number of open issues for a lab.
func (r *IssueRepository) CountOpenByLab(ctx context.Context, labID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM issues WHERE lab_id = $1 AND status = $2`, labID, models.IssueStatusOpen); err != nil {
		return 0, fmt.Errorf("count open issues: %w", err)
	}
	return count, nil
}
