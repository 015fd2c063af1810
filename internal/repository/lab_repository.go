package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-issue-tracker/internal/models"
	"github.com/noah-isme/lab-issue-tracker/pkg/database"
)

const labSelect = `SELECT id, name, type, computers AS "equipment.computers", lights AS "equipment.lights", fans AS "equipment.fans", smart_board AS "equipment.smart_board", status, created_at, updated_at FROM labs`

// LabRepository manages persistence for labs.
type LabRepository struct {
	db *sqlx.DB
}

// NewLabRepository constructs a new lab repository.
func NewLabRepository(db *sqlx.DB) *LabRepository {
	return &LabRepository{db: db}
}

// List returns labs matching the filter, newest first.
func (r *LabRepository) List(ctx context.Context, filter models.LabFilter) ([]models.Lab, error) {
	var conditions []string
	var args []interface{}

	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := labSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	labs := []models.Lab{}
	if err := r.db.SelectContext(ctx, &labs, query, args...); err != nil {
		return nil, fmt.Errorf("list labs: %w", err)
	}
	return labs, nil
}

// FindByID returns a lab record by ID.
func (r *LabRepository) FindByID(ctx context.Context, id string) (*models.Lab, error) {
	var lab models.Lab
	if err := r.db.GetContext(ctx, &lab, labSelect+" WHERE id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lab: %w", err)
	}
	return &lab, nil
}

// Create persists a lab record.
func (r *LabRepository) Create(ctx context.Context, lab *models.Lab) error {
	if lab.ID == "" {
		lab.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lab.CreatedAt.IsZero() {
		lab.CreatedAt = now
	}
	lab.UpdatedAt = now

	const query = `INSERT INTO labs (id, name, type, computers, lights, fans, smart_board, status, created_at, updated_at) VALUES (:id, :name, :type, :equipment.computers, :equipment.lights, :equipment.fans, :equipment.smart_board, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lab); err != nil {
		return fmt.Errorf("create lab: %w", err)
	}
	return nil
}

// Update modifies the descriptive fields of a lab. Status is left untouched.
func (r *LabRepository) Update(ctx context.Context, lab *models.Lab) error {
	lab.UpdatedAt = time.Now().UTC()
	const query = `UPDATE labs SET name = :name, type = :type, computers = :equipment.computers, lights = :equipment.lights, fans = :equipment.fans, smart_board = :equipment.smart_board, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, lab)
	if err != nil {
		return fmt.Errorf("update lab: %w", err)
	}
	return requireAffected(res)
}

// UpdateStatus writes the lab status. Returns sql.ErrNoRows when the lab is gone.
func (r *LabRepository) UpdateStatus(ctx context.Context, id string, status models.LabStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE labs SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update lab status: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a lab together with all of its issues in one transaction.
func (r *LabRepository) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM issues WHERE lab_id = $1`, id); err != nil {
			return fmt.Errorf("delete lab issues: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM labs WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete lab: %w", err)
		}
		return requireAffected(res)
	})
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
