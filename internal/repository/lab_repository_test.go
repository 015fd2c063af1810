package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-issue-tracker/internal/models"
)

var labColumns = []string{"id", "name", "type", "equipment.computers", "equipment.lights", "equipment.fans", "equipment.smart_board", "status", "created_at", "updated_at"}

func TestLabFindByIDMapsEquipment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLabRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM labs WHERE id = $1")).
		WithArgs("lab-1").
		WillReturnRows(sqlmock.NewRows(labColumns).AddRow("lab-1", "Computer Lab 301", "Lab", 12, 8, 4, true, "normal", now, now))

	lab, err := repo.FindByID(context.Background(), "lab-1")
	require.NoError(t, err)
	assert.Equal(t, "Computer Lab 301", lab.Name)
	assert.Equal(t, models.LabTypeLab, lab.Type)
	assert.Equal(t, models.Equipment{Computers: 12, Lights: 8, Fans: 4, SmartBoard: true}, lab.Equipment)
	assert.Equal(t, models.LabStatusNormal, lab.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabListWithFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLabRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM labs WHERE type = $1 AND status = $2 ORDER BY created_at DESC")).
		WithArgs(models.LabTypeClassroom, models.LabStatusIssue).
		WillReturnRows(sqlmock.NewRows(labColumns).AddRow("lab-2", "Room 12", "Classroom", 0, 6, 2, false, "issue", now, now))

	labs, err := repo.List(context.Background(), models.LabFilter{Type: models.LabTypeClassroom, Status: models.LabStatusIssue})
	require.NoError(t, err)
	require.Len(t, labs, 1)
	assert.Equal(t, models.LabStatusIssue, labs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabListEmptyIsNotNil(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLabRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM labs ORDER BY created_at DESC")).WillReturnRows(sqlmock.NewRows(labColumns))

	labs, err := repo.List(context.Background(), models.LabFilter{})
	require.NoError(t, err)
	assert.NotNil(t, labs)
	assert.Empty(t, labs)
}

func TestLabCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLabRepository(db)

	mock.ExpectExec("INSERT INTO labs").WillReturnResult(sqlmock.NewResult(1, 1))

	lab := &models.Lab{Name: "Physics Lab", Type: models.LabTypeLab, Status: models.LabStatusNormal, Equipment: models.Equipment{Lights: 4}}
	require.NoError(t, repo.Create(context.Background(), lab))
	assert.NotEmpty(t, lab.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLabRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE labs SET status = $2")).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "gone", models.LabStatusIssue)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabDeleteCascadesIssues(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLabRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM issues WHERE lab_id = $1")).WithArgs("lab-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM labs WHERE id = $1")).WithArgs("lab-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "lab-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabDeleteMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLabRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM issues WHERE lab_id = $1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM labs WHERE id = $1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
