package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-issue-tracker/internal/models"
	appErrors "github.com/noah-isme/lab-issue-tracker/pkg/errors"
)

func validLabRequest() LabRequest {
	return LabRequest{
		Name:      "  Computer Lab 1 ",
		Type:      models.LabTypeLab,
		Equipment: models.Equipment{Computers: 30, Lights: 12, Fans: 4, SmartBoard: true},
	}
}

func TestLabCreateStartsNormal(t *testing.T) {
	f := newFixture()
	lab, err := f.labs.Create(context.Background(), f.admin, validLabRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, lab.ID)
	assert.Equal(t, "Computer Lab 1", lab.Name)
	assert.Equal(t, models.LabStatusNormal, lab.Status)
	assert.Equal(t, 30, f.store.labs[lab.ID].Equipment.Computers)
}

func TestLabCreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	blank := validLabRequest()
	blank.Name = "  "
	_, err := f.labs.Create(ctx, f.admin, blank)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	badType := validLabRequest()
	badType.Type = "Garage"
	_, err = f.labs.Create(ctx, f.admin, badType)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	negative := validLabRequest()
	negative.Equipment.Fans = -1
	_, err = f.labs.Create(ctx, f.admin, negative)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	assert.Empty(t, f.store.labs)
}

func TestLabMutationsRequireAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lab := f.store.addLab("Lab A")

	_, err := f.labs.Create(ctx, f.student, validLabRequest())
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	_, err = f.labs.Update(ctx, f.student, lab.ID, validLabRequest())
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.True(t, errors.Is(f.labs.Delete(ctx, f.student, lab.ID), appErrors.ErrForbidden))
	_, err = f.labs.OverrideStatus(ctx, f.student, lab.ID, LabStatusRequest{Status: models.LabStatusIssue})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	labs, err := f.labs.List(ctx, f.student, models.LabFilter{})
	require.NoError(t, err)
	assert.Len(t, labs, 1)
}

func TestLabUpdateKeepsStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lab := f.store.addLab("Lab A")
	f.report(t, lab.ID)

	req := validLabRequest()
	req.Type = models.LabTypeClassroom
	updated, err := f.labs.Update(ctx, f.admin, lab.ID, req)
	require.NoError(t, err)
	assert.Equal(t, models.LabTypeClassroom, updated.Type)
	assert.Equal(t, models.LabStatusIssue, updated.Status)
	assert.Equal(t, models.LabStatusIssue, f.labStatus(lab.ID))

	_, err = f.labs.Update(ctx, f.admin, "ghost", req)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestLabDeleteCascadesIssues(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doomed := f.store.addLab("Lab A")
	kept := f.store.addLab("Lab B")
	f.report(t, doomed.ID)
	f.report(t, doomed.ID)
	survivor := f.report(t, kept.ID)

	require.NoError(t, f.labs.Delete(ctx, f.admin, doomed.ID))
	assert.Len(t, f.store.issues, 1)
	assert.Contains(t, f.store.issues, survivor.ID)

	byLab, err := f.issues.List(ctx, f.admin, models.IssueFilter{Scope: models.IssueScopeLab, LabID: doomed.ID})
	assert.Nil(t, byLab)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	assert.True(t, errors.Is(f.labs.Delete(ctx, f.admin, doomed.ID), appErrors.ErrNotFound))
}

func TestLabOverrideStatusIsRederived(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lab := f.store.addLab("Lab A")

	_, err := f.labs.OverrideStatus(ctx, f.admin, lab.ID, LabStatusRequest{Status: "broken"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	overridden, err := f.labs.OverrideStatus(ctx, f.admin, lab.ID, LabStatusRequest{Status: models.LabStatusIssue})
	require.NoError(t, err)
	assert.Equal(t, models.LabStatusIssue, overridden.Status)
	assert.Equal(t, float64(1), counterValue(f.metrics, "lab_status_transitions_total", map[string]string{"source": "override"}))

	issue := f.report(t, lab.ID)
	_, err = f.issues.Resolve(ctx, f.admin, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LabStatusNormal, f.labStatus(lab.ID))

	_, err = f.labs.OverrideStatus(ctx, f.admin, "ghost", LabStatusRequest{Status: models.LabStatusNormal})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestLabListFilters(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	older := f.store.addLab("Lab A")
	newer := f.store.addLab("Room 2")
	newer.Type = models.LabTypeClassroom
	f.report(t, older.ID)

	labs, err := f.labs.List(ctx, f.student, models.LabFilter{})
	require.NoError(t, err)
	require.Len(t, labs, 2)
	assert.Equal(t, newer.ID, labs[0].ID)

	labs, err = f.labs.List(ctx, f.student, models.LabFilter{Status: models.LabStatusIssue})
	require.NoError(t, err)
	require.Len(t, labs, 1)
	assert.Equal(t, older.ID, labs[0].ID)

	labs, err = f.labs.List(ctx, f.student, models.LabFilter{Type: models.LabTypeClassroom})
	require.NoError(t, err)
	require.Len(t, labs, 1)
	assert.Equal(t, newer.ID, labs[0].ID)

	_, err = f.labs.List(ctx, f.student, models.LabFilter{Status: "closed"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	got, err := f.labs.Get(ctx, f.student, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lab A", got.Name)
}
