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

func TestLabStatusFollowsSingleIssue(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lab := f.store.addLab("Lab A")

	issue := f.report(t, lab.ID)
	assert.Equal(t, models.IssueStatusOpen, issue.Status)
	assert.Equal(t, lab.Name, issue.Lab.Name)
	assert.Equal(t, f.student.UserID, issue.Reporter.ID)
	assert.Equal(t, models.LabStatusIssue, f.labStatus(lab.ID))

	resolved, err := f.issues.Resolve(ctx, f.admin, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.False(t, resolved.ResolvedAt.Before(resolved.CreatedAt))
	assert.Equal(t, models.LabStatusNormal, f.labStatus(lab.ID))
}

func TestLabStatusWithTwoIssues(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lab := f.store.addLab("Lab B")

	first := f.report(t, lab.ID)
	second := f.report(t, lab.ID)
	assert.Equal(t, models.LabStatusIssue, f.labStatus(lab.ID))

	_, err := f.issues.Resolve(ctx, f.admin, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LabStatusIssue, f.labStatus(lab.ID))

	require.NoError(t, f.issues.Delete(ctx, f.admin, second.ID))
	assert.Equal(t, models.LabStatusNormal, f.labStatus(lab.ID))
	assert.Len(t, f.store.issues, 1)
}

func TestReportValidation(t *testing.T) {
	f := newFixture()
	lab := f.store.addLab("Lab C")

	cases := map[string]ReportIssueRequest{
		"blank description": {LabID: lab.ID, EquipmentType: models.EquipmentLights, Description: "   "},
		"unknown equipment": {LabID: lab.ID, EquipmentType: "projector", Description: "broken"},
		"missing lab id":    {EquipmentType: models.EquipmentFans, Description: "noisy"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.issues.Report(context.Background(), f.student, req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
	assert.Empty(t, f.store.issues)
	assert.Equal(t, models.LabStatusNormal, f.labStatus(lab.ID))
}

func TestReportTrimsDescription(t *testing.T) {
	f := newFixture()
	lab := f.store.addLab("Lab D")

	detail, err := f.issues.Report(context.Background(), f.student, ReportIssueRequest{
		LabID:         lab.ID,
		EquipmentType: models.EquipmentSmartBoard,
		Description:   "  pen not detected \n",
	})
	require.NoError(t, err)
	assert.Equal(t, "pen not detected", detail.Description)
}

func TestReportMissingLab(t *testing.T) {
	f := newFixture()
	_, err := f.issues.Report(context.Background(), f.student, ReportIssueRequest{
		LabID:         "ghost",
		EquipmentType: models.EquipmentGeneral,
		Description:   "door jammed",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, f.store.issues)
}

func TestReportRequiresIdentity(t *testing.T) {
	f := newFixture()
	lab := f.store.addLab("Lab E")
	_, err := f.issues.Report(context.Background(), nil, ReportIssueRequest{LabID: lab.ID, EquipmentType: models.EquipmentGeneral, Description: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestStudentCannotResolveOrDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lab := f.store.addLab("Lab F")
	issue := f.report(t, lab.ID)

	_, err := f.issues.Resolve(ctx, f.student, issue.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	err = f.issues.Delete(ctx, f.student, issue.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	assert.Equal(t, models.IssueStatusOpen, f.store.issues[issue.ID].Status)
	assert.Equal(t, models.LabStatusIssue, f.labStatus(lab.ID))
}

func TestResolveTwiceIsInvalidState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lab := f.store.addLab("Lab G")
	issue := f.report(t, lab.ID)

	first, err := f.issues.Resolve(ctx, f.admin, issue.ID)
	require.NoError(t, err)
	resolvedAt := *first.ResolvedAt

	_, err = f.issues.Resolve(ctx, f.admin, issue.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	assert.Equal(t, resolvedAt, *f.store.issues[issue.ID].ResolvedAt)
}

func TestResolveAndDeleteMissingIssue(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.issues.Resolve(ctx, f.admin, "nope")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	err = f.issues.Delete(ctx, f.admin, "nope")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.issues.Get(ctx, f.student, "nope")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDeleteResolvedIssueKeepsLabNormal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lab := f.store.addLab("Lab H")
	issue := f.report(t, lab.ID)
	_, err := f.issues.Resolve(ctx, f.admin, issue.ID)
	require.NoError(t, err)

	writes := f.store.statusWrites
	require.NoError(t, f.issues.Delete(ctx, f.admin, issue.ID))
	assert.Equal(t, models.LabStatusNormal, f.labStatus(lab.ID))
	assert.Equal(t, writes, f.store.statusWrites)
}

func TestListScopes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	labA := f.store.addLab("Lab A")
	labB := f.store.addLab("Lab B")

	a1 := f.report(t, labA.ID)
	a2 := f.report(t, labA.ID)
	b1 := f.report(t, labB.ID)
	_, err := f.issues.Resolve(ctx, f.admin, a1.ID)
	require.NoError(t, err)
	_, err = f.issues.Resolve(ctx, f.admin, b1.ID)
	require.NoError(t, err)

	all, err := f.issues.List(ctx, f.student, models.IssueFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, b1.ID, all[0].ID)

	resolved, err := f.issues.List(ctx, f.student, models.IssueFilter{Scope: models.IssueScopeResolved})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, b1.ID, resolved[0].ID)
	assert.Equal(t, a1.ID, resolved[1].ID)

	byLab, err := f.issues.List(ctx, f.student, models.IssueFilter{Scope: models.IssueScopeLab, LabID: labA.ID})
	require.NoError(t, err)
	require.Len(t, byLab, 2)
	assert.Equal(t, a2.ID, byLab[0].ID)
	assert.Equal(t, "Lab A", byLab[0].Lab.Name)
	assert.Equal(t, "student@example.com", byLab[0].Reporter.Email)

	_, err = f.issues.List(ctx, f.student, models.IssueFilter{Scope: models.IssueScopeLab, LabID: "ghost"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.issues.List(ctx, f.student, models.IssueFilter{Scope: "weird"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestInvariantHoldsAcrossSequence(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	labs := []*models.Lab{f.store.addLab("L1"), f.store.addLab("L2"), f.store.addLab("L3")}

	var ids []string
	for i := 0; i < 9; i++ {
		ids = append(ids, f.report(t, labs[i%3].ID).ID)
	}
	for i, id := range ids {
		switch i % 3 {
		case 0:
			_, err := f.issues.Resolve(ctx, f.admin, id)
			require.NoError(t, err)
		case 1:
			require.NoError(t, f.issues.Delete(ctx, f.admin, id))
		}
		for _, lab := range labs {
			assert.Equal(t, DeriveLabStatus(f.store.openCount(lab.ID)), f.labStatus(lab.ID), "lab %s after step %d", lab.Name, i)
		}
	}
	assert.Equal(t, float64(9), counterValue(f.metrics, "issue_events_total", map[string]string{"event": "reported"}))
}
