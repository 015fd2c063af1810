package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-issue-tracker/internal/models"
)

// memStore backs the lab and issue fakes with shared state so reconciliation sees the same
// rows the lifecycle operations wrote.
type memStore struct {
	labs         map[string]*models.Lab
	issues       map[string]*models.Issue
	users        map[string]*models.User
	seq          int
	statusWrites int
	clock        time.Time
}

func newMemStore() *memStore {
	return &memStore{
		labs:   map[string]*models.Lab{},
		issues: map[string]*models.Issue{},
		users:  map[string]*models.User{},
		clock:  time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *memStore) addLab(name string) *models.Lab {
	lab := &models.Lab{ID: m.nextID("lab"), Name: name, Type: models.LabTypeLab, Status: models.LabStatusNormal, CreatedAt: m.tick()}
	m.labs[lab.ID] = lab
	return lab
}

func (m *memStore) addUser(name string, role models.UserRole) *models.User {
	user := &models.User{ID: m.nextID("user"), Name: name, Email: name + "@example.com", Role: role}
	m.users[user.ID] = user
	return user
}

func (m *memStore) openCount(labID string) int {
	n := 0
	for _, issue := range m.issues {
		if issue.LabID == labID && issue.Status == models.IssueStatusOpen {
			n++
		}
	}
	return n
}

type fakeLabRepo struct {
	s         *memStore
	updateErr error
}

func (r *fakeLabRepo) List(ctx context.Context, filter models.LabFilter) ([]models.Lab, error) {
	out := []models.Lab{}
	for _, lab := range r.s.labs {
		if filter.Type != "" && lab.Type != filter.Type {
			continue
		}
		if filter.Status != "" && lab.Status != filter.Status {
			continue
		}
		out = append(out, *lab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeLabRepo) FindByID(ctx context.Context, id string) (*models.Lab, error) {
	lab, ok := r.s.labs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *lab
	return &clone, nil
}

func (r *fakeLabRepo) Create(ctx context.Context, lab *models.Lab) error {
	if lab.ID == "" {
		lab.ID = r.s.nextID("lab")
	}
	lab.CreatedAt = r.s.tick()
	lab.UpdatedAt = lab.CreatedAt
	clone := *lab
	r.s.labs[lab.ID] = &clone
	return nil
}

func (r *fakeLabRepo) Update(ctx context.Context, lab *models.Lab) error {
	stored, ok := r.s.labs[lab.ID]
	if !ok {
		return sql.ErrNoRows
	}
	stored.Name = lab.Name
	stored.Type = lab.Type
	stored.Equipment = lab.Equipment
	return nil
}

func (r *fakeLabRepo) UpdateStatus(ctx context.Context, id string, status models.LabStatus) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	lab, ok := r.s.labs[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.s.statusWrites++
	lab.Status = status
	return nil
}

func (r *fakeLabRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.labs[id]; !ok {
		return sql.ErrNoRows
	}
	for issueID, issue := range r.s.issues {
		if issue.LabID == id {
			delete(r.s.issues, issueID)
		}
	}
	delete(r.s.labs, id)
	return nil
}

type fakeIssueRepo struct {
	s *memStore
}

func (r *fakeIssueRepo) Create(ctx context.Context, issue *models.Issue) error {
	issue.ID = r.s.nextID("issue")
	clone := *issue
	r.s.issues[issue.ID] = &clone
	return nil
}

func (r *fakeIssueRepo) FindByID(ctx context.Context, id string) (*models.Issue, error) {
	issue, ok := r.s.issues[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *issue
	return &clone, nil
}

func (r *fakeIssueRepo) detail(issue *models.Issue) models.IssueDetail {
	detail := models.IssueDetail{Issue: *issue}
	if lab, ok := r.s.labs[issue.LabID]; ok {
		detail.Lab = models.LabSummary{ID: lab.ID, Name: lab.Name, Type: lab.Type}
	}
	if user, ok := r.s.users[issue.ReportedBy]; ok {
		detail.Reporter = models.ReporterSummary{ID: user.ID, Name: user.Name, Email: user.Email}
	}
	return detail
}

func (r *fakeIssueRepo) FindDetailByID(ctx context.Context, id string) (*models.IssueDetail, error) {
	issue, ok := r.s.issues[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := r.detail(issue)
	return &detail, nil
}

func (r *fakeIssueRepo) List(ctx context.Context, filter models.IssueFilter) ([]models.IssueDetail, error) {
	out := []models.IssueDetail{}
	for _, issue := range r.s.issues {
		switch filter.Scope {
		case models.IssueScopeResolved:
			if issue.Status != models.IssueStatusResolved {
				continue
			}
		case models.IssueScopeLab:
			if issue.LabID != filter.LabID {
				continue
			}
		}
		out = append(out, r.detail(issue))
	}
	if filter.Scope == models.IssueScopeResolved {
		sort.Slice(out, func(i, j int) bool { return out[i].ResolvedAt.After(*out[j].ResolvedAt) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out, nil
}

func (r *fakeIssueRepo) MarkResolved(ctx context.Context, id string, resolvedAt time.Time) (bool, error) {
	issue, ok := r.s.issues[id]
	if !ok || issue.Status != models.IssueStatusOpen {
		return false, nil
	}
	issue.Status = models.IssueStatusResolved
	issue.ResolvedAt = &resolvedAt
	return true, nil
}

func (r *fakeIssueRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.issues[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.s.issues, id)
	return nil
}

func (r *fakeIssueRepo) CountOpenByLab(ctx context.Context, labID string) (int, error) {
	return r.s.openCount(labID), nil
}

type fixture struct {
	store      *memStore
	labRepo    *fakeLabRepo
	issueRepo  *fakeIssueRepo
	metrics    *MetricsService
	reconciler *Reconciler
	issues     *IssueService
	labs       *LabService
	student    *models.JWTClaims
	admin      *models.JWTClaims
}

func newFixture() *fixture {
	store := newMemStore()
	labRepo := &fakeLabRepo{s: store}
	issueRepo := &fakeIssueRepo{s: store}
	metrics := NewMetricsService()
	reconciler := NewReconciler(labRepo, issueRepo, metrics, nil)
	issues := NewIssueService(issueRepo, labRepo, reconciler, nil, metrics, nil, nil)
	issues.now = store.tick

	student := store.addUser("student", models.RoleStudent)
	admin := store.addUser("admin", models.RoleAdmin)

	return &fixture{
		store:      store,
		labRepo:    labRepo,
		issueRepo:  issueRepo,
		metrics:    metrics,
		reconciler: reconciler,
		issues:     issues,
		labs:       NewLabService(labRepo, nil, metrics, nil, nil),
		student:    &models.JWTClaims{UserID: student.ID, Role: models.RoleStudent},
		admin:      &models.JWTClaims{UserID: admin.ID, Role: models.RoleAdmin},
	}
}

func (f *fixture) report(t *testing.T, labID string) *models.IssueDetail {
	t.Helper()
	detail, err := f.issues.Report(context.Background(), f.student, ReportIssueRequest{
		LabID:         labID,
		EquipmentType: models.EquipmentComputers,
		Description:   "PC 3 will not boot",
	})
	require.NoError(t, err)
	return detail
}

func (f *fixture) labStatus(id string) models.LabStatus {
	return f.store.labs[id].Status
}

func counterValue(m *MetricsService, name string, labels map[string]string) float64 {
	families, err := m.Registry().Gather()
	if err != nil {
		return -1
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := 0
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want == pair.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
