// Package policy centralises role-based authorization. Every service operation asks the
// same Policy whether the calling identity may perform an Action.
package policy

import (
	"github.com/noah-isme/lab-issue-tracker/internal/models"
	appErrors "github.com/noah-isme/lab-issue-tracker/pkg/errors"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionIssueReport  Action = "issue:report"
	ActionIssueRead    Action = "issue:read"
	ActionIssueResolve Action = "issue:resolve"
	ActionIssueDelete  Action = "issue:delete"
	ActionIssueExport  Action = "issue:export"

	ActionLabRead           Action = "lab:read"
	ActionLabCreate         Action = "lab:create"
	ActionLabUpdate         Action = "lab:update"
	ActionLabDelete         Action = "lab:delete"
	ActionLabOverrideStatus Action = "lab:override-status"
)

// Policy is a capability matrix of roles to permitted actions.
type Policy struct {
	capabilities map[models.UserRole]map[Action]struct{}
}

// Default returns the policy used by the API: students may report and read, admins may do
// everything.
func Default() *Policy {
	studentActions := []Action{
		ActionIssueReport,
		ActionIssueRead,
		ActionLabRead,
	}
	adminActions := append([]Action{
		ActionIssueResolve,
		ActionIssueDelete,
		ActionIssueExport,
		ActionLabCreate,
		ActionLabUpdate,
		ActionLabDelete,
		ActionLabOverrideStatus,
	}, studentActions...)

	return New(map[models.UserRole][]Action{
		models.RoleStudent: studentActions,
		models.RoleAdmin:   adminActions,
	})
}

// New builds a policy from an explicit role → actions table.
func New(grants map[models.UserRole][]Action) *Policy {
	caps := make(map[models.UserRole]map[Action]struct{}, len(grants))
	for role, actions := range grants {
		set := make(map[Action]struct{}, len(actions))
		for _, action := range actions {
			set[action] = struct{}{}
		}
		caps[role] = set
	}
	return &Policy{capabilities: caps}
}

// Allows reports whether role may perform action.
func (p *Policy) Allows(role models.UserRole, action Action) bool {
	if p == nil {
		return false
	}
	_, ok := p.capabilities[role][action]
	return ok
}

// Authorize returns ErrUnauthorized for a missing identity and ErrForbidden when the
// identity's role lacks the action.
func (p *Policy) Authorize(actor *models.JWTClaims, action Action) error {
	if actor == nil || actor.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	if !p.Allows(actor.Role, action) {
		return appErrors.Clone(appErrors.ErrForbidden, "access denied for role "+string(actor.Role))
	}
	return nil
}
