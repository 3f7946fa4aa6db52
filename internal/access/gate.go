// Package access decides who may see behavioral analysis for a project.
package access

import (
	"context"

	"github.com/sirupsen/logrus"

	"team-insights-go/internal/logger"
	"team-insights-go/internal/types"
)

type Store interface {
	GetProject(ctx context.Context, projectID string) (*types.Project, error)
	MemberRole(ctx context.Context, projectID, userID string) (types.MemberRole, bool, error)
}

type Gate struct {
	store Store
	log   *logrus.Entry
}

func NewGate(store Store, log *logrus.Entry) *Gate {
	return &Gate{store: store, log: logger.OrDiscard(log, "access")}
}

// CanAccess applies, in order: feature enabled, owner, all-members policy,
// admin-only policy with an admin or owner membership. Anything else is
// denied. Lookup errors are returned, not treated as a denial.
func (g *Gate) CanAccess(ctx context.Context, projectID, userID string) (bool, error) {
	project, err := g.store.GetProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	allowed, reason, err := g.decide(ctx, project, userID)
	if err != nil {
		return false, err
	}
	g.log.WithFields(logrus.Fields{
		"project_id": projectID,
		"user_id":    userID,
		"allowed":    allowed,
		"reason":     reason,
	}).Debug("access decision")
	return allowed, nil
}

func (g *Gate) decide(ctx context.Context, project *types.Project, userID string) (bool, string, error) {
	if !project.BehavioralEnabled {
		return false, "disabled", nil
	}
	if userID != "" && userID == project.OwnerID {
		return true, "owner", nil
	}
	switch project.AccessPolicy {
	case types.AccessAllMembers:
		return true, "all_members", nil
	case types.AccessAdminOnly:
		role, ok, err := g.store.MemberRole(ctx, project.ID, userID)
		if err != nil {
			return false, "", err
		}
		if ok && (role == types.RoleAdmin || role == types.RoleOwner) {
			return true, "admin", nil
		}
		return false, "not_admin", nil
	}
	return false, "unknown_policy", nil
}
