package authz

import (
	"fmt"

	"github.com/attestor-dev/attestor/internal/models"
	"gorm.io/gorm"
)

// Actor is the authenticated identity a request acts as.
type Actor struct {
	ID   uint
	Role models.Role
}

// Op enumerates the operations the predicate understands.
type Op int

const (
	OpRead Op = iota
	OpUpdate
	OpDelete
	// OpDeleteProject is split out because project deletion is admin-only,
	// unlike every other owner-scoped mutation.
	OpDeleteProject
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpDeleteProject:
		return "delete"
	}
	return "access"
}

// Decision is the outcome of an authorization check. Denials carry a
// human-readable reason naming the rule that failed.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// ConsultantOrAdmin gates operations open to every consultant regardless of
// ownership (baseline read/list, user list).
func ConsultantOrAdmin(actor Actor) Decision {
	switch actor.Role {
	case models.RoleAdmin, models.RoleConsultant:
		return allow()
	case models.RoleReadOnly:
		return deny("consultant or admin role required; current role: read_only")
	}
	return deny("consultant or admin role required")
}

// CanCreate reports whether the actor may create new resources (projects,
// baselines, tasks). Ownership of the created resource is always forced to
// the actor, so no resource argument is needed.
func CanCreate(actor Actor) Decision {
	if d := ConsultantOrAdmin(actor); !d.Allowed {
		return deny("read_only users cannot create resources; consultant or admin role required")
	}
	return allow()
}

// Authorize decides op on an existing resource whose ownership chain resolves
// to ownerID. For project tasks and evidence, ownerID is the parent project's
// owner; for task definitions it is the parent baseline's creator.
//
// The decision is a pure function of (role, ownership relation, op): no other
// state is consulted.
func Authorize(actor Actor, op Op, ownerID uint) Decision {
	switch actor.Role {
	case models.RoleAdmin:
		return allow()
	case models.RoleConsultant:
		if op == OpDeleteProject {
			return deny("only admins may delete projects")
		}
		if actor.ID == ownerID {
			return allow()
		}
		return deny("consultants may only %s resources they own", op)
	case models.RoleReadOnly:
		// TODO: route read_only access through the grant table once the
		// grant mechanism lands; until then read_only is deny-by-default.
		return deny("read_only users have no access to this resource")
	}
	return deny("unrecognized role %q", actor.Role)
}

// ProjectScope returns a query scope implementing list visibility: admins see
// everything, consultants their own projects, read_only users an empty set.
// Lists filter rather than deny.
func ProjectScope(actor Actor) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		switch actor.Role {
		case models.RoleAdmin:
			return tx
		case models.RoleConsultant:
			return tx.Where("owner_id = ?", actor.ID)
		default:
			return tx.Where("1 = 0")
		}
	}
}
