package authz

import (
	"testing"

	"github.com/attestor-dev/attestor/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizeMatrix(t *testing.T) {
	t.Parallel()

	const ownerID = 10

	admin := Actor{ID: 1, Role: models.RoleAdmin}
	owner := Actor{ID: ownerID, Role: models.RoleConsultant}
	other := Actor{ID: 11, Role: models.RoleConsultant}
	reader := Actor{ID: 12, Role: models.RoleReadOnly}

	tests := []struct {
		name  string
		actor Actor
		op    Op
		want  bool
	}{
		{"admin read", admin, OpRead, true},
		{"admin update", admin, OpUpdate, true},
		{"admin delete", admin, OpDelete, true},
		{"admin delete project", admin, OpDeleteProject, true},

		{"owner read", owner, OpRead, true},
		{"owner update", owner, OpUpdate, true},
		{"owner delete", owner, OpDelete, true},
		{"owner cannot delete project", owner, OpDeleteProject, false},

		{"other consultant read", other, OpRead, false},
		{"other consultant update", other, OpUpdate, false},
		{"other consultant delete", other, OpDelete, false},

		{"read_only read", reader, OpRead, false},
		{"read_only update", reader, OpUpdate, false},
		{"read_only delete", reader, OpDelete, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(tt.actor, tt.op, ownerID)
			assert.Equal(t, tt.want, d.Allowed)
			if !tt.want {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

// The predicate is a pure function of (role, ownership relation, op):
// changing an unrelated user's id never changes the outcome for a fixed
// actor/resource pair.
func TestAuthorizeIgnoresUnrelatedUsers(t *testing.T) {
	t.Parallel()

	actor := Actor{ID: 5, Role: models.RoleConsultant}

	for _, unrelatedOwner := range []uint{1, 99, 12345} {
		first := Authorize(actor, OpUpdate, unrelatedOwner)
		second := Authorize(actor, OpUpdate, unrelatedOwner)
		assert.Equal(t, first, second)
		assert.False(t, first.Allowed)
	}

	assert.True(t, Authorize(actor, OpUpdate, 5).Allowed)
}

func TestCanCreate(t *testing.T) {
	t.Parallel()

	assert.True(t, CanCreate(Actor{ID: 1, Role: models.RoleAdmin}).Allowed)
	assert.True(t, CanCreate(Actor{ID: 2, Role: models.RoleConsultant}).Allowed)

	d := CanCreate(Actor{ID: 3, Role: models.RoleReadOnly})
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "read_only")
}

func TestUnknownRoleIsDenied(t *testing.T) {
	t.Parallel()

	actor := Actor{ID: 1, Role: models.Role("superuser")}

	assert.False(t, CanCreate(actor).Allowed)
	assert.False(t, Authorize(actor, OpRead, 1).Allowed)
}
