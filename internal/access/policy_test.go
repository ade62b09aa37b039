package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
)

func strPtr(s string) *string { return &s }

var (
	areaA1 = strPtr("A1")
	areaA2 = strPtr("A2")
)

func TestCanViewMatchesDefinition(t *testing.T) {
	roles := []domain.Role{domain.RoleCommon, domain.RoleTechnician, domain.RoleManager, domain.RoleSuperAdmin}
	areas := []*string{nil, areaA1, areaA2}
	ids := []string{"u1", "u2"}
	technicians := []*string{nil, strPtr("u1"), strPtr("u2")}

	for _, role := range roles {
		for _, area := range areas {
			for _, id := range ids {
				caller := Caller{ID: id, Role: role, AreaID: area}
				for _, tech := range technicians {
					for _, requester := range ids {
						ticket := TicketRef{AreaID: "A1", RequesterID: requester, TechnicianID: tech}
						want := role == domain.RoleSuperAdmin ||
							id == requester ||
							(tech != nil && *tech == id) ||
							(role == domain.RoleManager && area != nil && *area == "A1")
						assert.Equal(t, want, CanView(caller, ticket), "role=%s area=%v id=%s tech=%v requester=%s", role, area, id, tech, requester)

						scope, err := TicketScope(caller)
						if err != nil {
							continue
						}
						assert.Equal(t, want, scope.Matches(ticket), "scope disagrees with CanView for role=%s", role)
					}
				}
			}
		}
	}
}

func TestTicketScope(t *testing.T) {
	t.Run("admin unrestricted", func(t *testing.T) {
		scope, err := TicketScope(Caller{ID: "a", Role: domain.RoleSuperAdmin})
		require.NoError(t, err)
		assert.True(t, scope.Unrestricted)
	})

	t.Run("manager without area is an error", func(t *testing.T) {
		_, err := TicketScope(Caller{ID: "m", Role: domain.RoleManager})
		assert.ErrorIs(t, err, ErrMissingArea)
	})

	t.Run("technician without area is an error", func(t *testing.T) {
		_, err := TicketScope(Caller{ID: "t", Role: domain.RoleTechnician, AreaID: strPtr("")})
		assert.ErrorIs(t, err, ErrMissingArea)
	})

	t.Run("common sees own tickets", func(t *testing.T) {
		scope, err := TicketScope(Caller{ID: "c", Role: domain.RoleCommon})
		require.NoError(t, err)
		require.NotNil(t, scope.RequesterID)
		assert.Equal(t, "c", *scope.RequesterID)
		assert.Nil(t, scope.AreaID)
		assert.False(t, scope.Matches(TicketRef{AreaID: "A1", RequesterID: "other"}))
	})

	t.Run("anonymous rejected", func(t *testing.T) {
		_, err := TicketScope(Caller{Role: domain.RoleCommon})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestBulkScope(t *testing.T) {
	scope, err := BulkScope(Caller{ID: "m", Role: domain.RoleManager, AreaID: areaA1})
	require.NoError(t, err)
	assert.True(t, scope.Matches(TicketRef{AreaID: "A1"}))
	assert.False(t, scope.Matches(TicketRef{AreaID: "A2", RequesterID: "m"}))

	_, err = BulkScope(Caller{ID: "m", Role: domain.RoleManager})
	assert.ErrorIs(t, err, ErrMissingArea)

	for _, role := range []domain.Role{domain.RoleCommon, domain.RoleTechnician} {
		_, err := BulkScope(Caller{ID: "x", Role: role, AreaID: areaA1})
		assert.ErrorIs(t, err, ErrForbidden, string(role))
	}

	scope, err = BulkScope(Caller{ID: "a", Role: domain.RoleSuperAdmin})
	require.NoError(t, err)
	assert.True(t, scope.Unrestricted)
}

func TestScopeEmptyMatchesNothing(t *testing.T) {
	scope := Scope{}
	assert.True(t, scope.Empty())
	assert.False(t, scope.Matches(TicketRef{AreaID: "A1", RequesterID: "u"}))
}

func TestCanAssign(t *testing.T) {
	ticket := TicketRef{AreaID: "A1", RequesterID: "c"}
	assert.True(t, CanAssign(Caller{ID: "a", Role: domain.RoleSuperAdmin}, ticket))
	assert.True(t, CanAssign(Caller{ID: "m", Role: domain.RoleManager, AreaID: areaA1}, ticket))
	assert.False(t, CanAssign(Caller{ID: "m", Role: domain.RoleManager, AreaID: areaA2}, ticket))
	assert.False(t, CanAssign(Caller{ID: "m", Role: domain.RoleManager}, ticket))
	assert.False(t, CanAssign(Caller{ID: "t", Role: domain.RoleTechnician, AreaID: areaA1}, ticket))
	assert.False(t, CanAssign(Caller{ID: "c", Role: domain.RoleCommon}, ticket))
}

func TestCanChangeStatus(t *testing.T) {
	ticket := TicketRef{AreaID: "A1", RequesterID: "c", TechnicianID: strPtr("t1")}
	assert.True(t, CanChangeStatus(Caller{ID: "t1", Role: domain.RoleTechnician, AreaID: areaA1}, ticket))
	assert.False(t, CanChangeStatus(Caller{ID: "t2", Role: domain.RoleTechnician, AreaID: areaA1}, ticket))
	assert.True(t, CanChangeStatus(Caller{ID: "m", Role: domain.RoleManager, AreaID: areaA1}, ticket))
	assert.False(t, CanChangeStatus(Caller{ID: "m", Role: domain.RoleManager, AreaID: areaA2}, ticket))
	assert.False(t, CanChangeStatus(Caller{ID: "c", Role: domain.RoleCommon}, ticket))
	assert.True(t, CanChangeStatus(Caller{ID: "a", Role: domain.RoleSuperAdmin}, ticket))
}

func TestCanRate(t *testing.T) {
	requester := Caller{ID: "c", Role: domain.RoleCommon}
	admin := Caller{ID: "a", Role: domain.RoleSuperAdmin}

	for _, status := range lifecycle.Statuses {
		ticket := TicketRef{AreaID: "A1", RequesterID: "c", Status: status}
		assert.Equal(t, lifecycle.IsRateable(status), CanRate(requester, ticket), string(status))
		assert.False(t, CanRate(admin, ticket), "non-requester must never rate (%s)", status)
	}
}

func TestAuthorize(t *testing.T) {
	ticket := TicketRef{AreaID: "A1", RequesterID: "c", Status: domain.TicketStatusOpen}
	assert.NoError(t, Authorize(Caller{ID: "c", Role: domain.RoleCommon}, ActionView, ticket))
	assert.ErrorIs(t, Authorize(Caller{ID: "c", Role: domain.RoleCommon}, ActionRate, ticket), ErrForbidden)
	assert.ErrorIs(t, Authorize(Caller{ID: "c", Role: domain.RoleCommon}, ActionClose, ticket), ErrForbidden)
	assert.ErrorIs(t, Authorize(Caller{ID: "x", Role: domain.RoleCommon}, ActionComment, ticket), ErrForbidden)
	assert.ErrorIs(t, Authorize(Caller{ID: "a", Role: domain.RoleSuperAdmin}, Action("unknown"), ticket), ErrForbidden)
}

func TestCanSeeInternalComments(t *testing.T) {
	assert.False(t, CanSeeInternalComments(Caller{ID: "c", Role: domain.RoleCommon}))
	assert.True(t, CanSeeInternalComments(Caller{ID: "t", Role: domain.RoleTechnician}))
	assert.True(t, CanSeeInternalComments(Caller{ID: "m", Role: domain.RoleManager}))
	assert.True(t, CanSeeInternalComments(Caller{ID: "a", Role: domain.RoleSuperAdmin}))
}

func TestAuthorizeRejectsAreaBoundRolesWithoutArea(t *testing.T) {
	ticket := TicketRef{AreaID: "A1", RequesterID: "m", TechnicianID: strPtr("t"), Status: domain.TicketStatusResolved}
	for _, caller := range []Caller{
		{ID: "m", Role: domain.RoleManager},
		{ID: "t", Role: domain.RoleTechnician, AreaID: strPtr("")},
	} {
		for _, action := range []Action{ActionView, ActionComment, ActionChangeStatus, ActionClose, ActionRate} {
			assert.ErrorIs(t, Authorize(caller, action, ticket), ErrMissingArea, "%s %s", caller.Role, action)
		}
	}
	assert.NoError(t, Authorize(Caller{ID: "m", Role: domain.RoleManager, AreaID: areaA1}, ActionView, ticket))
}
