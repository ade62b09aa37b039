// Package access decides what a caller may do with a ticket.
//
// All predicates are pure: they look only at the caller's identity, role and
// area and at the ticket's owning area, requester, technician and status.
// Listing and bulk endpoints use the Scope values produced here as query
// filters so that single-ticket and set-based paths agree.
package access

import (
	"errors"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
)

var (
	// ErrForbidden is returned when the caller may not perform the action.
	ErrForbidden = errors.New("access denied")
	// ErrMissingArea is returned for managers and technicians without an area.
	ErrMissingArea = errors.New("caller has no area association")
)

// Caller is the identity resolved from the session.
type Caller struct {
	ID     string
	Role   domain.Role
	AreaID *string
}

// CallerFromUser builds a Caller from a loaded user.
func CallerFromUser(u *domain.User) Caller {
	if u == nil {
		return Caller{}
	}
	return Caller{ID: u.ID, Role: u.Role, AreaID: u.AreaID}
}

func (c Caller) inArea(areaID string) bool {
	return c.AreaID != nil && *c.AreaID == areaID
}

func (c Caller) hasArea() bool {
	return c.AreaID != nil && *c.AreaID != ""
}

// TicketRef carries the ticket attributes the predicates need.
type TicketRef struct {
	AreaID       string
	RequesterID  string
	TechnicianID *string
	Status       domain.TicketStatus
}

// RefOf extracts a TicketRef from a ticket.
func RefOf(t *domain.Ticket) TicketRef {
	return TicketRef{
		AreaID:       t.AreaID,
		RequesterID:  t.RequesterID,
		TechnicianID: t.TechnicianID,
		Status:       t.Status,
	}
}

func (r TicketRef) isTechnician(userID string) bool {
	return r.TechnicianID != nil && *r.TechnicianID == userID
}

// Action names an operation on a single ticket.
type Action string

const (
	ActionView         Action = "view"
	ActionAssign       Action = "assign"
	ActionChangeStatus Action = "change_status"
	ActionRate         Action = "rate"
	ActionClose        Action = "close"
	ActionComment      Action = "comment"
)

// Authorize returns ErrForbidden unless caller may perform action on ticket.
// Area-bound roles without an area get ErrMissingArea, as TicketScope does.
func Authorize(caller Caller, action Action, ticket TicketRef) error {
	if (caller.Role == domain.RoleManager || caller.Role == domain.RoleTechnician) && !caller.hasArea() {
		return ErrMissingArea
	}
	var allowed bool
	switch action {
	case ActionView, ActionComment:
		allowed = CanView(caller, ticket)
	case ActionAssign:
		allowed = CanAssign(caller, ticket)
	case ActionChangeStatus:
		allowed = CanChangeStatus(caller, ticket)
	case ActionRate:
		allowed = CanRate(caller, ticket)
	case ActionClose:
		allowed = CanClose(caller, ticket)
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// CanView is true iff the caller is SUPER_ADMIN, the requester, the assigned
// technician, or a MANAGER of the ticket's area.
func CanView(caller Caller, ticket TicketRef) bool {
	if caller.ID == "" {
		return false
	}
	switch {
	case caller.Role == domain.RoleSuperAdmin:
		return true
	case caller.ID == ticket.RequesterID:
		return true
	case ticket.isTechnician(caller.ID):
		return true
	case caller.Role == domain.RoleManager && caller.inArea(ticket.AreaID):
		return true
	}
	return false
}

// CanAssign reports whether the caller may pick the technician of a ticket.
func CanAssign(caller Caller, ticket TicketRef) bool {
	switch caller.Role {
	case domain.RoleSuperAdmin:
		return true
	case domain.RoleManager:
		return caller.inArea(ticket.AreaID)
	}
	return false
}

// CanChangeStatus reports whether the caller may move the ticket's status.
func CanChangeStatus(caller Caller, ticket TicketRef) bool {
	switch caller.Role {
	case domain.RoleSuperAdmin:
		return true
	case domain.RoleManager:
		return caller.inArea(ticket.AreaID)
	case domain.RoleTechnician:
		return ticket.isTechnician(caller.ID)
	}
	return false
}

// CanRate reports whether the caller may leave satisfaction feedback: only the
// requester, and only once the ticket is RESOLVED or CLOSED.
func CanRate(caller Caller, ticket TicketRef) bool {
	return caller.ID != "" && caller.ID == ticket.RequesterID && lifecycle.IsRateable(ticket.Status)
}

// CanClose reports whether the requester may close a resolved ticket.
func CanClose(caller Caller, ticket TicketRef) bool {
	return caller.ID != "" && caller.ID == ticket.RequesterID && ticket.Status == domain.TicketStatusResolved
}

// CanSeeInternalComments hides internal notes from COMMON users.
func CanSeeInternalComments(caller Caller) bool {
	return caller.Role != domain.RoleCommon && caller.Role != ""
}

// CanBulkManage reports whether the caller may use bulk update/delete.
func CanBulkManage(caller Caller) bool {
	switch caller.Role {
	case domain.RoleSuperAdmin:
		return true
	case domain.RoleManager:
		return caller.hasArea()
	}
	return false
}

// Scope is a row filter over tickets. Unrestricted matches everything;
// otherwise a row matches when any set clause matches, and a Scope with no
// clauses matches nothing.
type Scope struct {
	Unrestricted bool
	AreaID       *string
	RequesterID  *string
	TechnicianID *string
}

// Empty reports whether the scope can never match a row.
func (s Scope) Empty() bool {
	return !s.Unrestricted && s.AreaID == nil && s.RequesterID == nil && s.TechnicianID == nil
}

// Matches evaluates the scope against a ticket in memory.
func (s Scope) Matches(ticket TicketRef) bool {
	if s.Unrestricted {
		return true
	}
	if s.AreaID != nil && *s.AreaID == ticket.AreaID {
		return true
	}
	if s.RequesterID != nil && *s.RequesterID == ticket.RequesterID {
		return true
	}
	if s.TechnicianID != nil && ticket.isTechnician(*s.TechnicianID) {
		return true
	}
	return false
}

// TicketScope returns the listing filter equivalent to CanView: everyone sees
// tickets they requested or are assigned to, managers additionally see their
// whole area.
func TicketScope(caller Caller) (Scope, error) {
	if caller.ID == "" {
		return Scope{}, ErrForbidden
	}
	self := caller.ID
	own := Scope{RequesterID: &self, TechnicianID: &self}
	switch caller.Role {
	case domain.RoleSuperAdmin:
		return Scope{Unrestricted: true}, nil
	case domain.RoleManager:
		if !caller.hasArea() {
			return Scope{}, ErrMissingArea
		}
		area := *caller.AreaID
		own.AreaID = &area
		return own, nil
	case domain.RoleTechnician:
		if !caller.hasArea() {
			return Scope{}, ErrMissingArea
		}
		return own, nil
	case domain.RoleCommon:
		return own, nil
	}
	return Scope{}, ErrForbidden
}

// BulkScope returns the filter applied to bulk update/delete. Managers are
// limited to their own area; other roles may not use bulk operations.
func BulkScope(caller Caller) (Scope, error) {
	switch caller.Role {
	case domain.RoleSuperAdmin:
		return Scope{Unrestricted: true}, nil
	case domain.RoleManager:
		if !caller.hasArea() {
			return Scope{}, ErrMissingArea
		}
		area := *caller.AreaID
		return Scope{AreaID: &area}, nil
	}
	return Scope{}, ErrForbidden
}
