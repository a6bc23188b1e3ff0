// Package access decides what an acting user may do. Every gated operation
// receives the actor explicitly; nothing here reads request state.
package access

import (
	"fmt"

	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/pkg/apperror"
	"github.com/google/uuid"
)

type Capability string

const (
	ManageCatalog    Capability = "manage_catalog"
	ViewAdminCatalog Capability = "view_admin_catalog"
	ManageUsers      Capability = "manage_users"
	ViewStats        Capability = "view_stats"
)

var grants = map[entity.Role]map[Capability]bool{
	entity.RoleAdmin: {
		ManageCatalog:    true,
		ViewAdminCatalog: true,
		ManageUsers:      true,
		ViewStats:        true,
	},
	entity.RoleUser: {},
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role entity.Role
}

func NewActor(u *entity.User) *Actor {
	return &Actor{ID: u.ID, Role: u.Role}
}

// SystemActor is the actor for scheduled jobs and operator tooling. It holds
// the admin role and belongs to no stored user.
func SystemActor() *Actor {
	return &Actor{ID: uuid.Nil, Role: entity.RoleAdmin}
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == entity.RoleAdmin
}

func (a *Actor) Can(c Capability) bool {
	if a == nil {
		return false
	}
	return grants[a.Role][c]
}

// Authorize fails with ErrUnauthenticated for a missing actor and
// ErrForbidden when the role lacks the capability.
func Authorize(actor *Actor, c Capability) error {
	if actor == nil {
		return apperror.ErrUnauthenticated
	}
	if !actor.Can(c) {
		return fmt.Errorf("%s requires %s: %w", actor.Role, c, apperror.ErrForbidden)
	}
	return nil
}

// AuthorizeOwner allows the owner of a resource or any admin.
func AuthorizeOwner(actor *Actor, ownerID uuid.UUID) error {
	if actor == nil {
		return apperror.ErrUnauthenticated
	}
	if actor.ID != ownerID && !actor.IsAdmin() {
		return fmt.Errorf("not the owner: %w", apperror.ErrForbidden)
	}
	return nil
}

func AuthorizeLoanReturn(actor *Actor, loanOwnerID uuid.UUID) error {
	return AuthorizeOwner(actor, loanOwnerID)
}

// AuthorizeUserDeletion requires ManageUsers and refuses self-deletion.
func AuthorizeUserDeletion(actor *Actor, targetID uuid.UUID) error {
	if err := Authorize(actor, ManageUsers); err != nil {
		return err
	}
	if actor.ID == targetID {
		return fmt.Errorf("cannot delete own account: %w", apperror.ErrInvalidOperation)
	}
	return nil
}
