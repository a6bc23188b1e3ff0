package access

import (
	"testing"

	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	admin := &Actor{ID: uuid.New(), Role: entity.RoleAdmin}
	user := &Actor{ID: uuid.New(), Role: entity.RoleUser}

	caps := []Capability{ManageCatalog, ViewAdminCatalog, ManageUsers, ViewStats}
	for _, c := range caps {
		t.Run(string(c), func(t *testing.T) {
			assert.NoError(t, Authorize(admin, c))
			assert.ErrorIs(t, Authorize(user, c), apperror.ErrForbidden)
			assert.ErrorIs(t, Authorize(nil, c), apperror.ErrUnauthenticated)
		})
	}
}

func TestAuthorize_UnknownRoleHasNothing(t *testing.T) {
	ghost := &Actor{ID: uuid.New(), Role: entity.Role("ghost")}
	assert.ErrorIs(t, Authorize(ghost, ViewStats), apperror.ErrForbidden)
}

func TestAuthorizeLoanReturn(t *testing.T) {
	owner := &Actor{ID: uuid.New(), Role: entity.RoleUser}
	other := &Actor{ID: uuid.New(), Role: entity.RoleUser}
	admin := &Actor{ID: uuid.New(), Role: entity.RoleAdmin}

	assert.NoError(t, AuthorizeLoanReturn(owner, owner.ID))
	assert.NoError(t, AuthorizeLoanReturn(admin, owner.ID))
	assert.ErrorIs(t, AuthorizeLoanReturn(other, owner.ID), apperror.ErrForbidden)
	assert.ErrorIs(t, AuthorizeLoanReturn(nil, owner.ID), apperror.ErrUnauthenticated)
}

func TestAuthorizeUserDeletion(t *testing.T) {
	admin := &Actor{ID: uuid.New(), Role: entity.RoleAdmin}
	user := &Actor{ID: uuid.New(), Role: entity.RoleUser}

	assert.NoError(t, AuthorizeUserDeletion(admin, user.ID))
	assert.ErrorIs(t, AuthorizeUserDeletion(admin, admin.ID), apperror.ErrInvalidOperation)
	assert.ErrorIs(t, AuthorizeUserDeletion(user, admin.ID), apperror.ErrForbidden)
	assert.ErrorIs(t, AuthorizeUserDeletion(nil, admin.ID), apperror.ErrUnauthenticated)
}

func TestSystemActor(t *testing.T) {
	sys := SystemActor()
	assert.Equal(t, uuid.Nil, sys.ID)
	assert.NoError(t, Authorize(sys, ViewAdminCatalog))
}
