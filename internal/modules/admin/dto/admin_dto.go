package dto

import (
	"anoa.com/librarydesk/internal/entity"
)

type CreateUserInput struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Role     string `json:"role" binding:"required,oneof=admin user"`
}

// UpdateAdminUserInput changes only the fields that are present.
type UpdateAdminUserInput struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=100"`
	Role     *string `json:"role" binding:"omitempty,oneof=admin user"`
	Active   *bool   `json:"active"`
	Password *string `json:"password" binding:"omitempty,min=6,max=72"`
}

type UserFilter struct {
	Role   string `form:"role" binding:"omitempty,oneof=admin user"`
	Search string `form:"search"`
}

type AdminUserResponse struct {
	User        *entity.User `json:"user"`
	ActiveLoans int64        `json:"active_loans"`
}

type DeleteUserResponse struct {
	RemovedLoans int64 `json:"removed_loans"`
}
