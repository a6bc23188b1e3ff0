package service

import (
	"context"
	"fmt"
	"strings"

	"anoa.com/librarydesk/internal/access"
	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/internal/modules/admin/dto"
	loanRepo "anoa.com/librarydesk/internal/modules/loan/repository"
	userDto "anoa.com/librarydesk/internal/modules/user/dto"
	userRepo "anoa.com/librarydesk/internal/modules/user/repository"
	userService "anoa.com/librarydesk/internal/modules/user/service"
	"anoa.com/librarydesk/pkg/apperror"
	"github.com/google/uuid"
)

type AdminService interface {
	GetAllUsers(ctx context.Context, actor *access.Actor, filter dto.UserFilter) ([]dto.AdminUserResponse, error)
	CreateUser(ctx context.Context, actor *access.Actor, input dto.CreateUserInput) (*dto.AdminUserResponse, error)
	UpdateUser(ctx context.Context, actor *access.Actor, id uuid.UUID, input dto.UpdateAdminUserInput) (*dto.AdminUserResponse, error)
	// DeleteUser releases the user's borrowed books, removes their loans and
	// then the user, in one transaction.
	DeleteUser(ctx context.Context, actor *access.Actor, id uuid.UUID) (*dto.DeleteUserResponse, error)
}

type adminService struct {
	users userRepo.UserRepository
	loans loanRepo.LoanRepository
	auth  userService.AuthService
}

func NewAdminService(users userRepo.UserRepository, loans loanRepo.LoanRepository, auth userService.AuthService) AdminService {
	return &adminService{
		users: users,
		loans: loans,
		auth:  auth,
	}
}

func (s *adminService) GetAllUsers(ctx context.Context, actor *access.Actor, filter dto.UserFilter) ([]dto.AdminUserResponse, error) {
	if err := access.Authorize(actor, access.ManageUsers); err != nil {
		return nil, err
	}

	users, err := s.users.FindAll(ctx, userRepo.UserFilter{Role: entity.Role(filter.Role), Search: filter.Search})
	if err != nil {
		return nil, err
	}

	res := make([]dto.AdminUserResponse, 0, len(users))
	for _, u := range users {
		item, err := s.buildResponse(ctx, u)
		if err != nil {
			return nil, err
		}
		res = append(res, *item)
	}
	return res, nil
}

func (s *adminService) CreateUser(ctx context.Context, actor *access.Actor, input dto.CreateUserInput) (*dto.AdminUserResponse, error) {
	if err := access.Authorize(actor, access.ManageUsers); err != nil {
		return nil, err
	}

	role, err := entity.ParseRole(input.Role)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperror.ErrInvalidInput)
	}

	created, err := s.auth.RegisterUser(ctx, userDto.RegisterInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	}, role)
	if err != nil {
		return nil, err
	}

	return &dto.AdminUserResponse{User: created.User}, nil
}

func (s *adminService) UpdateUser(ctx context.Context, actor *access.Actor, id uuid.UUID, input dto.UpdateAdminUserInput) (*dto.AdminUserResponse, error) {
	if err := access.Authorize(actor, access.ManageUsers); err != nil {
		return nil, err
	}

	fields := map[string]any{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("name is required: %w", apperror.ErrInvalidInput)
		}
		fields["name"] = name
	}

	if input.Role != nil {
		role, err := entity.ParseRole(*input.Role)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, apperror.ErrInvalidInput)
		}
		if actor.ID == id && role != entity.RoleAdmin {
			return nil, fmt.Errorf("cannot demote own account: %w", apperror.ErrInvalidOperation)
		}
		fields["role"] = role
	}

	if input.Active != nil {
		if actor.ID == id && !*input.Active {
			return nil, fmt.Errorf("cannot deactivate own account: %w", apperror.ErrInvalidOperation)
		}
		fields["active"] = *input.Active
	}

	if input.Password != nil {
		hashed, err := userService.HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = hashed
	}

	if len(fields) > 0 {
		if err := s.users.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, user)
}

func (s *adminService) DeleteUser(ctx context.Context, actor *access.Actor, id uuid.UUID) (*dto.DeleteUserResponse, error) {
	if err := access.AuthorizeUserDeletion(actor, id); err != nil {
		return nil, err
	}

	removed, err := s.users.DeleteWithLoans(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete user %s: %w", id, err)
	}

	return &dto.DeleteUserResponse{RemovedLoans: removed}, nil
}

func (s *adminService) buildResponse(ctx context.Context, u *entity.User) (*dto.AdminUserResponse, error) {
	active, err := s.loans.CountActive(ctx, &u.ID)
	if err != nil {
		return nil, err
	}
	return &dto.AdminUserResponse{User: u, ActiveLoans: active}, nil
}
