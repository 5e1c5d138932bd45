package service

import (
	"context"
	"strings"

	"unitoku/internal/models"
	"unitoku/internal/repository"
	"unitoku/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput holds the editable profile fields. Nil fields are left
// unchanged.
type UpdateProfileInput struct {
	UserID     uint    `json:"-"`
	Username   *string `json:"username" validate:"omitnil,handle"`
	Department *string `json:"department" validate:"omitempty,notblank,max=100"`
	Grade      *int    `json:"grade" validate:"omitempty,min=1,max=6"`
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetMe(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// IsAdmin is the AdminChecker backed by the users table.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}

func (s *UserService) UpdateMe(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		in.Username = &name
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		name := *in.Username
		if name != user.Username {
			other, err := s.userRepo.GetByUsername(ctx, name)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != user.ID {
				return nil, models.NewConflictError("Username already taken")
			}
		}
		user.Username = name
	}
	if in.Department != nil {
		user.Department = strings.TrimSpace(*in.Department)
	}
	if in.Grade != nil {
		user.Grade = *in.Grade
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
