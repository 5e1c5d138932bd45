package service

import (
	"context"
	"strings"

	"unitoku/internal/models"
	"unitoku/internal/repository"
	"unitoku/internal/validation"
)

// CategoryInput is the body of category create and update requests.
type CategoryInput struct {
	Name        string `json:"name" validate:"notblank,max=50"`
	Icon        string `json:"icon" validate:"max=50"`
	Description string `json:"description" validate:"max=255"`
	Order       int    `json:"order" validate:"min=0"`
}

type CategoryService struct {
	repo    repository.CategoryRepository
	isAdmin AdminChecker
}

func NewCategoryService(repo repository.CategoryRepository, isAdmin AdminChecker) *CategoryService {
	return &CategoryService{repo: repo, isAdmin: isAdmin}
}

// ListCategories returns every category by ascending order with post counts.
func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, userID uint, in CategoryInput) (*models.Category, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	c := &models.Category{
		Name:        strings.TrimSpace(in.Name),
		Icon:        in.Icon,
		Description: in.Description,
		Order:       in.Order,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, userID, id uint, in CategoryInput) (*models.Category, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Icon = in.Icon
	c.Description = in.Description
	c.Order = in.Order
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) requireAdmin(ctx context.Context, userID uint) error {
	if s.isAdmin == nil {
		return models.NewForbiddenError("Admin access required")
	}
	ok, err := s.isAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewForbiddenError("Admin access required")
	}
	return nil
}
