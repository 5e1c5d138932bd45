package repository

import (
	"context"

	"unitoku/internal/cache"
	"unitoku/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CategoryRepository defines persistence operations for board categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	GetByName(ctx context.Context, name string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	EnsureDefaults(ctx context.Context, defaults []models.Category) (int64, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// List returns every category by ascending order, with live post counts.
func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	return cache.Aside(ctx, cache.CategoryListKey, cache.CategoryListTTL, func(ctx context.Context) ([]models.Category, error) {
		var categories []models.Category
		err := r.db.WithContext(ctx).
			Model(&models.Category{}).
			Select("categories.*, (SELECT COUNT(*) FROM posts WHERE posts.category_id = categories.id AND posts.deleted_at IS NULL) AS post_count").
			Order("sort_order ASC, id ASC").
			Find(&categories).Error
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		return categories, nil
	})
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, translate(err, "Category", id)
	}
	return &category, nil
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		return nil, translate(err, "Category", name)
	}
	return &category, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Category name already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCategories(ctx)
	return nil
}

func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	err := r.db.WithContext(ctx).Model(category).
		Select("Name", "Icon", "Description", "Order").
		Updates(category).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Category name already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCategories(ctx)
	return nil
}

// EnsureDefaults inserts any of the given categories whose name is missing and
// returns how many were created.
func (r *categoryRepository) EnsureDefaults(ctx context.Context, defaults []models.Category) (int64, error) {
	if len(defaults) == 0 {
		return 0, nil
	}
	rows := make([]models.Category, len(defaults))
	copy(rows, defaults)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		cache.InvalidateCategories(ctx)
	}
	return res.RowsAffected, nil
}
