package repository

import (
	"context"

	"unitoku/internal/cache"
	"unitoku/internal/models"
	"unitoku/internal/observability"

	"gorm.io/gorm"
)

// PostFilter narrows and orders a post listing. Zero values mean "any".
type PostFilter struct {
	CategoryID uint
	AuthorID   uint
	Query      string
	Sort       models.PostSort
	Limit      int
	Offset     int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, filter PostFilter) ([]*models.Post, error)
	Hot(ctx context.Context, limit int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	IncrementViewCount(ctx context.Context, id uint) error
}

type postRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, logger: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.logger.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "category_id": post.CategoryID})
	cache.InvalidateCategories(ctx)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Category").
		First(&post, id).Error
	if err != nil {
		return nil, translate(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]*models.Post, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)
	q := r.db.WithContext(ctx).Model(&models.Post{}).Preload("User").Preload("Category")

	if filter.CategoryID != 0 {
		q = q.Where("posts.category_id = ?", filter.CategoryID)
	}
	if filter.AuthorID != 0 {
		q = q.Where("posts.user_id = ?", filter.AuthorID)
	}
	if filter.Query != "" {
		cond, args := containsMatch(r.db, filter.Query, "posts.title", "posts.content")
		q = q.Where(cond, args...)
	}

	var posts []*models.Post
	if err := applySort(q, filter.Sort).Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// applySort appends the ORDER BY for the requested sort. Ties fall back to
// recency, then id, so pages are stable.
func applySort(db *gorm.DB, sort models.PostSort) *gorm.DB {
	switch sort {
	case models.SortPopular:
		return db.Order("posts.like_count DESC, posts.created_at DESC, posts.id DESC")
	case models.SortCommented:
		return db.Order("posts.comment_count DESC, posts.created_at DESC, posts.id DESC")
	case models.SortViewed:
		return db.Order("posts.view_count DESC, posts.created_at DESC, posts.id DESC")
	default:
		return db.Order("posts.created_at DESC, posts.id DESC")
	}
}

// Hot returns the most liked posts.
func (r *postRepository) Hot(ctx context.Context, limit int) ([]*models.Post, error) {
	return r.List(ctx, PostFilter{Sort: models.SortPopular, Limit: limit})
}

// Update writes the editable fields only, leaving counters untouched.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(post).
		Select("Title", "Content", "CategoryID", "ImageURLs").
		Updates(post).Error
	if err != nil {
		r.logger.LogError(ctx, err, "update")
		return models.NewInternalError(err)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"post_id": post.ID})
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

// Delete removes the post together with its likes, favorites and comments.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM comment_likes WHERE comment_id IN (SELECT id FROM comments WHERE post_id = ?)", id).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		r.logger.LogError(ctx, err, "delete")
		return translate(err, "Post", id)
	}
	r.logger.LogDelete(ctx, map[string]interface{}{"post_id": id})
	cache.InvalidatePost(ctx, id)
	cache.InvalidateCategories(ctx)
	return nil
}

func (r *postRepository) IncrementViewCount(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}
