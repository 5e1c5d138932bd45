package repository

import (
	"context"

	"unitoku/internal/models"

	"gorm.io/gorm"
)

// FavoriteRepository manages a user's bookmarked posts.
type FavoriteRepository interface {
	Toggle(ctx context.Context, userID, postID uint) (bool, error)
	List(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	IsFavorite(ctx context.Context, userID, postID uint) (bool, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository creates a new favorite repository
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

// Toggle adds or removes the bookmark and reports whether it is now set.
func (r *favoriteRepository) Toggle(ctx context.Context, userID, postID uint) (bool, error) {
	var favorited bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post struct{ ID uint }
		if err := tx.Model(&models.Post{}).Select("id").Where("id = ?", postID).Take(&post).Error; err != nil {
			return translate(err, "Post", postID)
		}
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Favorite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		favorited = true
		return tx.Exec("INSERT INTO favorites (user_id, post_id, created_at) VALUES (?, ?, CURRENT_TIMESTAMP) ON CONFLICT (user_id, post_id) DO NOTHING",
			userID, postID).Error
	})
	if err != nil {
		return false, translate(err, "Post", postID)
	}
	return favorited, nil
}

// List returns bookmarked posts, most recently bookmarked first.
func (r *favoriteRepository) List(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	limit, offset = clampPage(limit, offset)
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Joins("JOIN favorites f ON f.post_id = posts.id AND f.user_id = ?", userID).
		Preload("User").
		Preload("Category").
		Order("f.created_at DESC, f.id DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *favoriteRepository) IsFavorite(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
