package repository

import (
	"context"
	"time"

	"unitoku/internal/models"
	"unitoku/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// likeTarget describes one likeable table and the counter it maintains.
type likeTarget struct {
	name       string // metric label and error resource
	model      any
	table      string
	counter    string
	likes      string
	foreignKey string
}

var (
	postLikeTarget = likeTarget{
		name: "post", model: &models.Post{}, table: "posts", counter: "like_count",
		likes: "post_likes", foreignKey: "post_id",
	}
	commentLikeTarget = likeTarget{
		name: "comment", model: &models.Comment{}, table: "comments", counter: "like_count",
		likes: "comment_likes", foreignKey: "comment_id",
	}
	evaluationLikeTarget = likeTarget{
		name: "evaluation", model: &models.CourseEvaluation{}, table: "course_evaluations", counter: "likes",
		likes: "evaluation_likes", foreignKey: "evaluation_id",
	}
)

// InteractionRepository keeps the per-user liked/commented state of posts,
// comments and evaluations, along with the counters on those records.
type InteractionRepository interface {
	TogglePostLike(ctx context.Context, userID, postID uint) (bool, int, error)
	ToggleCommentLike(ctx context.Context, userID, commentID uint) (bool, int, error)
	ToggleEvaluationLike(ctx context.Context, userID, evaluationID uint) (bool, int, error)
	PostFlags(ctx context.Context, userID uint, postIDs []uint) (map[uint]models.InteractionFlags, error)
	LikedCommentIDs(ctx context.Context, userID uint, commentIDs []uint) (map[uint]bool, error)
	LikedEvaluationIDs(ctx context.Context, userID uint, evaluationIDs []uint) (map[uint]bool, error)
}

type interactionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db, now: time.Now}
}

func (r *interactionRepository) TogglePostLike(ctx context.Context, userID, postID uint) (bool, int, error) {
	return r.toggle(ctx, postLikeTarget, userID, postID)
}

func (r *interactionRepository) ToggleCommentLike(ctx context.Context, userID, commentID uint) (bool, int, error) {
	return r.toggle(ctx, commentLikeTarget, userID, commentID)
}

func (r *interactionRepository) ToggleEvaluationLike(ctx context.Context, userID, evaluationID uint) (bool, int, error) {
	return r.toggle(ctx, evaluationLikeTarget, userID, evaluationID)
}

// toggle flips the user's like on one record and adjusts its counter in the
// same transaction. The counter never drops below zero.
func (r *interactionRepository) toggle(ctx context.Context, t likeTarget, userID, id uint) (bool, int, error) {
	var (
		liked bool
		count int
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookup := tx.Model(t.model).Select("id")
		if isPostgres(tx) {
			lookup = lookup.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var found struct{ ID uint }
		if err := lookup.Where("id = ?", id).Take(&found).Error; err != nil {
			return translate(err, t.name, id)
		}

		res := tx.Exec("DELETE FROM "+t.likes+" WHERE user_id = ? AND "+t.foreignKey+" = ?", userID, id)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			if err := tx.Exec("UPDATE "+t.table+" SET "+t.counter+" = "+clampedDecrement(tx, t.counter)+" WHERE id = ?", id).Error; err != nil {
				return err
			}
		} else {
			ins := tx.Exec("INSERT INTO "+t.likes+" (user_id, "+t.foreignKey+", created_at) VALUES (?, ?, ?) ON CONFLICT (user_id, "+t.foreignKey+") DO NOTHING",
				userID, id, r.now())
			if ins.Error != nil {
				return ins.Error
			}
			if ins.RowsAffected > 0 {
				if err := tx.Exec("UPDATE "+t.table+" SET "+t.counter+" = "+t.counter+" + 1 WHERE id = ?", id).Error; err != nil {
					return err
				}
			}
			liked = true
		}

		return tx.Raw("SELECT "+t.counter+" FROM "+t.table+" WHERE id = ?", id).Scan(&count).Error
	})
	if err != nil {
		return false, 0, translate(err, t.name, id)
	}
	observability.RecordLikeToggle(t.name, liked)
	return liked, count, nil
}

func (r *interactionRepository) PostFlags(ctx context.Context, userID uint, postIDs []uint) (map[uint]models.InteractionFlags, error) {
	flags := make(map[uint]models.InteractionFlags, len(postIDs))
	if userID == 0 || len(postIDs) == 0 {
		return flags, nil
	}

	var liked []uint
	if err := r.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &liked).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	var commented []uint
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Distinct("post_id").
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &commented).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	for _, id := range liked {
		f := flags[id]
		f.Liked = true
		flags[id] = f
	}
	for _, id := range commented {
		f := flags[id]
		f.Commented = true
		flags[id] = f
	}
	return flags, nil
}

func (r *interactionRepository) LikedCommentIDs(ctx context.Context, userID uint, commentIDs []uint) (map[uint]bool, error) {
	return r.likedIDs(ctx, &models.CommentLike{}, "comment_id", userID, commentIDs)
}

func (r *interactionRepository) LikedEvaluationIDs(ctx context.Context, userID uint, evaluationIDs []uint) (map[uint]bool, error) {
	return r.likedIDs(ctx, &models.EvaluationLike{}, "evaluation_id", userID, evaluationIDs)
}

func (r *interactionRepository) likedIDs(ctx context.Context, model any, column string, userID uint, ids []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(ids))
	if userID == 0 || len(ids) == 0 {
		return out, nil
	}
	var liked []uint
	if err := r.db.WithContext(ctx).Model(model).
		Where("user_id = ? AND "+column+" IN ?", userID, ids).
		Pluck(column, &liked).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}
