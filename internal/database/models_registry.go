package database

import "unitoku/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// parents before children.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.PostLike{},
		&models.Favorite{},
		&models.Comment{},
		&models.CommentLike{},
		&models.Course{},
		&models.CourseEvaluation{},
		&models.EvaluationLike{},
		&models.ChatRoom{},
		&models.ChatParticipant{},
		&models.ChatMessage{},
		&models.Notification{},
	}
}
