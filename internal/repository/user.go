package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"unitoku/internal/cache"
	"unitoku/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for student accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByUsernames(ctx context.Context, usernames []string) ([]models.User, error)
	// Resolve finds a user by numeric ID or by email.
	Resolve(ctx context.Context, ref string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	SetAdmin(ctx context.Context, id uint, admin bool) error
	PromoteEmails(ctx context.Context, emails []string) (int64, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a gorm-backed UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID reads through the user cache.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := cache.Aside(ctx, cache.UserKey(id), cache.UserTTL, func(ctx context.Context) (models.User, error) {
		var u models.User
		return u, translate(r.db.WithContext(ctx).First(&u, id).Error, "User", id)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// lookup returns nil, nil when nothing matches.
func (r *userRepository) lookup(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where(query, arg).Take(&u).Error
	switch {
	case err == nil:
		return &u, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, models.NewInternalError(err)
	}
}

// GetByEmail matches case-insensitively and returns nil, nil on no match.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.lookup(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByUsername returns nil, nil on no match.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.lookup(ctx, "username = ?", username)
}

// GetByUsernames resolves @mentions. Unknown names are skipped.
func (r *userRepository) GetByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("username IN ?", usernames).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Resolve(ctx context.Context, ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseUint(ref, 10, 32); err == nil && id > 0 {
		return r.GetByID(ctx, uint(id))
	}
	u, err := r.GetByEmail(ctx, ref)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, models.NewNotFoundError("User", ref)
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	switch {
	case err == nil:
		return nil
	case isUniqueConstraintError(err):
		return models.NewConflictError("User already exists")
	default:
		return models.NewInternalError(err)
	}
}

// Update writes the editable profile fields.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(user).Select("Username", "Department", "Grade").Updates(user).Error
	switch {
	case err == nil:
		cache.InvalidateUser(ctx, user.ID)
		return nil
	case isUniqueConstraintError(err):
		return models.NewConflictError("Username already taken")
	default:
		return models.NewInternalError(err)
	}
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, admin bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_admin", admin)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

// PromoteEmails grants admin to the existing, not yet admin accounts whose
// email is listed and returns how many changed.
func (r *userRepository) PromoteEmails(ctx context.Context, emails []string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) IN ? AND is_admin = ?", emails, false).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", ids).Update("is_admin", true)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	for _, id := range ids {
		cache.InvalidateUser(ctx, id)
	}
	return res.RowsAffected, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	if err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("id").Find(&admins).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return admins, nil
}
