package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"unitoku/internal/cache"
	"unitoku/internal/middleware"
	"unitoku/internal/models"
	"unitoku/internal/repository"
	"unitoku/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// ErrTokenRevoked is returned for tokens that were logged out.
var ErrTokenRevoked = errors.New("token has been revoked")

// SignupInput is the signup request body.
type SignupInput struct {
	Username   string `json:"username" validate:"required,handle"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,strong_password"`
	StudentID  string `json:"student_id" validate:"notblank,max=32"`
	Department string `json:"department" validate:"notblank,max=100"`
	Grade      int    `json:"grade" validate:"min=1,max=6"`
}

// LoginInput is the login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService handles accounts and access tokens.
type AuthService struct {
	users  repository.UserRepository
	rdb    *redis.Client
	secret string
	now    func() time.Time
}

// NewAuthService creates the service. Without Redis, logout cannot revoke
// tokens and IsRevoked always reports false.
func NewAuthService(users repository.UserRepository, rdb *redis.Client, jwtSecret string) *AuthService {
	return &AuthService{users: users, rdb: rdb, secret: jwtSecret, now: time.Now}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User already exists")
	}
	taken, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken != nil {
		return nil, models.NewConflictError("Username already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   string(hashed),
		StudentID:  strings.TrimSpace(in.StudentID),
		Department: strings.TrimSpace(in.Department),
		Grade:      in.Grade,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	svcLog.LogServiceCall(ctx, "auth", "Signup", map[string]interface{}{"user_id": user.ID})
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, _, err := middleware.IssueToken(s.secret, user.ID, user.Username, s.now())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims middleware.TokenClaims) error {
	if s.rdb == nil || claims.JTI == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, cache.BlacklistKey(claims.JTI), "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// IsRevoked reports whether jti was logged out.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.rdb == nil || jti == "" {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, cache.BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Authenticate parses a bearer token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, token string) (middleware.TokenClaims, error) {
	claims, err := middleware.ParseToken(s.secret, token)
	if err != nil {
		return middleware.TokenClaims{}, err
	}
	revoked, err := s.IsRevoked(ctx, claims.JTI)
	if err != nil {
		// Redis outages must not lock every user out.
		middleware.Logger.WarnContext(ctx, "token blacklist lookup failed", "error", err)
		return claims, nil
	}
	if revoked {
		return middleware.TokenClaims{}, ErrTokenRevoked
	}
	return claims, nil
}
