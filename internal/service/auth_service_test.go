package service

import (
	"context"
	"testing"
	"time"

	"unitoku/internal/cache"
	"unitoku/internal/middleware"
	"unitoku/internal/models"
	"unitoku/internal/repository"
	"unitoku/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func validSignup() SignupInput {
	return SignupInput{
		Username:   "taro_y",
		Email:      "Taro@Example.ac.jp",
		Password:   "Sup3r-Secret-Pass",
		StudentID:  "A1234567",
		Department: "情報工学科",
		Grade:      2,
	}
}

func TestAuthService_SignupLoginLogout(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	mr, rdb := testutil.NewRedis(t)
	svc := NewAuthService(repository.NewUserRepository(db), rdb, testSecret)
	ctx := context.Background()

	res, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "taro@example.ac.jp", res.User.Email)
	assert.NotEqual(t, "Sup3r-Secret-Pass", res.User.Password)

	_, err = svc.Signup(ctx, validSignup())
	assertCode(t, err, models.CodeConflict)

	dupName := validSignup()
	dupName.Email = "other@example.ac.jp"
	_, err = svc.Signup(ctx, dupName)
	assertCode(t, err, models.CodeConflict)

	_, err = svc.Login(ctx, LoginInput{Email: "taro@example.ac.jp", Password: "wrong-Password-1!"})
	assertCode(t, err, models.CodeUnauthorized)
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.ac.jp", Password: "Sup3r-Secret-Pass"})
	assertCode(t, err, models.CodeUnauthorized)

	login, err := svc.Login(ctx, LoginInput{Email: " TARO@example.ac.jp ", Password: "Sup3r-Secret-Pass"})
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	require.NoError(t, svc.Logout(ctx, claims))
	assert.True(t, mr.Exists(cache.BlacklistKey(claims.JTI)))
	ttl := mr.TTL(cache.BlacklistKey(claims.JTI))
	assert.True(t, ttl > 0 && ttl <= middleware.TokenTTL)

	_, err = svc.Authenticate(ctx, login.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthService_Signup_Validation(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := NewAuthService(repository.NewUserRepository(db), nil, testSecret)

	tests := []struct {
		name   string
		mutate func(*SignupInput)
	}{
		{"missing username", func(in *SignupInput) { in.Username = "" }},
		{"bad username", func(in *SignupInput) { in.Username = "_x" }},
		{"bad email", func(in *SignupInput) { in.Email = "not-an-email" }},
		{"weak password", func(in *SignupInput) { in.Password = "short" }},
		{"missing student id", func(in *SignupInput) { in.StudentID = " " }},
		{"missing department", func(in *SignupInput) { in.Department = "" }},
		{"grade too low", func(in *SignupInput) { in.Grade = 0 }},
		{"grade too high", func(in *SignupInput) { in.Grade = 7 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validSignup()
			tc.mutate(&in)
			_, err := svc.Signup(context.Background(), in)
			assertValidationError(t, err)
		})
	}
}

func TestAuthService_WithoutRedis(t *testing.T) {
	svc := NewAuthService(nil, nil, testSecret)
	token, claims, err := middleware.IssueToken(testSecret, 7, "u", time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims))
	got, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.UserID)

	_, err = svc.Authenticate(context.Background(), "garbage")
	assert.Error(t, err)
}
