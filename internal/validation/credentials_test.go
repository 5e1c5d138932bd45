package validation

import (
	"strings"
	"testing"

	"unitoku/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Username string `json:"username" validate:"required,handle"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,strong_password"`
}

func TestPasswordProblem(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		pw      string
		wantMsg string
	}{
		{"three classes", "kyoto-2024-ok", ""},
		{"all classes", "Str0ng!Passw0rd", ""},
		{"japanese letters count as length", "パスワード確認Ab1!", ""},
		{"too short", "Ab1!", "at least 10"},
		{"over bcrypt limit", "Aa1!" + strings.Repeat("x", 69), "at most 72"},
		{"two classes", "onlylowercase123", "three kinds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := passwordProblem(tt.pw)
			if tt.wantMsg == "" {
				assert.Empty(t, got)
				return
			}
			assert.Contains(t, got, tt.wantMsg)
		})
	}
}

func TestHandleProblem(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		handle string
		ok     bool
	}{
		{"plain", "taro_yamada", true},
		{"hyphen inside", "k-suzuki", true},
		{"too short", "ab", false},
		{"too long", strings.Repeat("a", 31), false},
		{"at sign", "user@1", false},
		{"kanji", "山田太郎", false},
		{"leading hyphen", "-taro", false},
		{"trailing underscore", "taro_", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, handleProblem(tt.handle) == "")
		})
	}
}

func TestStruct_CredentialTags(t *testing.T) {
	t.Parallel()
	valid := signupForm{Username: "hanako", Email: "hanako@example.ac.jp", Password: "Str0ng!Passw0rd"}
	require.NoError(t, Struct(valid))

	weak := valid
	weak.Password = "short"
	err := Struct(weak)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeValidation))
	assert.Contains(t, err.Error(), "at least 10 characters")

	badName := valid
	badName.Username = "_hanako"
	err = Struct(badName)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot start or end")

	badEmail := valid
	badEmail.Email = "not-an-email"
	assert.EqualError(t, Struct(badEmail), "invalid email format")
}
