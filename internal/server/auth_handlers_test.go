package server

import (
	"net/http"
	"testing"

	"unitoku/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signupBody(username, email string) map[string]interface{} {
	return map[string]interface{}{
		"username":   username,
		"email":      email,
		"password":   "Str0ng!Passw0rd",
		"student_id": "S2024001",
		"department": "経済学部",
		"grade":      1,
	}
}

func TestSignupLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/signup", "", signupBody("hanako", "Hanako@Example.ac.jp"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	signed := decode[service.AuthResult](t, resp)
	assert.NotEmpty(t, signed.Token)
	require.NotNil(t, signed.User)
	assert.Equal(t, "hanako@example.ac.jp", signed.User.Email)

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "hanako@example.ac.jp",
		"password": "Str0ng!Passw0rd",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logged := decode[service.AuthResult](t, resp)

	resp = env.do(t, http.MethodGet, "/api/users/me", logged.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/logout", logged.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/users/me", logged.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "Token has been revoked", body["error"])

	// The signup token is a different jti and stays valid.
	resp = env.do(t, http.MethodGet, "/api/users/me", signed.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignup_Rejections(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/api/auth/signup", "", signupBody("taro", "taro@example.ac.jp")).StatusCode)

	weak := signupBody("jiro", "jiro@example.ac.jp")
	weak["password"] = "short"

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"duplicate email", signupBody("taro2", "TARO@example.ac.jp"), http.StatusConflict},
		{"duplicate username", signupBody("taro", "other@example.ac.jp"), http.StatusConflict},
		{"weak password", weak, http.StatusBadRequest},
		{"bad email", signupBody("saburo", "not-an-email"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/api/auth/signup", "", signupBody("yuki", "yuki@example.ac.jp")).StatusCode)

	resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "yuki@example.ac.jp",
		"password": "Wr0ng!Password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "yuki@example.ac.jp"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
