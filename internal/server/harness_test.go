package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"unitoku/internal/config"
	"unitoku/internal/middleware"
	"unitoku/internal/models"
	"unitoku/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-that-is-long-enough-for-hs256"

type testEnv struct {
	srv *Server
	app *fiber.App
	mr  *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db := testutil.NewSQLiteDB(t)
	mr, rdb := testutil.NewRedis(t)
	cfg := &config.Config{
		JWTSecret:            testJWTSecret,
		Port:                 "0",
		Env:                  "test",
		AllowedOrigins:       "http://localhost:5173",
		ReadHistoryCapacity:  100,
		ImageUploadDir:       t.TempDir(),
		ImageMaxUploadSizeMB: 2,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return &testEnv{srv: srv, app: srv.App(), mr: mr}
}

// createUser inserts a user and returns it with a valid access token.
func (e *testEnv) createUser(t *testing.T, username string, admin bool) (*models.User, string) {
	t.Helper()
	u := &models.User{
		Username:   username,
		Email:      username + "@example.ac.jp",
		Password:   "x",
		Department: "情報工学科",
		Grade:      2,
		IsAdmin:    admin,
	}
	require.NoError(t, e.srv.db.Create(u).Error)
	token, _, err := middleware.IssueToken(testJWTSecret, u.ID, u.Username, time.Now())
	require.NoError(t, err)
	return u, token
}

// do sends a request with an optional JSON body and bearer token.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
