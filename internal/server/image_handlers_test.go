package server

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"unitoku/internal/models"
	"unitoku/internal/service"
	"unitoku/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) upload(t *testing.T, token, filename string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if content != nil {
		part, err := writer.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestUploadAndServeImage(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "photographer", false)

	resp := env.upload(t, token, "img.png", testutil.TinyPNG(t, 40, 30))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	uploaded := decode[service.StoredImage](t, resp)
	require.NotEmpty(t, uploaded.Hash)
	assert.True(t, strings.HasPrefix(uploaded.URL, service.MediaURLPrefix))
	assert.Equal(t, 40, uploaded.Width)
	assert.Equal(t, 30, uploaded.Height)

	serve := env.do(t, http.MethodGet, uploaded.URL, "", nil)
	require.Equal(t, http.StatusOK, serve.StatusCode)
	served, err := io.ReadAll(serve.Body)
	require.NoError(t, err)
	assert.Len(t, served, uploaded.Bytes)

	// The stored URL can be attached to a post.
	post := env.createPost(t, token, map[string]interface{}{
		"title": "桜が満開", "content": "中庭です", "image_urls": []string{uploaded.URL},
	})
	assert.Equal(t, []string{uploaded.URL}, post.ImageURLs)
}

func TestUploadImage_Rejections(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "uploader", false)

	resp := env.upload(t, token, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.upload(t, token, "notes.txt", []byte("definitely not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, models.CodeValidation, body.Code)

	resp = env.upload(t, token, "huge.png", bytes.Repeat([]byte{0x89}, 2*1024*1024+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/posts", token, map[string]interface{}{
		"title": "t", "content": "c", "image_urls": []string{"javascript:alert(1)"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
