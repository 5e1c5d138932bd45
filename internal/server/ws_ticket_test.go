package server

import (
	"net/http"
	"testing"

	"unitoku/internal/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSTicket_SingleUse(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "misaki", false)

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	issued := decode[struct {
		Ticket    string `json:"ticket"`
		ExpiresIn int    `json:"expires_in"`
	}](t, resp)
	require.NotEmpty(t, issued.Ticket)
	assert.Equal(t, int(cache.WSTicketTTL.Seconds()), issued.ExpiresIn)
	assert.True(t, env.mr.Exists(cache.WSTicketKey(issued.Ticket)))

	// Authenticated but not an upgrade request.
	resp = env.do(t, http.MethodGet, "/api/ws?ticket="+issued.Ticket, "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	assert.False(t, env.mr.Exists(cache.WSTicketKey(issued.Ticket)))

	resp = env.do(t, http.MethodGet, "/api/ws?ticket="+issued.Ticket, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "Invalid or expired WebSocket ticket", body["error"])
}

func TestWSTicket_Expired(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "sora", false)

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	issued := decode[map[string]interface{}](t, resp)

	env.mr.FastForward(cache.WSTicketTTL + 1)
	resp = env.do(t, http.MethodGet, "/api/ws?ticket="+issued["ticket"].(string), "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSTicket_InvalidTicketFallsBackToBearerOffWebsocket(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "ren", false)

	resp := env.do(t, http.MethodGet, "/api/users/me?ticket=bogus", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/users/me?ticket=bogus", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSTicket_RequiresRedis(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "aoi", false)
	env.srv.redis = nil

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWSTicket_DoesNotAuthenticateRESTCalls(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "kaito", false)

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := decode[map[string]interface{}](t, resp)["ticket"].(string)

	resp = env.do(t, http.MethodGet, "/api/users/me?ticket="+ticket, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	// The ticket is still good for the socket it was issued for.
	assert.True(t, env.mr.Exists(cache.WSTicketKey(ticket)))
}
