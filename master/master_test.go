package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Expire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(90*time.Second, clock)

	stale := reg.Register(ServerInfo{Name: "stale", Address: "a"})
	clock.Advance(60 * time.Second)
	fresh := reg.Register(ServerInfo{Name: "fresh", Address: "b"})
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, reg.Expire())
	list := reg.List(false)
	require.Len(t, list, 1)
	assert.Equal(t, fresh, list[0].ID)
	assert.False(t, reg.Heartbeat(stale, Status{}))
}

func TestRegistry_HeartbeatRefreshesStatus(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(time.Minute, clock)
	id := reg.Register(ServerInfo{Name: "k", Address: "a", Phase: "waiting_to_start", Joinable: true})

	clock.Advance(50 * time.Second)
	require.True(t, reg.Heartbeat(id, Status{Players: 3, Phase: "game_playing"}))
	clock.Advance(50 * time.Second)

	assert.Zero(t, reg.Expire())
	list := reg.List(false)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Players)
	assert.Equal(t, "game_playing", list[0].Phase)
	assert.Empty(t, reg.List(true))
}

func TestRoutes_RegisterHeartbeatList(t *testing.T) {
	reg := NewRegistry(time.Minute, clockwork.NewFakeClock())
	srv := httptest.NewServer(Routes(reg))
	defer srv.Close()

	body := `{"name":"kitchen","address":"10.0.0.1:7373","players":1,"maxPlayers":4,"phase":"waiting_to_start","joinable":true}`
	resp, err := http.Post(srv.URL+"/servers/register", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created registerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)

	hb := `{"id":"` + created.ID + `","players":2,"phase":"countdown_to_start","joinable":false}`
	resp2, err := http.Post(srv.URL+"/servers/heartbeat", "application/json", strings.NewReader(hb))
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3, err := http.Get(srv.URL + "/servers")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, "application/json", resp3.Header.Get("Content-Type"))
	var servers []ServerInfo
	require.NoError(t, json.NewDecoder(resp3.Body).Decode(&servers))
	require.Len(t, servers, 1)
	assert.Equal(t, 2, servers[0].Players)
	assert.Equal(t, "countdown_to_start", servers[0].Phase)

	resp4, err := http.Get(srv.URL + "/servers?joinable=true")
	require.NoError(t, err)
	defer resp4.Body.Close()
	var joinable []ServerInfo
	require.NoError(t, json.NewDecoder(resp4.Body).Decode(&joinable))
	assert.Empty(t, joinable)
}

func TestRoutes_Errors(t *testing.T) {
	reg := NewRegistry(time.Minute, clockwork.NewFakeClock())
	srv := httptest.NewServer(Routes(reg))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/servers/register", "application/json", strings.NewReader(`{"name":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/servers/heartbeat", "application/json", strings.NewReader(`{"id":"nope"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/servers/register", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
