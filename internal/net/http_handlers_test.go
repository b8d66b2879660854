package net

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakshee44566/4-IN-A-ROW/internal/auth"
	"github.com/sakshee44566/4-IN-A-ROW/internal/lobby"
	"github.com/sakshee44566/4-IN-A-ROW/internal/match"
	"github.com/sakshee44566/4-IN-A-ROW/internal/session"
	"github.com/sakshee44566/4-IN-A-ROW/internal/store"
)

type fakeAuth struct {
	registerErr error
	loginErr    error
}

func (f *fakeAuth) Register(username, password string) (auth.User, string, error) {
	if f.registerErr != nil {
		return auth.User{}, "", f.registerErr
	}
	return auth.User{ID: 1, Username: username}, "token-" + username, nil
}

func (f *fakeAuth) Login(username, password string) (auth.User, string, error) {
	if f.loginErr != nil {
		return auth.User{}, "", f.loginErr
	}
	return auth.User{ID: 1, Username: username}, "token-" + username, nil
}

type fakeRecords struct {
	standings []store.Standing
	games     map[string]store.GameRecord
	failWith  error
}

func (f *fakeRecords) Leaderboard(limit int) ([]store.Standing, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if limit < len(f.standings) {
		return f.standings[:limit], nil
	}
	return f.standings, nil
}

func (f *fakeRecords) FindGame(id string) (store.GameRecord, bool, error) {
	if f.failWith != nil {
		return store.GameRecord{}, false, f.failWith
	}
	record, ok := f.games[id]
	return record, ok, nil
}

func newTestHandler(t *testing.T, authSvc Authenticator, records GameStore) nethttp.Handler {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	sessions := session.NewRegistry(logger)
	return NewHTTPHandler(Services{
		Auth:     authSvc,
		Records:  records,
		Sessions: sessions,
		Matches:  match.NewCoordinator(match.Config{Sessions: sessions, Logger: logger}),
		Queue:    lobby.NewQueue(),
	}, HTTPHandlerConfig{Logger: logger})
}

func doJSON(t *testing.T, handler nethttp.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(t, &fakeAuth{}, &fakeRecords{})
	rec := doJSON(t, handler, nethttp.MethodGet, "/health", "")
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestDiagnosticsEndpoint(t *testing.T) {
	handler := newTestHandler(t, &fakeAuth{}, &fakeRecords{})
	rec := doJSON(t, handler, nethttp.MethodGet, "/diagnostics", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.EqualValues(t, 0, payload["connections"])
	assert.EqualValues(t, 0, payload["activeMatches"])
}

func TestRegisterEndpoint(t *testing.T) {
	handler := newTestHandler(t, &fakeAuth{}, &fakeRecords{})

	rec := doJSON(t, handler, nethttp.MethodPost, "/api/auth/register",
		`{"username":"alice","password":"swordfish"}`)
	require.Equal(t, nethttp.StatusCreated, rec.Code)

	var payload tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "alice", payload.Username)
	assert.Equal(t, "token-alice", payload.Token)

	rec = doJSON(t, handler, nethttp.MethodGet, "/api/auth/register", "")
	assert.Equal(t, nethttp.StatusMethodNotAllowed, rec.Code)

	rec = doJSON(t, handler, nethttp.MethodPost, "/api/auth/register", "{broken")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestRegisterErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{auth.ErrMissingCredentials, nethttp.StatusBadRequest},
		{auth.ErrPasswordTooShort, nethttp.StatusBadRequest},
		{auth.ErrUsernameTaken, nethttp.StatusConflict},
		{errors.New("database down"), nethttp.StatusInternalServerError},
	}
	for _, tc := range cases {
		handler := newTestHandler(t, &fakeAuth{registerErr: tc.err}, &fakeRecords{})
		rec := doJSON(t, handler, nethttp.MethodPost, "/api/auth/register",
			`{"username":"alice","password":"x"}`)
		assert.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}

func TestLoginEndpoint(t *testing.T) {
	handler := newTestHandler(t, &fakeAuth{}, &fakeRecords{})
	rec := doJSON(t, handler, nethttp.MethodPost, "/api/auth/login",
		`{"username":"alice","password":"swordfish"}`)
	require.Equal(t, nethttp.StatusOK, rec.Code)

	handler = newTestHandler(t, &fakeAuth{loginErr: auth.ErrInvalidCredentials}, &fakeRecords{})
	rec = doJSON(t, handler, nethttp.MethodPost, "/api/auth/login",
		`{"username":"alice","password":"wrong"}`)
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)
}

func TestLeaderboardEndpoint(t *testing.T) {
	records := &fakeRecords{standings: []store.Standing{
		{Username: "alice", Wins: 5, Losses: 1, Games: 6},
		{Username: "bob", Wins: 2, Losses: 4, Games: 6},
	}}
	handler := newTestHandler(t, &fakeAuth{}, records)

	rec := doJSON(t, handler, nethttp.MethodGet, "/api/leaderboard", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var payload struct {
		Leaderboard []store.Standing `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Leaderboard, 2)
	assert.Equal(t, "alice", payload.Leaderboard[0].Username)

	rec = doJSON(t, handler, nethttp.MethodGet, "/api/leaderboard?limit=1", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Leaderboard, 1)

	rec = doJSON(t, handler, nethttp.MethodGet, "/api/leaderboard?limit=bogus", "")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	handler = newTestHandler(t, &fakeAuth{}, &fakeRecords{failWith: errors.New("down")})
	rec = doJSON(t, handler, nethttp.MethodGet, "/api/leaderboard", "")
	assert.Equal(t, nethttp.StatusInternalServerError, rec.Code)
}

func TestGameEndpoint(t *testing.T) {
	records := &fakeRecords{games: map[string]store.GameRecord{
		"g-1": {
			ID:      "g-1",
			Player1: "alice",
			Player2: "bob",
			Winner:  "alice",
			Status:  "won",
			Moves:   `[{"player":1,"column":3,"row":5,"index":0,"timestamp":1700000000000}]`,
		},
	}}
	handler := newTestHandler(t, &fakeAuth{}, records)

	rec := doJSON(t, handler, nethttp.MethodGet, "/api/game/g-1", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "alice", payload["winner"])
	moves, ok := payload["moves"].([]any)
	require.True(t, ok)
	assert.Len(t, moves, 1)

	rec = doJSON(t, handler, nethttp.MethodGet, "/api/game/unknown", "")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, nethttp.MethodGet, "/api/game/", "")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}
