/*
Copyright © 2026 Arlox <matchbox@arlox.dev>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*httptest.Server, *Coordinator, *MemoryStore, *User, *User) {
	t.Helper()

	store := NewMemoryStore()
	alice := &User{ID: uuid.New(), Username: "alice", EloRating: InitialRating}
	bob := &User{ID: uuid.New(), Username: "bob", EloRating: InitialRating}
	carol := &User{ID: uuid.New(), Username: "carol", EloRating: InitialRating}

	ctx := context.Background()
	require.NoError(t, store.PutUser(ctx, alice))
	require.NoError(t, store.PutUser(ctx, bob))
	require.NoError(t, store.PutUser(ctx, carol))

	verifier := StaticTokenVerifier{
		"alice-token": alice.ID,
		"bob-token":   bob.ID,
		"carol-token": carol.ID,
	}

	co := NewCoordinator(zap.NewNop(), store, verifier, NewMetrics())
	t.Cleanup(co.Shutdown)

	mux := httprouter.New()
	newAPI(co, store, verifier, zap.NewNop()).register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, co, store, alice, bob
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)

	return resp, out.Bytes()
}

func TestAPICreateGame(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/games", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/games", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/games", "alice-token", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var view MatchView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.NotEmpty(t, view.RoomID)
	assert.Equal(t, StatusWaiting, view.Status)
	require.NotNil(t, view.Player1)
	assert.Equal(t, "alice", view.Player1.Username)
	assert.Nil(t, view.Player2)
}

func TestAPIGameLifecycle(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/games", "alice-token", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created MatchView
	require.NoError(t, json.Unmarshal(body, &created))
	gameURL := srv.URL + "/api/games/" + created.RoomID

	resp, body = doJSON(t, http.MethodPost, gameURL+"/join", "bob-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var joined MatchView
	require.NoError(t, json.Unmarshal(body, &joined))
	assert.Equal(t, StatusActive, joined.Status)
	require.NotNil(t, joined.Player2)
	assert.Equal(t, "bob", joined.Player2.Username)

	// Out of turn.
	resp, _ = doJSON(t, http.MethodPost, gameURL+"/move", "bob-token", map[string]int{"row": 0, "col": 0})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Malformed coordinates never reach the board.
	resp, _ = doJSON(t, http.MethodPost, gameURL+"/move", "alice-token", map[string]int{"row": 5, "col": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, gameURL+"/move", "alice-token", map[string]any{"col": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	moves := []struct {
		token    string
		row, col int
	}{
		{"alice-token", 0, 0},
		{"bob-token", 1, 0},
		{"alice-token", 0, 1},
		{"bob-token", 1, 1},
		{"alice-token", 0, 2},
	}
	var final MatchView
	for _, mv := range moves {
		resp, body = doJSON(t, http.MethodPost, gameURL+"/move", mv.token,
			map[string]int{"row": mv.row, "col": mv.col})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, json.Unmarshal(body, &final))
	}

	assert.Equal(t, StatusFinished, final.Status)
	require.NotNil(t, final.Winner)
	assert.Equal(t, "alice", final.Winner.Username)
	assert.Equal(t, 1216, final.Winner.EloRating)

	// The board is visible to participants only.
	resp, _ = doJSON(t, http.MethodGet, gameURL, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, gameURL, "alice-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched MatchView
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, StatusFinished, fetched.Status)

	resp, body = doJSON(t, http.MethodPost, gameURL+"/rematch", "bob-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fresh MatchView
	require.NoError(t, json.Unmarshal(body, &fresh))
	assert.Equal(t, StatusActive, fresh.Status)
	assert.Empty(t, fresh.Moves)
}

func TestAPIGetGameNotFound(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/games/000000", "alice-token", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIGetGameOutsiderForbidden(t *testing.T) {
	srv, co, _, alice, bob := newTestServer(t)
	ctx := context.Background()

	match, err := co.CreateMatch(ctx, alice)
	require.NoError(t, err)
	_, err = co.JoinMatch(ctx, bob, match.RoomID)
	require.NoError(t, err)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/games/"+match.RoomID, "carol-token", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPIUserEndpoints(t *testing.T) {
	srv, co, _, alice, bob := newTestServer(t)
	ctx := context.Background()

	match, err := co.CreateMatch(ctx, alice)
	require.NoError(t, err)
	_, err = co.JoinMatch(ctx, bob, match.RoomID)
	require.NoError(t, err)
	playFullGame(t, ctx, co, match.RoomID, alice, bob)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/users/"+alice.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary UserSummary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, "alice", summary.Username)
	assert.Equal(t, 1216, summary.EloRating)
	assert.Equal(t, "Beginner", summary.Category)
	assert.Equal(t, 1, summary.GamesPlayed)

	// History is the caller's own, never someone else's.
	resp, _ = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/users/%s/games?limit=5", srv.URL, bob.ID), "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/users/%s/games?limit=5", srv.URL, bob.ID), "alice-token", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/users/%s/games?limit=5", srv.URL, bob.ID), "bob-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var games []MatchView
	require.NoError(t, json.Unmarshal(body, &games))
	require.Len(t, games, 1)
	assert.Equal(t, match.RoomID, games[0].RoomID)
	assert.Equal(t, StatusFinished, games[0].Status)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/users/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIQRCode(t *testing.T) {
	srv, co, _, alice, _ := newTestServer(t)

	match, err := co.CreateMatch(context.Background(), alice)
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/game/"+match.RoomID+"/qr", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, body)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/game/000000/qr", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
