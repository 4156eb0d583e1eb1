/*
Copyright © 2026 Arlox <matchbox@arlox.dev>
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const historyDefaultLimit = 20

// api is the REST surface over the same coordinator the websocket layer
// uses. Every mutation funnels through the room hubs, so an HTTP move
// and a websocket move for the same room are strictly ordered.
type api struct {
	co       *Coordinator
	store    Store
	verifier TokenVerifier
	log      *zap.Logger
	validate *validator.Validate
}

func newAPI(co *Coordinator, store Store, verifier TokenVerifier, log *zap.Logger) *api {
	return &api{
		co:       co,
		store:    store,
		verifier: verifier,
		log:      log,
		validate: validator.New(),
	}
}

func (a *api) register(mux *httprouter.Router) {
	mux.POST("/api/games", a.createGame)
	mux.GET("/api/games/:roomid", a.getGame)
	mux.POST("/api/games/:roomid/join", a.joinGame)
	mux.POST("/api/games/:roomid/move", a.makeMove)
	mux.POST("/api/games/:roomid/rematch", a.rematch)
	mux.GET("/api/users/:userid", a.getUser)
	mux.GET("/api/users/:userid/games", a.userGames)
	mux.GET("/game/:roomid/qr", a.qrCode)
}

type movePayload struct {
	Row *int `json:"row" validate:"required,min=0,max=2"`
	Col *int `json:"col" validate:"required,min=0,max=2"`
}

// authed resolves the bearer token to a persisted identity.
func (a *api) authed(r *http.Request) (*User, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, ErrNotAuthenticated
	}

	id, err := a.verifier.Verify(r.Context(), token)
	if err != nil {
		if recoverable(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	user, err := a.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Debug("writing response failed", zap.Error(err))
	}
}

func (a *api) writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", zap.Error(err))
		err = errors.New("internal error")
	}
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (a *api) createGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := a.authed(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	match, err := a.co.CreateMatch(r.Context(), user)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusCreated, a.co.View(r.Context(), match))
}

// getGame returns the live board, to participants only. Leaking it to
// anyone with the room id would let a player's friends scout the match.
func (a *api) getGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := a.authed(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	match, err := a.store.GetMatch(r.Context(), ps.ByName("roomid"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !match.IsPlayer(user.ID) {
		a.writeError(w, ErrNotAPlayer)
		return
	}

	a.writeJSON(w, http.StatusOK, a.co.View(r.Context(), match))
}

func (a *api) joinGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := a.authed(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	match, err := a.co.JoinMatch(r.Context(), user, ps.ByName("roomid"))
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, a.co.View(r.Context(), match))
}

func (a *api) makeMove(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := a.authed(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	var payload movePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.writeError(w, ErrBadPayload)
		return
	}
	if err := a.validate.Struct(payload); err != nil {
		a.writeError(w, ErrOutOfRange)
		return
	}

	match, err := a.co.SubmitMove(r.Context(), user, ps.ByName("roomid"), *payload.Row, *payload.Col)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, a.co.View(r.Context(), match))
}

func (a *api) rematch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := a.authed(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	match, err := a.co.Rematch(r.Context(), user, ps.ByName("roomid"))
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, a.co.View(r.Context(), match))
}

func (a *api) getUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := uuid.Parse(ps.ByName("userid"))
	if err != nil {
		a.writeError(w, ErrUserNotFound)
		return
	}

	user, err := a.store.GetUser(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, user.Summary())
}

// userGames returns the caller's own recent matches, newest first.
func (a *api) userGames(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := a.authed(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	id, err := uuid.Parse(ps.ByName("userid"))
	if err != nil {
		a.writeError(w, ErrUserNotFound)
		return
	}
	if id != user.ID {
		a.writeError(w, ErrNotAPlayer)
		return
	}

	limit := historyDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	roomIDs, err := a.store.History(r.Context(), id, limit)
	if err != nil {
		a.writeError(w, err)
		return
	}

	views := make([]MatchView, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		match, err := a.store.GetMatch(r.Context(), roomID)
		if errors.Is(err, ErrRoomNotFound) {
			continue // purged by the retention sweep
		}
		if err != nil {
			a.writeError(w, err)
			return
		}
		views = append(views, a.co.View(r.Context(), match))
	}

	a.writeJSON(w, http.StatusOK, views)
}

// qrCode renders a QR code pointing at the room's join page, for pulling
// a second player in from a phone.
func (a *api) qrCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("roomid")

	exists, err := a.store.MatchExists(r.Context(), roomID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !exists {
		a.writeError(w, ErrRoomNotFound)
		return
	}

	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	target := fmt.Sprintf("%s://%s/game/%s", scheme, r.Host, roomID)

	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		a.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	if _, err := w.Write(png); err != nil {
		a.log.Debug("writing qr code failed", zap.Error(err))
	}
}
