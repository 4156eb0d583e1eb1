/*
Copyright © 2026 Arlox <matchbox@arlox.dev>
*/

package main

import (
	"errors"
	"net/http"
)

// Sentinel errors for everything a client can do wrong. All of these are
// recoverable: they terminate the offending operation, never the
// connection or the room. Anything else bubbling out of the store is an
// internal error and suppresses the broadcast for that operation.
var (
	// Validation
	ErrOutOfRange = errors.New("row and col must be between 0 and 2")
	ErrBadPayload = errors.New("malformed payload")

	// Authorization
	ErrInvalidToken     = errors.New("authentication failed")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotAPlayer       = errors.New("not a player in this game")
	ErrNotYourTurn      = errors.New("not your turn")

	// Conflict
	ErrAlreadyFull  = errors.New("game already has two players")
	ErrSelfJoin     = errors.New("cannot join your own game")
	ErrWrongStatus  = errors.New("game status does not allow that")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrNotActive    = errors.New("game is not active")
	ErrNotInGame    = errors.New("not in a game")
	ErrGameInFlight = errors.New("already in an unfinished game")
	ErrRoomBusy     = errors.New("room is busy, try again")

	// Not found
	ErrRoomNotFound = errors.New("game not found")
	ErrUserNotFound = errors.New("user not found")
)

// httpStatus maps a sentinel to the status code the HTTP surface reports.
// Unrecognized errors are treated as internal.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrOutOfRange), errors.Is(err, ErrBadPayload):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotAPlayer), errors.Is(err, ErrNotYourTurn):
		return http.StatusForbidden
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyFull), errors.Is(err, ErrSelfJoin),
		errors.Is(err, ErrWrongStatus), errors.Is(err, ErrCellOccupied),
		errors.Is(err, ErrNotActive), errors.Is(err, ErrNotInGame),
		errors.Is(err, ErrGameInFlight), errors.Is(err, ErrRoomBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// recoverable reports whether an error belongs to the client-facing
// taxonomy, as opposed to a store failure.
func recoverable(err error) bool {
	return httpStatus(err) != http.StatusInternalServerError
}
