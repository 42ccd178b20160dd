package models

import "errors"

var (
	// ErrNoCredentialsAvailable means zero enabled, non-blocked keys existed
	// before the first attempt. Distinct from exhausting keys mid-turn.
	ErrNoCredentialsAvailable = errors.New("no usable API credentials available")

	// ErrAllCredentialsExhausted means every usable key hit its quota within
	// a single turn.
	ErrAllCredentialsExhausted = errors.New("all API credentials exhausted")

	// ErrTurnInProgress is returned when a second action is submitted for a
	// session whose previous turn has not settled yet.
	ErrTurnInProgress = errors.New("a turn is already in progress for this session")

	ErrNotFound        = errors.New("not found")
	ErrSessionNotFound = errors.New("game session not found")
	ErrGameOver        = errors.New("the game is over")
	ErrBadRequest      = errors.New("bad request")
	ErrInternalServer  = errors.New("internal server error")
)
