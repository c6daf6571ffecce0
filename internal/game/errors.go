package game

import "errors"

var (
	ErrGameAlreadyActive = errors.New("a game is already active in this chat")
	ErrNoActiveGame      = errors.New("no active game in this chat")
	ErrNoPlayers         = errors.New("at least one player is required")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrGameFull          = errors.New("game is full")

	// ErrStaleTimer marks a timer callback whose generation no longer matches
	// the session; the caller drops it without touching state.
	ErrStaleTimer = errors.New("stale timer generation")

	// ErrInternal marks an invariant violation. The session has already been
	// ended defensively by the time this is returned.
	ErrInternal = errors.New("internal game state error")
)
