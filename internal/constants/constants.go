package constants

import "time"

// StartLetters is the pool a new game draws its first letter from.
// Q, X, Z and J are left out; starting a chain on them is close to unplayable.
const StartLetters = "abcdefghiklmnoprstuvwy"

const (
	DefaultTurnDuration  = 30 * time.Second
	DefaultMinWordLength = 1
	DefaultMaxWordLength = 24
	DefaultMaxPlayers    = 10
	DefaultMaxSessions   = 100
	DefaultCacheSize     = 1000

	// DefaultMaxConsecutiveSkips ends a game nobody is playing; every skip
	// in a row counts, an accepted word or a join resets the run.
	DefaultMaxConsecutiveSkips = 6
)

// DefaultWarningOffsets are the remaining-time marks at which turn warnings fire.
var DefaultWarningOffsets = []time.Duration{10 * time.Second, 5 * time.Second}

const (
	RouteHealthz  = "/healthz"
	RouteGame     = "/games/:chat"
	RouteStart    = "/games/:chat/start"
	RouteStop     = "/games/:chat/stop"
	RouteJoin     = "/games/:chat/join"
	RouteLeave    = "/games/:chat/leave"
	RouteWord     = "/games/:chat/word"
	RouteMessages = "/games/:chat/messages"
)

const (
	ErrorCodeGameExists       = "game_already_active"
	ErrorCodeNoGame           = "no_active_game"
	ErrorCodeNotYourTurn      = "not_your_turn"
	ErrorCodeGameFull         = "game_full"
	ErrorCodeNoPlayers        = "no_players"
	ErrorCodeCapacityExceeded = "capacity_exceeded"
	ErrorCodeBadRequest       = "bad_request"
)

type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
)
