package models

import (
	"strconv"
	"time"

	constants "vortcheno/internal/constants"
	util "vortcheno/internal/util"
)

// Player is one participant in a chat's game. ID is the stable user id on the
// chat platform; Handle is what announcements mention.
type Player struct {
	ID     int64  `json:"id"`
	Handle string `json:"handle"`
	Active bool   `json:"active"`
}

func (p Player) Mention() string {
	if p.Handle != "" {
		return "@" + p.Handle
	}
	return "player " + strconv.FormatInt(p.ID, 10)
}

type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

type EndReason string

const (
	EndReasonStopped       EndReason = "stopped"
	EndReasonNoPlayers     EndReason = "no_players"
	EndReasonWinner        EndReason = "winner"
	EndReasonAbandoned     EndReason = "abandoned"
	EndReasonInternalError EndReason = "internal_error"
)

// Snapshot is a consistent read of one session's state, safe to hand out
// after the chat lock is released.
type Snapshot struct {
	ChatID        int64     `json:"chatId"`
	Status        string    `json:"status"`
	Players       []Player  `json:"players"`
	Current       Player    `json:"currentPlayer"`
	Letter        string    `json:"letter"`
	Length        int       `json:"length"`
	Deadline      time.Time `json:"deadline"`
	Generation    uint64    `json:"-"`
	WordsAccepted int       `json:"wordsAccepted"`
}

// GameConfig carries the tunables every session is created with.
type GameConfig struct {
	TurnDuration        time.Duration
	WarningOffsets      []time.Duration
	MinWordLength       int
	MaxWordLength       int
	MaxPlayers          int
	MaxSessions         int
	CacheSize           int
	MaxConsecutiveSkips int
}

func DefaultGameConfig() GameConfig {
	return GameConfig{
		TurnDuration:   constants.DefaultTurnDuration,
		WarningOffsets: constants.DefaultWarningOffsets,
		MinWordLength:  constants.DefaultMinWordLength,
		MaxWordLength:  constants.DefaultMaxWordLength,
		MaxPlayers:     constants.DefaultMaxPlayers,
		MaxSessions:    constants.DefaultMaxSessions,
		CacheSize:      constants.DefaultCacheSize,

		MaxConsecutiveSkips: constants.DefaultMaxConsecutiveSkips,
	}
}

// GameConfigFromEnv reads overrides from the environment, falling back to
// defaults on anything unset or unparsable.
func GameConfigFromEnv() GameConfig {
	cfg := DefaultGameConfig()
	cfg.TurnDuration = util.GetEnvDuration("TURN_DURATION", cfg.TurnDuration)
	cfg.MinWordLength = util.GetEnvInt("MIN_WORD_LENGTH", cfg.MinWordLength)
	cfg.MaxWordLength = util.GetEnvInt("MAX_WORD_LENGTH", cfg.MaxWordLength)
	cfg.MaxPlayers = util.GetEnvInt("MAX_PLAYERS", cfg.MaxPlayers)
	cfg.MaxSessions = util.GetEnvInt("MAX_GAMES", cfg.MaxSessions)
	cfg.CacheSize = util.GetEnvInt("WORD_CACHE_SIZE", cfg.CacheSize)
	cfg.MaxConsecutiveSkips = util.GetEnvInt("MAX_CONSECUTIVE_SKIPS", cfg.MaxConsecutiveSkips)
	return cfg
}
