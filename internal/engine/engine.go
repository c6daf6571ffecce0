package engine

import (
	"context"
	"errors"
	"time"

	dictionary "vortcheno/internal/dictionary"
	game "vortcheno/internal/game"
	models "vortcheno/internal/models"
	registry "vortcheno/internal/registry"
	scheduler "vortcheno/internal/scheduler"
	util "vortcheno/internal/util"
)

// Announcer receives the engine's outbound callbacks. Implementations relay
// them to the chat platform; parameters are structured, not prose.
type Announcer interface {
	GameStarted(chatID int64, players []models.Player, letter rune, length int)
	TurnAnnounce(chatID int64, player models.Player, letter rune, length int, deadline time.Time)
	TimeoutWarning(chatID int64, player models.Player, remaining time.Duration)
	TurnSkipped(chatID int64, skipped, next models.Player)
	WordRejected(chatID int64, player models.Player, res game.WordResult)
	GameEnded(chatID int64, reason models.EndReason, winner *models.Player)
	ValidationPaused(chatID int64)
	ValidationResumed(chatID int64)
}

// Dictionary is the validation pipeline the engine feeds submissions through.
type Dictionary interface {
	game.WordChecker
	Available(ctx context.Context) bool
}

// Engine is the façade the transport layer talks to. It resolves each chat's
// session through the registry, runs every mutation under that chat's lock,
// keeps the turn scheduler in step, and fires announcements once the lock is
// released.
type Engine struct {
	cfg   models.GameConfig
	reg   *registry.Registry
	sched *scheduler.TurnScheduler
	dict  Dictionary
	ann   Announcer
}

func New(cfg models.GameConfig, dict Dictionary, ann Announcer) *Engine {
	e := &Engine{
		cfg:  cfg,
		reg:  registry.New(cfg.MaxSessions),
		dict: dict,
		ann:  ann,
	}
	e.sched = scheduler.New(e.handleWarning, e.handleTimeout)
	return e
}

// StartGame creates and activates a session for the chat. Exactly one start
// can win for a given chat; losers get ErrGameAlreadyActive, and the capacity
// cap is enforced atomically with creation.
func (e *Engine) StartGame(chatID int64, players []models.Player) (models.Snapshot, error) {
	sess := game.NewSession(chatID, e.cfg)
	h, err := e.reg.Create(chatID, sess)
	if err != nil {
		if errors.Is(err, registry.ErrAlreadyExists) {
			return models.Snapshot{}, game.ErrGameAlreadyActive
		}
		return models.Snapshot{}, err
	}

	h.Lock()
	turn, err := sess.Start(players, time.Now())
	if err != nil {
		h.Unlock()
		e.reg.Remove(chatID)
		return models.Snapshot{}, err
	}
	snap := sess.Snapshot()
	h.Unlock()

	e.sched.Arm(chatID, turn.Generation, e.cfg.TurnDuration, e.cfg.WarningOffsets)
	e.ann.GameStarted(chatID, snap.Players, turn.Letter, turn.Length)
	e.ann.TurnAnnounce(chatID, turn.Player, turn.Letter, turn.Length, turn.Deadline)
	return snap, nil
}

// SubmitWord feeds one submission through the session and the dictionary.
// On acceptance the timer is re-armed for the next player; on rejection
// nothing about the turn changes. A validator outage pauses the chat at the
// same turn with the same deadline; the armed timer is deliberately left
// alone, so an outage that outlasts the turn simply times the turn out.
func (e *Engine) SubmitWord(ctx context.Context, chatID, playerID int64, raw string) (game.WordResult, error) {
	h, err := e.reg.Get(chatID)
	if err != nil {
		return game.WordResult{}, game.ErrNoActiveGame
	}

	h.Lock()
	sess := h.Session()
	res, err := sess.SubmitWord(ctx, playerID, raw, e.dict, time.Now())
	if err != nil {
		if errors.Is(err, dictionary.ErrServiceUnavailable) {
			firstPause := !sess.ValidationPaused()
			sess.SetValidationPaused(true)
			h.Unlock()
			if firstPause {
				util.LogWarn("Validation unavailable for chat %d, pausing at current turn", chatID)
				e.ann.ValidationPaused(chatID)
			}
			return res, nil
		}
		h.Unlock()
		if errors.Is(err, game.ErrInternal) {
			e.failSession(chatID)
		}
		return game.WordResult{}, err
	}

	// Only a submission that actually reached the dictionary proves the
	// validator is back; cheap rejections never consult it.
	consulted := res.Outcome == game.OutcomeAccepted || res.Outcome == game.OutcomeNotAWord
	resumed := sess.ValidationPaused() && consulted
	if resumed {
		sess.SetValidationPaused(false)
	}
	h.Unlock()

	if resumed {
		e.ann.ValidationResumed(chatID)
	}

	if res.Outcome == game.OutcomeAccepted {
		e.sched.Arm(chatID, res.Generation, e.cfg.TurnDuration, e.cfg.WarningOffsets)
		e.ann.TurnAnnounce(chatID, res.Next, res.Letter, res.Length, res.Deadline)
	} else {
		e.ann.WordRejected(chatID, res.By, res)
	}
	return res, nil
}

// JoinGame appends a player to a running game's queue.
func (e *Engine) JoinGame(chatID int64, p models.Player) error {
	h, err := e.reg.Get(chatID)
	if err != nil {
		return game.ErrNoActiveGame
	}
	h.Lock()
	defer h.Unlock()
	return h.Session().Join(p)
}

// LeaveGame removes a player, advancing the turn if they held it and ending
// the game when the queue empties or a winner remains.
func (e *Engine) LeaveGame(chatID, playerID int64) error {
	h, err := e.reg.Get(chatID)
	if err != nil {
		return game.ErrNoActiveGame
	}

	h.Lock()
	res, err := h.Session().Leave(playerID, time.Now())
	h.Unlock()
	if err != nil {
		if errors.Is(err, game.ErrInternal) {
			e.failSession(chatID)
		}
		return err
	}

	switch res.Outcome {
	case game.LeaveEndedNoPlayers:
		e.endSession(chatID, models.EndReasonNoPlayers, nil)
	case game.LeaveEndedWinner:
		winner := res.Winner
		e.endSession(chatID, models.EndReasonWinner, &winner)
	case game.LeaveContinue:
		if res.TurnChanged {
			e.sched.Arm(chatID, res.Generation, e.cfg.TurnDuration, e.cfg.WarningOffsets)
			e.ann.TurnAnnounce(chatID, res.Next, res.Letter, res.Length, res.Deadline)
		}
	}
	return nil
}

// StopGame ends the chat's game unconditionally and frees its slot.
func (e *Engine) StopGame(chatID int64) error {
	h, err := e.reg.Get(chatID)
	if err != nil {
		return game.ErrNoActiveGame
	}

	h.Lock()
	err = h.Session().Stop()
	h.Unlock()
	if err != nil {
		return err
	}

	e.endSession(chatID, models.EndReasonStopped, nil)
	return nil
}

// Status returns a consistent snapshot of the chat's game.
func (e *Engine) Status(chatID int64) (models.Snapshot, error) {
	h, err := e.reg.Get(chatID)
	if err != nil {
		return models.Snapshot{}, game.ErrNoActiveGame
	}
	h.Lock()
	defer h.Unlock()
	return h.Session().Snapshot(), nil
}

func (e *Engine) ActiveGames() int { return e.reg.Count() }

// Shutdown stops all timers. Session state is ephemeral and simply dropped.
func (e *Engine) Shutdown() { e.sched.Shutdown() }

// handleTimeout is invoked by the scheduler when a turn expires. A stale
// generation, meaning the session moved on while the callback was in flight,
// is dropped without touching anything.
func (e *Engine) handleTimeout(chatID int64, generation uint64) {
	h, err := e.reg.Get(chatID)
	if err != nil {
		return
	}

	h.Lock()
	res, err := h.Session().Timeout(generation, time.Now())
	h.Unlock()
	if err != nil {
		if errors.Is(err, game.ErrInternal) {
			e.failSession(chatID)
		}
		return
	}

	if res.Abandoned {
		util.LogInfo("Reclaiming abandoned game in chat %d", chatID)
		e.endSession(chatID, models.EndReasonAbandoned, nil)
		return
	}

	e.sched.Arm(chatID, res.Generation, e.cfg.TurnDuration, e.cfg.WarningOffsets)
	e.ann.TurnSkipped(chatID, res.Skipped, res.Next)
	e.ann.TurnAnnounce(chatID, res.Next, res.Letter, res.Length, res.Deadline)
}

// handleWarning relays a remaining-time warning if the timer generation is
// still current. Warnings never mutate session state.
func (e *Engine) handleWarning(chatID int64, generation uint64, remaining time.Duration) {
	h, err := e.reg.Get(chatID)
	if err != nil {
		return
	}

	h.Lock()
	sess := h.Session()
	if sess.Status() != models.StatusActive || sess.Generation() != generation {
		h.Unlock()
		return
	}
	player, err := sess.CurrentPlayer()
	h.Unlock()
	if err != nil {
		e.failSession(chatID)
		return
	}

	e.ann.TimeoutWarning(chatID, player, remaining)
}

func (e *Engine) endSession(chatID int64, reason models.EndReason, winner *models.Player) {
	e.sched.Cancel(chatID)
	e.reg.Remove(chatID)
	e.ann.GameEnded(chatID, reason, winner)
}

// failSession tears a session down after an invariant violation. The state
// machine has already marked itself ended; this frees the slot and tells the
// chat.
func (e *Engine) failSession(chatID int64) {
	util.LogError("Ending session for chat %d after internal error", chatID)
	e.endSession(chatID, models.EndReasonInternalError, nil)
}
