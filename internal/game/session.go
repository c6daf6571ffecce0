package game

import (
	"context"
	"crypto/rand"
	"math/big"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	constants "vortcheno/internal/constants"
	models "vortcheno/internal/models"
	util "vortcheno/internal/util"
)

// WordChecker is what a session needs from the dictionary layer.
type WordChecker interface {
	IsValidWord(ctx context.Context, word string) (bool, error)
}

// Outcome classifies one word submission.
type Outcome string

const (
	OutcomeAccepted              Outcome = "accepted"
	OutcomeMalformed             Outcome = "malformed"
	OutcomeWrongLetter           Outcome = "wrong_letter"
	OutcomeWrongLength           Outcome = "wrong_length"
	OutcomeAlreadyUsed           Outcome = "already_used"
	OutcomeNotAWord              Outcome = "not_a_word"
	OutcomeValidationUnavailable Outcome = "validation_unavailable"
)

// WordResult describes what a submission did. On acceptance Letter, Length,
// Next, Generation and Deadline describe the new turn; on rejection Letter
// and Length echo the unchanged requirement.
type WordResult struct {
	Outcome    Outcome
	Word       string
	By         models.Player
	Next       models.Player
	Letter     rune
	Length     int
	Generation uint64
	Deadline   time.Time
}

// TurnStart describes the turn armed by Start.
type TurnStart struct {
	Player     models.Player
	Letter     rune
	Length     int
	Generation uint64
	Deadline   time.Time
}

// TimeoutResult describes a skipped turn. Abandoned is set when the skip
// pushed the session over its consecutive-skip limit and ended it; Next and
// the turn fields are meaningless in that case.
type TimeoutResult struct {
	Skipped    models.Player
	Next       models.Player
	Letter     rune
	Length     int
	Generation uint64
	Deadline   time.Time
	Abandoned  bool
}

type LeaveOutcome int

const (
	LeaveNotPresent LeaveOutcome = iota
	LeaveContinue
	LeaveEndedNoPlayers
	LeaveEndedWinner
)

// LeaveResult describes the effect of a player leaving. TurnChanged is set
// when the departing player held the turn and a fresh one was armed.
type LeaveResult struct {
	Outcome     LeaveOutcome
	Removed     models.Player
	Winner      models.Player
	TurnChanged bool
	Next        models.Player
	Letter      rune
	Length      int
	Generation  uint64
	Deadline    time.Time
}

var wordPattern = regexp.MustCompile(`^[a-z]+$`)

// Session is the per-chat state machine. It does no locking of its own: the
// registry hands out exclusive access per chat and every caller goes through
// that.
type Session struct {
	chatID  int64
	cfg     models.GameConfig
	status  models.Status
	players []models.Player
	current int
	letter  rune
	length  int

	// generation increments every time a turn timer is (re)armed; timer
	// callbacks carrying an older value are ignored.
	generation uint64
	deadline   time.Time

	used             map[string]struct{}
	hadMultiple      bool
	wordsAccepted    int
	consecutiveSkips int
	validationPaused bool
}

func NewSession(chatID int64, cfg models.GameConfig) *Session {
	return &Session{
		chatID: chatID,
		cfg:    cfg,
		status: models.StatusPending,
		used:   make(map[string]struct{}),
	}
}

func (s *Session) ChatID() int64         { return s.chatID }
func (s *Session) Status() models.Status { return s.status }
func (s *Session) Generation() uint64    { return s.generation }

func (s *Session) ValidationPaused() bool          { return s.validationPaused }
func (s *Session) SetValidationPaused(paused bool) { s.validationPaused = paused }

// Start activates the session with the given turn order, draws the starting
// letter and arms the first turn.
func (s *Session) Start(players []models.Player, now time.Time) (TurnStart, error) {
	if s.status != models.StatusPending {
		return TurnStart{}, ErrGameAlreadyActive
	}

	queue := lo.UniqBy(players, func(p models.Player) int64 { return p.ID })
	if len(queue) == 0 {
		return TurnStart{}, ErrNoPlayers
	}
	if len(queue) > s.cfg.MaxPlayers {
		return TurnStart{}, ErrGameFull
	}

	s.players = slices.Clone(queue)
	s.current = 0
	s.letter = randomStartLetter()
	s.length = max(1, s.cfg.MinWordLength)
	s.hadMultiple = len(s.players) >= 2
	s.status = models.StatusActive
	s.beginTurn(now)

	util.LogInfo("Game started in chat %d: %d players, letter %q, length %d",
		s.chatID, len(s.players), string(s.letter), s.length)

	return TurnStart{
		Player:     s.players[s.current],
		Letter:     s.letter,
		Length:     s.length,
		Generation: s.generation,
		Deadline:   s.deadline,
	}, nil
}

// SubmitWord runs the full submission pipeline for the current player. The
// dictionary is consulted last, after all cheap checks, so a degraded
// validator is only ever hit for words that would otherwise be accepted.
// A dictionary outage comes back as an error with a requirement-echoing
// result: the word's validity was never determined and the turn stays
// exactly as it was.
func (s *Session) SubmitWord(ctx context.Context, playerID int64, raw string, dict WordChecker, now time.Time) (WordResult, error) {
	if s.status != models.StatusActive {
		return WordResult{}, ErrNoActiveGame
	}

	cur, err := s.CurrentPlayer()
	if err != nil {
		return WordResult{}, err
	}
	if cur.ID != playerID {
		return WordResult{}, ErrNotYourTurn
	}

	reject := func(o Outcome, word string) WordResult {
		return WordResult{Outcome: o, Word: word, By: cur, Letter: s.letter, Length: s.length}
	}

	word := strings.ToLower(strings.TrimSpace(raw))
	if word == "" || !wordPattern.MatchString(word) || utf8.RuneCountInString(word) > s.cfg.MaxWordLength {
		return reject(OutcomeMalformed, word), nil
	}
	if _, seen := s.used[word]; seen {
		return reject(OutcomeAlreadyUsed, word), nil
	}
	if first, _ := utf8.DecodeRuneInString(word); first != s.letter {
		return reject(OutcomeWrongLetter, word), nil
	}
	if utf8.RuneCountInString(word) != s.length {
		return reject(OutcomeWrongLength, word), nil
	}

	valid, err := dict.IsValidWord(ctx, word)
	if err != nil {
		// The result still echoes the unchanged requirement so the caller
		// can relay it alongside the error.
		return reject(OutcomeValidationUnavailable, word), err
	}
	if !valid {
		return reject(OutcomeNotAWord, word), nil
	}

	s.used[word] = struct{}{}
	s.letter = lastRune(word)
	s.length++
	s.wordsAccepted++
	s.consecutiveSkips = 0
	s.current = (s.current + 1) % len(s.players)
	s.beginTurn(now)

	util.LogInfo("Accepted %q from player %d in chat %d: next letter %q, length %d",
		word, playerID, s.chatID, string(s.letter), s.length)

	return WordResult{
		Outcome:    OutcomeAccepted,
		Word:       word,
		By:         cur,
		Next:       s.players[s.current],
		Letter:     s.letter,
		Length:     s.length,
		Generation: s.generation,
		Deadline:   s.deadline,
	}, nil
}

// Timeout skips the current player if the firing timer's generation is still
// current. The player stays in the queue; letter and length are untouched.
// Too many skips in a row with no accepted word means the chat has gone
// quiet, and the session ends as abandoned instead of rotating forever.
func (s *Session) Timeout(generation uint64, now time.Time) (TimeoutResult, error) {
	if s.status != models.StatusActive {
		return TimeoutResult{}, ErrNoActiveGame
	}
	if generation != s.generation {
		return TimeoutResult{}, ErrStaleTimer
	}

	skipped, err := s.CurrentPlayer()
	if err != nil {
		return TimeoutResult{}, err
	}

	s.consecutiveSkips++
	if s.cfg.MaxConsecutiveSkips > 0 && s.consecutiveSkips >= s.cfg.MaxConsecutiveSkips {
		s.status = models.StatusEnded
		util.LogInfo("Game in chat %d abandoned after %d consecutive skipped turns", s.chatID, s.consecutiveSkips)
		return TimeoutResult{Skipped: skipped, Letter: s.letter, Length: s.length, Abandoned: true}, nil
	}

	s.current = (s.current + 1) % len(s.players)
	s.beginTurn(now)

	util.LogInfo("Turn timed out for player %d in chat %d, skipping", skipped.ID, s.chatID)

	return TimeoutResult{
		Skipped:    skipped,
		Next:       s.players[s.current],
		Letter:     s.letter,
		Length:     s.length,
		Generation: s.generation,
		Deadline:   s.deadline,
	}, nil
}

// Join appends a player to the end of the queue. Adding a player who is
// already present is a no-op.
func (s *Session) Join(p models.Player) error {
	if s.status != models.StatusActive {
		return ErrNoActiveGame
	}
	if slices.ContainsFunc(s.players, func(q models.Player) bool { return q.ID == p.ID }) {
		return nil
	}
	if len(s.players) >= s.cfg.MaxPlayers {
		return ErrGameFull
	}
	s.players = append(s.players, p)
	if len(s.players) >= 2 {
		s.hadMultiple = true
	}
	// Someone showing up counts as activity.
	s.consecutiveSkips = 0
	util.LogInfo("Player %d joined game in chat %d (%d players)", p.ID, s.chatID, len(s.players))
	return nil
}

// Leave removes a player from the queue, re-deriving the current-turn pointer
// so it never dangles. The session ends when the queue empties, or when one
// player remains after the game has had two or more.
func (s *Session) Leave(playerID int64, now time.Time) (LeaveResult, error) {
	if s.status != models.StatusActive {
		return LeaveResult{}, ErrNoActiveGame
	}

	idx := slices.IndexFunc(s.players, func(p models.Player) bool { return p.ID == playerID })
	if idx < 0 {
		return LeaveResult{Outcome: LeaveNotPresent}, nil
	}

	removed := s.players[idx]
	wasCurrent := idx == s.current
	s.players = slices.Delete(s.players, idx, idx+1)

	if idx < s.current {
		s.current--
	} else if s.current >= len(s.players) {
		s.current = 0
	}

	if len(s.players) == 0 {
		s.status = models.StatusEnded
		util.LogInfo("Game in chat %d ended: no players left", s.chatID)
		return LeaveResult{Outcome: LeaveEndedNoPlayers, Removed: removed}, nil
	}

	if len(s.players) == 1 && s.hadMultiple {
		winner := s.players[0]
		s.status = models.StatusEnded
		util.LogInfo("Game in chat %d ended: %s wins", s.chatID, winner.Mention())
		return LeaveResult{Outcome: LeaveEndedWinner, Removed: removed, Winner: winner}, nil
	}

	if err := s.checkInvariant(); err != nil {
		return LeaveResult{}, err
	}

	res := LeaveResult{Outcome: LeaveContinue, Removed: removed}
	if wasCurrent {
		s.beginTurn(now)
		res.TurnChanged = true
		res.Next = s.players[s.current]
		res.Letter = s.letter
		res.Length = s.length
		res.Generation = s.generation
		res.Deadline = s.deadline
	}
	util.LogInfo("Player %d left game in chat %d (%d players remain)", playerID, s.chatID, len(s.players))
	return res, nil
}

// Stop ends the session unconditionally.
func (s *Session) Stop() error {
	if s.status == models.StatusEnded {
		return ErrNoActiveGame
	}
	s.status = models.StatusEnded
	util.LogInfo("Game in chat %d stopped", s.chatID)
	return nil
}

// EndInternal force-ends the session after an invariant violation.
func (s *Session) EndInternal() {
	s.status = models.StatusEnded
}

// CurrentPlayer returns the turn holder, guarding the pointer invariant. A
// violation ends the session defensively rather than leaving it torn.
func (s *Session) CurrentPlayer() (models.Player, error) {
	if err := s.checkInvariant(); err != nil {
		return models.Player{}, err
	}
	return s.players[s.current], nil
}

func (s *Session) Snapshot() models.Snapshot {
	snap := models.Snapshot{
		ChatID:        s.chatID,
		Status:        s.status.String(),
		Players:       slices.Clone(s.players),
		Letter:        string(s.letter),
		Length:        s.length,
		Deadline:      s.deadline,
		Generation:    s.generation,
		WordsAccepted: s.wordsAccepted,
	}
	if s.status == models.StatusActive && s.current < len(s.players) {
		snap.Current = s.players[s.current]
	}
	return snap
}

func (s *Session) beginTurn(now time.Time) {
	s.generation++
	s.deadline = now.Add(s.cfg.TurnDuration)
}

func (s *Session) checkInvariant() error {
	if s.status != models.StatusActive {
		return nil
	}
	if len(s.players) == 0 || s.current < 0 || s.current >= len(s.players) {
		util.LogError("Invariant violation in chat %d: %d players, current index %d; ending session",
			s.chatID, len(s.players), s.current)
		s.EndInternal()
		return ErrInternal
	}
	return nil
}

func randomStartLetter() rune {
	letters := []rune(constants.StartLetters)
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
	if err != nil {
		util.LogWarn("Error generating random start letter: %v, using fallback", err)
		return letters[0]
	}
	return letters[n.Int64()]
}

func lastRune(word string) rune {
	r, _ := utf8.DecodeLastRuneInString(word)
	return r
}
