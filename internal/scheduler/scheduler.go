package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	util "vortcheno/internal/util"
)

// WarningFunc receives the generation the timer was armed with and how much
// time remains on the turn.
type WarningFunc func(chatID int64, generation uint64, remaining time.Duration)

// TimeoutFunc receives the generation the timer was armed with.
type TimeoutFunc func(chatID int64, generation uint64)

// TurnScheduler owns at most one countdown per chat. Arm replaces any prior
// timer for the chat; Cancel is idempotent. Callbacks always carry the
// generation they were armed with so the session layer can discard anything
// stale. Arms race with each other too: a caller can be preempted between
// winning a turn and arming it, so Arm refuses to let an older generation
// displace a newer one. armedGen survives timer expiry for exactly that
// reason and is only reset by Cancel.
type TurnScheduler struct {
	mu        sync.Mutex
	timers    map[int64]*turnTimer
	armedGen  map[int64]uint64
	onWarning WarningFunc
	onTimeout TimeoutFunc
}

type turnTimer struct {
	chatID     int64
	generation uint64
	stop       chan struct{}
	stopped    bool
}

func New(onWarning WarningFunc, onTimeout TimeoutFunc) *TurnScheduler {
	return &TurnScheduler{
		timers:    make(map[int64]*turnTimer),
		armedGen:  make(map[int64]uint64),
		onWarning: onWarning,
		onTimeout: onTimeout,
	}
}

// Arm starts a countdown of the given duration for the chat, firing a warning
// at each offset before expiry and the timeout callback at expiry. Any timer
// already running for the chat is cancelled first. A call carrying a
// generation at or below the newest one armed for the chat is a no-op: a late
// arm from a superseded turn must not destroy the live turn's timer.
func (s *TurnScheduler) Arm(chatID int64, generation uint64, duration time.Duration, warningOffsets []time.Duration) {
	t := &turnTimer{
		chatID:     chatID,
		generation: generation,
		stop:       make(chan struct{}),
	}

	s.mu.Lock()
	if last, ok := s.armedGen[chatID]; ok && generation <= last {
		s.mu.Unlock()
		util.LogWarn("Ignoring stale arm for chat %d: generation %d already superseded by %d", chatID, generation, last)
		return
	}
	s.armedGen[chatID] = generation
	if prev, ok := s.timers[chatID]; ok {
		s.stopLocked(prev)
	}
	s.timers[chatID] = t
	s.mu.Unlock()

	go s.run(t, duration, warningOffsets)
}

// Cancel stops the chat's timer if one is running. Safe to call when no timer
// exists or the timer already fired.
func (s *TurnScheduler) Cancel(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[chatID]; ok {
		s.stopLocked(t)
		delete(s.timers, chatID)
	}
	delete(s.armedGen, chatID)
}

// Shutdown cancels every timer. Used on process exit.
func (s *TurnScheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chatID, t := range s.timers {
		s.stopLocked(t)
		delete(s.timers, chatID)
	}
	clear(s.armedGen)
	util.LogInfo("Turn scheduler shut down")
}

func (s *TurnScheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *TurnScheduler) stopLocked(t *turnTimer) {
	if !t.stopped {
		t.stopped = true
		close(t.stop)
	}
}

// remove drops t from the map, but only if it is still the chat's current
// timer; a newer Arm may have replaced it already.
func (s *TurnScheduler) remove(t *turnTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.timers[t.chatID]; ok && cur == t {
		delete(s.timers, t.chatID)
	}
}

func (s *TurnScheduler) run(t *turnTimer, duration time.Duration, warningOffsets []time.Duration) {
	defer s.remove(t)

	// Warnings fire at duration-offset; drop any offset that does not fit.
	offsets := lo.Filter(warningOffsets, func(off time.Duration, _ int) bool {
		return off > 0 && off < duration
	})
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] > offsets[j] })

	start := time.Now()
	for _, off := range offsets {
		if !sleepUntil(start.Add(duration-off), t.stop) {
			return
		}
		s.onWarning(t.chatID, t.generation, off)
	}

	if !sleepUntil(start.Add(duration), t.stop) {
		return
	}
	s.onTimeout(t.chatID, t.generation)
}

func sleepUntil(at time.Time, stop <-chan struct{}) bool {
	wait := time.Until(at)
	if wait <= 0 {
		select {
		case <-stop:
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}
