package announce

import (
	"fmt"
	"strings"
	"sync"
	"time"

	game "vortcheno/internal/game"
	models "vortcheno/internal/models"
	util "vortcheno/internal/util"
)

// Formatter renders engine callback parameters into the texts sent to chats.
type Formatter struct{}

func (Formatter) GameStart(players []models.Player, letter rune, length int) string {
	mentions := make([]string, len(players))
	for i, p := range players {
		mentions[i] = p.Mention()
	}
	return fmt.Sprintf("Word chain started with %s! Each word must start with the last letter of the previous one, "+
		"and grow one letter every round. First up: a %d-letter word starting with %q.",
		strings.Join(mentions, ", "), length, strings.ToUpper(string(letter)))
}

func (Formatter) TurnPrompt(player models.Player, letter rune, length int, deadline time.Time) string {
	remaining := int(time.Until(deadline).Round(time.Second).Seconds())
	return fmt.Sprintf("%s, you're up! Need a %d-letter word starting with %q. %d second%s on the clock.",
		player.Mention(), length, strings.ToUpper(string(letter)), remaining, util.Plural(remaining))
}

func (Formatter) Warning(player models.Player, remaining time.Duration) string {
	secs := int(remaining.Seconds())
	return fmt.Sprintf("%s: %d second%s left!", player.Mention(), secs, util.Plural(secs))
}

func (Formatter) Skip(skipped, next models.Player) string {
	return fmt.Sprintf("Time's up for %s, skipping their turn. Over to %s.",
		skipped.Mention(), next.Mention())
}

func (Formatter) Rejection(player models.Player, word string, outcome game.Outcome, letter rune, length int) string {
	switch outcome {
	case game.OutcomeMalformed:
		return fmt.Sprintf("%s: words can only contain letters.", player.Mention())
	case game.OutcomeWrongLetter:
		return fmt.Sprintf("%s: %q doesn't start with %q.", player.Mention(), word, strings.ToUpper(string(letter)))
	case game.OutcomeWrongLength:
		return fmt.Sprintf("%s: %q isn't %d letters long.", player.Mention(), word, length)
	case game.OutcomeAlreadyUsed:
		return fmt.Sprintf("%s: %q has already been used this game.", player.Mention(), word)
	case game.OutcomeNotAWord:
		return fmt.Sprintf("%s: %q isn't a word we know.", player.Mention(), word)
	default:
		return fmt.Sprintf("%s: %q was not accepted.", player.Mention(), word)
	}
}

func (Formatter) Ended(reason models.EndReason, winner *models.Player) string {
	switch reason {
	case models.EndReasonWinner:
		if winner != nil {
			return fmt.Sprintf("Game over! %s wins. Thanks for playing.", winner.Mention())
		}
		return "Game over! We have a winner. Thanks for playing."
	case models.EndReasonNoPlayers:
		return "Game over, everyone has left."
	case models.EndReasonAbandoned:
		return "Nobody has played a turn in a while, so the game is over. Start a new one any time."
	case models.EndReasonInternalError:
		return "The game hit an unexpected error and had to end. Sorry about that."
	default:
		return "Game stopped. Thanks for playing."
	}
}

func (Formatter) ValidationPaused() string {
	return "Word lookup is temporarily unavailable. The game is paused at the current turn; try again shortly."
}

func (Formatter) ValidationResumed() string {
	return "Word lookup is back. Game on!"
}

// Entry is one announcement as delivered to a chat.
type Entry struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// ChatLog keeps a bounded ring of recent announcements per chat. It stands in
// for the chat transport in this process and is served over the HTTP surface.
type ChatLog struct {
	mu     sync.Mutex
	max    int
	byChat map[int64][]Entry
}

func NewChatLog(maxPerChat int) *ChatLog {
	return &ChatLog{
		max:    maxPerChat,
		byChat: make(map[int64][]Entry),
	}
}

func (l *ChatLog) Append(chatID int64, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := append(l.byChat[chatID], Entry{Time: time.Now(), Text: text})
	if len(entries) > l.max {
		entries = entries[len(entries)-l.max:]
	}
	l.byChat[chatID] = entries
}

func (l *ChatLog) Recent(chatID int64) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.byChat[chatID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

func (l *ChatLog) Clear(chatID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byChat, chatID)
}

// LogAnnouncer implements the engine's Announcer by formatting each callback
// and appending it to the chat log, mirroring everything to the process log.
type LogAnnouncer struct {
	f   Formatter
	log *ChatLog
}

func NewLogAnnouncer(log *ChatLog) *LogAnnouncer {
	return &LogAnnouncer{log: log}
}

func (a *LogAnnouncer) deliver(chatID int64, text string) {
	a.log.Append(chatID, text)
	util.LogInfo("chat %d: %s", chatID, text)
}

func (a *LogAnnouncer) GameStarted(chatID int64, players []models.Player, letter rune, length int) {
	a.deliver(chatID, a.f.GameStart(players, letter, length))
}

func (a *LogAnnouncer) TurnAnnounce(chatID int64, player models.Player, letter rune, length int, deadline time.Time) {
	a.deliver(chatID, a.f.TurnPrompt(player, letter, length, deadline))
}

func (a *LogAnnouncer) TimeoutWarning(chatID int64, player models.Player, remaining time.Duration) {
	a.deliver(chatID, a.f.Warning(player, remaining))
}

func (a *LogAnnouncer) TurnSkipped(chatID int64, skipped, next models.Player) {
	a.deliver(chatID, a.f.Skip(skipped, next))
}

func (a *LogAnnouncer) WordRejected(chatID int64, player models.Player, res game.WordResult) {
	a.deliver(chatID, a.f.Rejection(player, res.Word, res.Outcome, res.Letter, res.Length))
}

func (a *LogAnnouncer) GameEnded(chatID int64, reason models.EndReason, winner *models.Player) {
	a.deliver(chatID, a.f.Ended(reason, winner))
}

func (a *LogAnnouncer) ValidationPaused(chatID int64) {
	a.deliver(chatID, a.f.ValidationPaused())
}

func (a *LogAnnouncer) ValidationResumed(chatID int64) {
	a.deliver(chatID, a.f.ValidationResumed())
}
