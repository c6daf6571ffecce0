package announce_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	announce "vortcheno/internal/announce"
	game "vortcheno/internal/game"
	models "vortcheno/internal/models"
)

var alice = models.Player{ID: 1, Handle: "alice", Active: true}

func TestGameStart(t *testing.T) {
	var f announce.Formatter
	bob := models.Player{ID: 2, Handle: "bob", Active: true}
	text := f.GameStart([]models.Player{alice, bob}, 'k', 1)

	if !strings.Contains(text, "@alice, @bob") {
		t.Errorf("start text %q missing player mentions", text)
	}
	if !strings.Contains(text, "1-letter") || !strings.Contains(text, `"K"`) {
		t.Errorf("start text %q missing the opening requirement", text)
	}
}

func TestTurnPrompt(t *testing.T) {
	var f announce.Formatter
	text := f.TurnPrompt(alice, 'k', 4, time.Now().Add(30*time.Second))

	if !strings.Contains(text, "@alice") {
		t.Errorf("prompt %q missing mention", text)
	}
	if !strings.Contains(text, "4-letter") {
		t.Errorf("prompt %q missing length", text)
	}
	if !strings.Contains(text, `"K"`) {
		t.Errorf("prompt %q missing uppercased letter", text)
	}
}

func TestRejectionTexts(t *testing.T) {
	var f announce.Formatter
	cases := []struct {
		outcome game.Outcome
		want    string
	}{
		{game.OutcomeMalformed, "only contain letters"},
		{game.OutcomeWrongLetter, `doesn't start with "K"`},
		{game.OutcomeWrongLength, "isn't 4 letters"},
		{game.OutcomeAlreadyUsed, "already been used"},
		{game.OutcomeNotAWord, "isn't a word"},
	}
	for _, c := range cases {
		text := f.Rejection(alice, "kilo", c.outcome, 'k', 4)
		if !strings.Contains(text, c.want) {
			t.Errorf("Rejection(%s) = %q, want it to mention %q", c.outcome, text, c.want)
		}
		if !strings.Contains(text, "@alice") {
			t.Errorf("Rejection(%s) = %q missing mention", c.outcome, text)
		}
	}
}

func TestEndedTexts(t *testing.T) {
	var f announce.Formatter

	if text := f.Ended(models.EndReasonWinner, &alice); !strings.Contains(text, "@alice wins") {
		t.Errorf("winner text = %q", text)
	}
	if text := f.Ended(models.EndReasonNoPlayers, nil); !strings.Contains(text, "everyone has left") {
		t.Errorf("no-players text = %q", text)
	}
	if text := f.Ended(models.EndReasonStopped, nil); !strings.Contains(text, "stopped") {
		t.Errorf("stopped text = %q", text)
	}
	if text := f.Ended(models.EndReasonAbandoned, nil); !strings.Contains(text, "Nobody has played") {
		t.Errorf("abandoned text = %q", text)
	}
}

func TestMentionFallsBackToID(t *testing.T) {
	var f announce.Formatter
	anon := models.Player{ID: 42}
	if text := f.Warning(anon, 10*time.Second); !strings.Contains(text, "player 42") {
		t.Errorf("warning %q missing id fallback", text)
	}
}

func TestChatLogBounded(t *testing.T) {
	log := announce.NewChatLog(3)
	for i := 0; i < 5; i++ {
		log.Append(1, fmt.Sprintf("message %d", i))
	}

	entries := log.Recent(1)
	if len(entries) != 3 {
		t.Fatalf("Recent returned %d entries, want 3", len(entries))
	}
	if entries[0].Text != "message 2" || entries[2].Text != "message 4" {
		t.Errorf("ring kept wrong window: %+v", entries)
	}
}

func TestChatLogPerChat(t *testing.T) {
	log := announce.NewChatLog(10)
	log.Append(1, "for chat one")
	log.Append(2, "for chat two")

	if n := len(log.Recent(1)); n != 1 {
		t.Errorf("chat 1 has %d entries, want 1", n)
	}
	log.Clear(1)
	if n := len(log.Recent(1)); n != 0 {
		t.Errorf("chat 1 has %d entries after clear, want 0", n)
	}
	if n := len(log.Recent(2)); n != 1 {
		t.Errorf("clear leaked into chat 2: %d entries", n)
	}
}

func TestLogAnnouncerWritesToChatLog(t *testing.T) {
	log := announce.NewChatLog(10)
	a := announce.NewLogAnnouncer(log)

	a.TurnAnnounce(7, alice, 'b', 2, time.Now().Add(time.Minute))
	a.WordRejected(7, alice, game.WordResult{
		Outcome: game.OutcomeWrongLetter, Word: "cat", Letter: 'b', Length: 2,
	})
	a.GameEnded(7, models.EndReasonWinner, &alice)

	entries := log.Recent(7)
	if len(entries) != 3 {
		t.Fatalf("Recent returned %d entries, want 3", len(entries))
	}
	if !strings.Contains(entries[1].Text, `"cat"`) {
		t.Errorf("rejection entry = %q, want the word quoted", entries[1].Text)
	}
}
