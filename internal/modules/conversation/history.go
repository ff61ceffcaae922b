package conversation

import "strings"

// MaxHistory is the number of turns kept per user.
const MaxHistory = 20

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerBot  Speaker = "bot"
)

// Turn is a single message in a conversation.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// History is an ordered turn log, oldest first.
type History []Turn

// Append returns h with one more turn. The receiver is not modified.
func (h History) Append(speaker Speaker, text string) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, Turn{Speaker: speaker, Text: text})
}

// Truncate keeps the most recent n turns.
func (h History) Truncate(n int) History {
	if n < 0 {
		n = 0
	}
	if len(h) <= n {
		return h
	}
	out := make(History, n)
	copy(out, h[len(h)-n:])
	return out
}

// Transcript renders turns as "Usuario: …" / "Bot: …" lines.
func (h History) Transcript() string {
	var b strings.Builder
	for _, t := range h {
		if t.Speaker == SpeakerBot {
			b.WriteString("Bot: ")
		} else {
			b.WriteString("Usuario: ")
		}
		b.WriteString(t.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

func encodeHistory(h History) []any {
	out := make([]any, 0, len(h))
	for _, t := range h {
		out = append(out, map[string]any{"speaker": string(t.Speaker), "text": t.Text})
	}
	return out
}

// decodeHistory reads turns from a loosely typed array. Entries written in the
// single-key form {"user": "..."} / {"bot": "..."} are accepted too; anything
// else is skipped.
func decodeHistory(v any) History {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var h History
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if sp, ok := m["speaker"].(string); ok {
			txt, _ := m["text"].(string)
			if sp == string(SpeakerUser) || sp == string(SpeakerBot) {
				h = append(h, Turn{Speaker: Speaker(sp), Text: txt})
			}
			continue
		}
		if txt, ok := m["user"].(string); ok {
			h = append(h, Turn{Speaker: SpeakerUser, Text: txt})
		} else if txt, ok := m["bot"].(string); ok {
			h = append(h, Turn{Speaker: SpeakerBot, Text: txt})
		}
	}
	return h
}
