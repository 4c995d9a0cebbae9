package digest

import (
	"strings"

	"chatforum/pkg/models"
)

// EmptyTranscript is returned when there is nothing to render.
const EmptyTranscript = "No messages to analyze."

// Transcript renders normalized messages as a newline-delimited
// "{author}: {text}" conversation, oldest first. The chat backend
// delivers history newest-first, so the input is reversed. Blank lines
// are skipped; an empty result yields the EmptyTranscript sentinel.
// Pure function, no I/O.
func Transcript(msgs []models.NormalizedMessage) string {
	lines := make([]string, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		name := m.User.Name
		if name == "" {
			name = defaultAuthorName
		}
		lines = append(lines, name+": "+m.Text)
	}
	if len(lines) == 0 {
		return EmptyTranscript
	}
	return strings.Join(lines, "\n")
}
