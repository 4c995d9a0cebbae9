package digest

import (
	"strings"

	"chatforum/pkg/models"
)

const (
	defaultAuthorID   = "unknown"
	defaultAuthorName = "Unknown User"
	defaultKind       = "regular"
)

// Normalize converts raw channel records into the canonical flat shape
// used by the rest of the pipeline. Records whose text is empty after
// trimming are dropped; missing author sub-fields are defaulted. The
// function is pure and never fails: malformed entries are filtered, not
// reported.
func Normalize(raw []models.RawMessage) []models.NormalizedMessage {
	out := make([]models.NormalizedMessage, 0, len(raw))
	for _, m := range raw {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		n := models.NormalizedMessage{
			ID:        m.ID,
			Text:      m.Text,
			User:      models.Author{ID: defaultAuthorID, Name: defaultAuthorName},
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
			Type:      m.Type,
		}
		if m.User != nil {
			if m.User.ID != "" {
				n.User.ID = m.User.ID
			}
			if m.User.Name != "" {
				n.User.Name = m.User.Name
			}
			n.User.Image = m.User.Image
		}
		if n.Type == "" {
			n.Type = defaultKind
		}
		out = append(out, n)
	}
	return out
}
