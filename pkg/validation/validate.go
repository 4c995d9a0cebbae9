package validation

import (
	"errors"
	"fmt"
	"strings"

	"chatforum/pkg/models"
)

// Limits bounds inbound payloads. Zero values disable the bound.
type Limits struct {
	MaxMessages int
	MaxTextLen  int
}

var limits Limits

func SetLimits(l Limits) { limits = l }

// CheckDigestRequest applies size bounds to a digest batch. Field
// presence is the pipeline's concern; this only rejects payloads that
// are too large to process.
func CheckDigestRequest(req models.DigestRequest) error {
	var errs []string
	if limits.MaxMessages > 0 && len(req.Messages) > limits.MaxMessages {
		errs = append(errs, fmt.Sprintf("too many messages: %d > %d", len(req.Messages), limits.MaxMessages))
	}
	if limits.MaxTextLen > 0 {
		for _, m := range req.Messages {
			if len(m.Text) > limits.MaxTextLen {
				errs = append(errs, fmt.Sprintf("message %s text too long: %d > %d", m.ID, len(m.Text), limits.MaxTextLen))
				break
			}
		}
	}
	if len(req.ChannelID) > 256 {
		errs = append(errs, "channelId too long")
	}
	if len(req.Slug) > 256 {
		errs = append(errs, "slug too long")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// CheckOutgoingMessage validates a message before it is relayed to the
// chat backend.
func CheckOutgoingMessage(msg models.RawMessage) error {
	var errs []string
	if strings.TrimSpace(msg.Text) == "" {
		errs = append(errs, "text is required")
	}
	if limits.MaxTextLen > 0 && len(msg.Text) > limits.MaxTextLen {
		errs = append(errs, fmt.Sprintf("text too long: %d > %d", len(msg.Text), limits.MaxTextLen))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
