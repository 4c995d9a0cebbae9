package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"chatforum/pkg/models"
)

func TestCheckDigestRequestLimits(t *testing.T) {
	SetLimits(Limits{MaxMessages: 2, MaxTextLen: 10})
	t.Cleanup(func() { SetLimits(Limits{}) })

	ok := models.DigestRequest{
		ChannelID: "forum-python", Slug: "python", UserID: "u1",
		Messages: []models.RawMessage{{ID: "m1", Text: "hi"}},
	}
	assert.NoError(t, CheckDigestRequest(ok))

	tooMany := ok
	tooMany.Messages = []models.RawMessage{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	err := CheckDigestRequest(tooMany)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "too many messages")

	tooLong := ok
	tooLong.Messages = []models.RawMessage{{ID: "m1", Text: strings.Repeat("x", 11)}}
	err = CheckDigestRequest(tooLong)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "text too long")
}

func TestCheckDigestRequestUnbounded(t *testing.T) {
	SetLimits(Limits{})
	req := models.DigestRequest{
		ChannelID: "c", Slug: "s", UserID: "u",
		Messages: []models.RawMessage{{Text: strings.Repeat("x", 100000)}},
	}
	assert.NoError(t, CheckDigestRequest(req))
}

func TestCheckOutgoingMessage(t *testing.T) {
	SetLimits(Limits{MaxTextLen: 5})
	t.Cleanup(func() { SetLimits(Limits{}) })

	assert.NoError(t, CheckOutgoingMessage(models.RawMessage{Text: "hey"}))
	assert.Error(t, CheckOutgoingMessage(models.RawMessage{Text: "   "}))
	assert.Error(t, CheckOutgoingMessage(models.RawMessage{Text: "toolong"}))
}
