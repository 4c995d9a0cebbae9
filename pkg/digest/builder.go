package digest

import (
	"context"
	"errors"
	"time"

	"chatforum/pkg/logger"
	"chatforum/pkg/models"
)

var (
	// ErrMissingFields is returned when channelId, userId or slug is absent.
	ErrMissingFields = errors.New("Missing required fields: channelId, userId, or slug")
	// ErrNotConfigured is returned when no generation API key is configured.
	ErrNotConfigured = errors.New("AI service not configured")
)

const (
	noticeEmptyBatch  = "No messages available for AI analysis."
	noticeAllFiltered = "No valid messages found to analyze."
)

// SuggestionGenerator is implemented by Generator. The indirection keeps
// the builder testable without a live generation backend.
type SuggestionGenerator interface {
	Generate(ctx context.Context, msgs []models.NormalizedMessage, transcript string) (models.SuggestionSet, error)
}

// Result is the outcome of one digest build. Exactly one of Suggestions,
// Notice and Failure is meaningful: Suggestions on success, Notice when
// there was nothing to analyze, Failure when the whole batch failed.
type Result struct {
	Processed   []models.NormalizedMessage
	Suggestions models.SuggestionSet
	Notice      string
	Failure     *models.GenerationFailure
}

// AIResponses renders the result into the wire map keyed by author id,
// or {"error": {...}} for a batch failure, or {"general": [notice]} when
// there was nothing to analyze.
func (r *Result) AIResponses() map[string]any {
	out := make(map[string]any)
	if r.Failure != nil {
		out["error"] = r.Failure
		return out
	}
	if r.Notice != "" {
		out["general"] = []string{r.Notice}
		return out
	}
	for id, s := range r.Suggestions {
		out[id] = s
	}
	return out
}

// Message is the top-level human message for the response envelope.
func (r *Result) Message() string {
	if r.Notice == noticeEmptyBatch {
		return "No messages to process"
	}
	return "Messages processed successfully"
}

// Builder runs the digest pipeline: validate, normalize, format the
// transcript, fan out generation, assemble the response payload.
type Builder struct {
	gen        SuggestionGenerator
	configured func() bool
}

// NewBuilder wires a builder. configured reports whether the generation
// backend has an API key; it is consulted after field validation and
// before the batch is inspected.
func NewBuilder(gen SuggestionGenerator, configured func() bool) *Builder {
	return &Builder{gen: gen, configured: configured}
}

// Build validates the request and runs the pipeline. Validation order is
// fixed: required fields first, then backend configuration, then the
// message batch itself.
func (b *Builder) Build(ctx context.Context, req models.DigestRequest) (*Result, error) {
	if req.ChannelID == "" || req.UserID == "" || req.Slug == "" {
		return nil, ErrMissingFields
	}
	if b.configured != nil && !b.configured() {
		return nil, ErrNotConfigured
	}
	if len(req.Messages) == 0 {
		return &Result{Processed: []models.NormalizedMessage{}, Notice: noticeEmptyBatch}, nil
	}

	processed := Normalize(req.Messages)
	if len(processed) == 0 {
		return &Result{Processed: processed, Notice: noticeAllFiltered}, nil
	}

	transcript := Transcript(processed)
	start := time.Now()
	set, err := b.gen.Generate(ctx, processed, transcript)
	if err != nil {
		logger.Error("digest_generation_failed", "channel", req.ChannelID, "error", err)
		return &Result{
			Processed: processed,
			Failure: &models.GenerationFailure{
				Message: "AI service temporarily unavailable",
				Details: err.Error(),
			},
		}, nil
	}
	logger.Info("digest_generated",
		"channel", req.ChannelID,
		"authors", len(set),
		"messages", len(processed),
		"elapsed", time.Since(start).String(),
	)
	return &Result{Processed: processed, Suggestions: set}, nil
}

// Data assembles the wire payload for a built result. The timestamp
// echoes the client-supplied one.
func (b *Builder) Data(req models.DigestRequest, r *Result) models.DigestData {
	return models.DigestData{
		ChannelID:         req.ChannelID,
		Slug:              req.Slug,
		MessageCount:      len(r.Processed),
		ProcessedMessages: r.Processed,
		AIResponses:       r.AIResponses(),
		Timestamp:         req.Timestamp,
	}
}
