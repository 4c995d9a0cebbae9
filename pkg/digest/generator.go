package digest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"chatforum/pkg/logger"
	"chatforum/pkg/models"
)

// TextGenerator is the single capability required of the hosted
// text-generation endpoint: produce one completion for one prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PromptFunc renders the generation prompt for one candidate. option is
// 1-based; total is the number of candidates requested per author.
type PromptFunc func(transcript, userName string, option, total int) string

// GeneratorConfig controls fan-out. The zero value means 3 candidates,
// 500ms between requests, sequential strategy.
type GeneratorConfig struct {
	Candidates    int
	Delay         time.Duration
	Strategy      string // "sequential" or "concurrent"
	MaxConcurrent int
}

// Generator produces a fixed number of reply candidates per distinct
// author appearing in a transcript. Candidates for one author are always
// generated in order; with the concurrent strategy different authors are
// processed in parallel under a bounded semaphore. All requests share a
// rate limiter so the upstream endpoint sees at most one request per
// configured delay.
type Generator struct {
	tg      TextGenerator
	prompt  PromptFunc
	cfg     GeneratorConfig
	limiter *rate.Limiter
}

func NewGenerator(tg TextGenerator, prompt PromptFunc, cfg GeneratorConfig) *Generator {
	if cfg.Candidates <= 0 {
		cfg.Candidates = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 500 * time.Millisecond
	}
	if cfg.Strategy == "" {
		cfg.Strategy = "sequential"
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	return &Generator{
		tg:      tg,
		prompt:  prompt,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.Delay), 1),
	}
}

// distinctAuthors returns one Author per distinct id, in order of first
// appearance.
func distinctAuthors(msgs []models.NormalizedMessage) []models.Author {
	seen := make(map[string]struct{}, len(msgs))
	out := make([]models.Author, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.User.ID]; ok {
			continue
		}
		seen[m.User.ID] = struct{}{}
		out = append(out, m.User)
	}
	return out
}

// Generate produces the suggestion set for the given messages. A failed
// candidate request degrades to a placeholder string in that slot only.
// When every request in the batch fails the endpoint is treated as
// unreachable and an error is returned instead of a set of placeholders.
func (g *Generator) Generate(ctx context.Context, msgs []models.NormalizedMessage, transcript string) (models.SuggestionSet, error) {
	authors := distinctAuthors(msgs)
	set := make(models.SuggestionSet, len(authors))
	if len(authors) == 0 {
		return set, nil
	}

	var (
		mu       sync.Mutex
		attempts int
		failures int
		firstErr error
	)
	record := func(err error) {
		mu.Lock()
		attempts++
		if err != nil {
			failures++
			if firstErr == nil {
				firstErr = err
			}
		}
		mu.Unlock()
	}

	genFor := func(a models.Author) models.UserSuggestions {
		responses := make([]string, 0, g.cfg.Candidates)
		for i := 1; i <= g.cfg.Candidates; i++ {
			if err := g.limiter.Wait(ctx); err != nil {
				record(err)
				responses = append(responses, fmt.Sprintf("Response %d temporarily unavailable", i))
				continue
			}
			text, err := g.tg.Generate(ctx, g.prompt(transcript, a.Name, i, g.cfg.Candidates))
			record(err)
			if err != nil {
				logger.Warn("candidate_generation_failed", "author", a.ID, "option", i, "error", err)
				responses = append(responses, fmt.Sprintf("Response %d temporarily unavailable", i))
				continue
			}
			responses = append(responses, text)
		}
		return models.UserSuggestions{UserName: a.Name, Responses: responses}
	}

	switch g.cfg.Strategy {
	case "concurrent":
		sem := make(chan struct{}, g.cfg.MaxConcurrent)
		var wg sync.WaitGroup
		results := make([]models.UserSuggestions, len(authors))
		for idx, a := range authors {
			wg.Add(1)
			go func(idx int, a models.Author) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results[idx] = genFor(a)
			}(idx, a)
		}
		wg.Wait()
		for idx, a := range authors {
			set[a.ID] = results[idx]
		}
	default:
		for _, a := range authors {
			set[a.ID] = genFor(a)
		}
	}

	if failures == attempts && attempts > 0 {
		return nil, fmt.Errorf("generation backend unreachable: %w", firstErr)
	}
	return set, nil
}
