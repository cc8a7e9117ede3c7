package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yenceelabs/speak-to-slides/internal/deck"
	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
	"github.com/yenceelabs/speak-to-slides/internal/service/llm"
	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

const (
	deckMaxTokens    = 4096
	outlineMaxTokens = 1024
)

// Compiler bridges natural-language intent and the structured deck
// shapes, with the generative capability as a black box behind llm.Client.
type Compiler struct {
	llm    llm.Client
	logger *logger.Logger
}

func New(client llm.Client, log *logger.Logger) *Compiler {
	return &Compiler{
		llm:    client,
		logger: log,
	}
}

func tierFor(pro bool) llm.Tier {
	if pro {
		return llm.TierQuality
	}
	return llm.TierFast
}

// GenerateDeck produces a full deck from a prompt. Callers validate the
// prompt is non-empty before calling; the compiler assumes it.
func (c *Compiler) GenerateDeck(ctx context.Context, prompt string, pro bool) (*deck.Deck, error) {
	raw, err := c.llm.Complete(ctx, generationSystemPrompt,
		[]llm.Message{{Role: llm.RoleUser, Content: prompt}},
		deckMaxTokens, tierFor(pro))
	if err != nil {
		return nil, err
	}

	d, err := deck.ParseDeck(raw)
	if err != nil {
		c.logger.Error("deck parse failed", "error", err, "head", head(raw, 300))
		return nil, err
	}

	c.logger.Info("deck generated", "title", d.Title, "slides", len(d.Slides), "theme", d.Theme)
	return d, nil
}

// GenerateDeckFromOutline expands a confirmed outline into a full deck.
func (c *Compiler) GenerateDeckFromOutline(ctx context.Context, outline *deck.Outline, userContext string, pro bool) (*deck.Deck, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a presentation based on this outline and context:\n\nTitle: %s\n\nOutline:\n", outline.Title)
	for _, s := range outline.Slides {
		fmt.Fprintf(&b, "Slide %d [%s]: %s", s.Index, s.Type, s.Heading)
		if s.Notes != "" {
			fmt.Fprintf(&b, " - %s", s.Notes)
		}
		b.WriteByte('\n')
	}
	if userContext != "" {
		fmt.Fprintf(&b, "\nUser's context and requirements:\n%s\n", userContext)
	}
	b.WriteString("\nFollow the outline structure closely. Make the content rich and engaging based on the user's context.")

	return c.GenerateDeck(ctx, b.String(), pro)
}

// GenerateOutline proposes a pre-commitment outline from the
// conversation so far. Always runs on the fast tier.
func (c *Compiler) GenerateOutline(ctx context.Context, conversationContext, latest string) (*deck.Outline, error) {
	prompt := fmt.Sprintf("Conversation so far:\n%s\n\nLatest: %s\n\nGenerate the outline.", conversationContext, latest)

	raw, err := c.llm.Complete(ctx, outlineSystemPrompt,
		[]llm.Message{{Role: llm.RoleUser, Content: prompt}},
		outlineMaxTokens, llm.TierFast)
	if err != nil {
		return nil, err
	}

	outline, err := deck.ParseOutline(raw)
	if err != nil {
		c.logger.Error("outline parse failed", "error", err, "head", head(raw, 300))
		return nil, err
	}
	return outline, nil
}

// EditSlides applies a natural-language edit. The complete current list
// goes in and the complete replacement list comes out; re-indexing on
// insert/remove is the model's job, not ours.
func (c *Compiler) EditSlides(ctx context.Context, current []deck.Slide, editRequest string, pro bool) ([]deck.Slide, error) {
	slidesJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to encode current slides")
	}

	prompt := fmt.Sprintf("Current slides:\n%s\n\nEdit request: %s", slidesJSON, editRequest)

	raw, err := c.llm.Complete(ctx, editSystemPrompt,
		[]llm.Message{{Role: llm.RoleUser, Content: prompt}},
		deckMaxTokens, tierFor(pro))
	if err != nil {
		return nil, err
	}

	updated, err := deck.ParseSlides(raw)
	if err != nil {
		c.logger.Error("edited slides parse failed", "error", err, "head", head(raw, 300))
		return nil, err
	}
	return updated, nil
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
