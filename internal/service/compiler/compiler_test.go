package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/yenceelabs/speak-to-slides/internal/deck"
	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
	"github.com/yenceelabs/speak-to-slides/internal/service/llm"
	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

type scriptedLLM struct {
	reply      string
	lastSystem string
	lastPrompt string
	lastTier   llm.Tier
	calls      int
}

func (s *scriptedLLM) Complete(_ context.Context, system string, messages []llm.Message, _ int, tier llm.Tier) (string, error) {
	s.calls++
	s.lastSystem = system
	if len(messages) > 0 {
		s.lastPrompt = messages[len(messages)-1].Content
	}
	s.lastTier = tier
	return s.reply, nil
}

func TestGenerateDeck_StripsFences(t *testing.T) {
	t.Parallel()

	fake := &scriptedLLM{reply: "```json\n{\"title\":\"Roadmap\",\"theme\":\"bold\",\"slides\":[{\"type\":\"title\",\"heading\":\"Roadmap\"}]}\n```"}
	c := New(fake, logger.NewNop())

	d, err := c.GenerateDeck(context.Background(), "make a roadmap deck", false)
	if err != nil {
		t.Fatalf("GenerateDeck: %v", err)
	}
	if d.Title != "Roadmap" || d.Theme != "bold" || len(d.Slides) != 1 {
		t.Fatalf("got %+v", d)
	}
	if fake.lastTier != llm.TierFast {
		t.Fatalf("free generation should use the fast tier")
	}
}

func TestGenerateDeck_ProUsesQualityTier(t *testing.T) {
	t.Parallel()

	fake := &scriptedLLM{reply: `{"title":"T","slides":[{"type":"title","heading":"T"}]}`}
	c := New(fake, logger.NewNop())

	if _, err := c.GenerateDeck(context.Background(), "prompt", true); err != nil {
		t.Fatalf("GenerateDeck: %v", err)
	}
	if fake.lastTier != llm.TierQuality {
		t.Fatalf("pro generation should use the quality tier")
	}
}

func TestGenerateDeck_MalformedOutput(t *testing.T) {
	t.Parallel()

	fake := &scriptedLLM{reply: "I'd be happy to make you a deck! First, tell me..."}
	c := New(fake, logger.NewNop())

	_, err := c.GenerateDeck(context.Background(), "prompt", false)
	if err == nil {
		t.Fatalf("expected format error for prose output")
	}
	if !errors.Is(err, errors.ErrCodeGenFormat) {
		t.Fatalf("code=%q, want %q", errors.Code(err), errors.ErrCodeGenFormat)
	}
}

func TestGenerateDeckFromOutline_PromptCarriesStructure(t *testing.T) {
	t.Parallel()

	fake := &scriptedLLM{reply: `{"title":"Pitch","slides":[{"type":"title","heading":"Pitch"}]}`}
	c := New(fake, logger.NewNop())

	outline := &deck.Outline{
		Title: "Pitch",
		Slides: []deck.OutlineSlide{
			{Index: 0, Heading: "Opening", Type: "title"},
			{Index: 1, Heading: "Numbers", Type: "stats", Notes: "use Q2 figures"},
		},
	}
	if _, err := c.GenerateDeckFromOutline(context.Background(), outline, "audience is investors", false); err != nil {
		t.Fatalf("GenerateDeckFromOutline: %v", err)
	}
	for _, want := range []string{"Title: Pitch", "Slide 1 [stats]: Numbers", "use Q2 figures", "audience is investors"} {
		if !strings.Contains(fake.lastPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, fake.lastPrompt)
		}
	}
}

func TestGenerateOutline(t *testing.T) {
	t.Parallel()

	fake := &scriptedLLM{reply: `{"title":"All Hands","slides":[{"index":0,"heading":"Welcome","type":"title"},{"index":1,"heading":"Wins","type":"bullets"}]}`}
	c := New(fake, logger.NewNop())

	o, err := c.GenerateOutline(context.Background(), "user: quarterly all hands", "keep it short")
	if err != nil {
		t.Fatalf("GenerateOutline: %v", err)
	}
	if o.Title != "All Hands" || len(o.Slides) != 2 {
		t.Fatalf("got %+v", o)
	}
	if fake.lastTier != llm.TierFast {
		t.Fatalf("outline generation must stay on the fast tier")
	}
}

func TestEditSlides_WholeListReplace(t *testing.T) {
	t.Parallel()

	fake := &scriptedLLM{reply: `[{"type":"title","heading":"New Title"},{"type":"bullets","heading":"Added","points":["a"]}]`}
	c := New(fake, logger.NewNop())

	current := []deck.Slide{{Type: deck.TypeTitle, Heading: "Old Title"}}
	updated, err := c.EditSlides(context.Background(), current, "rename the title and add a bullets slide", false)
	if err != nil {
		t.Fatalf("EditSlides: %v", err)
	}
	if len(updated) != 2 {
		t.Fatalf("len(updated)=%d, want 2", len(updated))
	}
	if updated[0].Heading != "New Title" {
		t.Fatalf("heading=%q, want New Title", updated[0].Heading)
	}
	if !strings.Contains(fake.lastPrompt, `"Old Title"`) {
		t.Fatalf("edit prompt should embed the current slides:\n%s", fake.lastPrompt)
	}
}

func TestEditSlides_RejectsEmptyReplacement(t *testing.T) {
	t.Parallel()

	fake := &scriptedLLM{reply: `[]`}
	c := New(fake, logger.NewNop())

	_, err := c.EditSlides(context.Background(), []deck.Slide{{Type: deck.TypeTitle, Heading: "T"}}, "delete everything", false)
	if err == nil {
		t.Fatalf("expected error for empty replacement list")
	}
	if !errors.Is(err, errors.ErrCodeGenFormat) {
		t.Fatalf("code=%q, want %q", errors.Code(err), errors.ErrCodeGenFormat)
	}
}
