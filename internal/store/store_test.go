package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yenceelabs/speak-to-slides/internal/deck"
	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "decks.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDeck_CreateGetUpdate(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	slides := []deck.Slide{
		{Type: deck.TypeTitle, Heading: "Kickoff"},
		{Type: deck.TypeBullets, Heading: "Plan", Points: []string{"a", "b"}},
	}
	created, err := s.CreateDeck(ctx, CreateDeckParams{
		UserID: "u1",
		Title:  "Kickoff",
		Prompt: "kickoff deck",
		HTML:   "<html>v1</html>",
		Slides: slides,
		Theme:  "modern",
	})
	if err != nil {
		t.Fatalf("CreateDeck: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("created deck has empty ID")
	}
	if created.SlideCount != 2 {
		t.Fatalf("SlideCount=%d, want 2", created.SlideCount)
	}

	got, err := s.GetDeck(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetDeck: %v", err)
	}
	if got == nil {
		t.Fatalf("deck missing after create")
	}
	if got.Title != "Kickoff" || len(got.Slides) != 2 || !got.IsPublic {
		t.Fatalf("got %+v", got)
	}

	newSlides := append(slides, deck.Slide{Type: deck.TypeQuote, Text: "ship it"})
	if err := s.UpdateDeckSlides(ctx, created.ID, newSlides, "Kickoff v2", "<html>v2</html>"); err != nil {
		t.Fatalf("UpdateDeckSlides: %v", err)
	}
	got, err = s.GetDeck(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetDeck after update: %v", err)
	}
	if got.Title != "Kickoff v2" || got.SlideCount != 3 || got.HTML != "<html>v2</html>" {
		t.Fatalf("update not atomic: %+v", got)
	}
}

func TestDeck_GetAbsentReturnsNil(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	got, err := s.GetDeck(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetDeck: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for absent deck, got %+v", got)
	}
}

func TestDeck_UpdateAbsentIsNotFound(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	err := s.UpdateDeckSlides(context.Background(), "nope", []deck.Slide{{Type: deck.TypeTitle}}, "t", "h")
	if err == nil {
		t.Fatalf("expected error updating absent deck")
	}
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("code=%q, want %q", errors.Code(err), errors.ErrCodeNotFound)
	}
}

func TestConversation_GetOrCreateNeverDuplicatesActive(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreateConversation(ctx, "chat1", "telegram")
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}
	if first.State != StateGathering {
		t.Fatalf("State=%q, want gathering", first.State)
	}

	second, err := s.GetOrCreateConversation(ctx, "chat1", "telegram")
	if err != nil {
		t.Fatalf("GetOrCreateConversation again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second call created a new conversation")
	}

	n, err := s.CountActiveConversations(ctx, "chat1")
	if err != nil {
		t.Fatalf("CountActiveConversations: %v", err)
	}
	if n != 1 {
		t.Fatalf("active conversations=%d, want 1", n)
	}
}

func TestConversation_ResetStartsFresh(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreateConversation(ctx, "chat2", "telegram")
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}
	first.State = StateConfirming
	if err := s.UpdateConversation(ctx, first); err != nil {
		t.Fatalf("UpdateConversation: %v", err)
	}

	if err := s.ResetConversations(ctx, "chat2"); err != nil {
		t.Fatalf("ResetConversations: %v", err)
	}
	n, err := s.CountActiveConversations(ctx, "chat2")
	if err != nil {
		t.Fatalf("CountActiveConversations: %v", err)
	}
	if n != 0 {
		t.Fatalf("active conversations after reset=%d, want 0", n)
	}

	fresh, err := s.GetOrCreateConversation(ctx, "chat2", "telegram")
	if err != nil {
		t.Fatalf("GetOrCreateConversation after reset: %v", err)
	}
	if fresh.ID == first.ID {
		t.Fatalf("reset should lead to a new conversation row")
	}
	if fresh.State != StateGathering || len(fresh.Messages) != 0 {
		t.Fatalf("fresh conversation not clean: %+v", fresh)
	}
}

func TestConversation_RoundTripsOutlineAndMessages(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	conv, err := s.GetOrCreateConversation(ctx, "chat3", "telegram")
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}

	if err := s.AppendMessage(ctx, conv, "user", "I need a sales deck"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := s.AppendMessage(ctx, conv, "assistant", "Who is the audience?"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	conv.State = StateConfirming
	conv.Outline = &deck.Outline{
		Title:  "Sales Pitch",
		Slides: []deck.OutlineSlide{{Index: 0, Heading: "Opening", Type: "title"}},
	}
	if err := s.UpdateConversation(ctx, conv); err != nil {
		t.Fatalf("UpdateConversation: %v", err)
	}

	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got == nil {
		t.Fatalf("conversation missing")
	}
	if got.State != StateConfirming {
		t.Fatalf("State=%q, want confirming", got.State)
	}
	if len(got.Messages) != 2 || got.Messages[0].Content != "I need a sales deck" {
		t.Fatalf("messages did not round trip: %+v", got.Messages)
	}
	if got.Outline == nil || got.Outline.Title != "Sales Pitch" {
		t.Fatalf("outline did not round trip: %+v", got.Outline)
	}
}

func TestUsage_AnonymousLimitedToOneDeckPerIP(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.CheckAndRecordUsage(ctx, "10.0.0.1", "")
	if err != nil {
		t.Fatalf("CheckAndRecordUsage: %v", err)
	}
	if !first.Allowed {
		t.Fatalf("first anonymous deck should be allowed")
	}

	second, err := s.CheckAndRecordUsage(ctx, "10.0.0.1", "")
	if err != nil {
		t.Fatalf("CheckAndRecordUsage second: %v", err)
	}
	if second.Allowed {
		t.Fatalf("second anonymous deck from same IP should be blocked")
	}
	if second.Reason == "" {
		t.Fatalf("blocked usage should carry a reason")
	}

	other, err := s.CheckAndRecordUsage(ctx, "10.0.0.2", "")
	if err != nil {
		t.Fatalf("CheckAndRecordUsage other IP: %v", err)
	}
	if !other.Allowed {
		t.Fatalf("a different IP should get its own free deck")
	}
}

func TestUsage_IdentifiedUsersUnlimited(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		check, err := s.CheckAndRecordUsage(ctx, "10.0.0.9", "tg_42")
		if err != nil {
			t.Fatalf("CheckAndRecordUsage #%d: %v", i, err)
		}
		if !check.Allowed {
			t.Fatalf("identified user blocked on attempt %d", i)
		}
	}
}
