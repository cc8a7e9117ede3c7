package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/yenceelabs/speak-to-slides/internal/deck"
	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
	"github.com/yenceelabs/speak-to-slides/internal/service/compiler"
	"github.com/yenceelabs/speak-to-slides/internal/service/llm"
	"github.com/yenceelabs/speak-to-slides/internal/store"
	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

const (
	plannerMaxTokens = 1024
	// historyWindow bounds the planner context to the most recent turns.
	historyWindow = 20
)

// Engine owns the per-chat state machine: gathering, confirming,
// building, reviewing, done. It dispatches to the compiler at the right
// transitions and never operates on more than one active conversation
// per chat handle.
type Engine struct {
	llm      llm.Client
	compiler *compiler.Compiler
	store    *store.Store
	logger   *logger.Logger
	baseURL  string
}

func NewEngine(client llm.Client, comp *compiler.Compiler, st *store.Store, baseURL string, log *logger.Logger) *Engine {
	return &Engine{
		llm:      client,
		compiler: comp,
		store:    st,
		logger:   log,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// TurnResult is what a processed utterance produced: the reply to send,
// an optional state transition, an optional freshly proposed outline,
// and whether the caller should kick off a deck build.
type TurnResult struct {
	Reply       string
	NewState    store.ConversationState
	Outline     *deck.Outline
	ShouldBuild bool
}

// ProcessTurn runs one user utterance through the state machine. The
// caller has already appended the utterance to conv's history. Errors
// from the generative capability are converted into user-facing replies
// at this boundary; conv state is never left ambiguous.
func (e *Engine) ProcessTurn(ctx context.Context, conv *store.Conversation, utterance string) (*TurnResult, error) {
	switch conv.State {
	case store.StateGathering, store.StateConfirming:
		return e.planningTurn(ctx, conv, utterance)

	case store.StateBuilding:
		// Acknowledge but do not treat as new planning input; a second
		// build must never be triggered while one is in flight.
		return &TurnResult{
			Reply: "Your deck is still being built - hang tight! I'll send the link as soon as it's ready.",
		}, nil

	case store.StateReviewing:
		return e.reviewTurn(ctx, conv, utterance)

	case store.StateDone:
		return &TurnResult{
			Reply:    "This conversation is complete! Send /new to start a fresh deck, or just tell me what you want to present next.",
			NewState: store.StateGathering,
		}, nil

	default:
		return e.planningTurn(ctx, conv, utterance)
	}
}

func (e *Engine) planningTurn(ctx context.Context, conv *store.Conversation, utterance string) (*TurnResult, error) {
	system := fmt.Sprintf("%s\n\nCurrent state: %s", plannerSystemPrompt, conv.State)
	if conv.State == store.StateConfirming && conv.Outline != nil {
		system += "\n\nCurrent proposed outline:\n" + formatOutline(conv.Outline)
	}

	raw, err := e.llm.Complete(ctx, system, plannerMessages(conv.Messages, utterance), plannerMaxTokens, llm.TierFast)
	if err != nil {
		e.logger.Error("planner call failed", "conversation_id", conv.ID, "error", err)
		return &TurnResult{
			Reply: "Sorry, I hit a hiccup. Could you say that again?",
		}, nil
	}

	reply := parsePlannerReply(raw)

	switch reply.Kind {
	case signalOutlineReady:
		outline, err := e.compiler.GenerateOutline(ctx, formatHistory(conv.Messages), utterance)
		if err != nil {
			e.logger.Error("outline generation failed", "conversation_id", conv.ID, "error", err)
			return &TurnResult{
				Reply: "I couldn't put the outline together just now. Tell me a bit more, or just say \"try again\".",
			}, nil
		}
		text := reply.Text + "\n\nHere's what I'm thinking:\n\n" + FormatOutlineForUser(outline) +
			"\n\nShall I build this? Or want to adjust anything?"
		return &TurnResult{
			Reply:    text,
			NewState: store.StateConfirming,
			Outline:  outline,
		}, nil

	case signalBuildNow:
		return &TurnResult{
			Reply:       reply.Text,
			NewState:    store.StateBuilding,
			ShouldBuild: true,
		}, nil

	default:
		return &TurnResult{Reply: reply.Text}, nil
	}
}

func (e *Engine) reviewTurn(ctx context.Context, conv *store.Conversation, utterance string) (*TurnResult, error) {
	system := fmt.Sprintf("%s\n\nCurrent state: reviewing\nThe user has received their deck at %s", plannerSystemPrompt, e.DeckURL(conv.DeckID))

	raw, err := e.llm.Complete(ctx, system, plannerMessages(conv.Messages, utterance), plannerMaxTokens, llm.TierFast)
	if err != nil {
		e.logger.Error("review planner call failed", "conversation_id", conv.ID, "error", err)
		return &TurnResult{
			Reply: "Sorry, I hit a hiccup. Could you say that again?",
		}, nil
	}

	reply := parsePlannerReply(raw)

	if reply.Kind == signalEditDetected && conv.DeckID != "" {
		if err := e.ApplyEdit(ctx, conv.DeckID, utterance); err != nil {
			e.logger.Error("surgical edit failed", "deck_id", conv.DeckID, "error", err)
			if errors.Is(err, errors.ErrCodeNotFound) {
				return &TurnResult{
					Reply: "Sorry, I couldn't load the deck for editing. Try sending /new to start fresh.",
				}, nil
			}
			return &TurnResult{
				Reply: "Sorry, I hit an error while editing. Could you describe the change again?",
			}, nil
		}

		return &TurnResult{
			Reply: fmt.Sprintf("Done! I've updated your deck.\n\n%s\n\nSame link - just refresh to see the changes. Anything else to tweak?",
				e.DeckURL(conv.DeckID)),
			NewState: store.StateReviewing,
		}, nil
	}

	return &TurnResult{Reply: reply.Text}, nil
}

// BuildResult describes a freshly built deck.
type BuildResult struct {
	DeckID     string
	URL        string
	Title      string
	SlideCount int
}

// BuildDeck generates the full deck from the conversation context and
// persists it. State is moved to building first so concurrent turns are
// acknowledged, to reviewing on success, and back to confirming on any
// failure so the user can retry without re-outlining.
func (e *Engine) BuildDeck(ctx context.Context, conv *store.Conversation) (*BuildResult, error) {
	conv.State = store.StateBuilding
	if err := e.store.UpdateConversation(ctx, conv); err != nil {
		return nil, err
	}

	isPro := false

	d, err := e.generateFromConversation(ctx, conv, isPro)
	if err != nil {
		conv.State = store.StateConfirming
		if revertErr := e.store.UpdateConversation(ctx, conv); revertErr != nil {
			e.logger.Error("failed to revert conversation after build failure", "conversation_id", conv.ID, "error", revertErr)
		}
		return nil, err
	}

	theme := d.Theme
	if theme == "" {
		theme = "modern"
	}
	html := deck.Render(d, isPro)

	row, err := e.store.CreateDeck(ctx, store.CreateDeckParams{
		UserID:         "tg_" + conv.ChatID,
		Title:          d.Title,
		Prompt:         buildGenerationPrompt(conv),
		HTML:           html,
		Slides:         d.Slides,
		Theme:          theme,
		IsPro:          isPro,
		ConversationID: conv.ID,
	})
	if err != nil {
		conv.State = store.StateConfirming
		if revertErr := e.store.UpdateConversation(ctx, conv); revertErr != nil {
			e.logger.Error("failed to revert conversation after persist failure", "conversation_id", conv.ID, "error", revertErr)
		}
		return nil, err
	}

	conv.DeckID = row.ID
	conv.State = store.StateReviewing
	if err := e.store.UpdateConversation(ctx, conv); err != nil {
		return nil, err
	}

	e.logger.Info("deck built", "conversation_id", conv.ID, "deck_id", row.ID, "slides", len(d.Slides))

	return &BuildResult{
		DeckID:     row.ID,
		URL:        e.DeckURL(row.ID),
		Title:      d.Title,
		SlideCount: len(d.Slides),
	}, nil
}

func (e *Engine) generateFromConversation(ctx context.Context, conv *store.Conversation, isPro bool) (*deck.Deck, error) {
	if conv.Outline != nil {
		return e.compiler.GenerateDeckFromOutline(ctx, conv.Outline, userContext(conv.Messages), isPro)
	}
	return e.compiler.GenerateDeck(ctx, "Create a presentation based on this conversation:\n\n"+userContext(conv.Messages), isPro)
}

// ApplyEdit loads the deck's slide list, asks the compiler for the full
// replacement list, re-derives the title and re-renders, then persists
// slides and document together.
func (e *Engine) ApplyEdit(ctx context.Context, deckID, editRequest string) error {
	row, err := e.store.GetDeck(ctx, deckID)
	if err != nil {
		return err
	}
	if row == nil {
		return errors.New(errors.ErrCodeNotFound, "deck not found")
	}

	updated, err := e.compiler.EditSlides(ctx, row.Slides, editRequest, row.IsPro)
	if err != nil {
		return err
	}

	title := deck.DeriveTitle(updated)
	html := deck.Render(&deck.Deck{
		Title:  title,
		Theme:  row.Theme,
		Slides: updated,
	}, row.IsPro)

	return e.store.UpdateDeckSlides(ctx, deckID, updated, title, html)
}

// AttachImage sets the user image override on one slide and re-renders.
// Works for any slide kind; the renderer decides how to place it.
func (e *Engine) AttachImage(ctx context.Context, deckID string, slideIndex int, imageURL string) error {
	row, err := e.store.GetDeck(ctx, deckID)
	if err != nil {
		return err
	}
	if row == nil {
		return errors.New(errors.ErrCodeNotFound, "deck not found")
	}
	if slideIndex < 0 || slideIndex >= len(row.Slides) {
		return errors.Newf(errors.ErrCodeValidation, "slide index %d out of range (deck has %d slides)", slideIndex, len(row.Slides))
	}

	slides := make([]deck.Slide, len(row.Slides))
	copy(slides, row.Slides)
	slides[slideIndex].UserImageURL = imageURL

	title := deck.DeriveTitle(slides)
	html := deck.Render(&deck.Deck{
		Title:  title,
		Theme:  row.Theme,
		Slides: slides,
	}, row.IsPro)

	return e.store.UpdateDeckSlides(ctx, deckID, slides, title, html)
}

func (e *Engine) DeckURL(deckID string) string {
	return fmt.Sprintf("%s/d/%s", e.baseURL, deckID)
}

// plannerMessages converts the stored history into LLM messages,
// windowed to the most recent turns, ensuring the latest utterance is
// the final user message.
func plannerMessages(history []store.ChatMessage, utterance string) []llm.Message {
	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	msgs := make([]llm.Message, 0, len(recent)+1)
	for _, m := range recent {
		role := llm.RoleUser
		if m.Role == "assistant" {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}

	if len(msgs) == 0 || msgs[len(msgs)-1].Role != llm.RoleUser || msgs[len(msgs)-1].Content != utterance {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: utterance})
	}
	return msgs
}

func formatHistory(messages []store.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		who := "User"
		if m.Role == "assistant" {
			who = "AI"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, m.Content)
	}
	return b.String()
}

func userContext(messages []store.ChatMessage) string {
	var parts []string
	for _, m := range messages {
		if m.Role == "user" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

func buildGenerationPrompt(conv *store.Conversation) string {
	if conv.Outline == nil {
		return "Create a presentation based on this conversation:\n\n" + userContext(conv.Messages)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Create a presentation based on this outline and context:\n\nTitle: %s\n\nOutline:\n", conv.Outline.Title)
	for _, s := range conv.Outline.Slides {
		fmt.Fprintf(&b, "Slide %d [%s]: %s\n", s.Index, s.Type, s.Heading)
	}
	fmt.Fprintf(&b, "\nUser's context and requirements:\n%s\n", userContext(conv.Messages))
	return b.String()
}

func formatOutline(o *deck.Outline) string {
	var b strings.Builder
	for _, s := range o.Slides {
		fmt.Fprintf(&b, "%d. [%s] %s\n", s.Index, s.Type, s.Heading)
	}
	return b.String()
}

// FormatOutlineForUser renders the outline the way chat channels show
// it, one emoji-tagged line per slide.
func FormatOutlineForUser(o *deck.Outline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", o.Title)
	for _, s := range o.Slides {
		fmt.Fprintf(&b, "%s Slide %d: %s\n", outlineEmoji(s.Type), s.Index, s.Heading)
	}
	return strings.TrimRight(b.String(), "\n")
}

func outlineEmoji(slideType string) string {
	switch slideType {
	case deck.TypeTitle:
		return "\U0001F3AF"
	case deck.TypeBullets:
		return "\U0001F4CB"
	case deck.TypeStats:
		return "\U0001F4CA"
	case deck.TypeQuote:
		return "\U0001F4AC"
	case deck.TypeImage:
		return "\U0001F5BC"
	default:
		return "\U0001F4DD"
	}
}
