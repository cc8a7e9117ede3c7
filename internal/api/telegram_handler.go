package api

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yenceelabs/speak-to-slides/internal/infra/limiter"
	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
	"github.com/yenceelabs/speak-to-slides/internal/service/conversation"
	"github.com/yenceelabs/speak-to-slides/internal/service/storage"
	"github.com/yenceelabs/speak-to-slides/internal/service/telegram"
	"github.com/yenceelabs/speak-to-slides/internal/service/transcribe"
	"github.com/yenceelabs/speak-to-slides/internal/store"
	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

const webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const channelTelegram = "telegram"

// TelegramHandler is the chat-bot transport: it translates webhook
// updates into state-machine turns and formats replies back out.
type TelegramHandler struct {
	engine        *conversation.Engine
	store         *store.Store
	tg            *telegram.Client
	transcriber   *transcribe.Service
	storage       *storage.Service
	limiter       *limiter.Limiter
	logger        *logger.Logger
	webhookSecret string
}

func NewTelegramHandler(
	engine *conversation.Engine,
	st *store.Store,
	tg *telegram.Client,
	tr *transcribe.Service,
	stor *storage.Service,
	lim *limiter.Limiter,
	webhookSecret string,
	log *logger.Logger,
) *TelegramHandler {
	return &TelegramHandler{
		engine:        engine,
		store:         st,
		tg:            tg,
		transcriber:   tr,
		storage:       stor,
		limiter:       lim,
		logger:        log,
		webhookSecret: webhookSecret,
	}
}

// Webhook always answers 200 so Telegram never retry-storms us; bad
// secrets and malformed payloads are dropped silently. With no secret
// configured the endpoint fails closed.
func (h *TelegramHandler) Webhook(c *gin.Context) {
	defer c.JSON(http.StatusOK, gin.H{"ok": true})

	if h.webhookSecret == "" {
		h.logger.Error("telegram webhook secret not configured, rejecting all updates")
		return
	}
	if c.GetHeader(webhookSecretHeader) != h.webhookSecret {
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil || update.Message == nil {
		return
	}

	ctx := c.Request.Context()
	msg := update.Message
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic in telegram update handling", "chat_id", chatID, "panic", r)
			_ = h.tg.SendMessage(ctx, chatID, "Something went wrong. Try again, or send /new to start fresh.")
		}
	}()

	switch text {
	case "/start":
		h.handleStart(ctx, chatID)
		return
	case "/new":
		h.handleNew(ctx, chatID)
		return
	case "/outline":
		h.handleOutline(ctx, chatID)
		return
	case "/build":
		h.handleBuild(ctx, chatID)
		return
	case "/reset":
		h.handleReset(ctx, chatID)
		return
	case "/help":
		h.handleHelp(ctx, chatID)
		return
	}

	if msg.Voice != nil {
		h.handleVoice(ctx, chatID, msg.Voice.FileID)
		return
	}

	if len(msg.Photo) > 0 {
		// Telegram sends multiple sizes; the last is the largest.
		photo := msg.Photo[len(msg.Photo)-1]
		h.handlePhoto(ctx, chatID, photo.FileID, msg.Caption)
		return
	}

	if len(text) > 2 && !strings.HasPrefix(text, "/") {
		h.handleText(ctx, chatID, text)
	}
}

func (h *TelegramHandler) handleStart(ctx context.Context, chatID int64) {
	if err := h.store.ResetConversations(ctx, chatHandle(chatID)); err != nil {
		h.logger.Error("reset failed", "chat_id", chatID, "error", err)
	}
	_ = h.tg.SendMessage(ctx, chatID,
		"<b>Welcome to SpeakToSlides!</b>\n\n"+
			"I'm your presentation coach. Tell me what you need to present, and I'll help you build a great deck.\n\n"+
			"<b>How it works:</b>\n"+
			"1. Tell me about your presentation\n"+
			"2. I'll ask a few questions to get it right\n"+
			"3. We'll agree on a structure\n"+
			"4. I'll build it - you get a shareable link\n"+
			"5. Want changes? Just tell me - I'll update the same link\n\n"+
			"<b>Commands:</b>\n"+
			"/new - Start a fresh deck\n"+
			"/outline - Show current planned structure\n"+
			"/build - Force build with current outline\n"+
			"/reset - Clear current conversation\n\n"+
			"Ready? Just tell me what you need to present!")
}

func (h *TelegramHandler) handleNew(ctx context.Context, chatID int64) {
	if err := h.store.ResetConversations(ctx, chatHandle(chatID)); err != nil {
		h.logger.Error("reset failed", "chat_id", chatID, "error", err)
	}
	_ = h.tg.SendMessage(ctx, chatID, "Fresh start! What presentation are you working on?")
}

func (h *TelegramHandler) handleReset(ctx context.Context, chatID int64) {
	if err := h.store.ResetConversations(ctx, chatHandle(chatID)); err != nil {
		h.logger.Error("reset failed", "chat_id", chatID, "error", err)
	}
	_ = h.tg.SendMessage(ctx, chatID, "Conversation cleared. Ready when you are!")
}

func (h *TelegramHandler) handleHelp(ctx context.Context, chatID int64) {
	_ = h.tg.SendMessage(ctx, chatID,
		"<b>SpeakToSlides Help</b>\n\n"+
			"Just describe the presentation you want - I'll ask questions to get it right, then build it for you.\n\n"+
			"<b>Commands:</b>\n"+
			"/new - Start a fresh conversation\n"+
			"/outline - Show current planned structure\n"+
			"/build - Force build with current outline\n"+
			"/reset - Clear conversation\n"+
			"/help - This message\n\n"+
			"<b>Editing:</b>\nAfter your deck is built, just tell me what to change - \"fix slide 3\", \"add a slide about X\", \"change the title\". Same link, instant update!\n\n"+
			"You can also send <b>voice messages</b> - I'll transcribe and use them.")
}

func (h *TelegramHandler) handleOutline(ctx context.Context, chatID int64) {
	conv, err := h.store.GetOrCreateConversation(ctx, chatHandle(chatID), channelTelegram)
	if err != nil {
		h.logger.Error("get conversation failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Something went wrong. Try again in a moment.")
		return
	}

	if conv.Outline == nil {
		_ = h.tg.SendMessage(ctx, chatID,
			"No outline yet - we're still planning. Tell me more about your presentation!")
		return
	}

	_ = h.tg.SendMessage(ctx, chatID,
		fmt.Sprintf("<b>Current outline: %s</b>\n\n%s\n\nWant to adjust anything? Or send /build to generate the deck.",
			telegram.EscapeHTML(conv.Outline.Title),
			telegram.EscapeHTML(conversation.FormatOutlineForUser(conv.Outline))))
}

func (h *TelegramHandler) handleBuild(ctx context.Context, chatID int64) {
	conv, err := h.store.GetOrCreateConversation(ctx, chatHandle(chatID), channelTelegram)
	if err != nil {
		h.logger.Error("get conversation failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Something went wrong. Try again in a moment.")
		return
	}

	if conv.State == store.StateBuilding {
		_ = h.tg.SendMessage(ctx, chatID, "Already building - hang tight!")
		return
	}
	if len(conv.Messages) == 0 {
		_ = h.tg.SendMessage(ctx, chatID, "I need to know what you're presenting first! Tell me about it.")
		return
	}

	if !h.checkUsage(ctx, chatID) {
		return
	}
	h.buildAndSend(ctx, chatID, conv)
}

func (h *TelegramHandler) handleText(ctx context.Context, chatID int64, text string) {
	h.tg.SendTyping(ctx, chatID)

	conv, err := h.store.GetOrCreateConversation(ctx, chatHandle(chatID), channelTelegram)
	if err != nil {
		h.logger.Error("get conversation failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Something went wrong. Try again, or send /new to start fresh.")
		return
	}

	if err := h.store.AppendMessage(ctx, conv, "user", text); err != nil {
		h.logger.Error("append message failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Something went wrong. Try again, or send /new to start fresh.")
		return
	}

	result, err := h.engine.ProcessTurn(ctx, conv, text)
	if err != nil {
		h.logger.Error("turn processing failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Something went wrong. Try again, or send /new to start fresh.")
		return
	}

	if result.ShouldBuild {
		// BuildDeck persists the building state itself once a limiter
		// slot is held; writing it here would strand the conversation
		// in building when the usage check or capacity denies the build.
		if !h.checkUsage(ctx, chatID) {
			return
		}
		if result.Reply != "" {
			_ = h.tg.SendPlainMessage(ctx, chatID, result.Reply)
		}
		h.buildAndSend(ctx, chatID, conv)
		return
	}

	if result.NewState != "" {
		conv.State = result.NewState
		if result.Outline != nil {
			conv.Outline = result.Outline
		}
		if err := h.store.UpdateConversation(ctx, conv); err != nil {
			h.logger.Error("state update failed", "chat_id", chatID, "error", err)
		}
	}

	if result.Reply != "" {
		if err := h.store.AppendMessage(ctx, conv, "assistant", result.Reply); err != nil {
			h.logger.Error("append reply failed", "chat_id", chatID, "error", err)
		}
		_ = h.tg.SendPlainMessage(ctx, chatID, result.Reply)
	}
}

func (h *TelegramHandler) buildAndSend(ctx context.Context, chatID int64, conv *store.Conversation) {
	release, ok := h.limiter.TryAcquire()
	if !ok {
		_ = h.tg.SendMessage(ctx, chatID, "I'm at capacity right now - give me a minute and send /build again.")
		return
	}
	defer release()

	_ = h.tg.SendMessage(ctx, chatID, "Building your deck...")
	h.tg.SendTyping(ctx, chatID)

	result, err := h.engine.BuildDeck(ctx, conv)
	if err != nil {
		// Engine already reverted the conversation to confirming.
		h.logger.Error("deck build failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID,
			"Failed to generate the deck. Send /build to try again, or tell me what to adjust.")
		return
	}

	_ = h.tg.SendMessage(ctx, chatID,
		fmt.Sprintf("<b>Your deck is ready!</b>\n\n<b>%s</b>\n%d slides\n\n%s\n\n"+
			"Open the link to present - keyboard nav, fullscreen, and touch swipe!\n\n"+
			"<b>Want changes?</b> Just tell me - e.g. \"change slide 3\" or \"add a slide about X\". Same link, instant update.",
			telegram.EscapeHTML(result.Title), result.SlideCount, result.URL))

	if err := h.store.AppendMessage(ctx, conv, "assistant",
		fmt.Sprintf("Deck ready: %s (%d slides) - %s", result.Title, result.SlideCount, result.URL)); err != nil {
		h.logger.Error("append build message failed", "chat_id", chatID, "error", err)
	}
}

func (h *TelegramHandler) handleVoice(ctx context.Context, chatID int64, fileID string) {
	if !h.transcriber.Available() {
		_ = h.tg.SendMessage(ctx, chatID,
			"Voice transcription is not available right now. Please type your request instead!")
		return
	}

	h.tg.SendTyping(ctx, chatID)
	_ = h.tg.SendMessage(ctx, chatID, "Transcribing your voice message...")

	fileURL, err := h.tg.FileURL(ctx, fileID)
	if err != nil {
		h.logger.Error("voice file lookup failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Failed to process voice message. Please type your request instead.")
		return
	}
	audio, err := h.tg.Download(ctx, fileURL)
	if err != nil {
		h.logger.Error("voice download failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Failed to process voice message. Please type your request instead.")
		return
	}

	text, err := h.transcriber.Transcribe(ctx, audio)
	if err != nil {
		h.logger.Error("transcription failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Failed to process voice message. Please type your request instead.")
		return
	}
	if strings.TrimSpace(text) == "" {
		_ = h.tg.SendMessage(ctx, chatID,
			"Could not understand the voice message. Please try again or type your request.")
		return
	}

	_ = h.tg.SendMessage(ctx, chatID,
		fmt.Sprintf("I heard: \"<i>%s</i>\"", telegram.EscapeHTML(text)))

	h.handleText(ctx, chatID, text)
}

var slideCaptionRe = regexp.MustCompile(`(?i)slide\s*(\d+)`)
var bareNumberRe = regexp.MustCompile(`^(\d+)$`)

// parseSlideIndex reads "slide 3", "slide3" or "3" out of a photo
// caption, returning a 0-based index or -1 when absent.
func parseSlideIndex(caption string) int {
	caption = strings.TrimSpace(caption)
	m := slideCaptionRe.FindStringSubmatch(caption)
	if m == nil {
		m = bareNumberRe.FindStringSubmatch(caption)
	}
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return -1
	}
	return n - 1
}

func (h *TelegramHandler) handlePhoto(ctx context.Context, chatID int64, fileID, caption string) {
	h.tg.SendTyping(ctx, chatID)

	conv, err := h.store.GetOrCreateConversation(ctx, chatHandle(chatID), channelTelegram)
	if err != nil {
		h.logger.Error("get conversation failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Something went wrong. Try again in a moment.")
		return
	}
	if conv.DeckID == "" {
		_ = h.tg.SendMessage(ctx, chatID,
			"I received your image! But you don't have an active deck yet.\n\n"+
				"Generate a deck first, then send your image with a caption like <code>slide 3</code> to place it.")
		return
	}

	slideIndex := parseSlideIndex(caption)
	if slideIndex < 0 {
		_ = h.tg.SendMessage(ctx, chatID,
			"Got your image!\n\nWhich slide should I add it to? Send it again with a caption like: <code>slide 3</code>")
		return
	}

	fileURL, err := h.tg.FileURL(ctx, fileID)
	if err != nil {
		h.logger.Error("photo file lookup failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Failed to download your image. Please try again.")
		return
	}
	data, err := h.tg.Download(ctx, fileURL)
	if err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Failed to download your image. Please try again.")
		return
	}
	if len(data) > maxImageBytes {
		_ = h.tg.SendMessage(ctx, chatID, "That image is over 5 MB - please send a smaller one.")
		return
	}

	imageURL, err := h.storage.SaveImage(conv.DeckID, slideIndex, data)
	if err != nil {
		h.logger.Error("image save failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Failed to add the image. Please try again.")
		return
	}

	if err := h.engine.AttachImage(ctx, conv.DeckID, slideIndex, imageURL); err != nil {
		h.logger.Error("image attach failed", "chat_id", chatID, "error", err)
		if errors.Is(err, errors.ErrCodeValidation) {
			_ = h.tg.SendMessage(ctx, chatID,
				fmt.Sprintf("Slide %d doesn't exist in this deck - check the slide number and try again.", slideIndex+1))
			return
		}
		_ = h.tg.SendMessage(ctx, chatID, "Failed to add the image. Please try again.")
		return
	}

	_ = h.tg.SendMessage(ctx, chatID,
		fmt.Sprintf("<b>Image added to slide %d!</b>\n\nYour deck has been updated - same link:\n%s\n\n"+
			"Want to add more images? Send another photo with <code>slide [number]</code> as the caption.",
			slideIndex+1, h.engine.DeckURL(conv.DeckID)))
}

func (h *TelegramHandler) checkUsage(ctx context.Context, chatID int64) bool {
	usage, err := h.store.CheckAndRecordUsage(ctx, "", "tg_"+chatHandle(chatID))
	if err != nil {
		h.logger.Error("usage check failed", "chat_id", chatID, "error", err)
		_ = h.tg.SendMessage(ctx, chatID, "Something went wrong. Try again in a moment.")
		return false
	}
	if !usage.Allowed {
		_ = h.tg.SendMessage(ctx, chatID, "<b>Free tier limit reached</b>\n\nVisit the site to unlock more decks.")
		return false
	}
	return true
}

func chatHandle(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
