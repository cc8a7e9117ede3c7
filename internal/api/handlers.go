package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yenceelabs/speak-to-slides/internal/deck"
	"github.com/yenceelabs/speak-to-slides/internal/infra/limiter"
	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
	"github.com/yenceelabs/speak-to-slides/internal/service/compiler"
	"github.com/yenceelabs/speak-to-slides/internal/service/conversation"
	"github.com/yenceelabs/speak-to-slides/internal/service/storage"
	"github.com/yenceelabs/speak-to-slides/internal/store"
	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

const (
	minPromptLen     = 5
	maxImageBytes    = 5 * 1024 * 1024
	internalSecretHd = "X-Internal-Secret"
)

type Handler struct {
	compiler       *compiler.Compiler
	engine         *conversation.Engine
	store          *store.Store
	storage        *storage.Service
	limiter        *limiter.Limiter
	logger         *logger.Logger
	baseURL        string
	internalSecret string
}

func NewHandler(
	comp *compiler.Compiler,
	engine *conversation.Engine,
	st *store.Store,
	stor *storage.Service,
	lim *limiter.Limiter,
	baseURL, internalSecret string,
	log *logger.Logger,
) *Handler {
	return &Handler{
		compiler:       comp,
		engine:         engine,
		store:          st,
		storage:        stor,
		limiter:        lim,
		logger:         log,
		baseURL:        strings.TrimRight(baseURL, "/"),
		internalSecret: internalSecret,
	}
}

// GenerateDeck is the one-shot API path: prompt in, shareable deck out.
// Validation runs before any generative call is made.
func (h *Handler) GenerateDeck(c *gin.Context) {
	var req GenerateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if len(prompt) < minPromptLen {
		h.respondError(c, errors.New(errors.ErrCodeValidation, "please provide a valid prompt (at least 5 characters)"))
		return
	}

	release, err := h.limiter.Acquire(c.Request.Context())
	if err != nil {
		h.respondError(c, errors.Wrap(err, errors.ErrCodeRateLimited, "generation capacity exhausted"))
		return
	}
	defer release()

	usage, err := h.store.CheckAndRecordUsage(c.Request.Context(), c.ClientIP(), req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !usage.Allowed {
		h.respondError(c, errors.New(errors.ErrCodeUsageLimit, usage.Reason))
		return
	}

	isPro := req.UserID != ""
	d, err := h.compiler.GenerateDeck(c.Request.Context(), prompt, isPro)
	if err != nil {
		h.respondError(c, err)
		return
	}

	theme := d.Theme
	if theme == "" {
		theme = "modern"
	}
	html := deck.Render(d, isPro)

	row, err := h.store.CreateDeck(c.Request.Context(), store.CreateDeckParams{
		UserID: req.UserID,
		Title:  d.Title,
		Prompt: prompt,
		HTML:   html,
		Slides: d.Slides,
		Theme:  theme,
		IsPro:  isPro,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenerateDeckResponse{
		DeckID:     row.ID,
		URL:        h.baseURL + "/d/" + row.ID,
		Title:      d.Title,
		SlideCount: len(d.Slides),
		Theme:      theme,
	})
}

// ServeDeck returns the rendered document for viewing and bumps the
// view counter.
func (h *Handler) ServeDeck(c *gin.Context) {
	id := c.Param("id")

	row, err := h.store.GetDeck(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if row == nil {
		h.respondError(c, errors.New(errors.ErrCodeNotFound, "this deck wasn't found"))
		return
	}

	if err := h.store.IncrementViewCount(c.Request.Context(), id); err != nil {
		h.logger.Warn("failed to bump view count", "deck_id", id, "error", err)
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(row.HTML))
}

// EditDeck applies a natural-language edit to a stored deck in place.
func (h *Handler) EditDeck(c *gin.Context) {
	id := c.Param("id")

	var req EditDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.Request) == "" {
		h.respondError(c, errors.New(errors.ErrCodeValidation, "edit request must not be empty"))
		return
	}

	release, err := h.limiter.Acquire(c.Request.Context())
	if err != nil {
		h.respondError(c, errors.Wrap(err, errors.ErrCodeRateLimited, "generation capacity exhausted"))
		return
	}
	defer release()

	if err := h.engine.ApplyEdit(c.Request.Context(), id, req.Request); err != nil {
		h.respondError(c, err)
		return
	}

	row, err := h.store.GetDeck(c.Request.Context(), id)
	if err != nil || row == nil {
		h.respondError(c, errors.New(errors.ErrCodeInternal, "deck disappeared after edit"))
		return
	}

	c.JSON(http.StatusOK, EditDeckResponse{
		DeckID:     row.ID,
		Title:      row.Title,
		SlideCount: row.SlideCount,
	})
}

// UploadImage attaches an owner-supplied image to one slide. Guarded by
// the internal secret: only the bot and trusted tooling may call it, and
// with no secret configured the endpoint fails closed.
func (h *Handler) UploadImage(c *gin.Context) {
	if h.internalSecret == "" || c.GetHeader(internalSecretHd) != h.internalSecret {
		h.respondError(c, errors.New(errors.ErrCodeUnauthorized, "unauthorized"))
		return
	}

	id := c.Param("id")

	slideIndex, err := strconv.Atoi(c.PostForm("slide_index"))
	if err != nil || slideIndex < 0 {
		h.respondError(c, errors.New(errors.ErrCodeValidation, "slide_index must be a non-negative integer"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.respondError(c, errors.New(errors.ErrCodeValidation, "missing file field"))
		return
	}
	if fileHeader.Size > maxImageBytes {
		h.respondError(c, errors.New(errors.ErrCodeValidation, "image must be under 5 MB"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, errors.Wrap(err, errors.ErrCodeInternal, "failed to open upload"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		h.respondError(c, errors.Wrap(err, errors.ErrCodeInternal, "failed to read upload"))
		return
	}
	if len(data) > maxImageBytes {
		h.respondError(c, errors.New(errors.ErrCodeValidation, "image must be under 5 MB"))
		return
	}

	imageURL, err := h.storage.SaveImage(id, slideIndex, data)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.engine.AttachImage(c.Request.Context(), id, slideIndex, imageURL); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, UploadImageResponse{
		ImageURL:   imageURL,
		SlideIndex: slideIndex,
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// respondError maps the error taxonomy onto HTTP statuses with
// actionable messages; internals never leak raw causes to callers.
func (h *Handler) respondError(c *gin.Context, err error) {
	code := errors.Code(err)

	status := http.StatusInternalServerError
	message := "Something went wrong. Please try again."

	switch code {
	case errors.ErrCodeValidation:
		status = http.StatusBadRequest
		if m := errors.Message(err); m != "" {
			message = m
		}
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
		message = "This deck wasn't found."
	case errors.ErrCodeUsageLimit:
		status = http.StatusTooManyRequests
		if m := errors.Message(err); m != "" {
			message = m
		}
	case errors.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
		message = "Too many requests right now. Please try again shortly."
	case errors.ErrCodeGenFormat:
		status = http.StatusBadGateway
		message = "Failed to generate a valid deck. Please try again."
	case errors.ErrCodeLLMAPI:
		status = http.StatusBadGateway
		message = "The generation service is unavailable. Please try again."
	case errors.ErrCodeUnavailable:
		status = http.StatusServiceUnavailable
		message = "This feature is temporarily unavailable."
	case errors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
		message = "Unauthorized."
	}

	if status >= 500 {
		h.logger.Error("request failed", "code", code, "error", err, "path", c.Request.URL.Path)
	} else {
		h.logger.Warn("request rejected", "code", code, "path", c.Request.URL.Path)
	}

	c.JSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}
