package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yenceelabs/speak-to-slides/internal/infra/httpclient"
	"github.com/yenceelabs/speak-to-slides/internal/infra/limiter"
	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
	"github.com/yenceelabs/speak-to-slides/internal/service/compiler"
	"github.com/yenceelabs/speak-to-slides/internal/service/conversation"
	"github.com/yenceelabs/speak-to-slides/internal/service/llm"
	"github.com/yenceelabs/speak-to-slides/internal/service/storage"
	"github.com/yenceelabs/speak-to-slides/internal/service/telegram"
	"github.com/yenceelabs/speak-to-slides/internal/service/transcribe"
	"github.com/yenceelabs/speak-to-slides/internal/store"
)

type stubLLM struct {
	reply string
	calls int
}

func (s *stubLLM) Complete(_ context.Context, _ string, _ []llm.Message, _ int, _ llm.Tier) (string, error) {
	s.calls++
	return s.reply, nil
}

const stubDeckJSON = `{"title":"Demo Deck","theme":"minimal","slides":[
	{"type":"title","heading":"Demo Deck"},
	{"type":"content","heading":"Body","body":"Hello"}]}`

func newTestRouter(t *testing.T, client llm.Client) (*gin.Engine, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "api.sqlite"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	log := logger.NewNop()
	comp := compiler.New(client, log)
	engine := conversation.NewEngine(client, comp, st, "https://slides.test", log)
	stor := storage.New(t.TempDir(), "/files", log)
	lim := limiter.New(4, 100)

	handler := NewHandler(comp, engine, st, stor, lim, "https://slides.test", "test-secret", log)

	tgClient := telegram.New("", httpclient.New(httpclient.Options{Timeout: time.Second}), log)
	tgHandler := NewTelegramHandler(engine, st, tgClient, transcribe.New("", log), stor, lim, "hook-secret", log)

	return NewRouter(handler, tgHandler, stor.Dir(), log), st
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.1.1.1:5000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateDeck_ShortPromptRejectedBeforeGeneration(t *testing.T) {
	t.Parallel()

	fake := &stubLLM{reply: stubDeckJSON}
	router, _ := newTestRouter(t, fake)

	w := postJSON(t, router, "/v1/decks", GenerateDeckRequest{Prompt: "hi"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
	if fake.calls != 0 {
		t.Fatalf("generation called %d times for an invalid prompt, want 0", fake.calls)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("code=%q, want VALIDATION_ERROR", resp.Error.Code)
	}
}

func TestGenerateDeck_HappyPathAndServe(t *testing.T) {
	t.Parallel()

	fake := &stubLLM{reply: stubDeckJSON}
	router, _ := newTestRouter(t, fake)

	w := postJSON(t, router, "/v1/decks", GenerateDeckRequest{Prompt: "a short demo deck", UserID: "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}

	var resp GenerateDeckResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Title != "Demo Deck" || resp.SlideCount != 2 || resp.Theme != "minimal" {
		t.Fatalf("response=%+v", resp)
	}
	if !strings.HasPrefix(resp.URL, "https://slides.test/d/") {
		t.Fatalf("URL=%q", resp.URL)
	}

	req := httptest.NewRequest(http.MethodGet, "/d/"+resp.DeckID, nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("serve status=%d", w2.Code)
	}
	if ct := w2.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("Content-Type=%q", ct)
	}
	if !strings.Contains(w2.Body.String(), "Demo Deck") {
		t.Fatalf("served document missing deck content")
	}
}

func TestGenerateDeck_AnonymousUsageLimit(t *testing.T) {
	t.Parallel()

	fake := &stubLLM{reply: stubDeckJSON}
	router, _ := newTestRouter(t, fake)

	first := postJSON(t, router, "/v1/decks", GenerateDeckRequest{Prompt: "first anonymous deck"})
	if first.Code != http.StatusOK {
		t.Fatalf("first status=%d, body=%s", first.Code, first.Body.String())
	}

	second := postJSON(t, router, "/v1/decks", GenerateDeckRequest{Prompt: "second anonymous deck"})
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d, want 429", second.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error.Code != "USAGE_LIMIT_REACHED" {
		t.Fatalf("code=%q, want USAGE_LIMIT_REACHED", resp.Error.Code)
	}
}

func TestServeDeck_UnknownIs404(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &stubLLM{reply: stubDeckJSON})

	req := httptest.NewRequest(http.MethodGet, "/v1/decks/does-not-exist", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", w.Code)
	}
}

func TestEditDeck_EmptyRequestRejected(t *testing.T) {
	t.Parallel()

	fake := &stubLLM{reply: stubDeckJSON}
	router, _ := newTestRouter(t, fake)

	w := postJSON(t, router, "/v1/decks/some-id/edits", EditDeckRequest{Request: "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
	if fake.calls != 0 {
		t.Fatalf("edit generation called for an empty request")
	}
}

func TestUploadImage_RequiresInternalSecret(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &stubLLM{reply: stubDeckJSON})

	req := httptest.NewRequest(http.MethodPost, "/v1/decks/d1/images", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401 without secret", w.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &stubLLM{reply: stubDeckJSON})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}
}

func TestTelegramWebhook_WrongSecretStillAnswers200(t *testing.T) {
	t.Parallel()

	router, st := newTestRouter(t, &stubLLM{reply: stubDeckJSON})

	update := map[string]interface{}{
		"message": map[string]interface{}{
			"chat": map[string]interface{}{"id": 99},
			"text": "make me a deck",
		},
	}
	b, _ := json.Marshal(update)
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, webhook must always answer 200", w.Code)
	}

	n, err := st.CountActiveConversations(context.Background(), "99")
	if err != nil {
		t.Fatalf("CountActiveConversations: %v", err)
	}
	if n != 0 {
		t.Fatalf("update with a bad secret must be dropped, found %d conversations", n)
	}
}

func TestParseSlideIndex(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
	}{
		{"slide 3", 2},
		{"Slide 1", 0},
		{"slide3", 2},
		{"7", 6},
		{"put this on slide 12 please", 11},
		{"nice photo", -1},
		{"slide 0", -1},
		{"", -1},
	}
	for _, tc := range cases {
		if got := parseSlideIndex(tc.in); got != tc.want {
			t.Fatalf("parseSlideIndex(%q)=%d, want %d", tc.in, got, tc.want)
		}
	}
}
