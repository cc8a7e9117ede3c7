package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/yenceelabs/speak-to-slides/internal/infra/httpclient"
	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

const apiBase = "https://api.telegram.org"

// Client talks to the Telegram Bot API. Outbound delivery is
// fire-and-confirm: a non-OK response is an error, nothing more is
// tracked.
type Client struct {
	token      string
	baseURL    string
	httpClient *httpclient.Client
	logger     *logger.Logger
}

func New(token string, client *httpclient.Client, log *logger.Logger) *Client {
	return NewWithBaseURL(token, apiBase, client, log)
}

// NewWithBaseURL points the client at an alternate Bot API host; tests
// pass a stub server here.
func NewWithBaseURL(token, baseURL string, client *httpclient.Client, log *logger.Logger) *Client {
	return &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: client,
		logger:     log,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal telegram payload")
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	resp, err := c.httpClient.PostJSON(ctx, url, body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "telegram API request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read telegram response")
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to parse telegram response")
	}
	if !parsed.OK {
		return nil, errors.Newf(errors.ErrCodeInternal, "telegram API error: %s", parsed.Description)
	}
	return parsed.Result, nil
}

// SendMessage delivers HTML-formatted text. Callers must escape any
// user- or model-supplied content with EscapeHTML first.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		c.logger.Error("failed to send telegram message", "chat_id", chatID, "error", err)
	}
	return err
}

// SendPlainMessage delivers text without any markup interpretation; used
// for model replies which may contain characters HTML mode would choke on.
func (c *Client) SendPlainMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		c.logger.Error("failed to send telegram message", "chat_id", chatID, "error", err)
	}
	return err
}

func (c *Client) SendTyping(ctx context.Context, chatID int64) {
	// Best effort; a failed typing indicator is not worth surfacing.
	_, _ = c.call(ctx, "sendChatAction", map[string]interface{}{
		"chat_id": chatID,
		"action":  "typing",
	})
}

// FileURL resolves a file_id into a downloadable URL.
func (c *Client) FileURL(ctx context.Context, fileID string) (string, error) {
	result, err := c.call(ctx, "getFile", map[string]interface{}{
		"file_id": fileID,
	})
	if err != nil {
		return "", err
	}

	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(result, &file); err != nil || file.FilePath == "" {
		return "", errors.New(errors.ErrCodeInternal, "telegram getFile returned no path")
	}
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, file.FilePath), nil
}

// Download fetches file bytes from a URL returned by FileURL.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to download telegram file")
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read telegram file")
	}
	return data, nil
}

// EscapeHTML neutralizes user/model text before it is interpolated into
// HTML-mode messages, preventing markup injection.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
