package transcribe

import (
	"bytes"
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

// Service wraps Whisper voice transcription. With no API key configured
// it reports the capability unavailable rather than failing hard; the
// bot turns that into a feature-off message.
type Service struct {
	client *openai.Client
	logger *logger.Logger
}

func New(apiKey string, log *logger.Logger) *Service {
	s := &Service{logger: log}
	if apiKey != "" {
		s.client = openai.NewClient(apiKey)
	}
	return s
}

func (s *Service) Available() bool {
	return s != nil && s.client != nil
}

// Transcribe converts voice audio (Telegram sends OGG) to text.
func (s *Service) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if !s.Available() {
		return "", errors.New(errors.ErrCodeUnavailable, "voice transcription is not configured")
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "voice.ogg",
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "whisper transcription failed")
	}

	text := strings.TrimSpace(resp.Text)
	s.logger.Info("voice transcribed", "chars", len(text))
	return text, nil
}
