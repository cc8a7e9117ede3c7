package llm

import (
	"context"

	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

// Service fronts the primary capability and retries exactly once through
// the fallback when the primary signals rate-limit/overload.
type Service struct {
	primary  Client
	fallback Client
	logger   *logger.Logger
}

// New builds the composite client. fallback may be nil when no
// OpenRouter key is configured.
func New(primary, fallback Client, log *logger.Logger) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		logger:   log,
	}
}

func (s *Service) Complete(ctx context.Context, system string, messages []Message, maxTokens int, tier Tier) (string, error) {
	messages = TrimLeadingNonUser(messages)
	if len(messages) == 0 {
		return "", errors.New(errors.ErrCodeValidation, "no user messages to send")
	}

	out, err := s.primary.Complete(ctx, system, messages, maxTokens, tier)
	if err == nil {
		return out, nil
	}

	if s.fallback == nil || !IsRateLimited(err) {
		return "", errors.Wrap(err, errors.ErrCodeLLMAPI, "generative capability failed")
	}

	s.logger.Warn("primary model rate limited, using fallback", "error", err)

	out, ferr := s.fallback.Complete(ctx, system, messages, maxTokens, tier)
	if ferr != nil {
		return "", errors.Wrap(ferr, errors.ErrCodeLLMAPI, "fallback capability failed")
	}
	return out, nil
}
