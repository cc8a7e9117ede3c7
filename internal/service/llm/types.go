package llm

import "context"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Tier selects model quality. Fast is the conversational/outline tier;
// Quality is used for pro deck generation.
type Tier int

const (
	TierFast Tier = iota
	TierQuality
)

// Client is the generative text capability. Implementations must accept
// a history that starts with a user message; Service trims leading
// non-user entries before dispatch.
type Client interface {
	Complete(ctx context.Context, system string, messages []Message, maxTokens int, tier Tier) (string, error)
}

// TrimLeadingNonUser drops messages from the front of the history until
// it begins with a user turn, per the upstream API requirement.
func TrimLeadingNonUser(messages []Message) []Message {
	for len(messages) > 0 && messages[0].Role != RoleUser {
		messages = messages[1:]
	}
	return messages
}
