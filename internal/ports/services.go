package ports

import "context"

// Message is one turn of a chat exchange with the model backend.
type Message struct {
	Role    string
	Content string
}

// Reply is the backend's answer to a chat exchange.
type Reply struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// ModelBackend is the only interface the runner consumes from an LLM
// provider. Wire format, authentication and provider selection live behind
// it; the runner never sees raw credentials or HTTP.
type ModelBackend interface {
	Chat(ctx context.Context, messages []Message) (*Reply, error)
	Model() string
}
