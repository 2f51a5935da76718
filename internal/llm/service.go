package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/loomery/loom/internal/adapters/circuitbreaker"
	"github.com/loomery/loom/internal/adapters/metrics"
	"github.com/loomery/loom/internal/domain"
	"github.com/loomery/loom/internal/ports"
)

const (
	// requestTimeout caps a single backend round trip so a hung model call
	// cannot stall a pipeline stage indefinitely.
	requestTimeout = 2 * time.Minute
)

// Service implements ports.ModelBackend on top of the OpenAI-compatible
// client, adding a circuit breaker and a hard request timeout.
type Service struct {
	client  *Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewService creates a new model backend service
func NewService(client *Client) *Service {
	return &Service{
		client:  client,
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

// Chat sends a chat request through the breaker
func (s *Service) Chat(ctx context.Context, messages []ports.Message) (*ports.Reply, error) {
	var result *ports.Reply
	start := time.Now()
	err := s.breaker.Execute(func() error {
		var err error
		result, err = s.doChat(ctx, messages)
		return err
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.BackendRequestsTotal.WithLabelValues(s.client.Model(), status).Inc()
	metrics.BackendRequestDuration.WithLabelValues(s.client.Model()).Observe(time.Since(start).Seconds())

	return result, err
}

func (s *Service) doChat(ctx context.Context, messages []ports.Message) (*ports.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	chatMessages := make([]ChatMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = ChatMessage{Role: msg.Role, Content: msg.Content}
	}

	response, err := s.client.Chat(ctx, chatMessages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}

	if len(response.Choices) == 0 {
		return nil, domain.ErrEmptyResponse
	}

	return &ports.Reply{
		Content:          response.Choices[0].Message.Content,
		PromptTokens:     response.Usage.PromptTokens,
		CompletionTokens: response.Usage.CompletionTokens,
	}, nil
}

// Model returns the configured model identifier
func (s *Service) Model() string {
	return s.client.Model()
}
