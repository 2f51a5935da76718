package prompt

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/dspy-go/pkg/core"

	"github.com/loomery/loom/internal/ports"
)

// BackendAdapter adapts a ports.ModelBackend to dspy-go's LLM interface so
// Predict and ChainOfThought modules can drive any configured backend,
// including the scripted test double.
type BackendAdapter struct {
	backend ports.ModelBackend
}

// NewBackendAdapter creates a new backend adapter
func NewBackendAdapter(backend ports.ModelBackend) *BackendAdapter {
	return &BackendAdapter{backend: backend}
}

// Generate implements the dspy-go LLM interface
func (a *BackendAdapter) Generate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	messages := []ports.Message{
		{Role: "user", Content: prompt},
	}

	reply, err := a.backend.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("backend chat failed: %w", err)
	}

	return &core.LLMResponse{
		Content: reply.Content,
	}, nil
}

// GenerateWithJSON is not required by the bundled modules; structured results
// are assembled by the aggregator, not by JSON-mode generation.
func (a *BackendAdapter) GenerateWithJSON(ctx context.Context, prompt string, opts ...core.GenerateOption) (map[string]interface{}, error) {
	return nil, fmt.Errorf("GenerateWithJSON not implemented")
}

// GenerateWithFunctions is not required: the runner has no tool-calling modules.
func (a *BackendAdapter) GenerateWithFunctions(ctx context.Context, prompt string, functions []map[string]interface{}, opts ...core.GenerateOption) (map[string]interface{}, error) {
	return nil, fmt.Errorf("GenerateWithFunctions not implemented")
}

// CreateEmbedding is not required: no retrieval modules are bundled.
func (a *BackendAdapter) CreateEmbedding(ctx context.Context, input string, opts ...core.EmbeddingOption) (*core.EmbeddingResult, error) {
	return nil, fmt.Errorf("CreateEmbedding not implemented")
}

// CreateEmbeddings is not required: no retrieval modules are bundled.
func (a *BackendAdapter) CreateEmbeddings(ctx context.Context, inputs []string, opts ...core.EmbeddingOption) (*core.BatchEmbeddingResult, error) {
	return nil, fmt.Errorf("CreateEmbeddings not implemented")
}

// StreamGenerate is not required: stages consume whole replies.
func (a *BackendAdapter) StreamGenerate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.StreamResponse, error) {
	return nil, fmt.Errorf("StreamGenerate not implemented")
}

// GenerateWithContent is not required: all bundled modules are text-only.
func (a *BackendAdapter) GenerateWithContent(ctx context.Context, content []core.ContentBlock, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	return nil, fmt.Errorf("GenerateWithContent not implemented")
}

// StreamGenerateWithContent is not required: all bundled modules are text-only.
func (a *BackendAdapter) StreamGenerateWithContent(ctx context.Context, content []core.ContentBlock, opts ...core.GenerateOption) (*core.StreamResponse, error) {
	return nil, fmt.Errorf("StreamGenerateWithContent not implemented")
}

// ProviderName returns the provider name
func (a *BackendAdapter) ProviderName() string {
	return "loom"
}

// ModelID returns the model identifier
func (a *BackendAdapter) ModelID() string {
	return a.backend.Model()
}

// Capabilities returns the capabilities of this LLM
func (a *BackendAdapter) Capabilities() []core.Capability {
	return []core.Capability{core.CapabilityChat, core.CapabilityCompletion}
}

// Register installs the adapter as dspy-go's default LLM. Call once at
// startup, before any pipeline runs.
func Register(backend ports.ModelBackend) {
	core.SetDefaultLLM(NewBackendAdapter(backend))
}
