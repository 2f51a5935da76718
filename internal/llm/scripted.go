package llm

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/loomery/loom/internal/ports"
)

// Rule maps a prompt fragment to the canned field values the scripted backend
// answers with. Values are rendered as "field: value" lines, the format the
// prompt framework expects back from a model.
type Rule struct {
	Match  string
	Fields map[string]string
}

// Scripted is a deterministic ModelBackend double. It replaces the hard-coded
// literals the demos would otherwise bury inside stage logic: stages stay
// honest modules, the canned data lives behind the backend port.
type Scripted struct {
	mu    sync.Mutex
	rules []Rule
	calls []string
}

// NewScripted creates a scripted backend from matching rules. Rules are
// evaluated in order; the first whose Match is a substring of the prompt wins.
func NewScripted(rules ...Rule) *Scripted {
	return &Scripted{rules: rules}
}

// Chat implements ports.ModelBackend
func (s *Scripted) Chat(ctx context.Context, messages []ports.Message) (*ports.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt := ""
	for _, m := range messages {
		prompt += m.Content + "\n"
	}

	s.mu.Lock()
	s.calls = append(s.calls, prompt)
	rules := s.rules
	s.mu.Unlock()

	for _, rule := range rules {
		if rule.Match != "" && strings.Contains(prompt, rule.Match) {
			return &ports.Reply{Content: renderFields(rule.Fields)}, nil
		}
	}

	return &ports.Reply{Content: "completion: (no scripted response matched)"}, nil
}

// Model implements ports.ModelBackend
func (s *Scripted) Model() string {
	return "scripted"
}

// Calls returns the prompts seen so far, for test assertions.
func (s *Scripted) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func renderFields(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(fields[name])
		b.WriteString("\n")
	}
	return b.String()
}
