package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/loomery/loom/internal/adapters/metrics"
	"github.com/loomery/loom/internal/adapters/retry"
	"github.com/loomery/loom/internal/adapters/tracing"
	"github.com/loomery/loom/internal/executor"
	"github.com/loomery/loom/internal/llm"
	"github.com/loomery/loom/internal/pipeline"
	"github.com/loomery/loom/internal/pipelines"
	"github.com/loomery/loom/internal/prompt"
)

// runCmd executes one bundled pipeline over a single input
func runCmd() *cobra.Command {
	var (
		inputText string
		inputFile string
		mock      bool
		policyStr string
		timeout   time.Duration
		format    string
	)

	cmd := &cobra.Command{
		Use:   "run <pipeline>",
		Short: "Run a bundled pipeline over an input",
		Long: `Run a bundled pipeline over an input read from --input, --file or stdin.

Examples:
  loom run email --file complaint.txt
  cat main.go | loom run code
  loom run classify --input "Q3 revenue grew 15%" --format json
  loom run email --mock --input "my order crashed"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, ok := pipelines.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown pipeline %q, see 'loom list'", args[0])
			}

			text, err := readInput(inputText, inputFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			if mock {
				prompt.Register(llm.NewScripted(mockRules()...))
			} else {
				prompt.Register(backend)
			}

			if policyStr == "" {
				policyStr = cfg.Runner.DefaultPolicy
			}
			policy, err := pipeline.ParsePolicy(policyStr)
			if err != nil {
				return err
			}
			if timeout == 0 {
				timeout = cfg.Runner.StageTimeout
			}

			runner := pipeline.NewRunner(
				pipeline.WithPolicy(policy),
				pipeline.WithStageTimeout(timeout),
				pipeline.WithMaxConcurrentStages(cfg.Runner.MaxConcurrentStages),
				pipeline.WithExecutor(executor.New(executor.WithRetryPolicy(retry.Policy{
					InitialInterval: cfg.Runner.RetryInitialInterval,
					MaxInterval:     30 * time.Second,
					MaxRetries:      cfg.Runner.RetryMaxAttempts,
					Multiplier:      2.0,
				}))),
				pipeline.WithRunTracer(tracing.NewModuleTracer("loom")),
			)

			res, err := runner.Run(cmd.Context(), entry.Build(moduleHooks(entry.Name)...), entry.Inputs(text))
			if err != nil {
				return err
			}

			if !res.Succeeded() {
				fmt.Fprint(cmd.ErrOrStderr(), res.FailureReport())
				return fmt.Errorf("run %s %s", res.RunID, res.Status)
			}

			return writeResult(cmd.OutOrStdout(), res, format)
		},
	}

	cmd.Flags().StringVarP(&inputText, "input", "i", "", "input text")
	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "read input from a file")
	cmd.Flags().BoolVar(&mock, "mock", false, "use the scripted backend instead of a live model")
	cmd.Flags().StringVar(&policyStr, "policy", "", "failure policy: abort or best-effort (default from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-stage timeout (default from config)")
	cmd.Flags().StringVarP(&format, "format", "o", "text", "output format: text, json or msgpack")

	return cmd
}

// moduleHooks attaches tracing and invocation metrics to every model-backed
// module in the pipeline
func moduleHooks(pipelineName string) []prompt.Option {
	return []prompt.Option{
		prompt.WithTracer(tracing.NewModuleTracer("loom")),
		prompt.WithMetrics(metrics.NewModuleCollector(pipelineName)),
	}
}

// readInput resolves the input text: flag, file, or stdin in that order
func readInput(text, file string, stdin io.Reader) (string, error) {
	switch {
	case text != "" && file != "":
		return "", fmt.Errorf("--input and --file are mutually exclusive")
	case text != "":
		return text, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if len(data) == 0 {
			return "", fmt.Errorf("no input: pass --input, --file or pipe text on stdin")
		}
		return string(data), nil
	}
}

// resultEnvelope is the machine-readable run summary for json and msgpack
type resultEnvelope struct {
	RunID    string  `json:"run_id" msgpack:"run_id"`
	Pipeline string  `json:"pipeline" msgpack:"pipeline"`
	Status   string  `json:"status" msgpack:"status"`
	Seconds  float64 `json:"duration_seconds" msgpack:"duration_seconds"`
	Output   any     `json:"output" msgpack:"output"`
}

func writeResult(w io.Writer, res *pipeline.RunResult, format string) error {
	switch format {
	case "text":
		fmt.Fprintf(w, "run %s succeeded in %s\n\n", res.RunID, res.Duration.Round(time.Millisecond))
		data, err := json.MarshalIndent(res.Output, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(envelope(res))
	case "msgpack":
		return msgpack.NewEncoder(w).Encode(envelope(res))
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func envelope(res *pipeline.RunResult) resultEnvelope {
	return resultEnvelope{
		RunID:    res.RunID,
		Pipeline: res.Pipeline,
		Status:   string(res.Status),
		Seconds:  res.Duration.Seconds(),
		Output:   res.Output,
	}
}

// mockRules answers every bundled pipeline's stages deterministically. Rules
// are matched against the rendered prompt in order, so fields that also
// appear as inputs elsewhere (summary, priority) come last.
func mockRules() []llm.Rule {
	return []llm.Rule{
		{Match: "response", Fields: map[string]string{
			"response": "We are sorry for the trouble and have issued a full refund.",
		}},
		{Match: "priority", Fields: map[string]string{
			"priority": "high",
		}},
		{Match: "entities", Fields: map[string]string{
			"entities": "customer, premium software, refund",
		}},
		{Match: "sentiment", Fields: map[string]string{
			"sentiment": "negative",
		}},
		{Match: "suggestions", Fields: map[string]string{
			"suggestions": "Guard against empty input before dividing.",
		}},
		{Match: "tests", Fields: map[string]string{
			"tests": "TestAverageEmpty, TestAverageSingle, TestAverageMany",
		}},
		{Match: "issues", Fields: map[string]string{
			"rationale": "The divisor is the input length, which can be zero.",
			"issues":    "Division by zero when the input is empty.",
		}},
		{Match: "description", Fields: map[string]string{
			"description": "Computes the arithmetic mean of a list of numbers.",
		}},
		{Match: "category", Fields: map[string]string{
			"category":         "technical",
			"confidence_score": "92%",
		}},
		{Match: "summary", Fields: map[string]string{
			"summary": "A customer reports crashes and asks for a refund.",
		}},
	}
}
