package pipelines

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/loomery/loom/internal/pipeline"
)

// RunAll executes one run per input set concurrently, building a fresh
// pipeline for each so concurrent runs never share module state. The slice
// of results is ordered like the inputs. A non-nil error means a run could
// not start at all; per-run failures are reported in each RunResult.
func RunAll(ctx context.Context, runner *pipeline.Runner, build func() *pipeline.Pipeline, inputSets []map[string]any, limit int) ([]*pipeline.RunResult, error) {
	results := make([]*pipeline.RunResult, len(inputSets))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, inputs := range inputSets {
		g.Go(func() error {
			res, err := runner.Run(ctx, build(), inputs)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SummarizeAll summarizes a batch of documents with bounded parallelism
func SummarizeAll(ctx context.Context, runner *pipeline.Runner, documents []string, limit int) ([]*pipeline.RunResult, error) {
	inputSets := make([]map[string]any, len(documents))
	for i, doc := range documents {
		inputSets[i] = DocumentInputs(doc)
	}
	return RunAll(ctx, runner, func() *pipeline.Pipeline { return Summarizer() }, inputSets, limit)
}
