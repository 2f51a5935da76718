// Package prompt provides Loom's declarative module layer on top of dspy-go.
//
// A Signature declares a module's typed input and output fields:
//
//	sig := prompt.MustParseSignature("document -> summary: str, word_count: int")
//	sig := prompt.Summarize // predefined
//
// Modules are a closed set of variants behind one capability:
//
//	predict := prompt.NewPredict(sig,
//	    prompt.WithTracer(tracer),
//	    prompt.WithMetrics(collector))
//	outputs, err := predict.Invoke(ctx, inputs)
//
// Predict and ChainOfThought delegate prompt compilation and parsing to
// dspy-go; Transform is a pure-Go variant for deterministic post-processing.
//
// The model backend is bridged into dspy-go once at startup:
//
//	prompt.Register(backend) // backend implements ports.ModelBackend
//
// Contract checks live on the signature: ValidateInputs rejects a call with
// a missing declared input, CoerceOutputs rejects results that omit declared
// outputs (contract violation) or carry values the declared kind cannot hold
// (validation failure). The executor package applies both around every
// invocation.
package prompt
