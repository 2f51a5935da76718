package metrics

// ModuleCollector implements prompt.MetricsCollector, counting individual
// module invocations. Retries show up here as extra invocations while the
// stage metrics count each stage once.
type ModuleCollector struct {
	pipeline string
}

// NewModuleCollector creates a collector labeled with the pipeline name
func NewModuleCollector(pipeline string) *ModuleCollector {
	return &ModuleCollector{pipeline: pipeline}
}

// RecordInvocation implements prompt.MetricsCollector
func (c *ModuleCollector) RecordInvocation(module string, inputs, outputs map[string]any, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ModuleInvocationsTotal.WithLabelValues(c.pipeline, module, status).Inc()
}
