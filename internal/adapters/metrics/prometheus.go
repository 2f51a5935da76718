package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_runs_total",
		Help: "Total pipeline runs by pipeline and terminal status",
	}, []string{"pipeline", "status"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loom_run_duration_seconds",
		Help:    "Wall-clock duration of a pipeline run",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"pipeline"})

	StagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_stages_total",
		Help: "Total stage executions by pipeline, stage and terminal status",
	}, []string{"pipeline", "stage", "status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loom_stage_duration_seconds",
		Help:    "Duration of a single stage execution",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"pipeline", "stage"})

	ModuleInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_module_invocations_total",
		Help: "Model-backed module invocations by pipeline, module and outcome",
	}, []string{"pipeline", "module", "status"})

	StageRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_stage_retries_total",
		Help: "Retries performed around execution failures",
	}, []string{"pipeline", "stage"})

	BackendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_backend_requests_total",
		Help: "Model backend requests by model and status",
	}, []string{"model", "status"})

	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loom_backend_request_duration_seconds",
		Help:    "Model backend request duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"model"})
)
