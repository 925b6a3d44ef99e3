package pipeline

import (
	"context"
	"fmt"
	"time"
)

// StageSummary is one row of the runtime's final report.
type StageSummary struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Report is what Pipeline.Run returns once every stage has completed, been
// skipped, or one of them has failed.
type Report struct {
	Success  bool           `json:"success"`
	Duration time.Duration  `json:"duration"`
	Stages   []StageSummary `json:"stages"`
}

// ItemsCounter lets a stage body report how many items it processed, for
// the metrics sink's items_processed field. Stages that don't care return 0.
type ItemsCounter interface {
	ItemsProcessed() int
}

// Pipeline is a static, ordered list of stages run sequentially against a
// single job's Context. Parallelism, if any, lives inside a stage body.
type Pipeline struct {
	stages  []*Stage
	metrics MetricsSink
}

// New builds a pipeline over the given static stage table. Order matters:
// stages run in the order given, strictly sequentially.
func New(metrics MetricsSink, stages ...*Stage) *Pipeline {
	if metrics == nil {
		metrics = NoopMetricsSink{}
	}
	return &Pipeline{stages: stages, metrics: metrics}
}

// Run executes every stage in order against pc. On the first stage failure
// it aborts the remaining stages, returning a report marked unsuccessful and
// a wrapped, stage-named error.
func (p *Pipeline) Run(ctx context.Context, pc *Context) (*Report, error) {
	report := &Report{Success: true}
	start := time.Now()

	for _, stage := range p.stages {
		if stage.skippable != nil && stage.skippable(pc) {
			report.Stages = append(report.Stages, StageSummary{Name: stage.name, Status: StatusSkipped})
			continue
		}

		if missing := pc.MissingKeys(stage.requiredInputs); len(missing) > 0 {
			err := wrapStage(stage.name, fmt.Errorf("missing required inputs: %v", missing))
			report.Stages = append(report.Stages, StageSummary{Name: stage.name, Status: StatusFailed, Error: err.Error()})
			report.Success = false
			report.Duration = time.Since(start)
			p.metrics.Observe(stage.name, false, 0, 0, err)
			return report, err
		}

		stageStart := time.Now()
		output, err := stage.run(ctx, pc)
		dur := time.Since(stageStart)

		items := 0
		if counter, ok := output.(ItemsCounter); ok {
			items = counter.ItemsProcessed()
		}

		if err != nil {
			wrapped := wrapStage(stage.name, err)
			report.Stages = append(report.Stages, StageSummary{
				Name: stage.name, Status: StatusFailed, Duration: dur, Error: wrapped.Error(),
			})
			report.Success = false
			report.Duration = time.Since(start)
			p.metrics.Observe(stage.name, false, dur, items, err)
			return report, wrapped
		}

		pc.Set(stage.outputKey, output)
		report.Stages = append(report.Stages, StageSummary{Name: stage.name, Status: StatusCompleted, Duration: dur})
		p.metrics.Observe(stage.name, true, dur, items, nil)
	}

	report.Duration = time.Since(start)
	return report, nil
}
