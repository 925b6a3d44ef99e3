package pipeline

import "context"

// Status is a stage's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Stage is one unit of the pipeline: a name, its declared inputs, and the
// key under which it writes its output. Two constructors below build the
// only two shapes of stage body the runtime knows about; there is no base
// class and no dotted-string lookup — the stage table in Pipeline is wired
// explicitly in code.
type Stage struct {
	name           string
	requiredInputs []string
	outputKey      string
	skippable      func(*Context) bool
	run            func(ctx context.Context, pc *Context) (any, error)
}

func (s *Stage) Name() string             { return s.name }
func (s *Stage) RequiredInputs() []string { return s.requiredInputs }
func (s *Stage) OutputKey() string        { return s.outputKey }

// ProcessorFunc receives only the value read from inputKey.
type ProcessorFunc func(ctx context.Context, input any) (any, error)

// FunctionFunc receives the whole pipeline context.
type FunctionFunc func(ctx context.Context, pc *Context) (any, error)

// NewProcessorStage builds a stage whose body is a processor: it reads a
// single input value at inputKey and is blind to the rest of the context.
func NewProcessorStage(name, inputKey, outputKey string, requiredInputs []string, fn ProcessorFunc) *Stage {
	return &Stage{
		name:           name,
		requiredInputs: requiredInputs,
		outputKey:      outputKey,
		run: func(ctx context.Context, pc *Context) (any, error) {
			input, _ := pc.Get(inputKey)
			return fn(ctx, input)
		},
	}
}

// NewFunctionStage builds a stage whose body receives the whole context,
// for stages that need more than one input key or none at all.
func NewFunctionStage(name, outputKey string, requiredInputs []string, fn FunctionFunc) *Stage {
	return &Stage{
		name:           name,
		requiredInputs: requiredInputs,
		outputKey:      outputKey,
		run:            fn,
	}
}

// Skippable marks the stage as skippable when pred returns true; a skipped
// stage leaves the context unchanged.
func (s *Stage) Skippable(pred func(*Context) bool) *Stage {
	s.skippable = pred
	return s
}
