package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	observations []string
}

func (r *recordingSink) Observe(stage string, success bool, dur time.Duration, items int, err error) {
	r.observations = append(r.observations, stage)
}

func TestPipelineRunsStagesInOrderAndWritesOutputs(t *testing.T) {
	pc := NewContext(t.TempDir(), "job-1")
	pc.Set("input", 2)

	sink := &recordingSink{}
	p := New(sink,
		NewProcessorStage("double", "input", "doubled", []string{"input"}, func(_ context.Context, v any) (any, error) {
			return v.(int) * 2, nil
		}),
		NewFunctionStage("sum", "total", []string{"doubled"}, func(_ context.Context, pc *Context) (any, error) {
			doubled, _ := pc.Get("doubled")
			return doubled.(int) + 1, nil
		}),
	)

	report, err := p.Run(context.Background(), pc)
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Len(t, report.Stages, 2)

	total, ok := pc.Get("total")
	require.True(t, ok)
	assert.Equal(t, 5, total)
	assert.Equal(t, []string{"double", "sum"}, sink.observations)
}

func TestPipelineFailsFastOnMissingRequiredInput(t *testing.T) {
	pc := NewContext(t.TempDir(), "job-2")
	p := New(nil, NewProcessorStage("needs-x", "x", "y", []string{"x"}, func(_ context.Context, v any) (any, error) {
		return v, nil
	}))

	report, err := p.Run(context.Background(), pc)
	require.Error(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, StatusFailed, report.Stages[0].Status)

	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "needs-x", procErr.Stage)
}

func TestPipelineAbortsRemainingStagesOnFailure(t *testing.T) {
	pc := NewContext(t.TempDir(), "job-3")
	ran := false
	p := New(nil,
		NewFunctionStage("boom", "out1", nil, func(context.Context, *Context) (any, error) {
			return nil, errors.New("kaboom")
		}),
		NewFunctionStage("never", "out2", nil, func(context.Context, *Context) (any, error) {
			ran = true
			return nil, nil
		}),
	)

	report, err := p.Run(context.Background(), pc)
	require.Error(t, err)
	assert.False(t, report.Success)
	assert.Len(t, report.Stages, 1)
	assert.False(t, ran)
}

func TestPipelineSkippableStageLeavesContextUnchanged(t *testing.T) {
	pc := NewContext(t.TempDir(), "job-4")
	pc.Set("flag", true)

	p := New(nil, NewFunctionStage("maybe", "out", nil, func(context.Context, *Context) (any, error) {
		return "should not run", nil
	}).Skippable(func(pc *Context) bool {
		v, _ := pc.Get("flag")
		return v == true
	}))

	report, err := p.Run(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, report.Stages[0].Status)
	assert.False(t, pc.Has("out"))
}
