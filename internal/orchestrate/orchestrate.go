// Package orchestrate wires the validate/fetch/qualify/align/render/concat/
// upload stages into one pipeline.Pipeline and exposes the result as a
// single Assembler, the unit httpapi.CreateVideo hands a job off to.
// Grounded on the teacher's worker.Worker (internal/worker/worker.go), which
// pulls a job, runs its stages in order against a shared tempDir, and
// records status/error/output back to the job store — generalized here from
// the teacher's single Redis-polling loop into a pipeline.Pipeline-driven
// stage table. Assemble enqueues the job for the Redis-polling workers
// started by StartWorkers, or, with no queue configured, runs the pipeline
// on a detached goroutine.
package orchestrate

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kira7dn/videoassembly/internal/jobstore"
	"github.com/kira7dn/videoassembly/internal/pipeline"
	"github.com/kira7dn/videoassembly/internal/queue"
	"github.com/kira7dn/videoassembly/internal/specmodel"
	"github.com/kira7dn/videoassembly/internal/tempdir"
	"github.com/kira7dn/videoassembly/internal/upload"
)

// Validator checks and best-effort normalizes the raw specification document.
type Validator interface {
	Validate(ctx context.Context, doc map[string]any) (map[string]any, error)
}

// AssetFetcher downloads every URL a specification references.
type AssetFetcher interface {
	FetchAll(ctx context.Context, spec *specmodel.Specification, tempDir string) ([]specmodel.SegmentAssets, *specmodel.AssetRecord, error)
}

// ImageQualifier substitutes any under-resolution image asset.
type ImageQualifier interface {
	Qualify(ctx context.Context, segments []specmodel.Segment, assets []specmodel.SegmentAssets, tempDir string) ([]specmodel.SegmentAssets, error)
}

// TranscriptAligner produces a segment's text_over subtitles.
type TranscriptAligner interface {
	AlignSegment(ctx context.Context, segmentID, audioPath, content string) ([]specmodel.Subtitle, error)
}

// SegmentRenderer renders every segment's clip.
type SegmentRenderer interface {
	RenderAll(ctx context.Context, segments []specmodel.Segment, assets []specmodel.SegmentAssets, tempDir string) ([]specmodel.RenderedClip, error)
}

// Concatenator joins rendered clips and mixes in background music.
type Concatenator interface {
	Assemble(ctx context.Context, clips []specmodel.RenderedClip, music *specmodel.AssetRecord, outPath string) (string, error)
}

// ConcatenatorFactory builds a Concatenator scoped to one job's tempDir,
// since the concat list file and intermediate files live there.
type ConcatenatorFactory func(tempDir string) Concatenator

// JobGauge tracks the number of jobs currently running, independent of the
// per-stage pipeline.MetricsSink observations.
type JobGauge interface {
	JobStarted()
	JobFinished()
}

// JobQueue decouples job submission from pipeline execution; satisfied by
// *queue.Queue. A nil JobQueue makes Assemble run the pipeline inline
// instead of queuing it, for development without a Redis instance.
type JobQueue interface {
	Enqueue(ctx context.Context, job queue.Job) error
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
}

// Assembler owns every stage collaborator and the job bookkeeping around a
// single pipeline run. It satisfies httpapi.Assembler.
type Assembler struct {
	validator     Validator
	fetcher       AssetFetcher
	qualifier     ImageQualifier
	aligner       TranscriptAligner
	renderer      SegmentRenderer
	concatFactory ConcatenatorFactory
	uploader      upload.Uploader
	jobs          jobstore.JobStore
	tempDirs      *tempdir.Manager
	metrics       pipeline.MetricsSink
	jobGauge      JobGauge
	queue         JobQueue
}

// NewAssembler builds an Assembler from its stage collaborators. metrics,
// jobGauge, and jobQueue may all be nil: observations and the in-flight
// gauge are simply skipped, and a nil queue makes every job run inline.
func NewAssembler(
	validator Validator,
	fetcher AssetFetcher,
	qualifier ImageQualifier,
	aligner TranscriptAligner,
	renderer SegmentRenderer,
	concatFactory ConcatenatorFactory,
	uploader upload.Uploader,
	jobs jobstore.JobStore,
	tempDirs *tempdir.Manager,
	metrics pipeline.MetricsSink,
	jobGauge JobGauge,
	jobQueue JobQueue,
) *Assembler {
	return &Assembler{
		validator:     validator,
		fetcher:       fetcher,
		qualifier:     qualifier,
		aligner:       aligner,
		renderer:      renderer,
		concatFactory: concatFactory,
		uploader:      uploader,
		jobs:          jobs,
		tempDirs:      tempDirs,
		metrics:       metrics,
		jobGauge:      jobGauge,
		queue:         jobQueue,
	}
}

// Assemble hands jobID/specDoc off for pipeline execution: onto the job
// queue when one is configured, or inline on a detached goroutine
// otherwise. It satisfies httpapi.Assembler and never returns an error
// directly — every outcome is recorded onto the job record.
func (a *Assembler) Assemble(ctx context.Context, jobID string, specDoc map[string]any) {
	if a.queue == nil {
		go a.runPipeline(context.Background(), jobID, specDoc)
		return
	}
	if err := a.queue.Enqueue(ctx, queue.Job{JobID: jobID, SpecDoc: specDoc}); err != nil {
		a.fail(ctx, jobID, fmt.Errorf("enqueuing job: %w", err))
	}
}

// StartWorkers runs concurrency worker goroutines, each polling the job
// queue and running jobs inline, until ctx is canceled. It is a no-op when
// no queue was configured. Grounded on the teacher's worker.Worker.Start,
// which spins up a fixed goroutine pool polling Redis with BLPop.
func (a *Assembler) StartWorkers(ctx context.Context, concurrency int) {
	if a.queue == nil {
		return
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.pollLoop(ctx)
		}()
	}
	wg.Wait()
}

func (a *Assembler) pollLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := a.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[orchestrate] dequeue failed: %v", err)
			continue
		}
		if job == nil {
			continue
		}
		a.runPipeline(ctx, job.JobID, job.SpecDoc)
	}
}

// runPipeline executes the full stage table for jobID against specDoc,
// recording status transitions into the job store as it goes.
func (a *Assembler) runPipeline(ctx context.Context, jobID string, specDoc map[string]any) {
	if a.jobGauge != nil {
		a.jobGauge.JobStarted()
		defer a.jobGauge.JobFinished()
	}

	if err := a.jobs.UpdateStatus(ctx, jobID, jobstore.StatusRunning); err != nil {
		log.Printf("[orchestrate] job %s: recording running status: %v", jobID, err)
	}

	tempDir, err := a.tempDirs.Allocate()
	if err != nil {
		a.fail(ctx, jobID, fmt.Errorf("allocating scratch directory: %w", err))
		return
	}
	defer a.tempDirs.Release(tempDir)

	pc := pipeline.NewContext(tempDir, jobID)
	pc.Set(keyRawSpecDoc, specDoc)

	destName := jobID + ".mp4"
	pl := a.buildPipeline(tempDir, destName)

	report, err := pl.Run(ctx, pc)
	if err != nil {
		a.fail(ctx, jobID, err)
		return
	}
	if !report.Success {
		a.fail(ctx, jobID, fmt.Errorf("pipeline reported failure with no error"))
		return
	}

	outputURLVal, _ := pc.Get(keyOutputURL)
	outputURL, _ := outputURLVal.(string)

	if err := a.jobs.UpdateOutput(ctx, jobID, outputURL); err != nil {
		log.Printf("[orchestrate] job %s: recording output url: %v", jobID, err)
	}
	if err := a.jobs.UpdateStatus(ctx, jobID, jobstore.StatusSucceeded); err != nil {
		log.Printf("[orchestrate] job %s: recording succeeded status: %v", jobID, err)
	}
}

func (a *Assembler) fail(ctx context.Context, jobID string, cause error) {
	log.Printf("[orchestrate] job %s failed: %v", jobID, cause)
	if err := a.jobs.UpdateError(ctx, jobID, cause.Error()); err != nil {
		log.Printf("[orchestrate] job %s: recording error: %v", jobID, err)
	}
	if err := a.jobs.UpdateStatus(ctx, jobID, jobstore.StatusFailed); err != nil {
		log.Printf("[orchestrate] job %s: recording failed status: %v", jobID, err)
	}
}
