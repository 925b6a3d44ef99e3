package orchestrate

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kira7dn/videoassembly/internal/jobstore"
	"github.com/kira7dn/videoassembly/internal/specmodel"
	"github.com/kira7dn/videoassembly/internal/tempdir"
)

type fakeValidator struct{}

func (fakeValidator) Validate(ctx context.Context, doc map[string]any) (map[string]any, error) {
	return doc, nil
}

type fakeFetcher struct {
	err error
}

func (f fakeFetcher) FetchAll(ctx context.Context, spec *specmodel.Specification, tempDir string) ([]specmodel.SegmentAssets, *specmodel.AssetRecord, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	out := make([]specmodel.SegmentAssets, len(spec.Segments))
	for i, seg := range spec.Segments {
		out[i] = specmodel.SegmentAssets{
			SegmentID: seg.ID,
			Image:     &specmodel.AssetRecord{URL: "http://example.com/img.jpg", LocalPath: "/tmp/img.jpg", Kind: specmodel.AssetImage},
		}
	}
	return out, nil, nil
}

type fakeQualifier struct{}

func (fakeQualifier) Qualify(ctx context.Context, segments []specmodel.Segment, assets []specmodel.SegmentAssets, tempDir string) ([]specmodel.SegmentAssets, error) {
	return assets, nil
}

type fakeAligner struct{}

func (fakeAligner) AlignSegment(ctx context.Context, segmentID, audioPath, content string) ([]specmodel.Subtitle, error) {
	return nil, nil
}

type fakeRenderer struct{}

func (fakeRenderer) RenderAll(ctx context.Context, segments []specmodel.Segment, assets []specmodel.SegmentAssets, tempDir string) ([]specmodel.RenderedClip, error) {
	clips := make([]specmodel.RenderedClip, len(segments))
	for i, seg := range segments {
		clips[i] = specmodel.RenderedClip{ID: seg.ID, Path: filepath.Join(tempDir, seg.ID+".mp4")}
	}
	return clips, nil
}

type fakeConcatenator struct{}

func (fakeConcatenator) Assemble(ctx context.Context, clips []specmodel.RenderedClip, music *specmodel.AssetRecord, outPath string) (string, error) {
	return outPath, nil
}

type fakeUploader struct{}

func (fakeUploader) Upload(ctx context.Context, localPath, destName string) (string, error) {
	return "https://cdn.example.com/" + destName, nil
}

func newTestAssembler(t *testing.T, fetchErr error) (*Assembler, jobstore.JobStore) {
	t.Helper()
	store, err := jobstore.NewFileStore(filepath.Join(t.TempDir(), "jobs.json"))
	require.NoError(t, err)

	tmp, err := tempdir.New(t.TempDir(), "job-")
	require.NoError(t, err)

	a := NewAssembler(
		fakeValidator{},
		fakeFetcher{err: fetchErr},
		fakeQualifier{},
		fakeAligner{},
		fakeRenderer{},
		func(tempDir string) Concatenator { return fakeConcatenator{} },
		fakeUploader{},
		store,
		tmp,
		nil,
		nil,
		nil,
	)
	return a, store
}

func waitForStatus(t *testing.T, store jobstore.JobStore, jobID string, want jobstore.Status) *jobstore.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), jobID)
		require.NoError(t, err)
		if job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestAssembleSucceedsAndRecordsOutputURL(t *testing.T) {
	a, store := newTestAssembler(t, nil)

	job := jobstore.NewJob()
	require.NoError(t, store.Create(context.Background(), job))

	specDoc := map[string]any{
		"title": "demo",
		"segments": []any{
			map[string]any{"id": "seg-1"},
		},
	}

	a.Assemble(context.Background(), job.ID, specDoc)

	got := waitForStatus(t, store, job.ID, jobstore.StatusSucceeded)
	require.NotNil(t, got.OutputURL)
	assert.Equal(t, "https://cdn.example.com/"+job.ID+".mp4", *got.OutputURL)
}

func TestAssembleRecordsFailureFromFetchStage(t *testing.T) {
	a, store := newTestAssembler(t, fmt.Errorf("network unreachable"))

	job := jobstore.NewJob()
	require.NoError(t, store.Create(context.Background(), job))

	specDoc := map[string]any{
		"title":    "demo",
		"segments": []any{map[string]any{"id": "seg-1"}},
	}

	a.Assemble(context.Background(), job.ID, specDoc)

	got := waitForStatus(t, store, job.ID, jobstore.StatusFailed)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "network unreachable")
}
