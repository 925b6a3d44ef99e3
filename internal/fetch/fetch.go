// Package fetch implements the bounded-concurrency asset downloader: given a
// validated specification, it downloads every referenced URL into the job's
// temp directory and returns per-segment asset records index-aligned with
// the input segments.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"
	"github.com/kira7dn/videoassembly/internal/pipeline"
	"github.com/kira7dn/videoassembly/internal/specmodel"
)

// Fetcher downloads assets under a semaphore-bounded worker pool, exactly
// the shape the pipeline runtime's renderer and worker use elsewhere for
// fan-out: a buffered channel of width N acting as an admission gate.
type Fetcher struct {
	client      *http.Client
	concurrency int
	timeout     time.Duration
}

// New builds a Fetcher. concurrency <= 0 defaults to 10; timeout <= 0
// defaults to 300s, matching the documented per-download default.
func New(concurrency int, timeout time.Duration) *Fetcher {
	if concurrency <= 0 {
		concurrency = 10
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Fetcher{
		client:      &http.Client{},
		concurrency: concurrency,
		timeout:     timeout,
	}
}

type task struct {
	segmentIdx int
	kind       specmodel.AssetKind
	url        string
	startDelay float64
}

// FetchAll downloads every per-segment asset URL plus the optional global
// background-music URL, all under a single semaphore of width f.concurrency.
// A single download failure fails the whole call; partial results are
// discarded per the documented all-or-nothing contract.
func (f *Fetcher) FetchAll(ctx context.Context, spec *specmodel.Specification, tempDir string) ([]specmodel.SegmentAssets, *specmodel.AssetRecord, error) {
	results := make([]specmodel.SegmentAssets, len(spec.Segments))
	for i, seg := range spec.Segments {
		results[i].SegmentID = seg.ID
	}

	var tasks []task
	for i, seg := range spec.Segments {
		if seg.Image != nil && seg.Image.URL != "" {
			tasks = append(tasks, task{segmentIdx: i, kind: specmodel.AssetImage, url: seg.Image.URL})
		}
		if seg.Video != nil && seg.Video.URL != "" {
			tasks = append(tasks, task{segmentIdx: i, kind: specmodel.AssetVideo, url: seg.Video.URL})
		}
		if seg.VoiceOver != nil && seg.VoiceOver.URL != "" {
			tasks = append(tasks, task{segmentIdx: i, kind: specmodel.AssetVoiceOver, url: seg.VoiceOver.URL})
		}
	}

	var globalMusic *specmodel.AssetRecord
	globalMusicIdx := -1
	if spec.BackgroundMusic != nil && spec.BackgroundMusic.URL != "" {
		globalMusicIdx = len(tasks)
		tasks = append(tasks, task{
			segmentIdx: -1,
			kind:       specmodel.AssetBackgroundMusic,
			url:        spec.BackgroundMusic.URL,
			startDelay: spec.BackgroundMusic.StartDelay,
		})
	}

	sem := make(chan struct{}, f.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	records := make([]*specmodel.AssetRecord, len(tasks))

	for idx, t := range tasks {
		idx, t := idx, t
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			dest, err := f.destinationPath(tempDir, t.url)
			if err != nil {
				return &pipeline.DownloadError{Kind: string(t.kind), URL: t.url, Err: err}
			}

			dlCtx, cancel := context.WithTimeout(gctx, f.timeout)
			defer cancel()

			if err := f.download(dlCtx, t.url, dest); err != nil {
				return &pipeline.DownloadError{Kind: string(t.kind), URL: t.url, Err: err}
			}

			records[idx] = &specmodel.AssetRecord{URL: t.url, LocalPath: dest, Kind: t.kind, StartDelay: t.startDelay}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for idx, t := range tasks {
		rec := records[idx]
		if t.kind == specmodel.AssetBackgroundMusic && idx == globalMusicIdx {
			globalMusic = rec
			continue
		}
		switch t.kind {
		case specmodel.AssetImage:
			results[t.segmentIdx].Image = rec
		case specmodel.AssetVideo:
			results[t.segmentIdx].Video = rec
		case specmodel.AssetVoiceOver:
			results[t.segmentIdx].VoiceOver = rec
		}
	}

	return results, globalMusic, nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating destination %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("writing destination %s: %w", dest, err)
	}
	return nil
}

// destinationPath builds a unique filename under tempDir carrying the URL's
// extension, falling back to .tmp when none is present.
func (f *Fetcher) destinationPath(tempDir, url string) (string, error) {
	ext := filepath.Ext(strings.SplitN(filepath.Base(url), "?", 2)[0])
	if ext == "" {
		ext = ".tmp"
	}
	return filepath.Join(tempDir, uuid.NewString()+ext), nil
}
