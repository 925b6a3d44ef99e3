// Package render builds one MP4 clip per enriched segment: it determines
// video-mode vs image-mode, composes the audio track, builds the filter
// graph for scaling, transitions, and subtitle overlay, and invokes the
// external media toolchain. Grounded on the teacher's FFmpegService
// (exec.CommandContext filter-string construction), generalized from
// Ken-Burns-only rendering to the full transition/overlay pipeline.
package render

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kira7dn/videoassembly/internal/ffprobe"
	"github.com/kira7dn/videoassembly/internal/pipeline"
	"github.com/kira7dn/videoassembly/internal/specmodel"
	"github.com/kira7dn/videoassembly/internal/toolchain"
)

// Resolution is the configured output frame size and rate.
type Resolution struct {
	Width, Height, FPS int
}

// DefaultResolution matches a common 9:16 short-form output.
var DefaultResolution = Resolution{Width: 1080, Height: 1920, FPS: 30}

// Options bundles every tunable the renderer needs, normally populated from
// configuration.
type Options struct {
	Resolution        Resolution
	Style             TextStyle
	Loudness          LoudnessTarget
	SilentClipSeconds float64 // default duration for a segment with neither voice-over nor transitions
	SmartPadding      bool
	AutoEnhance       bool
	MaxConcurrent     int
}

// DefaultOptions mirrors the documented defaults.
func DefaultOptions() Options {
	return Options{
		Resolution: DefaultResolution,
		Style: TextStyle{
			FontFile:     "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
			FontSize:     48,
			FontColor:    "white",
			BoxColor:     "black@0.5",
			MarginBottom: 160,
		},
		Loudness:          DefaultLoudnessTarget,
		SilentClipSeconds: 4.0,
		SmartPadding:       true,
		AutoEnhance:        true,
		MaxConcurrent:      1,
	}
}

// Renderer produces per-segment clips under a bounded semaphore.
type Renderer struct {
	opts Options
	sem  chan struct{}
}

// New builds a Renderer with opts; MaxConcurrent <= 0 defaults to 1 (the
// documented default — rendering is CPU-heavy).
func New(opts Options) *Renderer {
	n := opts.MaxConcurrent
	if n <= 0 {
		n = 1
	}
	return &Renderer{opts: opts, sem: make(chan struct{}, n)}
}

// RenderAll renders every segment's clip, bounded by the renderer's
// semaphore, and returns RenderedClip records in input order.
func (r *Renderer) RenderAll(ctx context.Context, segments []specmodel.Segment, assets []specmodel.SegmentAssets, tempDir string) ([]specmodel.RenderedClip, error) {
	clips := make([]specmodel.RenderedClip, len(segments))

	for i := range segments {
		select {
		case r.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		path, err := r.renderSegment(ctx, segments[i], assets[i], tempDir)
		<-r.sem
		if err != nil {
			return nil, err
		}
		clips[i] = specmodel.RenderedClip{ID: segments[i].ID, Path: path}
	}

	return clips, nil
}

func (r *Renderer) renderSegment(ctx context.Context, seg specmodel.Segment, asset specmodel.SegmentAssets, tempDir string) (string, error) {
	outPath := filepath.Join(tempDir, seg.ID+"_clip.mp4")

	if asset.Video != nil && asset.Video.LocalPath != "" {
		return outPath, r.renderVideoMode(ctx, seg, asset, outPath)
	}
	return outPath, r.renderImageMode(ctx, seg, asset, tempDir, outPath)
}

// renderVideoMode probes the source clip's own duration and applies
// transitions/subtitles without touching the audio composition path.
func (r *Renderer) renderVideoMode(ctx context.Context, seg specmodel.Segment, asset specmodel.SegmentAssets, outPath string) error {
	totalDuration, err := ffprobe.Duration(ctx, asset.Video.LocalPath)
	if err != nil {
		return &pipeline.ProcessingError{Stage: "segment_renderer", Err: fmt.Errorf("segment %q: probing video duration: %w", seg.ID, err)}
	}

	vf, af := r.buildFilters(seg, totalDuration, 0)
	if vf != "" {
		vf = "scale=" + scaleExpr(r.opts.Resolution) + "," + vf
	} else {
		vf = "scale=" + scaleExpr(r.opts.Resolution)
	}

	args := []string{"-i", asset.Video.LocalPath, "-vf", vf}
	if af != "" {
		args = append(args, "-af", af)
	}
	args = append(args,
		"-r", fmt.Sprintf("%d", r.opts.Resolution.FPS),
		"-c:v", "libx264", "-c:a", "aac", "-b:a", "192k",
		"-pix_fmt", "yuv420p", "-y", outPath,
	)

	if _, err := toolchain.Run(ctx, "ffmpeg", args...); err != nil {
		return &pipeline.ProcessingError{Stage: "segment_renderer", Err: fmt.Errorf("segment %q: %w", seg.ID, err)}
	}
	return nil
}

// renderImageMode preprocesses the still image, composes (or synthesizes
// silent) audio, computes total duration from fades + audio length, and
// renders the final clip.
func (r *Renderer) renderImageMode(ctx context.Context, seg specmodel.Segment, asset specmodel.SegmentAssets, tempDir, outPath string) error {
	if asset.Image == nil {
		return &pipeline.ProcessingError{Stage: "segment_renderer", Err: fmt.Errorf("segment %q: no visual asset after qualification", seg.ID)}
	}

	fadeIn, fadeOut := transitionDurations(seg)

	var audioPath string
	var baseDuration float64
	var err error

	if asset.VoiceOver != nil && seg.VoiceOver != nil && seg.VoiceOver.Content != "" {
		audioPath, err = ComposeAudio(ctx, asset.VoiceOver.LocalPath, tempDir, seg.ID, seg.VoiceOver.StartDelay, seg.VoiceOver.EndDelay, r.opts.Loudness)
		if err != nil {
			return err
		}
		baseDuration, err = ffprobe.Duration(ctx, audioPath)
		if err != nil {
			return &pipeline.AudioProcessingError{SegmentID: seg.ID, Err: fmt.Errorf("probing composed audio duration: %w", err)}
		}
	} else {
		if fadeIn+fadeOut == 0 {
			baseDuration = r.opts.SilentClipSeconds
		}
		audioPath, err = SilentTrack(ctx, tempDir, seg.ID, fadeIn+baseDuration+fadeOut)
		if err != nil {
			return err
		}
	}

	totalDuration := fadeIn + baseDuration + fadeOut

	// Subtitle times are relative to the raw voice-over, which starts after
	// the fade-in and the voice-over's own start_delay.
	delay := fadeIn
	if seg.VoiceOver != nil {
		delay += seg.VoiceOver.StartDelay
	}
	vf, af := r.buildFilters(seg, totalDuration, delay)
	// Shift the audio past the fade-in and pad it to the full clip length,
	// so -t, not the audio's end, sets the clip duration.
	if fadeIn > 0 {
		ms := int(fadeIn * 1000)
		af = fmt.Sprintf("adelay=%d|%d,", ms, ms) + af
	}
	af += ",apad"

	preprocessedImage, err := preprocessImage(ctx, asset.Image.LocalPath, tempDir, seg.ID, r.opts)
	if err != nil {
		return &pipeline.ProcessingError{Stage: "segment_renderer", Err: fmt.Errorf("segment %q: %w", seg.ID, err)}
	}

	if vf != "" {
		vf = "scale=" + scaleExpr(r.opts.Resolution) + "," + vf
	} else {
		vf = "scale=" + scaleExpr(r.opts.Resolution)
	}

	args := []string{
		"-loop", "1", "-i", preprocessedImage,
		"-i", audioPath,
		"-vf", vf,
		"-t", fmt.Sprintf("%.3f", totalDuration),
	}
	if af != "" {
		args = append(args, "-af", af)
	}
	args = append(args,
		"-r", fmt.Sprintf("%d", r.opts.Resolution.FPS),
		"-c:v", "libx264", "-c:a", "aac", "-b:a", "192k",
		"-pix_fmt", "yuv420p", "-y", outPath,
	)

	if _, err := toolchain.Run(ctx, "ffmpeg", args...); err != nil {
		return &pipeline.ProcessingError{Stage: "segment_renderer", Err: fmt.Errorf("segment %q: %w", seg.ID, err)}
	}
	return nil
}

func scaleExpr(res Resolution) string {
	return fmt.Sprintf("%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2", res.Width, res.Height, res.Width, res.Height)
}

func transitionDurations(seg specmodel.Segment) (fadeIn, fadeOut float64) {
	if seg.TransitionIn != nil && seg.TransitionIn.Type != specmodel.TransitionCut {
		fadeIn = seg.TransitionIn.Duration
	}
	if seg.TransitionOut != nil && seg.TransitionOut.Type != specmodel.TransitionCut {
		fadeOut = seg.TransitionOut.Duration
	}
	return
}

// buildFilters composes the video/audio filter chains: scale/format
// normalization is applied by the caller; here we add fades and the
// subtitle overlay on top.
func (r *Renderer) buildFilters(seg specmodel.Segment, totalDuration, delay float64) (vf, af string) {
	var vClauses []string
	var aClauses []string

	if f, _ := videoFadeFilter("in", seg.TransitionIn, 0); f != "" {
		vClauses = append(vClauses, f)
	}
	if _, d := videoFadeFilter("out", seg.TransitionOut, 0); d > 0 {
		outFilter, _ := videoFadeFilter("out", seg.TransitionOut, totalDuration-d)
		vClauses = append(vClauses, outFilter)
	}
	if f, _ := audioFadeFilter("in", seg.TransitionIn, 0); f != "" {
		aClauses = append(aClauses, f)
	}
	if _, d := audioFadeFilter("out", seg.TransitionOut, 0); d > 0 {
		outFilter, _ := audioFadeFilter("out", seg.TransitionOut, totalDuration-d)
		aClauses = append(aClauses, outFilter)
	}
	aClauses = append(aClauses, "volume=1.5")

	if chain := buildDrawtextChain(seg.TextOver, delay, r.opts.Style); chain != "" {
		vClauses = append(vClauses, chain)
	}

	vf = joinFilters(vClauses)
	af = joinFilters(aClauses)
	return
}
