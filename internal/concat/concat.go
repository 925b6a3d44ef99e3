// Package concat joins the rendered per-segment clips into one final video
// and mixes in background music with auto-gain-matching. Grounded on the
// teacher's FFmpegService.ConcatenateClips (concat-demuxer list file) and
// MixBackgroundMusic (filter_complex amix), generalized to compute the
// music volume from measured mean loudness instead of a fixed 0.12.
package concat

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/kira7dn/videoassembly/internal/ffprobe"
	"github.com/kira7dn/videoassembly/internal/pipeline"
	"github.com/kira7dn/videoassembly/internal/specmodel"
	"github.com/kira7dn/videoassembly/internal/toolchain"
)

// defaultMusicGain is used when mean-volume probing fails for either stream.
const defaultMusicGain = 0.2

const (
	minMusicGain = 0.1
	maxMusicGain = 0.5
)

// Concatenator joins rendered clips and mixes optional background music.
type Concatenator struct {
	tempDir string
}

// New builds a Concatenator rooted at tempDir, used to stage the concat
// list file.
func New(tempDir string) *Concatenator {
	return &Concatenator{tempDir: tempDir}
}

// Assemble concatenates clips in order and, when music is non-nil, mixes in
// background music with its volume auto-gain-matched to the first clip's
// narration loudness. Returns the path to the final video.
func (c *Concatenator) Assemble(ctx context.Context, clips []specmodel.RenderedClip, music *specmodel.AssetRecord, outPath string) (string, error) {
	if len(clips) == 0 {
		return "", &pipeline.ProcessingError{Stage: "concatenator", Err: fmt.Errorf("no clips to concatenate")}
	}
	for _, clip := range clips {
		if !fileExistsNonEmpty(clip.Path) {
			return "", &pipeline.ProcessingError{Stage: "concatenator", Err: fmt.Errorf("clip %q missing or empty at %s", clip.ID, clip.Path)}
		}
	}

	concatenated := filepath.Join(c.tempDir, "concatenated.mp4")
	if err := c.concatenate(ctx, clips, concatenated); err != nil {
		return "", err
	}

	if music == nil || music.LocalPath == "" {
		if err := ensureOutputDir(outPath); err != nil {
			return "", &pipeline.ProcessingError{Stage: "concatenator", Err: err}
		}
		if err := copyFile(concatenated, outPath); err != nil {
			return "", &pipeline.ProcessingError{Stage: "concatenator", Err: err}
		}
		return outPath, nil
	}

	if err := c.mixBackgroundMusic(ctx, concatenated, clips[0].Path, music, outPath); err != nil {
		return "", err
	}

	if !fileExistsNonEmpty(outPath) {
		return "", &pipeline.ProcessingError{Stage: "concatenator", Err: fmt.Errorf("output video missing or empty at %s", outPath)}
	}
	return outPath, nil
}

// concatenate joins clips with the concat demuxer's stream-copy fast path —
// every clip was rendered to the same codec/resolution/fps, so no
// re-encoding is needed.
func (c *Concatenator) concatenate(ctx context.Context, clips []specmodel.RenderedClip, outPath string) error {
	listPath := filepath.Join(c.tempDir, "concat_list.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return &pipeline.ProcessingError{Stage: "concatenator", Err: fmt.Errorf("creating concat list: %w", err)}
	}
	for _, clip := range clips {
		if _, err := fmt.Fprintf(f, "file '%s'\n", clip.Path); err != nil {
			f.Close()
			return &pipeline.ProcessingError{Stage: "concatenator", Err: err}
		}
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{"-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", "-y", outPath}
	if _, err := toolchain.Run(ctx, "ffmpeg", args...); err != nil {
		return &pipeline.ProcessingError{Stage: "concatenator", Err: err}
	}
	return nil
}

// mixBackgroundMusic loops the music track under the concatenated video,
// auto-gain-matching its volume to the first clip's narration mean loudness
// (per-clip rather than the concatenated output) rather than the teacher's
// fixed 0.12, so quiet narration doesn't get drowned out and loud narration
// doesn't bury a quiet music bed. The music track is offset by its
// configured start_delay before mixing.
func (c *Concatenator) mixBackgroundMusic(ctx context.Context, videoPath, firstClipPath string, music *specmodel.AssetRecord, outPath string) error {
	gain := c.musicGain(ctx, firstClipPath, music.LocalPath)
	delayMs := int(math.Round(music.StartDelay * 1000))

	filterComplex := fmt.Sprintf(
		"[0:a]volume=1.0[narration];[1:a]volume=%.3f,adelay=%d|%d[music];[narration][music]amix=inputs=2:duration=first:dropout_transition=3[aout]",
		gain, delayMs, delayMs,
	)

	args := []string{
		"-i", videoPath,
		"-stream_loop", "-1",
		"-i", music.LocalPath,
		"-filter_complex", filterComplex,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-y", outPath,
	}
	if _, err := toolchain.Run(ctx, "ffmpeg", args...); err != nil {
		return &pipeline.ProcessingError{Stage: "concatenator", Err: err}
	}
	return nil
}

// musicGain derives a background-music volume multiplier from the ratio of
// the first clip's narration mean volume to the music's own mean volume,
// clamped to a sane audible band. Falls back to a conservative default if
// either probe fails.
func (c *Concatenator) musicGain(ctx context.Context, narrationPath, musicPath string) float64 {
	narrationMean, err := ffprobe.MeanVolume(ctx, func(ctx context.Context) (string, error) {
		return toolchain.RunCapturingStderr(ctx, "ffmpeg", "-i", narrationPath, "-af", "volumedetect", "-f", "null", "-")
	})
	if err != nil {
		return defaultMusicGain
	}
	musicMean, err := ffprobe.MeanVolume(ctx, func(ctx context.Context) (string, error) {
		return toolchain.RunCapturingStderr(ctx, "ffmpeg", "-i", musicPath, "-af", "volumedetect", "-f", "null", "-")
	})
	if err != nil {
		return defaultMusicGain
	}

	factor := dbRatioToLinear(narrationMean - musicMean)
	if factor < minMusicGain {
		factor = minMusicGain
	}
	if factor > maxMusicGain {
		factor = maxMusicGain
	}
	return factor
}

func dbRatioToLinear(diffDB float64) float64 {
	return math.Pow(10, diffDB/20)
}

func fileExistsNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func ensureOutputDir(outPath string) error {
	return os.MkdirAll(filepath.Dir(outPath), 0o755)
}

func copyFile(src, dst string) error {
	if err := ensureOutputDir(dst); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
