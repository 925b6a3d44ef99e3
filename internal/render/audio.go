package render

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/kira7dn/videoassembly/internal/pipeline"
	"github.com/kira7dn/videoassembly/internal/toolchain"
)

// LoudnessTarget bundles the two-pass loudnorm target values.
type LoudnessTarget struct {
	IntegratedLUFS float64
	TruePeakDBFS   float64
	LRA            float64
	GainMultiplier float64
}

// DefaultLoudnessTarget matches the documented example values: -8 LUFS
// integrated, -0.5 dBFS true peak, a fixed x2 gain boost after normalizing.
var DefaultLoudnessTarget = LoudnessTarget{IntegratedLUFS: -8, TruePeakDBFS: -0.5, LRA: 11, GainMultiplier: 2.0}

type loudnormMeasurement struct {
	InputI         string `json:"input_i"`
	InputTP        string `json:"input_tp"`
	InputLRA       string `json:"input_lra"`
	InputThresh    string `json:"input_thresh"`
	TargetOffset   string `json:"target_offset"`
}

var loudnormJSONPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ComposeAudio builds the image-mode audio track: optional leading silence,
// two-pass loudness normalization, a fixed gain boost, and optional trailing
// silence. It returns the path to the composed file; callers probe its
// duration separately.
func ComposeAudio(ctx context.Context, voiceOverPath, tempDir, segmentID string, startDelay, endDelay float64, target LoudnessTarget) (string, error) {
	measured, err := measureLoudness(ctx, voiceOverPath)
	if err != nil {
		return "", &pipeline.AudioProcessingError{SegmentID: segmentID, Err: fmt.Errorf("measuring loudness: %w", err)}
	}

	filters := []string{}
	if startDelay > 0 {
		ms := int(startDelay * 1000)
		filters = append(filters, fmt.Sprintf("adelay=%d|%d", ms, ms))
	}
	filters = append(filters, measured.applyFilter(target))
	filters = append(filters, fmt.Sprintf("volume=%.3f", target.GainMultiplier))
	if endDelay > 0 {
		filters = append(filters, fmt.Sprintf("apad=pad_dur=%.3f", endDelay))
	}

	outPath := filepath.Join(tempDir, segmentID+"_audio.wav")
	args := []string{"-i", voiceOverPath, "-af", joinFilters(filters), "-y", outPath}
	if _, err := toolchain.Run(ctx, "ffmpeg", args...); err != nil {
		return "", &pipeline.AudioProcessingError{SegmentID: segmentID, Err: err}
	}

	return outPath, nil
}

// measureLoudness runs the loudnorm filter's first (analysis) pass and
// parses its printed JSON measurement block.
func measureLoudness(ctx context.Context, path string) (*loudnormMeasurement, error) {
	args := []string{
		"-i", path,
		"-af", "loudnorm=I=-8:TP=-0.5:LRA=11:print_format=json",
		"-f", "null", "-",
	}
	stderr, err := toolchain.RunCapturingStderr(ctx, "ffmpeg", args...)
	if err != nil {
		return nil, err
	}

	match := loudnormJSONPattern.FindString(stderr)
	if match == "" {
		return nil, fmt.Errorf("loudnorm analysis produced no measurement block")
	}

	var m loudnormMeasurement
	if err := json.Unmarshal([]byte(match), &m); err != nil {
		return nil, fmt.Errorf("parsing loudnorm measurement: %w", err)
	}
	return &m, nil
}

// applyFilter builds the second-pass loudnorm filter using the first pass's
// measured values, as the standard ffmpeg two-pass loudnorm recipe requires.
func (m *loudnormMeasurement) applyFilter(target LoudnessTarget) string {
	return fmt.Sprintf(
		"loudnorm=I=%.2f:TP=%.2f:LRA=%.2f:measured_I=%s:measured_TP=%s:measured_LRA=%s:measured_thresh=%s:offset=%s:linear=true",
		target.IntegratedLUFS, target.TruePeakDBFS, target.LRA,
		m.InputI, m.InputTP, m.InputLRA, m.InputThresh, m.TargetOffset,
	)
}

func joinFilters(filters []string) string {
	out := ""
	for i, f := range filters {
		if i > 0 {
			out += ","
		}
		out += f
	}
	return out
}

// SilentTrack synthesizes a silent audio track of the given duration, used
// for segments with an image and no voice-over.
func SilentTrack(ctx context.Context, tempDir, segmentID string, duration float64) (string, error) {
	outPath := filepath.Join(tempDir, segmentID+"_silence.wav")
	args := []string{
		"-f", "lavfi", "-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=44100"),
		"-t", fmt.Sprintf("%.3f", duration),
		"-y", outPath,
	}
	if _, err := toolchain.Run(ctx, "ffmpeg", args...); err != nil {
		return "", &pipeline.AudioProcessingError{SegmentID: segmentID, Err: err}
	}
	return outPath, nil
}

func fileExistsNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
