package pipeline

import "fmt"

// ValidationError signals a malformed or schema-rejected specification.
type ValidationError struct {
	Paths []string
	Err   error
}

func (e *ValidationError) Error() string {
	if len(e.Paths) == 0 {
		return fmt.Sprintf("validation failed: %v", e.Err)
	}
	return fmt.Sprintf("validation failed at %v: %v", e.Paths, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DownloadError signals a failed asset download.
type DownloadError struct {
	Kind string
	URL  string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed for %s %s: %v", e.Kind, e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ProcessingError is the general pipeline-stage failure kind.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("stage %q failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// AlignmentError signals an unreachable aligner or a segment that could not
// be aligned or fall back.
type AlignmentError struct {
	SegmentID string
	Err       error
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("alignment failed for segment %q: %v", e.SegmentID, e.Err)
}

func (e *AlignmentError) Unwrap() error { return e.Err }

// AudioProcessingError signals file I/O or toolchain failure composing audio.
type AudioProcessingError struct {
	SegmentID string
	Err       error
}

func (e *AudioProcessingError) Error() string {
	return fmt.Sprintf("audio processing failed for segment %q: %v", e.SegmentID, e.Err)
}

func (e *AudioProcessingError) Unwrap() error { return e.Err }

// UploadError signals an object-storage failure.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for %q: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// SubprocessError carries a non-zero exit or missing-binary failure from an
// external toolchain invocation.
type SubprocessError struct {
	Command string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *SubprocessError) Error() string {
	return fmt.Sprintf("command %q failed: %v\nstderr: %s", e.Command, e.Err, truncate(e.Stderr, 2000))
}

func (e *SubprocessError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}

// wrapStage is the single wrap-with-stage-name helper used by the runtime to
// name the failing stage on any stage-body error, regardless of its kind.
func wrapStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &ProcessingError{Stage: stage, Err: err}
}
