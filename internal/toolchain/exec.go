// Package toolchain wraps invocations of the external ffmpeg/ffprobe
// binaries with the pipeline's SubprocessError kind, the way the teacher's
// FFmpegService wraps exec.CommandContext calls, generalized into one
// shared helper so every caller reports stderr consistently.
package toolchain

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/kira7dn/videoassembly/internal/pipeline"
)

// Run invokes name with args, returning stdout and wrapping any non-zero
// exit or missing-binary failure as a SubprocessError carrying stdout/stderr.
func Run(ctx context.Context, name string, args ...string) (stdout string, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return outBuf.String(), &pipeline.SubprocessError{
			Command: name + " " + strings.Join(args, " "),
			Stdout:  outBuf.String(),
			Stderr:  errBuf.String(),
			Err:     err,
		}
	}
	return outBuf.String(), nil
}

// RunCapturingStderr is a variant used by callers (the mean-volume probe)
// that need ffmpeg's analysis output, which it writes to stderr even on a
// clean exit.
func RunCapturingStderr(ctx context.Context, name string, args ...string) (stderr string, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	if runErr != nil {
		return errBuf.String(), &pipeline.SubprocessError{
			Command: name + " " + strings.Join(args, " "),
			Stdout:  outBuf.String(),
			Stderr:  errBuf.String(),
			Err:     runErr,
		}
	}
	return errBuf.String(), nil
}
