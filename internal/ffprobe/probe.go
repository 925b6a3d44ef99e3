// Package ffprobe wraps gopkg.in/vansante/go-ffprobe.v2 with a bounded
// exponential retry, replacing the teacher's hand-rolled ffprobe exec +
// fmt.Sscanf duration parsing with a structured probe and retry envelope.
package ffprobe

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	probe "gopkg.in/vansante/go-ffprobe.v2"
)

// Duration probes the duration (in seconds) of a media file at path,
// retrying transient failures up to three times with exponential backoff.
func Duration(ctx context.Context, path string) (float64, error) {
	var seconds float64

	operation := func() error {
		data, err := probe.ProbeURL(ctx, path)
		if err != nil {
			return err
		}
		if data.Format == nil {
			return fmt.Errorf("ffprobe returned no format data for %s", path)
		}
		seconds = data.Format.DurationSeconds
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, 3), ctx)); err != nil {
		return 0, fmt.Errorf("probing %s: %w", path, err)
	}
	return seconds, nil
}

// MeanVolume probes the mean volume (dB) of an audio stream by running the
// ffmpeg volumedetect filter, parsing its stderr. go-ffprobe.v2 cannot
// compute loudness, so this shells to ffmpeg directly like the teacher's
// other toolchain invocations, but keeps the same retry envelope.
func MeanVolume(ctx context.Context, runFilter func(context.Context) (string, error)) (float64, error) {
	var mean float64
	var found bool

	operation := func() error {
		stderr, err := runFilter(ctx)
		if err != nil {
			return err
		}
		mean, found = parseMeanVolume(stderr)
		if !found {
			return fmt.Errorf("volumedetect output did not contain mean_volume")
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx)); err != nil {
		return 0, err
	}
	return mean, nil
}
