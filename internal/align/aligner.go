package align

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WordTiming is one word-level timestamp returned by the forced aligner.
// Case == "success" marks a word whose timestamp was confidently resolved.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Case  string  `json:"case"`
}

func (w WordTiming) Aligned() bool { return w.Case == "success" }

// ForcedAligner sends voice-over audio plus its transcript to an external
// alignment service and returns word-level timestamps.
type ForcedAligner interface {
	Align(ctx context.Context, audioPath, transcript string) ([]WordTiming, error)
}

// HTTPForcedAligner posts multipart audio+transcript to {URL}?async=false,
// retrying up to MaxRetries times at linearly-increasing delays — the
// aligner is the one external call the concurrency model singles out for a
// non-default (600s) timeout and a non-exponential backoff policy.
type HTTPForcedAligner struct {
	URL        string
	HTTPClient *http.Client
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// NewHTTPForcedAligner builds a client with the documented defaults: a 600s
// per-attempt timeout and up to three retries.
func NewHTTPForcedAligner(url string) *HTTPForcedAligner {
	return &HTTPForcedAligner{
		URL:        url,
		HTTPClient: &http.Client{},
		Timeout:    600 * time.Second,
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
	}
}

type alignResponse struct {
	Words []WordTiming `json:"words"`
}

// linearBackOff increases its delay by BaseDelay on every attempt — unlike
// backoff.ExponentialBackOff's doubling, this grows by a constant step, to
// match the documented "linearly-backed-off delays" requirement while still
// going through the cenkalti/backoff retry envelope.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.attempt++
	return time.Duration(l.attempt) * l.base
}

func (l *linearBackOff) Reset() { l.attempt = 0 }

func (a *HTTPForcedAligner) Align(ctx context.Context, audioPath, transcript string) ([]WordTiming, error) {
	var result []WordTiming

	operation := func() error {
		words, err := a.attempt(ctx, audioPath, transcript)
		if err != nil {
			return err
		}
		result = words
		return nil
	}

	bo := &linearBackOff{base: a.BaseDelay}
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(a.MaxRetries)), ctx))
	if err != nil {
		return nil, fmt.Errorf("forced aligner unreachable after %d retries: %w", a.MaxRetries, err)
	}
	return result, nil
}

func (a *HTTPForcedAligner) attempt(ctx context.Context, audioPath, transcript string) ([]WordTiming, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	audioFile, err := os.Open(audioPath)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("opening audio file: %w", err))
	}
	defer audioFile.Close()

	part, err := writer.CreateFormFile("audio", audioPath)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return nil, backoff.Permanent(err)
	}
	if err := writer.WriteField("transcript", transcript); err != nil {
		return nil, backoff.Permanent(err)
	}
	if err := writer.Close(); err != nil {
		return nil, backoff.Permanent(err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.URL+"?async=false", body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, err // retryable: network/timeout error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("forced aligner returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("forced aligner returned status %d", resp.StatusCode))
	}

	var parsed alignResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decoding forced aligner response: %w", err))
	}
	return parsed.Words, nil
}
