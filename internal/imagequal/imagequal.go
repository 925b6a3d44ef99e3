// Package imagequal validates and, when necessary, substitutes a segment's
// still image: images under the configured minimum dimensions are replaced
// via AI-assisted keyword extraction and an image-search fallback chain.
package imagequal

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kira7dn/videoassembly/internal/aiagent"
	"github.com/kira7dn/videoassembly/internal/pipeline"
	"github.com/kira7dn/videoassembly/internal/specmodel"
)

// FallbackKeyword is the literal sentinel tried once all extracted keywords
// have failed against the image-search provider.
const FallbackKeyword = "abstract background"

// ImageSearch returns the first result URL meeting the minimum dimensions,
// or found=false when nothing qualifies.
type ImageSearch interface {
	Search(ctx context.Context, keyword string, minWidth, minHeight int) (url string, found bool, err error)
}

type keywordResponse struct {
	Keywords       []string `json:"keywords"`
	PrimaryKeyword string   `json:"primary_keyword"`
}

// Qualifier holds the configured minimum dimensions and collaborators
// needed to substitute an underresolution image.
type Qualifier struct {
	MinWidth    int
	MinHeight   int
	MaxKeywords int
	Agent       aiagent.Agent
	Search      ImageSearch
	HTTPClient  *http.Client
}

// New builds a Qualifier with sane defaults for zero-valued fields.
func New(minWidth, minHeight, maxKeywords int, agent aiagent.Agent, search ImageSearch) *Qualifier {
	if maxKeywords <= 0 {
		maxKeywords = 5
	}
	return &Qualifier{
		MinWidth:    minWidth,
		MinHeight:   minHeight,
		MaxKeywords: maxKeywords,
		Agent:       agent,
		Search:      search,
		HTTPClient:  &http.Client{},
	}
}

// Qualify runs over every segment's asset record, replacing any
// under-resolution image asset in place. Segments carrying a video asset
// pass through untouched — video segments are always qualified.
func (q *Qualifier) Qualify(ctx context.Context, segments []specmodel.Segment, assets []specmodel.SegmentAssets, tempDir string) ([]specmodel.SegmentAssets, error) {
	for i := range assets {
		a := &assets[i]
		if a.Video != nil {
			continue // video segments are always qualified
		}
		if a.Image == nil {
			continue
		}

		ok, err := meetsMinimumDimensions(a.Image.LocalPath, q.MinWidth, q.MinHeight)
		if err != nil {
			return nil, &pipeline.ProcessingError{Stage: "image_qualifier", Err: fmt.Errorf("segment %q: probing image dimensions: %w", a.SegmentID, err)}
		}
		if ok {
			continue
		}

		content := ""
		if segments[i].VoiceOver != nil {
			content = segments[i].VoiceOver.Content
		}

		replacement, err := q.substitute(ctx, content, tempDir)
		if err != nil {
			return nil, &pipeline.ProcessingError{Stage: "image_qualifier", Err: fmt.Errorf("segment %q: %w", a.SegmentID, err)}
		}
		a.Image = replacement
	}
	return assets, nil
}

func (q *Qualifier) substitute(ctx context.Context, content, tempDir string) (*specmodel.AssetRecord, error) {
	keywords := q.extractKeywords(ctx, content)

	for _, kw := range keywords {
		if rec, ok := q.tryKeyword(ctx, kw, tempDir); ok {
			return rec, nil
		}
	}

	if rec, ok := q.tryKeyword(ctx, FallbackKeyword, tempDir); ok {
		return rec, nil
	}

	return nil, fmt.Errorf("no substitute image found after %d keyword(s) and the fallback sentinel", len(keywords))
}

func (q *Qualifier) tryKeyword(ctx context.Context, keyword, tempDir string) (*specmodel.AssetRecord, bool) {
	if q.Search == nil {
		return nil, false
	}
	url, found, err := q.Search.Search(ctx, keyword, q.MinWidth, q.MinHeight)
	if err != nil || !found {
		return nil, false
	}

	dest := filepath.Join(tempDir, uuid.NewString()+filepath.Ext(url))
	if err := q.downloadTo(ctx, url, dest); err != nil {
		log.Printf("[image_qualifier] downloading search result for %q failed: %v", keyword, err)
		return nil, false
	}
	return &specmodel.AssetRecord{URL: url, LocalPath: dest, Kind: specmodel.AssetImage}, true
}

func (q *Qualifier) downloadTo(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := q.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}

// extractKeywords delegates to the AI agent; on any failure or disabled
// agent it falls back to the raw content as a single keyword, per contract.
func (q *Qualifier) extractKeywords(ctx context.Context, content string) []string {
	fallback := []string{strings.TrimSpace(content)}
	if q.Agent == nil || !q.Agent.Enabled() || strings.TrimSpace(content) == "" {
		return fallback
	}

	raw, err := q.Agent.Complete(ctx, keywordSystemPrompt, content)
	if err != nil {
		log.Printf("[image_qualifier] keyword extraction unavailable, using raw content: %v", err)
		return fallback
	}

	var resp keywordResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		log.Printf("[image_qualifier] keyword extraction response unparseable, using raw content: %v", err)
		return fallback
	}

	keywords := resp.Keywords
	if resp.PrimaryKeyword != "" {
		keywords = append([]string{resp.PrimaryKeyword}, keywords...)
	}
	if len(keywords) == 0 {
		return fallback
	}
	if len(keywords) > q.MaxKeywords {
		keywords = keywords[:q.MaxKeywords]
	}
	return keywords
}

func meetsMinimumDimensions(path string, minWidth, minHeight int) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return false, err
	}
	return cfg.Width >= minWidth && cfg.Height >= minHeight, nil
}

const keywordSystemPrompt = `Extract image-search keywords from a video voice-over transcript.
Respond with a JSON object {"keywords": [string], "primary_keyword": string}.
Keywords should be short, concrete nouns or noun phrases suitable for stock
image search; order them from most to least relevant.`
