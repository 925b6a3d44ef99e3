// Package imagesearch implements imagequal.ImageSearch against the Pexels
// photo search API, following the plain net/http + manual JSON decode style
// the teacher's services package uses for its own external REST calls (see
// XAIVideoService).
package imagesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const pexelsBaseURL = "https://api.pexels.com/v1/search"

// PexelsSearch queries Pexels for a keyword and returns the first photo
// meeting the minimum dimensions.
type PexelsSearch struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewPexelsSearch builds a search client. apiKey == "" makes every Search
// call fail fast rather than send an unauthenticated request.
func NewPexelsSearch(apiKey string) *PexelsSearch {
	return &PexelsSearch{
		apiKey:     apiKey,
		baseURL:    pexelsBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type pexelsResponse struct {
	Photos []struct {
		Width          int    `json:"width"`
		Height         int    `json:"height"`
		SourceOriginal string `json:"src_original"`
		Src            struct {
			Original string `json:"original"`
		} `json:"src"`
	} `json:"photos"`
}

// Search returns the first result whose native dimensions meet the minimum,
// per_page capped at 10 since the qualifier only needs one usable result.
func (p *PexelsSearch) Search(ctx context.Context, keyword string, minWidth, minHeight int) (string, bool, error) {
	if p.apiKey == "" {
		return "", false, fmt.Errorf("imagesearch: pexels api key not configured")
	}

	q := url.Values{}
	q.Set("query", keyword)
	q.Set("per_page", "10")
	q.Set("orientation", "portrait")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("imagesearch: pexels request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("imagesearch: pexels returned status %d", resp.StatusCode)
	}

	var parsed pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, fmt.Errorf("imagesearch: decoding pexels response: %w", err)
	}

	for _, photo := range parsed.Photos {
		if photo.Width >= minWidth && photo.Height >= minHeight {
			if photo.SourceOriginal != "" {
				return photo.SourceOriginal, true, nil
			}
			return photo.Src.Original, true, nil
		}
	}

	return "", false, nil
}
