package imagesearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFailsFastWithoutAPIKey(t *testing.T) {
	p := NewPexelsSearch("")
	_, found, err := p.Search(context.Background(), "sunset", 720, 1280)
	require.Error(t, err)
	assert.False(t, found)
}

func TestSearchReturnsFirstMatchMeetingMinimumDimensions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"photos":[
			{"width":400,"height":400,"src":{"original":"https://example.com/small.jpg"}},
			{"width":1080,"height":1920,"src_original":"https://example.com/large.jpg"}
		]}`))
	}))
	defer server.Close()

	p := NewPexelsSearch("test-key")
	p.baseURL = server.URL
	p.httpClient = server.Client()

	url, found, err := p.Search(context.Background(), "sunset", 720, 1280)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "https://example.com/large.jpg", url)
}

func TestSearchReturnsNotFoundWhenNothingQualifies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"photos":[{"width":100,"height":100,"src":{"original":"https://example.com/tiny.jpg"}}]}`))
	}))
	defer server.Close()

	p := NewPexelsSearch("test-key")
	p.baseURL = server.URL
	p.httpClient = server.Client()

	_, found, err := p.Search(context.Background(), "sunset", 720, 1280)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSearchReturnsErrorOnNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	p := NewPexelsSearch("test-key")
	p.baseURL = server.URL
	p.httpClient = server.Client()

	_, found, err := p.Search(context.Background(), "sunset", 100, 100)
	require.Error(t, err)
	assert.False(t, found)
}
