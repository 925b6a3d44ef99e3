package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kira7dn/videoassembly/internal/specmodel"
)

func TestFetchAllDownloadsEverySegmentAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("payload-" + r.URL.Path))
	}))
	defer srv.Close()

	tempDir := t.TempDir()
	spec := &specmodel.Specification{
		Segments: []specmodel.Segment{
			{ID: "s1", Image: &specmodel.ImageRef{URL: srv.URL + "/a.jpg"}},
			{ID: "s2", Video: &specmodel.VideoRef{URL: srv.URL + "/b.mp4"}, VoiceOver: &specmodel.VoiceOver{URL: srv.URL + "/c.wav"}},
		},
		BackgroundMusic: &specmodel.BackgroundMusic{URL: srv.URL + "/music.mp3"},
	}

	f := New(4, 5*time.Second)
	results, music, err := f.FetchAll(context.Background(), spec, tempDir)
	require.NoError(t, err)

	require.NotNil(t, results[0].Image)
	assert.FileExists(t, results[0].Image.LocalPath)
	require.NotNil(t, results[1].Video)
	require.NotNil(t, results[1].VoiceOver)
	require.NotNil(t, music)
	assert.FileExists(t, music.LocalPath)
}

func TestFetchAllFailsWholeStageOnSingleDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tempDir := t.TempDir()
	spec := &specmodel.Specification{
		Segments: []specmodel.Segment{
			{ID: "s1", Image: &specmodel.ImageRef{URL: srv.URL + "/missing.jpg"}},
		},
	}

	f := New(2, 2*time.Second)
	_, _, err := f.FetchAll(context.Background(), spec, tempDir)
	require.Error(t, err)

	entries, _ := os.ReadDir(tempDir)
	assert.LessOrEqual(t, len(entries), 1)
}
