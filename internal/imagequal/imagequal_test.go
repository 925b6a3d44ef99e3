package imagequal

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kira7dn/videoassembly/internal/specmodel"
)

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

type stubSearch struct {
	url   string
	found bool
}

func (s stubSearch) Search(context.Context, string, int, int) (string, bool, error) {
	return s.url, s.found, nil
}

func TestQualifyPassesThroughSegmentsWithVideo(t *testing.T) {
	q := New(1024, 576, 5, nil, nil)
	assets := []specmodel.SegmentAssets{{SegmentID: "s1", Video: &specmodel.AssetRecord{LocalPath: "/does/not/exist.mp4"}}}
	segments := []specmodel.Segment{{ID: "s1"}}

	out, err := q.Qualify(context.Background(), segments, assets, t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, out[0].Image)
}

func TestQualifyAcceptsImageMeetingMinimumDimensions(t *testing.T) {
	tempDir := t.TempDir()
	imgPath := filepath.Join(tempDir, "big.jpg")
	writeJPEG(t, imgPath, 1920, 1080)

	q := New(1024, 576, 5, nil, nil)
	assets := []specmodel.SegmentAssets{{SegmentID: "s1", Image: &specmodel.AssetRecord{LocalPath: imgPath}}}
	segments := []specmodel.Segment{{ID: "s1"}}

	out, err := q.Qualify(context.Background(), segments, assets, tempDir)
	require.NoError(t, err)
	assert.Equal(t, imgPath, out[0].Image.LocalPath)
}

func TestQualifySubstitutesUnderresolutionImage(t *testing.T) {
	tempDir := t.TempDir()
	smallPath := filepath.Join(tempDir, "small.jpg")
	writeJPEG(t, smallPath, 320, 240)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := &bytes.Buffer{}
		img := image.NewRGBA(image.Rect(0, 0, 1200, 700))
		_ = jpeg.Encode(buf, img, nil)
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	q := New(1024, 576, 5, nil, stubSearch{url: srv.URL + "/replacement.jpg", found: true})
	assets := []specmodel.SegmentAssets{{SegmentID: "s1", Image: &specmodel.AssetRecord{LocalPath: smallPath}}}
	segments := []specmodel.Segment{{ID: "s1", VoiceOver: &specmodel.VoiceOver{Content: "a mountain at dawn"}}}

	out, err := q.Qualify(context.Background(), segments, assets, tempDir)
	require.NoError(t, err)
	assert.NotEqual(t, smallPath, out[0].Image.LocalPath)
	assert.FileExists(t, out[0].Image.LocalPath)
}

func TestQualifyFailsWhenNoSubstituteFound(t *testing.T) {
	tempDir := t.TempDir()
	smallPath := filepath.Join(tempDir, "small.jpg")
	writeJPEG(t, smallPath, 100, 100)

	q := New(1024, 576, 5, nil, stubSearch{found: false})
	assets := []specmodel.SegmentAssets{{SegmentID: "s1", Image: &specmodel.AssetRecord{LocalPath: smallPath}}}
	segments := []specmodel.Segment{{ID: "s1"}}

	_, err := q.Qualify(context.Background(), segments, assets, tempDir)
	require.Error(t, err)
}
