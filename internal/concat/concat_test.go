package concat

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kira7dn/videoassembly/internal/pipeline"
	"github.com/kira7dn/videoassembly/internal/specmodel"
)

func TestAssembleFailsOnEmptyClipList(t *testing.T) {
	c := New(t.TempDir())
	_, err := c.Assemble(context.Background(), nil, nil, filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
	var procErr *pipeline.ProcessingError
	assert.ErrorAs(t, err, &procErr)
}

func TestAssembleFailsWhenClipMissing(t *testing.T) {
	c := New(t.TempDir())
	clips := []specmodel.RenderedClip{{ID: "seg-1", Path: filepath.Join(t.TempDir(), "does_not_exist.mp4")}}
	_, err := c.Assemble(context.Background(), clips, nil, filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
}

func TestDbRatioToLinearIsUnityAtZeroDifference(t *testing.T) {
	assert.InDelta(t, 1.0, dbRatioToLinear(0), 1e-9)
}

func TestDefaultMusicGainLiesWithinClampBand(t *testing.T) {
	assert.True(t, minMusicGain <= defaultMusicGain && defaultMusicGain <= maxMusicGain)
}

func TestFileExistsNonEmptyDetectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "empty.mp4")
	require.NoError(t, os.WriteFile(p, nil, 0o644))
	assert.False(t, fileExistsNonEmpty(p))

	nonEmpty := filepath.Join(dir, "full.mp4")
	require.NoError(t, os.WriteFile(nonEmpty, []byte("data"), 0o644))
	assert.True(t, fileExistsNonEmpty(nonEmpty))
}
