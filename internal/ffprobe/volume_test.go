package ffprobe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMeanVolumeExtractsNegativeDB(t *testing.T) {
	stderr := "[Parsed_volumedetect_0 @ 0x1234] mean_volume: -23.4 dB\n[Parsed_volumedetect_0 @ 0x1234] max_volume: -3.1 dB"
	v, ok := parseMeanVolume(stderr)
	assert.True(t, ok)
	assert.InDelta(t, -23.4, v, 1e-9)
}

func TestParseMeanVolumeMissingReturnsFalse(t *testing.T) {
	_, ok := parseMeanVolume("no volumedetect info here")
	assert.False(t, ok)
}
