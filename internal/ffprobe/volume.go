package ffprobe

import (
	"regexp"
	"strconv"
)

var meanVolumePattern = regexp.MustCompile(`mean_volume:\s*(-?\d+(\.\d+)?)\s*dB`)

// parseMeanVolume extracts the mean_volume value (dB) from ffmpeg's
// volumedetect filter stderr output, matching the original implementation's
// regex exactly.
func parseMeanVolume(stderr string) (float64, bool) {
	m := meanVolumePattern.FindStringSubmatch(stderr)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
