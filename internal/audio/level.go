package audio

import (
	"encoding/binary"
	"math"
)

// Level returns the RMS of s16 little-endian PCM normalized to [0,1].
// Other encodings report 0.
func Level(pcm []byte, f Format) float64 {
	if f.Encoding != S16 || len(pcm) < 2 {
		return 0
	}
	n := len(pcm) / 2
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
