// Package audio turns raw capture callbacks into 16 kHz mono 16-bit PCM
// frames ready for the streaming link. Resampling is block-averaging:
// a deliberate low-pass/decimation shortcut that is fine for speech-band
// input and keeps the processing callback allocation-light and fast.
package audio

import (
	"log"
	"math"
)

// rmsLogInterval controls how often the processing chain reports a
// diagnostic level reading.
const rmsLogInterval = 50

// Downmix reduces an interleaved-channel block to mono by averaging
// channels. Mono input is returned as-is.
func Downmix(channels [][]float32) []float32 {
	if len(channels) == 0 {
		return nil
	}
	if len(channels) == 1 {
		return channels[0]
	}
	n := len(channels[0])
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for _, ch := range channels {
			if i < len(ch) {
				sum += ch[i]
			}
		}
		out[i] = sum / float32(len(channels))
	}
	return out
}

// Mix sums the active source blocks per sample. The output length is the
// longest input; shorter blocks contribute silence past their end.
func Mix(sources ...[]float32) []float32 {
	n := 0
	for _, src := range sources {
		if len(src) > n {
			n = len(src)
		}
	}
	if n == 0 {
		return nil
	}
	out := make([]float32, n)
	for _, src := range sources {
		for i, s := range src {
			out[i] += s
		}
	}
	return out
}

// Resample converts a block from inRate to outRate by averaging each
// inRate/outRate-sized input window into one output sample. If the block
// is smaller than one output step the result is empty and the caller
// emits nothing for that callback.
func Resample(block []float32, inRate, outRate int) []float32 {
	if len(block) == 0 || inRate <= 0 || outRate <= 0 {
		return nil
	}
	if inRate == outRate {
		out := make([]float32, len(block))
		copy(out, block)
		return out
	}

	ratio := float64(inRate) / float64(outRate)
	outLen := int(math.Round(float64(len(block)) / ratio))
	if outLen == 0 {
		return nil
	}

	out := make([]float32, 0, outLen)
	for i := 0; i < outLen; i++ {
		start := int(float64(i) * ratio)
		end := int(float64(i+1) * ratio)
		if start >= len(block) {
			break
		}
		if end > len(block) {
			end = len(block)
		}
		if end == start {
			end = start + 1
		}
		var sum float32
		for _, s := range block[start:end] {
			sum += s
		}
		out = append(out, sum/float32(end-start))
	}
	return out
}

// ToPCM16 converts float samples in [-1, 1] to 16-bit signed PCM,
// clamping anything outside the range.
func ToPCM16(block []float32) []int16 {
	out := make([]int16, len(block))
	for i, s := range block {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int16(s * 32767)
	}
	return out
}

// RMS returns the root-mean-square level of a block, 0 for empty input.
func RMS(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(block)))
}

// Chain is the per-session processing graph: it mixes the capture
// sources of one callback, resamples to the target rate, and converts to
// PCM frames. One Chain is owned by one session controller; the audio
// callback is the only caller of Process.
type Chain struct {
	inRate  int
	outRate int
	calls   int
}

func NewChain(inRate, outRate int) *Chain {
	return &Chain{inRate: inRate, outRate: outRate}
}

// Process runs one callback's worth of audio through the graph. A nil
// result means the block was too small to produce output.
func (c *Chain) Process(sources ...[]float32) []int16 {
	mixed := Mix(sources...)
	resampled := Resample(mixed, c.inRate, c.outRate)
	if len(resampled) == 0 {
		return nil
	}

	c.calls++
	if c.calls%rmsLogInterval == 0 {
		log.Printf("audio: level rms=%.4f block=%d", RMS(resampled), len(resampled))
	}

	return ToPCM16(resampled)
}
