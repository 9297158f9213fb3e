package audio

import (
	"math"
	"testing"
)

func TestResampleLength(t *testing.T) {
	cases := []struct {
		inLen, inRate, outRate int
	}{
		{4096, 48000, 16000},
		{4096, 44100, 16000},
		{4096, 32000, 16000},
		{1024, 22050, 16000},
		{4096, 16000, 16000},
		{4000, 8000, 16000},
	}

	for _, c := range cases {
		block := make([]float32, c.inLen)
		out := Resample(block, c.inRate, c.outRate)

		want := int(math.Round(float64(c.inLen) * float64(c.outRate) / float64(c.inRate)))
		got := len(out)
		if got < want-1 || got > want+1 {
			t.Errorf("Resample(%d, %d->%d) len = %d, want %d±1", c.inLen, c.inRate, c.outRate, got, want)
		}
	}
}

func TestResampleTooSmallBlockEmitsNothing(t *testing.T) {
	out := Resample([]float32{0.5}, 48000, 16000)
	if len(out) != 0 {
		t.Errorf("expected empty output for sub-step block, got %d samples", len(out))
	}
}

func TestResampleAveragesWindows(t *testing.T) {
	// 3:1 decimation of a constant signal stays constant.
	block := make([]float32, 300)
	for i := range block {
		block[i] = 0.25
	}
	out := Resample(block, 48000, 16000)
	for i, s := range out {
		if math.Abs(float64(s)-0.25) > 1e-6 {
			t.Fatalf("out[%d] = %f, want 0.25", i, s)
		}
	}
}

func TestMixSumsSources(t *testing.T) {
	a := []float32{0.1, 0.2, 0.3}
	b := []float32{0.3, 0.2}

	out := Mix(a, b)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	want := []float32{0.4, 0.4, 0.3}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Errorf("out[%d] = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestMixNoSources(t *testing.T) {
	if out := Mix(); out != nil {
		t.Errorf("expected nil for no sources, got %v", out)
	}
}

func TestDownmixAverages(t *testing.T) {
	left := []float32{1, 0}
	right := []float32{0, 1}

	out := Downmix([][]float32{left, right})
	for i, s := range out {
		if math.Abs(float64(s)-0.5) > 1e-6 {
			t.Errorf("out[%d] = %f, want 0.5", i, s)
		}
	}
}

func TestToPCM16Clamps(t *testing.T) {
	out := ToPCM16([]float32{2.0, -2.0, 0})
	if out[0] != 32767 {
		t.Errorf("over-range sample = %d, want 32767", out[0])
	}
	if out[1] != -32767 {
		t.Errorf("under-range sample = %d, want -32767", out[1])
	}
	if out[2] != 0 {
		t.Errorf("zero sample = %d, want 0", out[2])
	}
}

func TestChainProducesFrames(t *testing.T) {
	chain := NewChain(48000, 16000)

	block := make([]float32, 4096)
	for i := range block {
		block[i] = float32(math.Sin(float64(i) / 10))
	}

	frame := chain.Process(block)
	want := int(math.Round(4096.0 / 3.0))
	if len(frame) < want-1 || len(frame) > want+1 {
		t.Errorf("frame len = %d, want %d±1", len(frame), want)
	}
}

func TestChainEmptyCallback(t *testing.T) {
	chain := NewChain(48000, 16000)
	if frame := chain.Process(); frame != nil {
		t.Errorf("expected nil frame for empty callback, got %d samples", len(frame))
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %f, want 0", got)
	}
	if got := RMS([]float32{0.5, -0.5, 0.5, -0.5}); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("RMS = %f, want 0.5", got)
	}
}
