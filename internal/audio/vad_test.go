package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return out
}

func TestMeasureSilence(t *testing.T) {
	l := Measure(make([]float32, 160))
	assert.True(t, math.IsInf(l.RMSdBFS, -1))
	assert.True(t, math.IsInf(l.PeakdBFS, -1))
	assert.Equal(t, 160, l.Samples)

	empty := Measure(nil)
	assert.Equal(t, 0, empty.Samples)
}

func TestMeasureFullScale(t *testing.T) {
	samples := []float32{1, -1, 1, -1}
	l := Measure(samples)
	assert.InDelta(t, 0, l.RMSdBFS, 1e-9)
	assert.InDelta(t, 0, l.PeakdBFS, 1e-9)
}

func TestFilterSilenceAllQuiet(t *testing.T) {
	got := FilterSilence(make([]float32, 16000), 16000, -50)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterSilenceKeepsSpeechWithHangover(t *testing.T) {
	const rate = 16000
	win := rate * vadWindow / 1000 // 480 samples

	// 2s silence, 0.3s tone, 2s silence.
	samples := make([]float32, 0, rate*5)
	samples = append(samples, make([]float32, 2*rate)...)
	samples = append(samples, tone(rate*3/10, 0.5)...)
	samples = append(samples, make([]float32, 2*rate)...)

	got := FilterSilence(samples, rate, -50)

	voiced := rate * 3 / 10
	hang := (vadHangover / vadWindow) * win
	assert.Greater(t, len(got), voiced)
	assert.LessOrEqual(t, len(got), voiced+2*hang+2*win)
	assert.Less(t, len(got), len(samples))
}

func TestFilterSilenceLoudPassesThrough(t *testing.T) {
	samples := tone(16000, 0.8)
	got := FilterSilence(samples, 16000, -50)
	assert.Len(t, got, len(samples))
}

func TestFilterSilenceEmptyInput(t *testing.T) {
	assert.Empty(t, FilterSilence(nil, 16000, -50))
	assert.Empty(t, FilterSilence(tone(100, 0.5), 0, -50))
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	in := []float32{0, 0.5, -0.5, 0.25, 2.0}

	require.NoError(t, WriteWAV(path, in, 16000))

	out, rate, err := ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(16000), rate)
	require.Len(t, out, len(in))
	for i, want := range []float32{0, 0.5, -0.5, 0.25, 1.0} {
		assert.InDelta(t, want, out[i], 1e-3, "sample %d", i)
	}
}

func TestReadWAVMissingFile(t *testing.T) {
	_, _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

// pcmHeader builds a 16 kHz mono RIFF/WAVE file with the given bits per
// sample and a few zero data bytes.
func pcmHeader(bits uint16) []byte {
	var b bytes.Buffer
	le := func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }
	data := make([]byte, 8)
	b.WriteString("RIFF")
	le(uint32(36 + len(data)))
	b.WriteString("WAVEfmt ")
	le(uint32(16))
	le(uint16(1)) // PCM
	le(uint16(1)) // channels
	le(uint32(16000))
	le(uint32(16000 * 2))
	le(uint16(2))
	le(bits)
	b.WriteString("data")
	le(uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}

func TestReadWAVZeroBitDepth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zero.wav")
	require.NoError(t, os.WriteFile(path, pcmHeader(0), 0o644))

	assert.NotPanics(t, func() {
		_, _, err := ReadWAV(path)
		assert.Error(t, err)
	})
}
