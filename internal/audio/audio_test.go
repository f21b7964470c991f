package audio

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanSource feeds pre-built frames for capture tests.
type chanSource struct {
	ch   chan Frame
	rate int
}

func newChanSource(rate int) *chanSource {
	return &chanSource{ch: make(chan Frame, 64), rate: rate}
}

func (s *chanSource) Frames() <-chan Frame { return s.ch }
func (s *chanSource) SampleRate() int      { return s.rate }
func (s *chanSource) Close() error         { return nil }

// pcmFrame builds a frame where every sample has the given amplitude.
func pcmFrame(amplitude int16, samples int) Frame {
	f := make(Frame, samples*2)
	for i := 0; i < samples; i++ {
		f[2*i] = byte(uint16(amplitude))
		f[2*i+1] = byte(uint16(amplitude) >> 8)
	}
	return f
}

func TestCaptureCollectsSpeech(t *testing.T) {
	src := newChanSource(16000)
	src.ch <- pcmFrame(2000, 1024)
	src.ch <- pcmFrame(1500, 1024)
	close(src.ch)

	pcm, err := Capture(context.Background(), src, CaptureOptions{
		ListenTimeout:   time.Second,
		PhraseLimit:     10 * time.Second,
		EnergyThreshold: 300,
	})
	require.NoError(t, err)
	assert.Len(t, pcm, 2*1024*2)
}

func TestCaptureSkipsLeadingSilence(t *testing.T) {
	src := newChanSource(16000)
	src.ch <- pcmFrame(10, 1024) // below threshold
	src.ch <- pcmFrame(2000, 1024)
	close(src.ch)

	pcm, err := Capture(context.Background(), src, CaptureOptions{
		ListenTimeout:   time.Second,
		EnergyThreshold: 300,
	})
	require.NoError(t, err)
	assert.Len(t, pcm, 1024*2, "silent frames before speech are dropped")
}

func TestCaptureListenTimeoutNoSpeech(t *testing.T) {
	src := newChanSource(16000)
	// Nothing ever arrives above the threshold.
	pcm, err := Capture(context.Background(), src, CaptureOptions{
		ListenTimeout:   20 * time.Millisecond,
		EnergyThreshold: 300,
	})
	require.NoError(t, err)
	assert.Empty(t, pcm, "listen timeout without speech yields an empty buffer")
}

func TestCaptureContextCancel(t *testing.T) {
	src := newChanSource(16000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Capture(ctx, src, CaptureOptions{ListenTimeout: time.Second})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteAndReadWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec", "test.wav")
	pcm := pcmFrame(1234, 4096)

	require.NoError(t, WriteWAV(path, pcm, 16000))

	got, rate, err := ReadWAVData(path)
	require.NoError(t, err)
	assert.Equal(t, 16000, rate)
	assert.Equal(t, []byte(pcm), got)
}

func TestWriteWAVRejectsEmpty(t *testing.T) {
	err := WriteWAV(filepath.Join(t.TempDir(), "x.wav"), nil, 16000)
	assert.Error(t, err)
}

func TestFileSourceFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	require.NoError(t, WriteWAV(path, pcmFrame(500, 3000), 16000))

	src, err := NewFileSource(path, 1024)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 16000, src.SampleRate())

	var total int
	var frames int
	for f := range src.Frames() {
		total += len(f)
		frames++
	}
	assert.Equal(t, 3000*2, total)
	assert.Equal(t, 3, frames, "3000 samples in 1024-sample chunks")
}
