// Package audio defines the capture boundary for consultation recording.
// Device handling is an external collaborator: anything able to deliver
// PCM16 mono frames satisfies Source, and the rest of the system never
// touches the platform audio layer directly.
package audio

import (
	"context"
	"time"
)

// Frame is one chunk of little-endian PCM16 mono samples.
type Frame []byte

// Source delivers audio frames from some capture device or file.
type Source interface {
	// Frames returns the channel on which captured frames arrive. The
	// channel closes when the source is exhausted or closed.
	Frames() <-chan Frame

	// SampleRate reports the source's fixed sample rate in Hz.
	SampleRate() int

	Close() error
}

// CaptureOptions bound a single capture: ListenTimeout caps the wait for
// the first audible frame, PhraseLimit caps the total captured length.
type CaptureOptions struct {
	ListenTimeout time.Duration
	PhraseLimit   time.Duration
	// EnergyThreshold is the mean absolute sample amplitude below which a
	// frame counts as silence. Zero disables gating so every frame counts
	// as speech.
	EnergyThreshold float64
}

// Capture reads one phrase from the source: it waits up to ListenTimeout
// for a frame above the energy threshold, then accumulates frames until the
// phrase limit elapses or the source closes. A timeout with no speech
// returns an empty buffer and no error, mirroring "nothing heard". The
// context cancels an in-progress capture loop only; it cannot interrupt the
// device itself.
func Capture(ctx context.Context, src Source, opts CaptureOptions) ([]byte, error) {
	var buf []byte
	heard := false

	listen := time.NewTimer(opts.ListenTimeout)
	defer listen.Stop()

	var phrase *time.Timer
	var phraseC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return buf, ctx.Err()
		case <-listen.C:
			if !heard {
				return nil, nil
			}
		case <-phraseC:
			return buf, nil
		case frame, ok := <-src.Frames():
			if !ok {
				return buf, nil
			}
			if !heard {
				if opts.EnergyThreshold > 0 && meanAmplitude(frame) < opts.EnergyThreshold {
					continue
				}
				heard = true
				listen.Stop()
				if opts.PhraseLimit > 0 {
					phrase = time.NewTimer(opts.PhraseLimit)
					defer phrase.Stop()
					phraseC = phrase.C
				}
			}
			buf = append(buf, frame...)
		}
	}
}

// meanAmplitude returns the average absolute value of the PCM16 samples in
// the frame.
func meanAmplitude(frame Frame) float64 {
	if len(frame) < 2 {
		return 0
	}
	var sum float64
	n := len(frame) / 2
	for i := 0; i < n; i++ {
		s := int16(uint16(frame[2*i]) | uint16(frame[2*i+1])<<8)
		if s < 0 {
			sum -= float64(s)
		} else {
			sum += float64(s)
		}
	}
	return sum / float64(n)
}
