package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WriteWAV persists PCM16 mono samples as a standard RIFF/WAVE file,
// creating the parent directory when absent. An empty buffer is rejected
// rather than writing a header-only file.
func WriteWAV(path string, pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return errors.New("no audio data to save")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create recordings dir: %w", err)
	}

	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}

// ReadWAVData extracts the PCM payload and sample rate from a 16-bit mono
// RIFF/WAVE file written by WriteWAV or any compatible recorder.
func ReadWAVData(path string) (pcm []byte, sampleRate int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < 44 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, errors.New("not a RIFF/WAVE file")
	}

	// Walk the chunks: fmt must precede data.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return nil, 0, errors.New("truncated wav chunk")
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, errors.New("short fmt chunk")
			}
			if binary.LittleEndian.Uint16(data[body:body+2]) != 1 {
				return nil, 0, errors.New("only PCM wav supported")
			}
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
		case "data":
			pcm = data[body : body+size]
		}
		off = body + size
		if size%2 == 1 {
			off++
		}
	}
	if sampleRate == 0 || pcm == nil {
		return nil, 0, errors.New("missing fmt or data chunk")
	}
	return pcm, sampleRate, nil
}

// FileSource replays a WAV file as a frame stream, mainly for transcribing
// saved recordings and for tests.
type FileSource struct {
	frames chan Frame
	rate   int
}

// NewFileSource loads the file and chunks its PCM payload into frames of
// chunkSize samples.
func NewFileSource(path string, chunkSize int) (*FileSource, error) {
	pcm, rate, err := ReadWAVData(path)
	if err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	step := chunkSize * 2 // bytes per frame
	ch := make(chan Frame, len(pcm)/step+1)
	for off := 0; off < len(pcm); off += step {
		end := off + step
		if end > len(pcm) {
			end = len(pcm)
		}
		ch <- Frame(pcm[off:end])
	}
	close(ch)
	return &FileSource{frames: ch, rate: rate}, nil
}

func (f *FileSource) Frames() <-chan Frame { return f.frames }
func (f *FileSource) SampleRate() int      { return f.rate }
func (f *FileSource) Close() error         { return nil }
