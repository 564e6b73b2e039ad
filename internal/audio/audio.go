package audio

import (
	"fmt"
	"time"
)

// Encoding names follow pw-record's --format values.
const (
	S16 = "s16"
	S24 = "s24"
	S32 = "s32"
	F32 = "f32"
)

// Format describes interleaved PCM as delivered by the capture device.
type Format struct {
	SampleRate int
	Channels   int
	Encoding   string
}

func (f Format) String() string {
	return fmt.Sprintf("%s@%dHz/%dch", f.Encoding, f.SampleRate, f.Channels)
}

// BytesPerSample returns 0 for unknown encodings.
func (f Format) BytesPerSample() int {
	switch f.Encoding {
	case S16:
		return 2
	case S24:
		return 3
	case S32, F32:
		return 4
	default:
		return 0
	}
}

func (f Format) BytesPerFrame() int {
	return f.BytesPerSample() * f.Channels
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channels: %d", f.Channels)
	}
	if f.BytesPerSample() == 0 {
		return fmt.Errorf("unsupported encoding: %q", f.Encoding)
	}
	return nil
}

// Duration returns how much audio n bytes of this format hold.
func (f Format) Duration(n int) time.Duration {
	bpf := f.BytesPerFrame()
	if bpf == 0 || f.SampleRate == 0 {
		return 0
	}
	frames := n / bpf
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Buffer is one chunk handed over by a capture tap.
type Buffer struct {
	Data   []byte
	Frames int
	Format Format
	Time   time.Time
}
