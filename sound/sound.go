package sound

import (
	"context"
	"io"
)

// Format describes interleaved 16-bit little-endian PCM
type Format struct {
	SampleRate int
	Channels   int
}

// Player defines the interface for audio playback
type Player interface {
	// Initialize initializes the audio playback system
	Initialize() error

	// Terminate terminates the audio playback system
	Terminate()

	// Play writes PCM from r to the output device until r is exhausted or ctx is cancelled
	Play(ctx context.Context, r io.Reader, format Format) error
}
