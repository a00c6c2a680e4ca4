package audio

import "context"

// Capturer defines the interface for microphone capture implementations
type Capturer interface {
	// Initialize initializes the audio system
	Initialize() error

	// Terminate terminates the audio system
	Terminate()

	// Open opens the input stream with configured parameters
	Open() error

	// Close closes the input stream
	Close() error

	// StartCapture sends 16-bit little-endian mono PCM chunks to audioData.
	// It blocks until the context is cancelled.
	StartCapture(ctx context.Context, audioData chan<- []byte) error
}
