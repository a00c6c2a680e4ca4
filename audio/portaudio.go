package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

// ErrStreamNotOpened is returned when capture starts before Open
var ErrStreamNotOpened = errors.New("stream not opened")

type Config struct {
	SampleRate      float64
	FramesPerBuffer int
}

// PortaudioCapturer reads the default input device through PortAudio
type PortaudioCapturer struct {
	stream *portaudio.Stream
	buffer []int16
	config Config
	logger *zap.Logger
}

var _ Capturer = (*PortaudioCapturer)(nil)

func NewPortaudioCapturer(config Config, logger *zap.Logger) *PortaudioCapturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortaudioCapturer{
		config: config,
		buffer: make([]int16, config.FramesPerBuffer),
		logger: logger,
	}
}

func GetDefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		FramesPerBuffer: 1024,
	}
}

func (c *PortaudioCapturer) Initialize() error {
	return portaudio.Initialize()
}

func (c *PortaudioCapturer) Terminate() {
	portaudio.Terminate()
}

func (c *PortaudioCapturer) Open() error {
	stream, err := portaudio.OpenDefaultStream(1, 0, c.config.SampleRate, c.config.FramesPerBuffer, c.buffer)
	if err != nil {
		return err
	}
	c.stream = stream
	return nil
}

func (c *PortaudioCapturer) Close() error {
	if c.stream != nil {
		return c.stream.Close()
	}
	return nil
}

func (c *PortaudioCapturer) StartCapture(ctx context.Context, audioData chan<- []byte) error {
	if c.stream == nil {
		return ErrStreamNotOpened
	}

	if err := c.stream.Start(); err != nil {
		return err
	}
	defer c.stream.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.stream.Read(); err != nil {
			// input overflow drops a buffer but keeps the stream usable
			if errors.Is(err, portaudio.InputOverflowed) {
				c.logger.Debug("audio input overflowed", zap.Error(err))
				continue
			}
			return fmt.Errorf("failed to read audio: %w", err)
		}

		select {
		case audioData <- samplesToBytes(c.buffer):
		case <-ctx.Done():
			return ctx.Err()
		default:
			// consumer is behind, drop the chunk
		}
	}
}

func samplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}
