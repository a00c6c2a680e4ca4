package sound

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

// ErrInvalidFormat is returned for formats without a sample rate or channels
var ErrInvalidFormat = errors.New("invalid pcm format")

type PlayerConfig struct {
	FramesPerBuffer int
}

func GetDefaultConfig() PlayerConfig {
	return PlayerConfig{
		FramesPerBuffer: 1024,
	}
}

// PortaudioPlayer plays PCM on the default output device. A stream is opened
// per Play call because every utterance may arrive with its own format.
type PortaudioPlayer struct {
	config PlayerConfig
	logger *zap.Logger
}

var _ Player = (*PortaudioPlayer)(nil)

func NewPortaudioPlayer(config PlayerConfig, logger *zap.Logger) *PortaudioPlayer {
	if config.FramesPerBuffer == 0 {
		config.FramesPerBuffer = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortaudioPlayer{config: config, logger: logger}
}

func (p *PortaudioPlayer) Initialize() error {
	return portaudio.Initialize()
}

func (p *PortaudioPlayer) Terminate() {
	portaudio.Terminate()
}

func (p *PortaudioPlayer) Play(ctx context.Context, r io.Reader, format Format) error {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return ErrInvalidFormat
	}

	buffer := make([]int16, p.config.FramesPerBuffer*format.Channels)
	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.SampleRate), p.config.FramesPerBuffer, buffer)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	defer stream.Stop()

	raw := make([]byte, len(buffer)*2)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := io.ReadFull(r, raw)
		if n > 0 {
			fillSamples(buffer, raw[:n])
			if werr := stream.Write(); werr != nil {
				p.logger.Debug("audio write failed", zap.Error(werr))
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read pcm: %w", err)
		}
	}
}

// fillSamples converts little-endian bytes to samples and zero-fills the rest of buffer
func fillSamples(buffer []int16, raw []byte) {
	n := len(raw) / 2
	if n > len(buffer) {
		n = len(buffer)
	}
	for i := 0; i < n; i++ {
		buffer[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}
	for i := n; i < len(buffer); i++ {
		buffer[i] = 0
	}
}
