package sound

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 wraps an MP3 stream into a PCM reader.
// go-mp3 always produces two-channel 16-bit samples.
func DecodeMP3(r io.Reader) (io.Reader, Format, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, Format{}, fmt.Errorf("failed to decode mp3: %w", err)
	}
	return decoder, Format{SampleRate: decoder.SampleRate(), Channels: 2}, nil
}
