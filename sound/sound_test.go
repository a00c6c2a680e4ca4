package sound

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillSamples(t *testing.T) {
	buffer := []int16{9, 9, 9, 9}

	fillSamples(buffer, []byte{0x01, 0x00, 0xff, 0xff, 0x7f})

	assert.Equal(t, []int16{1, -1, 0, 0}, buffer)
}

func TestFillSamples_Truncates(t *testing.T) {
	buffer := make([]int16, 1)

	fillSamples(buffer, []byte{0x02, 0x00, 0x03, 0x00})

	assert.Equal(t, []int16{2}, buffer)
}

func TestPlay_InvalidFormat(t *testing.T) {
	p := NewPortaudioPlayer(GetDefaultConfig(), nil)

	err := p.Play(context.Background(), bytes.NewReader(nil), Format{})

	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDecodeMP3_Garbage(t *testing.T) {
	_, _, err := DecodeMP3(bytes.NewReader([]byte("definitely not an mp3 stream")))
	assert.Error(t, err)
}
