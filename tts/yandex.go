package tts

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"

	tts "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/tts/v3"

	"github.com/d1nch8g/voiceengine/catalog"
	"github.com/d1nch8g/voiceengine/sound"
)

const (
	YandexTTSEndpoint = "tts.api.cloud.yandex.net:443"
)

type YandexConfig struct {
	ApiKey   string
	IamToken string
	FolderID string
	Endpoint string
	Options  SynthesisOptions
}

// SynthesisOptions are applied to every utterance
type SynthesisOptions struct {
	Speed  float64
	Volume float64
	Model  string
}

func GetDefaultSynthesisOptions() SynthesisOptions {
	return SynthesisOptions{
		Speed: 1.0,
		Model: "general",
	}
}

// YandexTTSClient speaks utterances with Yandex SpeechKit and plays the
// MP3 response through a sound.Player
type YandexTTSClient struct {
	client tts.SynthesizerClient
	conn   *grpc.ClientConn
	player sound.Player
	decode func(io.Reader) (io.Reader, sound.Format, error)
	config YandexConfig
	logger *zap.Logger

	mu      sync.Mutex
	handler Handler
	run     *utteranceRun
	// last outlives CancelSpeech so the next run can wait for the player
	last *utteranceRun
}

type utteranceRun struct {
	id        string
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
}

// Ensure YandexTTSClient implements Service interface
var _ Service = (*YandexTTSClient)(nil)

func NewYandexTTSClient(config YandexConfig, player sound.Player, logger *zap.Logger) (*YandexTTSClient, error) {
	if config.Endpoint == "" {
		config.Endpoint = YandexTTSEndpoint
	}
	if config.Options == (SynthesisOptions{}) {
		config.Options = GetDefaultSynthesisOptions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := grpc.NewClient(config.Endpoint, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS service: %w", err)
	}

	return &YandexTTSClient{
		client: tts.NewSynthesizerClient(conn),
		conn:   conn,
		player: player,
		decode: sound.DecodeMP3,
		config: config,
		logger: logger.With(zap.String("component", "yandex_tts")),
	}, nil
}

func (c *YandexTTSClient) Subscribe(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *YandexTTSClient) Speak(u Utterance) error {
	if u.Text == "" {
		return errors.New("text is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &utteranceRun{id: u.ID, cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	prev := c.last
	c.run = run
	c.last = run
	c.mu.Unlock()

	if prev != nil {
		prev.cancelled.Store(true)
		prev.cancel()
	}

	go c.speak(ctx, run, prev, u)
	return nil
}

func (c *YandexTTSClient) CancelSpeech() error {
	c.mu.Lock()
	run := c.run
	c.run = nil
	c.mu.Unlock()

	if run != nil {
		run.cancelled.Store(true)
		run.cancel()
	}
	return nil
}

// RefreshVoices reports the static SpeechKit voice list asynchronously
func (c *YandexTTSClient) RefreshVoices() error {
	voices := make([]catalog.Voice, len(YandexVoices))
	copy(voices, YandexVoices)
	go c.emit(Event{Kind: EventVoicesReady, Voices: voices})
	return nil
}

func (c *YandexTTSClient) Close() error {
	if err := c.CancelSpeech(); err != nil {
		return err
	}

	c.mu.Lock()
	last := c.last
	c.mu.Unlock()
	if last != nil {
		<-last.done
	}
	return c.conn.Close()
}

func (c *YandexTTSClient) speak(ctx context.Context, run, prev *utteranceRun, u Utterance) {
	defer close(run.done)
	defer run.cancel()
	defer c.finish(run)

	// one output stream at a time
	if prev != nil {
		<-prev.done
	}
	if run.cancelled.Load() {
		return
	}

	err := c.synthesizeAndPlay(ctx, run, u)
	if run.cancelled.Load() {
		return
	}
	if err != nil {
		c.emit(Event{Kind: EventError, UtteranceID: run.id, Err: err})
		return
	}
	c.emit(Event{Kind: EventDone, UtteranceID: run.id})
}

func (c *YandexTTSClient) synthesizeAndPlay(ctx context.Context, run *utteranceRun, u Utterance) error {
	ctx = metadata.NewOutgoingContext(ctx, c.authMetadata())

	stream, err := c.client.UtteranceSynthesis(ctx, c.buildRequest(u))
	if err != nil {
		return fmt.Errorf("failed to start synthesis: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(receiveAudio(stream, pw))
	}()
	defer pr.Close()

	pcm, format, err := c.decode(pr)
	if err != nil {
		return err
	}

	c.emit(Event{Kind: EventStart, UtteranceID: run.id})

	if err := c.player.Play(ctx, pcm, format); err != nil {
		return fmt.Errorf("failed to play audio: %w", err)
	}
	return nil
}

// receiveAudio copies audio chunks from the synthesis stream into w
func receiveAudio(stream tts.Synthesizer_UtteranceSynthesisClient, w io.Writer) error {
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to receive audio data: %w", err)
		}

		if chunk := resp.GetAudioChunk(); chunk != nil {
			if _, err := w.Write(chunk.GetData()); err != nil {
				return err
			}
		}
	}
}

func (c *YandexTTSClient) buildRequest(u Utterance) *tts.UtteranceSynthesisRequest {
	opts := c.config.Options

	hints := []*tts.Hints{
		{Hint: &tts.Hints_Speed{Speed: opts.Speed}},
	}
	if u.Voice != "" {
		hints = append(hints, &tts.Hints{Hint: &tts.Hints_Voice{Voice: u.Voice}})
	}
	if opts.Volume != 0 {
		hints = append(hints, &tts.Hints{Hint: &tts.Hints_Volume{Volume: opts.Volume}})
	}

	return &tts.UtteranceSynthesisRequest{
		Model:     opts.Model,
		Utterance: &tts.UtteranceSynthesisRequest_Text{Text: u.Text},
		Hints:     hints,
		OutputAudioSpec: &tts.AudioFormatOptions{
			AudioFormat: &tts.AudioFormatOptions_ContainerAudio{
				ContainerAudio: &tts.ContainerAudio{
					ContainerAudioType: tts.ContainerAudio_MP3,
				},
			},
		},
		LoudnessNormalizationType: tts.UtteranceSynthesisRequest_LUFS,
	}
}

func (c *YandexTTSClient) authMetadata() metadata.MD {
	auth := "Api-Key " + c.config.ApiKey
	if c.config.ApiKey == "" {
		auth = "Bearer " + c.config.IamToken
	}
	return metadata.Pairs(
		"authorization", auth,
		"x-folder-id", c.config.FolderID,
	)
}

func (c *YandexTTSClient) emit(ev Event) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()

	if h != nil {
		h(ev)
	}
}

func (c *YandexTTSClient) finish(run *utteranceRun) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == run {
		c.run = nil
	}
}
