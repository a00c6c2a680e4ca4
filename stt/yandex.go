package stt

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

	speechkit "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/stt/v3"

	"github.com/d1nch8g/voiceengine/audio"
)

const (
	YandexSTTEndpoint = "stt.api.cloud.yandex.net:443"
)

// YandexLanguages are the languages accepted by the SpeechKit v3 general model
var YandexLanguages = []string{
	"de-DE", "en-US", "es-ES", "fi-FI", "fr-FR", "he-IL", "it-IT", "kk-KZ",
	"nl-NL", "pl-PL", "pt-BR", "pt-PT", "ru-RU", "sv-SE", "tr-TR", "uz-UZ",
}

type YandexConfig struct {
	IamToken   string
	ApiKey     string
	FolderID   string
	SampleRate int64
	Endpoint   string
}

// YandexSTTClient recognizes microphone audio with Yandex SpeechKit streaming recognition
type YandexSTTClient struct {
	client   speechkit.RecognizerClient
	conn     *grpc.ClientConn
	capturer audio.Capturer
	config   YandexConfig
	logger   *zap.Logger

	mu      sync.Mutex
	handler Handler
	run     *recognitionRun
	// last is the most recent run, kept after abort until a new one replaces it
	last *recognitionRun
}

// recognitionRun is one StartRecognition call
type recognitionRun struct {
	opts        Options
	cancel      context.CancelFunc
	stopCapture context.CancelFunc
	aborted     atomic.Bool
	done        chan struct{}
}

var _ Service = (*YandexSTTClient)(nil)

func NewYandexSTTClient(config YandexConfig, capturer audio.Capturer, logger *zap.Logger) (*YandexSTTClient, error) {
	if config.Endpoint == "" {
		config.Endpoint = YandexSTTEndpoint
	}
	if config.SampleRate == 0 {
		config.SampleRate = 16000
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := grpc.NewClient(config.Endpoint, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Yandex STT: %w", err)
	}

	return &YandexSTTClient{
		client:   speechkit.NewRecognizerClient(conn),
		conn:     conn,
		capturer: capturer,
		config:   config,
		logger:   logger.With(zap.String("component", "yandex_stt")),
	}, nil
}

func (s *YandexSTTClient) Subscribe(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *YandexSTTClient) Languages() []string {
	out := make([]string, len(YandexLanguages))
	copy(out, YandexLanguages)
	return out
}

func (s *YandexSTTClient) StartRecognition(opts Options) error {
	if opts.Language == "" {
		return errors.New("language is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	captureCtx, stopCapture := context.WithCancel(ctx)
	run := &recognitionRun{
		opts:        opts,
		cancel:      cancel,
		stopCapture: stopCapture,
		done:        make(chan struct{}),
	}

	s.mu.Lock()
	prev := s.last
	s.run = run
	s.last = run
	s.mu.Unlock()

	if prev != nil {
		prev.aborted.Store(true)
		prev.cancel()
	}

	go s.recognize(ctx, captureCtx, run, prev)
	return nil
}

func (s *YandexSTTClient) StopRecognition() error {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()

	if run == nil {
		return nil
	}
	run.stopCapture()
	return nil
}

func (s *YandexSTTClient) AbortRecognition() error {
	s.mu.Lock()
	run := s.run
	s.run = nil
	s.mu.Unlock()

	if run == nil {
		return nil
	}
	run.aborted.Store(true)
	run.cancel()
	return nil
}

func (s *YandexSTTClient) Close() error {
	if err := s.AbortRecognition(); err != nil {
		return err
	}

	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last != nil {
		<-last.done
	}
	return s.conn.Close()
}

func (s *YandexSTTClient) recognize(ctx, captureCtx context.Context, run, prev *recognitionRun) {
	defer close(run.done)
	defer run.cancel()
	defer s.finish(run)

	// the capture device is shared, wait until the previous run released it
	if prev != nil {
		<-prev.done
	}
	if run.aborted.Load() {
		return
	}

	if err := s.streamRecognize(ctx, captureCtx, run); err != nil && !run.aborted.Load() {
		s.emit(run, Event{Kind: EventError, Err: err})
		return
	}
	if !run.aborted.Load() {
		s.emit(run, Event{Kind: EventEnd})
	}
}

func (s *YandexSTTClient) streamRecognize(ctx, captureCtx context.Context, run *recognitionRun) error {
	ctx = metadata.NewOutgoingContext(ctx, s.authMetadata())

	stream, err := s.client.RecognizeStreaming(ctx)
	if err != nil {
		return fmt.Errorf("failed to create streaming client: %w", err)
	}

	if err := stream.Send(s.sessionOptions(run.opts.Language)); err != nil {
		return fmt.Errorf("failed to send session options: %w", err)
	}

	s.emit(run, Event{Kind: EventStart})

	recvErr := make(chan error, 1)
	go func() {
		recvErr <- s.receive(stream, run)
	}()

	audioData := make(chan []byte, 100)
	go func() {
		defer close(audioData)
		if err := s.capturer.StartCapture(captureCtx, audioData); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("audio capture error", zap.String("session", run.opts.SessionID), zap.Error(err))
		}
	}()

	for chunk := range audioData {
		req := &speechkit.StreamingRequest{
			Event: &speechkit.StreamingRequest_Chunk{
				Chunk: &speechkit.AudioChunk{Data: chunk},
			},
		}
		if err := stream.Send(req); err != nil {
			run.stopCapture()
			// drain so the capture goroutine can exit
			for range audioData {
			}
			return fmt.Errorf("failed to send audio chunk: %w", err)
		}
	}

	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return <-recvErr
}

func (s *YandexSTTClient) receive(stream speechkit.Recognizer_RecognizeStreamingClient, run *recognitionRun) error {
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to receive response: %w", err)
		}

		final := resp.GetFinal()
		if final == nil {
			continue
		}
		for _, alternative := range final.GetAlternatives() {
			if text := alternative.GetText(); text != "" {
				s.emit(run, Event{Kind: EventResult, Text: text})
				if !run.opts.Continuous {
					run.stopCapture()
				}
				break
			}
		}
	}
}

func (s *YandexSTTClient) sessionOptions(language string) *speechkit.StreamingRequest {
	return &speechkit.StreamingRequest{
		Event: &speechkit.StreamingRequest_SessionOptions{
			SessionOptions: &speechkit.StreamingOptions{
				RecognitionModel: &speechkit.RecognitionModelOptions{
					AudioFormat: &speechkit.AudioFormatOptions{
						AudioFormat: &speechkit.AudioFormatOptions_RawAudio{
							RawAudio: &speechkit.RawAudio{
								AudioEncoding:     speechkit.RawAudio_LINEAR16_PCM,
								SampleRateHertz:   s.config.SampleRate,
								AudioChannelCount: 1,
							},
						},
					},
					TextNormalization: &speechkit.TextNormalizationOptions{
						TextNormalization: speechkit.TextNormalizationOptions_TEXT_NORMALIZATION_ENABLED,
					},
					LanguageRestriction: &speechkit.LanguageRestrictionOptions{
						RestrictionType: speechkit.LanguageRestrictionOptions_WHITELIST,
						LanguageCode:    []string{language},
					},
					AudioProcessingType: speechkit.RecognitionModelOptions_REAL_TIME,
				},
			},
		},
	}
}

func (s *YandexSTTClient) authMetadata() metadata.MD {
	auth := "Bearer " + s.config.IamToken
	if s.config.ApiKey != "" {
		auth = "Api-Key " + s.config.ApiKey
	}
	return metadata.Pairs(
		"authorization", auth,
		"x-folder-id", s.config.FolderID,
	)
}

func (s *YandexSTTClient) emit(run *recognitionRun, ev Event) {
	ev.SessionID = run.opts.SessionID

	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	if h != nil {
		h(ev)
	}
}

func (s *YandexSTTClient) finish(run *recognitionRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == run {
		s.run = nil
	}
}
