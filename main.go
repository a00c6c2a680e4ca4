package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/d1nch8g/voiceengine/audio"
	"github.com/d1nch8g/voiceengine/config"
	"github.com/d1nch8g/voiceengine/engine"
	"github.com/d1nch8g/voiceengine/sound"
	"github.com/d1nch8g/voiceengine/stt"
	"github.com/d1nch8g/voiceengine/tts"
)

const usage = `commands:
  start          start listening
  stop           stop listening after the final result
  cancel         abort listening and speaking
  speak [text]   speak text, or repeat the last text
  lang <code>    select a language
  voice <name>   select a voice of the current language
  voices         list the voice catalog
  langs          list recognition languages
  quit`

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println("Error:", err)
		fmt.Println("Create a .env file with:")
		fmt.Println("YANDEX_FOLDER_ID=your_folder_id")
		fmt.Println("YANDEX_API_KEY=your_api_key  # or YANDEX_IAM_TOKEN")
		fmt.Println("VOICE_LANG=en-US")
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger, os.Stdin, os.Stdout); err != nil {
		logger.Fatal("voice engine stopped", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// lockedOutput serializes writes from listeners running on backend
// goroutines with the command loop
func lockedOutput(w io.Writer) io.Writer {
	return zapcore.Lock(zapcore.AddSync(w))
}

func run(cfg *config.Config, logger *zap.Logger, in io.Reader, w io.Writer) error {
	out := lockedOutput(w)

	capturer := audio.NewPortaudioCapturer(audio.Config{
		SampleRate:      float64(cfg.Audio.SampleRate),
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
	}, logger)
	if err := capturer.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer capturer.Terminate()

	if err := capturer.Open(); err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer capturer.Close()

	player := sound.NewPortaudioPlayer(sound.PlayerConfig{FramesPerBuffer: cfg.Audio.FramesPerBuffer}, logger)
	if err := player.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize sound player: %w", err)
	}
	defer player.Terminate()

	recognizer, err := stt.NewYandexSTTClient(stt.YandexConfig{
		IamToken:   cfg.IamToken,
		ApiKey:     cfg.ApiKey,
		FolderID:   cfg.FolderID,
		SampleRate: int64(cfg.Audio.SampleRate),
	}, capturer, logger)
	if err != nil {
		return fmt.Errorf("failed to create STT client: %w", err)
	}

	opts := tts.GetDefaultSynthesisOptions()
	opts.Speed = cfg.TTSSpeed
	synthesizer, err := tts.NewYandexTTSClient(tts.YandexConfig{
		ApiKey:   cfg.ApiKey,
		IamToken: cfg.IamToken,
		FolderID: cfg.FolderID,
		Options:  opts,
	}, player, logger)
	if err != nil {
		recognizer.Close()
		return fmt.Errorf("failed to create TTS client: %w", err)
	}

	eng := engine.NewEngine(engine.EngineConfig{
		Lang:         cfg.Lang,
		Continuous:   cfg.Continuous,
		LocalService: cfg.LocalService,
	}, recognizer, synthesizer, logger)
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("shutdown errors", zap.Error(err))
		}
	}()

	printEvents(eng, out)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Fprintf(out, "Voice engine ready (language: %s).\n%s\n", eng.Language(), usage)
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nStopping...")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if !execute(eng, line, out) {
				return nil
			}
		}
	}
}

// execute runs one command line and reports whether to keep reading
func execute(eng *engine.Engine, line string, out io.Writer) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
	case "start":
		eng.Start()
	case "stop":
		eng.Stop()
	case "cancel":
		eng.Cancel()
	case "speak":
		eng.Speak(arg)
	case "lang":
		eng.SetLanguage(arg)
	case "voice":
		eng.SetVoice(arg)
	case "voices":
		voices := eng.Voices()
		for _, lang := range voices.Languages() {
			fmt.Fprintf(out, "%s: %s\n", lang, strings.Join(voices.Voices(lang), ", "))
		}
	case "langs":
		fmt.Fprintln(out, strings.Join(eng.RecognitionLanguages(), " "))
	case "quit", "exit":
		return false
	default:
		fmt.Fprintln(out, usage)
	}
	return true
}

func printEvents(eng *engine.Engine, out io.Writer) {
	eng.Subscribe(engine.EventStart, func(engine.Event) {
		fmt.Fprintln(out, "* listening")
	})
	eng.Subscribe(engine.EventResult, func(ev engine.Event) {
		fmt.Fprintf(out, "Recognized: %s\n", ev.Text)
	})
	eng.Subscribe(engine.EventEnd, func(engine.Event) {
		fmt.Fprintf(out, "* stopped listening, recorded: %q\n", eng.Recorded())
	})
	eng.Subscribe(engine.EventError, func(ev engine.Event) {
		fmt.Fprintf(out, "! %s error: %v\n", ev.Source, ev.Err)
	})
	eng.Subscribe(engine.EventVoiceChanged, func(ev engine.Event) {
		fmt.Fprintf(out, "* language %s, voice %q\n", ev.Language, ev.Voice)
	})
	eng.Subscribe(engine.EventSpeakStart, func(engine.Event) {
		fmt.Fprintln(out, "* speaking")
	})
	eng.Subscribe(engine.EventSpeakEnd, func(engine.Event) {
		fmt.Fprintln(out, "* done speaking")
	})
}
