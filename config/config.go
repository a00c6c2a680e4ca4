package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrMissingFolderID   = errors.New("YANDEX_FOLDER_ID must be set")
	ErrMissingCredential = errors.New("YANDEX_IAM_TOKEN or YANDEX_API_KEY must be set")
)

type Config struct {
	Lang         string `env:"VOICE_LANG"          envDefault:"en-US"`
	Continuous   bool   `env:"VOICE_CONTINUOUS"    envDefault:"true"`
	LocalService bool   `env:"VOICE_LOCAL_SERVICE" envDefault:"true"`

	IamToken string `env:"YANDEX_IAM_TOKEN"`
	ApiKey   string `env:"YANDEX_API_KEY"`
	FolderID string `env:"YANDEX_FOLDER_ID"`

	Audio AudioConfig

	TTSSpeed float64 `env:"TTS_SPEED" envDefault:"1.0"`
	Debug    bool    `env:"DEBUG"     envDefault:"false"`
}

type AudioConfig struct {
	SampleRate      int `env:"AUDIO_SAMPLE_RATE"       envDefault:"16000"`
	FramesPerBuffer int `env:"AUDIO_FRAMES_PER_BUFFER" envDefault:"1024"`
}

// LoadConfig reads the given .env files (".env" when none are given) into the
// process environment and parses it. Missing files are not an error.
func LoadConfig(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that the Yandex backends can authenticate
func (c *Config) Validate() error {
	if c.FolderID == "" {
		return ErrMissingFolderID
	}
	if c.IamToken == "" && c.ApiKey == "" {
		return ErrMissingCredential
	}
	return nil
}
