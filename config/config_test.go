package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"VOICE_LANG", "VOICE_CONTINUOUS", "VOICE_LOCAL_SERVICE", "AUDIO_SAMPLE_RATE", "TTS_SPEED", "DEBUG"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "en-US", cfg.Lang)
	assert.True(t, cfg.Continuous)
	assert.True(t, cfg.LocalService)
	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, 1024, cfg.Audio.FramesPerBuffer)
	assert.Equal(t, 1.0, cfg.TTSSpeed)
	assert.False(t, cfg.Debug)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	for _, key := range []string{"VOICE_LANG", "VOICE_CONTINUOUS", "YANDEX_FOLDER_ID", "YANDEX_API_KEY"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	path := filepath.Join(t.TempDir(), ".env")
	content := "VOICE_LANG=fr_FR\nVOICE_CONTINUOUS=false\nYANDEX_FOLDER_ID=b1g\nYANDEX_API_KEY=secret\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "fr_FR", cfg.Lang)
	assert.False(t, cfg.Continuous)
	assert.Equal(t, "b1g", cfg.FolderID)
	assert.Equal(t, "secret", cfg.ApiKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_InvalidValue(t *testing.T) {
	t.Setenv("AUDIO_SAMPLE_RATE", "fast")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "missing folder", cfg: Config{ApiKey: "k"}, wantErr: ErrMissingFolderID},
		{name: "missing credential", cfg: Config{FolderID: "f"}, wantErr: ErrMissingCredential},
		{name: "iam token", cfg: Config{FolderID: "f", IamToken: "t"}},
		{name: "api key", cfg: Config{FolderID: "f", ApiKey: "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
