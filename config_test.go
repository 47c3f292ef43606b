package matsys

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigYAML(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata", "matsys.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "testdata/materials", cfg.Root)
	assert.Equal(t, ".vmt", cfg.Extension)
	assert.Equal(t, 10, cfg.MaxIncludeDepth)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	assert.Equal(t, 64, cfg.Store.PageSize)
	assert.Equal(t, DefaultCapabilities(), cfg.Capabilities)
}

func TestLoadConfigTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matsys.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
root = "mats"
maxIncludeDepth = 4
logLevel = "debug"

[capabilities]
featureLevel = 90
editor = true

[store]
queueSize = 128
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mats", cfg.Root)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 90, cfg.Capabilities.FeatureLevel)
	assert.True(t, cfg.Capabilities.Editor)
	assert.True(t, cfg.Capabilities.HDR, "unset keys keep their defaults")
	assert.Equal(t, 8, cfg.Capabilities.MaxTexCoords)

	logger := slog.New(&logSink{})
	opt := cfg.SystemOptions(logger)
	assert.Equal(t, 4, opt.MaxIncludeDepth)
	assert.Same(t, logger, opt.Logger)
	sopt := cfg.StoreOptions(logger)
	assert.Equal(t, 128, sopt.QueueSize)
	assert.Same(t, logger, sopt.Logger)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "matsys.ini"))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("root: [unclosed\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "decode")

	empty := filepath.Join(dir, "empty.yml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	cfg, err := LoadConfig(empty)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSlogLevelDefault(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "loud"}.SlogLevel())
	assert.Equal(t, slog.LevelError, Config{LogLevel: "ERROR"}.SlogLevel())
}
