package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 300*time.Millisecond, cfg.DebounceDelay)
	assert.Equal(t, DefaultControlAddr, cfg.ControlAddr)
	assert.Equal(t, "info", cfg.LogLevel)

	sc, ok := cfg.ServerForLanguage("go")
	require.True(t, ok)
	assert.Equal(t, "gopls", sc.Command)
}

func TestLoad_FileOverridesAndMerges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "langbridge.yaml")
	data := `
debounceDelay: 150ms
logLevel: debug
servers:
  go:
    command: custom-gopls
    languages: [go]
  odin:
    command: ols
    languages: [odin]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 150*time.Millisecond, cfg.DebounceDelay)
	assert.Equal(t, "debug", cfg.LogLevel)

	goSrv, ok := cfg.ServerForLanguage("go")
	require.True(t, ok)
	assert.Equal(t, "custom-gopls", goSrv.Command)

	odin, ok := cfg.ServerForLanguage("odin")
	require.True(t, ok)
	assert.Equal(t, "ols", odin.Command)

	// Defaults for untouched languages survive the merge.
	rust, ok := cfg.ServerForLanguage("rust")
	require.True(t, ok)
	assert.Equal(t, "rust-analyzer", rust.Command)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		data string
	}{
		{"missing command", "servers:\n  go:\n    command: \"\"\n"},
		{"bad log level", "logLevel: loud\n"},
		{"non-loopback control", "controlAddr: 0.0.0.0:9000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestServerForLanguage_Aliases(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	// typescriptreact has no direct map key but is listed by the
	// typescript server.
	sc, ok := cfg.ServerForLanguage("typescriptreact")
	require.True(t, ok)
	assert.Equal(t, "typescript-language-server", sc.Command)

	_, ok = cfg.ServerForLanguage("cobol")
	assert.False(t, ok)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "langbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: info\n"), 0o644))

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher a moment to register before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("logLevel: warn\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "warn", cfg.LogLevel)
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback never fired")
	}
}
