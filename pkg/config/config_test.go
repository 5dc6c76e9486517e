package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "A", cfg.Reference)
	assert.True(t, cfg.Seed)
	assert.Equal(t, 3*time.Second, cfg.NotificationLifetime())
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("port = 9000\nreference = \"B\"\nnotification_ms = 1500\n"), 0o644))

	t.Setenv("TRUST_GRAPH_PORT", "9100")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("reference", "A", "")
	fs.Int("port", 8080, "")
	require.NoError(t, fs.Parse([]string{"--reference", "C"}))

	cfg, err := LoadFile(path, fs)
	require.NoError(t, err)

	// env beats file, unchanged flag does not override
	assert.Equal(t, 9100, cfg.Port)
	// changed flag beats file
	assert.Equal(t, "C", cfg.Reference)
	assert.Equal(t, 1500*time.Millisecond, cfg.NotificationLifetime())
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("TRUST_GRAPH_FORMAT", "xml")

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), nil)
	assert.Error(t, err)
}

func TestLoad_DashedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("json-logs", false, "")
	fs.Int("notification-ms", 3000, "")
	fs.StringSlice("cors-origins", nil, "")
	require.NoError(t, fs.Parse([]string{"--json-logs", "--notification-ms", "500", "--cors-origins", "http://a,http://b"}))

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), fs)
	require.NoError(t, err)

	assert.True(t, cfg.JSONLogs)
	assert.Equal(t, 500*time.Millisecond, cfg.NotificationLifetime())
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.CORSOrigins)
}
