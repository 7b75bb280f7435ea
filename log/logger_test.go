/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vinyldash/vinylgw/config"
)

func newFileConfig(t *testing.T, format Format) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Output = OutputFile
	cfg.Format = format
	cfg.NoColor = true
	cfg.File.Path = filepath.Join(t.TempDir(), "vinylgw-{{pid}}.log")
	return cfg
}

func readLogFile(t *testing.T, cfg *Config) string {
	t.Helper()
	data, err := os.ReadFile(strings.ReplaceAll(cfg.File.Path, "{{pid}}", fmt.Sprint(os.Getpid())))
	require.NoError(t, err)
	return string(data)
}

func TestNewLogger_JSON(t *testing.T) {
	cfg := newFileConfig(t, FormatJSON)
	logger, closeFn := NewLogger(cfg)
	logger.With(String("resource", "discogs")).Warn("rate limited by upstream", Int("attempt", 3))
	logger.Debug("skipped")
	logger.Errorf("batch %d failed", 7)
	closeFn()

	lines := strings.Split(strings.TrimSpace(readLogFile(t, cfg)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "rate limited by upstream", entry["msg"])
	require.Equal(t, "discogs", entry["resource"])
	require.EqualValues(t, 3, entry["attempt"])
	require.EqualValues(t, os.Getpid(), entry["pid"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	require.Equal(t, "batch 7 failed", entry["msg"])
}

func TestNewLogger_Text(t *testing.T) {
	cfg := newFileConfig(t, FormatText)
	logger, closeFn := NewLogger(cfg)
	logger.AtLevel(LevelError, func(logFunc LogFunc) {
		logFunc("fill failed", Error(errors.New("connection refused")))
	})
	closeFn()

	out := readLogFile(t, cfg)
	require.Contains(t, out, "|ERRO|")
	require.Contains(t, out, " fill failed ")
	require.Contains(t, out, `error="connection refused"`)
}

func TestNewLogger_Masking(t *testing.T) {
	cfg := newFileConfig(t, FormatJSON)
	cfg.Masking.Enabled = true
	logger, closeFn := NewLogger(cfg)
	logger.Error("request failed",
		Error(errors.New(`Get "https://api.getsong.co/song/?id=o2r0L&api_key=s3cr3t": EOF`)),
		String("request", "GET /releases/1\r\nAuthorization: Discogs token=abc\r\n"))
	closeFn()

	out := readLogFile(t, cfg)
	require.NotContains(t, out, "s3cr3t")
	require.NotContains(t, out, "token=abc")
	require.Contains(t, out, "api_key=***")
}

func TestConfig_Set(t *testing.T) {
	load := func(data string) (*Config, error) {
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(data), config.DataTypeYAML, cfg)
		return cfg, err
	}

	cfg, err := load("")
	require.NoError(t, err)
	require.Equal(t, NewDefaultConfig(), cfg)

	cfg, err = load(`
log:
  level: DEBUG
  format: text
  output: file
  file:
    path: /var/log/vinylgw.log
    rotation:
      maxSize: 10M
      maxBackups: 3
  masking:
    enabled: true
    useDefaultRules: false
    rules:
      - field: discogs_token
        formats: [json]
`)
	require.NoError(t, err)
	require.Equal(t, LevelDebug, cfg.Level)
	require.Equal(t, FormatText, cfg.Format)
	require.Equal(t, "/var/log/vinylgw.log", cfg.File.Path)
	require.Equal(t, config.ByteSize(10*bytesInMegabyte), cfg.File.Rotation.MaxSize)
	require.Equal(t, 3, cfg.File.Rotation.MaxBackups)
	require.True(t, cfg.Masking.Enabled)
	require.False(t, cfg.Masking.UseDefaultRules)
	require.Equal(t, []MaskingRuleConfig{
		{Field: "discogs_token", Formats: []FieldMaskFormat{FieldMaskFormatJSON}},
	}, cfg.Masking.Rules)

	for data, wantErr := range map[string]string{
		"log:\n  level: trace":                              "log.level: unknown value",
		"log:\n  output: file":                              "log.file.path: cannot be empty",
		"log:\n  file:\n    rotation:\n      maxSize: 1K":   "log.file.rotation.maxSize: should be >= 1M",
		"log:\n  file:\n    rotation:\n      maxBackups: 0": "log.file.rotation.maxBackups: should be >= 1",
	} {
		_, err = load(data)
		require.ErrorContains(t, err, wantErr, data)
	}
}

func TestExpandFilePath(t *testing.T) {
	start := time.Date(2025, 3, 14, 9, 26, 0, 0, time.UTC)
	got := expandFilePath("/var/log/vinylgw-{{starttime}}-{{pid}}.log", start)
	require.Equal(t, fmt.Sprintf("/var/log/vinylgw-202503140926-%d.log", os.Getpid()), got)
	require.Equal(t, "plain.log", expandFilePath("plain.log", start))
}
