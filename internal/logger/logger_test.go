// ABOUTME: Tests for logger construction
// ABOUTME: Verifies level parsing, console output and rotating file output

package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	z, err := New(Config{Level: "warn"}, &buf)
	require.NoError(t, err)

	z.Info("quiet")
	z.Warn("feed failed")
	require.NoError(t, z.Sync())

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "feed failed")
	assert.Contains(t, buf.String(), "WARN")
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "feedwatch.log")
	var buf bytes.Buffer
	z, err := New(Config{File: path}, &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })

	z.Info("pass complete")
	require.NoError(t, z.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pass complete")
	assert.Contains(t, buf.String(), "pass complete")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "verbose"}, &bytes.Buffer{})
	assert.Error(t, err)
}
