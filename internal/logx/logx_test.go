package logx

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

func TestConsole_WritesFieldsAndRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsole("info", &buf).With(String("refuge", "Bonatti"))

	log.Debug("hidden")
	log.Info("polled", Int("places", 4), Err(errors.New("boom")))

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "polled")
	require.Contains(t, out, "refuge=Bonatti")
	require.Contains(t, out, "places=4")
	require.Contains(t, out, "boom")
}

func TestZeroLoggerIsSilent(t *testing.T) {
	var l Logger
	require.True(t, l.IsZero())
	l.Info("nothing happens")
	require.False(t, Nop().IsZero())
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	log, closer, err := NewFile("debug", path)
	require.NoError(t, err)
	log.Debug("to file", Bool("ok", true))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), `"message":"to file"`), string(data))
}
