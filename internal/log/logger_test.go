package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: WarnLevel, Output: &buf})

	l.Info("hidden")
	l.Warn("shown", "package", "requests")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "package=requests")
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: DebugLevel, Output: &buf, JSONOutput: true})

	l.With("workspace").Debug("indexed", "modules", 3)

	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "indexed", entry["msg"])
	assert.Equal(t, "workspace", entry["prefix"])
}

func TestNormalize_OddArgs(t *testing.T) {
	got := normalize([]interface{}{"oops", "k", "v"})
	assert.Equal(t, []interface{}{"detail", "oops", "k", "v"}, got)
}
