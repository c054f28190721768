package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("Warning")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, lvl)

	lvl, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	l := New("bibox")
	l.SetLevel(WarnLevel)
	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN\tbibox\tshown 2")
	assert.True(t, l.Enabled(ErrorLevel))
	assert.False(t, l.Enabled(DebugLevel))
}

func TestGlobalFileRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "ct.log")

	require.NoError(t, Init(path))
	defer Close()
	SetMaxLogSize(64)
	defer SetMaxLogSize(10 * 1024 * 1024)

	l := New("rotate")
	l.SetLevel(DebugLevel)
	for i := 0; i < 5; i++ {
		l.Info("line %s", strings.Repeat("x", 20))
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)
}
