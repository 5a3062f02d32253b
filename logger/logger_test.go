package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWriterLogger(buf, LogWarning)
	l.Info("hidden")
	l.Warning("shown")
	l.Error("also shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN] shown")
	assert.Contains(t, buf.String(), "[ERROR] also shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogWarning, ParseLevel("warn"))
	assert.Equal(t, LogInfo, ParseLevel("whatever"))
}

func TestMultiLogger(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	l := NewMultiLogger(NewWriterLogger(a, LogDebug), NewWriterLogger(b, LogError))
	l.Info("hello")
	assert.Contains(t, a.String(), "hello")
	assert.Empty(t, b.String())
}

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(WithFileDir(dir), WithFilename("cherry.log"))
	_, err := w.Write([]byte("first line"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second line\n"))
	require.NoError(t, err)
	require.NoError(t, w.(*Writer).Close())

	b, err := os.ReadFile(filepath.Join(dir, "cherry.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "first line"))
	assert.True(t, strings.HasSuffix(lines[1], "second line"))

	// writes after close are dropped
	n, err := w.Write([]byte("late"))
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestFileWriterTimeFormat(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(WithFileDir(dir), WithFilename("fmt.log"), WithTimeFormat("[2006]"))
	_, err := w.Write([]byte("line"))
	require.NoError(t, err)
	require.NoError(t, w.(*Writer).Close())

	b, err := os.ReadFile(filepath.Join(dir, "fmt.log"))
	require.NoError(t, err)
	assert.Regexp(t, `^\[\d{4}\] line\n$`, string(b))
}
