package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLogLevel("debug"))
	assert.Equal(t, WARN, ParseLogLevel("warning"))
	assert.Equal(t, INFO, ParseLogLevel("nonsense"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, WARN)

	l.Info("hidden")
	l.Warn("shown", Fields{"b": 2, "a": 1})
	l.Errorf("code %d", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown | a=1 b=2")
	assert.Contains(t, out, "[ERROR] code 7")

	buf.Reset()
	l.SetLevel(DEBUG)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := GetLogger()
	SetLogger(NewWriterLogger(&buf, INFO))
	defer SetLogger(prev)

	Infof("hello %s", "world")
	Debug("quiet")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "hello world")
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	viper.Set("logging.output", "file")
	viper.Set("logging.path", dir)
	viper.Set("logging.level", "debug")
	defer viper.Reset()

	l, err := NewLogger()
	require.NoError(t, err)
	l.Debug("to disk")
	require.NoError(t, l.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "*", "*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "to disk")
}
