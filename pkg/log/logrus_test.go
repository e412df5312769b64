package log

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleFormatterLine(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusLoggerWithWriter("debug", &buf)

	logger.WithFields(map[string]interface{}{"head": "H1", "axis": "x"}).Infof("moved %d axes", 1)

	line := buf.String()
	assert.Regexp(t, regexp.MustCompile(`^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}\.\d{6} \[INF\] moved 1 axes axis=x head=H1\n$`), line)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusLoggerWithWriter("warn", &buf)

	logger.Infof("hidden")
	logger.Warnf("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WAR] shown")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusLoggerWithWriter("chatty", &buf)

	logger.Debugf("hidden")
	logger.Infof("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogrusLoggerCreatesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := NewLogrusLogger("info", dir)
	require.NoError(t, err)
	logger.Infof("to file")

	data, err := os.ReadFile(filepath.Join(dir, LogFilename))
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
