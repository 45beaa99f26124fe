package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ToSlogLevel("debug"))
	assert.Equal(t, slog.LevelDebug, ToSlogLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ToSlogLevel(""))
	assert.Equal(t, slog.LevelWarn, ToSlogLevel("warning"))
	assert.Equal(t, slog.LevelError, ToSlogLevel("error"))
	assert.Equal(t, slog.LevelError, ToSlogLevel("bogus"))
}

func TestNew_SplitsByLevel(t *testing.T) {
	var stderr, file bytes.Buffer
	log := New(Debug, &stderr, &file)

	log.Debug("phase transition")
	log.Info("replayed history")
	log.Warn("fetch failed")

	assert.NotContains(t, stderr.String(), "phase transition")
	assert.NotContains(t, stderr.String(), "replayed history")
	assert.Contains(t, stderr.String(), "fetch failed")

	assert.Contains(t, file.String(), "phase transition")
	assert.Contains(t, file.String(), "replayed history")
	assert.Contains(t, file.String(), "fetch failed")
}

func TestNew_NoFile(t *testing.T) {
	var stderr bytes.Buffer
	log := New(Info, &stderr, nil)

	log.Info("quiet")
	log.Error("loud", ErrAttr(assert.AnError))

	assert.NotContains(t, stderr.String(), "quiet")
	assert.Contains(t, stderr.String(), "loud")
	assert.Contains(t, stderr.String(), assert.AnError.Error())
}

func TestNew_ErrorLevelSilencesWarnings(t *testing.T) {
	var stderr bytes.Buffer
	log := New(Error, &stderr, nil)

	log.Warn("ignored")
	assert.Empty(t, stderr.String())
}
