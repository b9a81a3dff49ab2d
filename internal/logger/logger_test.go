package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer

	New(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	New(&buf, true).Debug("shown", "url", "https://x.example/rss")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "url=https://x.example/rss")
}

func TestOrDefault(t *testing.T) {
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, l, OrDefault(l))
	assert.Same(t, Logger, OrDefault(nil))
}
