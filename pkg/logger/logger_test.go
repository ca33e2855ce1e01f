package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" Warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{
		Output: &buf,
		Level:  "warn",
		Attrs:  []slog.Attr{slog.String("service", "coach-hub")},
	})

	log.Info("dropped")
	log.Warn("kept", "student_id", "42")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "coach-hub", rec["service"])
	assert.Equal(t, "42", rec["student_id"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Output: &buf, Format: "text"}).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestContext(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	l := Discard()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}
