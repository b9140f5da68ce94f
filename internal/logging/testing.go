package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger captures log output and installs itself as the default logger
// for the duration of the test.
type TestLogger struct {
	*zerolog.Logger
	Buffer *bytes.Buffer
}

func NewTestLogger(t testing.TB) *TestLogger {
	t.Helper()

	buf := &bytes.Buffer{}
	logger := zerolog.New(buf).Level(zerolog.TraceLevel).With().Timestamp().Logger()

	previous := defaultLogger
	SetDefault(logger)
	t.Cleanup(func() { SetDefault(previous) })

	return &TestLogger{Logger: &logger, Buffer: buf}
}

func (tl *TestLogger) Output() string {
	return tl.Buffer.String()
}

func (tl *TestLogger) Contains(substr string) bool {
	return strings.Contains(tl.Output(), substr)
}
