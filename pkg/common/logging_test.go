package common

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSanitize(t *testing.T) {
	var bad_buf bytes.Buffer
	var good_buf bytes.Buffer

	bad_buf.WriteString("foo\x1b[31mbar\nbaz\x00")
	good_buf.WriteString("foo\x1A[31mbar\nbaz\x1A")

	sanitize(bad_buf.Bytes())

	assert.Equal(t, good_buf, bad_buf)
}

func TestEncodeEntry(t *testing.T) {
	enc := consoleEncoder{zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())}

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "decoded\x07payload"}, []zapcore.Field{zap.String("gateway", "\x1b]0;pwned")})
	require.NoError(t, err)
	defer buf.Free()

	assert.NotContains(t, buf.String(), "\x07")
	assert.NotContains(t, buf.String(), "\x1b")
	assert.Contains(t, buf.String(), "decoded\x1Apayload")
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	// Registering the encoder a second time must not fail.
	logger, err = NewLogger("warn")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger("loud")
	assert.Error(t, err)
}
