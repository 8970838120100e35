package common

import (
	"fmt"
	"sync"
	"unicode"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const sanitizedConsoleEncoding = "sanitized-console"

var registerEncoderOnce sync.Once

// consoleEncoder replaces control characters in rendered entries. Decoded payloads and event logs are attacker
// controlled and end up in log fields.
type consoleEncoder struct {
	zapcore.Encoder
}

func (e consoleEncoder) Clone() zapcore.Encoder {
	return consoleEncoder{e.Encoder.Clone()}
}

func (e consoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf, err := e.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		if buf != nil {
			buf.Free()
		}
		return nil, err
	}

	sanitize(buf.Bytes())
	return buf, nil
}

func sanitize(b []byte) {
	for i := range b {
		if unicode.IsControl(rune(b[i])) && !unicode.IsSpace(rune(b[i])) {
			b[i] = '\x1A' // Substitute character
		}
	}
}

// NewLogger builds the root logger at the given level ("debug", "info", ...).
func NewLogger(level string) (*zap.Logger, error) {
	var regErr error
	registerEncoderOnce.Do(func() {
		regErr = zap.RegisterEncoder(sanitizedConsoleEncoding, func(cfg zapcore.EncoderConfig) (zapcore.Encoder, error) {
			return consoleEncoder{zapcore.NewConsoleEncoder(cfg)}, nil
		})
	})
	if regErr != nil {
		return nil, fmt.Errorf("failed to register log encoder: %w", regErr)
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = sanitizedConsoleEncoding
	cfg.Development = false
	return cfg.Build()
}
