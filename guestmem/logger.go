package guestmem

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the guestmem package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the guestmem package's logger.
// This must be called before any Space is created.
func SetLogger(l *zap.Logger) {
	logger = l
}

func zapHex(key string, v uint64) zap.Field {
	return zap.String(key, fmt.Sprintf("0x%x", v))
}
