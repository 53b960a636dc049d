package capture

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	hotPathDebugOnce sync.Once
	hotPathDebugFlag bool
)

// hotPathDebugEnabled gates per-frame diagnostics. Regular lifecycle logging
// goes through the injected logger unconditionally.
func hotPathDebugEnabled() bool {
	hotPathDebugOnce.Do(func() {
		hotPathDebugFlag = strings.TrimSpace(os.Getenv("SCAPSRC_DEBUG")) == "1" ||
			strings.TrimSpace(os.Getenv("SCAPSRC_CAPTURE_DEBUG")) == "1"
	})
	return hotPathDebugFlag
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// hotPathDebug logs at most once per period for the given limiter.
func hotPathDebug(log *slog.Logger, last *atomic.Int64, period time.Duration, msg string, args ...any) {
	if !hotPathDebugEnabled() || !ShouldLogEvery(last, period) {
		return
	}
	loggerOrDefault(log).Log(context.Background(), slog.LevelDebug, msg, args...)
}

// ShouldLogEvery reports whether period has passed since the limiter last
// fired, and arms it when it has.
func ShouldLogEvery(last *atomic.Int64, period time.Duration) bool {
	if last == nil || period <= 0 {
		return true
	}

	now := time.Now().UnixNano()
	for {
		prev := last.Load()
		if prev != 0 && time.Duration(now-prev) < period {
			return false
		}
		if last.CompareAndSwap(prev, now) {
			return true
		}
	}
}
