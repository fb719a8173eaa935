package libav

import (
	"context"
	"strings"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avdecoder/avconv"
	"github.com/xaionaro-go/avdecoder/logger"
)

// SetupLogging routes libav's log into the logger of ctx, at the given
// verbosity. libav has a single global log callback, so the last call
// wins.
func SetupLogging(ctx context.Context, level logger.Level) {
	astiav.SetLogLevel(avconv.LogLevelToAstiav(level))
	astiav.SetLogCallback(func(c astiav.Classer, level astiav.LogLevel, fmt, msg string) {
		var cs string
		if c != nil {
			if cl := c.Class(); cl != nil {
				cs = " - class: " + cl.String()
			}
		}
		logger.Logf(ctx,
			avconv.LogLevelFromAstiav(level),
			"%s%s",
			strings.TrimSpace(msg), cs,
		)
	})
}
