// Package internal holds helpers shared by the packages of this module.
package internal

import (
	"context"

	"github.com/xaionaro-go/avdecoder/logger"
)

// Assert panics (through the logger, so the message is flushed with the
// context's fields) if mustBeTrue is false.
func Assert(
	ctx context.Context,
	mustBeTrue bool,
	extraArgs ...any,
) {
	if mustBeTrue {
		return
	}

	logger.Panic(ctx, "assertion failed", extraArgs)
}
