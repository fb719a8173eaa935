package decoder

import (
	"context"
	"strings"

	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
)

// commonOptions are accepted by every backend.
var commonOptions = []string{
	types.OptionFilename,
}

// WarnUnknownOptions logs the custom options no key of which is in known
// (or in the options common to all backends).
func WarnUnknownOptions(
	ctx context.Context,
	backendName string,
	opts types.DecoderOptions,
	known ...string,
) {
	for _, opt := range opts.CustomOptions {
		if isKnownOption(opt.Key, known) || isKnownOption(opt.Key, commonOptions) {
			continue
		}
		logger.Warnf(ctx, "%s: ignoring unknown option '%s'='%s'", backendName, opt.Key, opt.Value)
	}
}

func isKnownOption(key string, known []string) bool {
	for _, k := range known {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// ParseOption looks the value up by the given keys (the first present key
// wins) and parses it. A value that fails to parse is logged and reported
// as absent, so the backend keeps its default.
func ParseOption[T any](
	ctx context.Context,
	backendName string,
	opts types.DecoderOptions,
	parse func(string) (T, bool),
	keys ...string,
) (T, bool) {
	var zero T
	value, ok := opts.CustomOptions.Get(keys...)
	if !ok {
		return zero, false
	}
	result, ok := parse(value)
	if !ok {
		logger.Warnf(ctx, "%s: ignoring unknown %s '%s'", backendName, keys[len(keys)-1], value)
		return zero, false
	}
	return result, true
}
