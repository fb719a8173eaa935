package avconv

import (
	"context"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avdecoder/internal"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
)

// DictionaryItemsToAstiav builds a libav dictionary, skipping the keys for
// which skip returns true; the result is nil if nothing is left.
func DictionaryItemsToAstiav(
	ctx context.Context,
	s types.DictionaryItems,
	skip func(key string) bool,
) *astiav.Dictionary {
	var result *astiav.Dictionary
	for _, opt := range s.Deduplicate() {
		if skip != nil && skip(opt.Key) {
			continue
		}
		if result == nil {
			result = astiav.NewDictionary()
			internal.SetFinalizerFree(ctx, result)
		}
		logger.Tracef(ctx, "setting custom option: %s=%s", opt.Key, opt.Value)
		if err := result.Set(opt.Key, opt.Value, 0); err != nil {
			logger.Warnf(ctx, "unable to set option '%s'='%s': %v", opt.Key, opt.Value, err)
		}
	}
	return result
}

// DictionaryToMap copies every entry of a libav dictionary.
func DictionaryToMap(d *astiav.Dictionary) map[string]string {
	if d == nil {
		return nil
	}
	result := map[string]string{}
	var entry *astiav.DictionaryEntry
	for {
		entry = d.Get("", entry, astiav.NewDictionaryFlags(astiav.DictionaryFlagIgnoreSuffix))
		if entry == nil {
			break
		}
		result[entry.Key()] = entry.Value()
	}
	return result
}
