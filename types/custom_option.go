package types

import (
	"sort"
)

// DictionaryItem is a single key/value custom option.
type DictionaryItem struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// DictionaryItems is an ordered list of custom options; later items win.
type DictionaryItems []DictionaryItem

// DictionaryItemsFromMap converts an unordered map, sorting by key so the
// result is deterministic.
func DictionaryItemsFromMap(m map[string]string) DictionaryItems {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result := make(DictionaryItems, 0, len(keys))
	for _, k := range keys {
		result = append(result, DictionaryItem{Key: k, Value: m[k]})
	}
	return result
}

// Deduplicate keeps only the last occurrence of every key, preserving the
// order of those last occurrences.
func (s DictionaryItems) Deduplicate() DictionaryItems {
	lastIdx := make(map[string]int, len(s))
	for idx, item := range s {
		lastIdx[item.Key] = idx
	}
	result := make(DictionaryItems, 0, len(lastIdx))
	for idx, item := range s {
		if lastIdx[item.Key] != idx {
			continue
		}
		result = append(result, item)
	}
	return result
}

// Get returns the value of the first key (in keys order) that is set; when
// a key is set more than once the last value wins.
func (s DictionaryItems) Get(keys ...string) (string, bool) {
	for _, key := range keys {
		found := false
		var value string
		for _, item := range s {
			if item.Key == key {
				value, found = item.Value, true
			}
		}
		if found {
			return value, true
		}
	}
	return "", false
}

// With returns a copy of s with key set to value.
func (s DictionaryItems) With(key, value string) DictionaryItems {
	result := make(DictionaryItems, 0, len(s)+1)
	result = append(result, s...)
	return append(result, DictionaryItem{Key: key, Value: value})
}

func (s DictionaryItems) Map() map[string]string {
	m := make(map[string]string, len(s))
	for _, item := range s {
		m[item.Key] = item.Value
	}
	return m
}
