// Package urltools derives libav demuxer hints from URLs and file names.
package urltools

import (
	"path/filepath"
	"slices"
	"strings"
)

// InputFormatNameFromFileName guesses the libav demuxer of a file by its
// extension; "" means libav has to probe the content.
func InputFormatNameFromFileName(path string) string {
	switch {
	case hasFileExtension(path, ".mp4", ".m4a", ".m4v", ".mov", ".3gp"):
		return "mp4"
	case hasFileExtension(path, ".mkv", ".mk3d", ".mks"):
		return "matroska"
	case hasFileExtension(path, ".webm"):
		return "webm"
	case hasFileExtension(path, ".flv"):
		return "flv"
	case hasFileExtension(path, ".ts", ".mts", ".m2ts"):
		return "mpegts"
	case hasFileExtension(path, ".mpeg", ".mpg", ".vob"):
		return "mpeg"
	case hasFileExtension(path, ".avi"):
		return "avi"
	case hasFileExtension(path, ".mxf"):
		return "mxf"
	default:
		return ""
	}
}

func hasFileExtension(path string, exts ...string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
}
