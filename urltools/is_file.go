package urltools

import (
	"net/url"
	"strconv"
	"strings"
)

func IsFileURL(urlString string) bool {
	u, err := url.Parse(urlString)
	if err != nil {
		return true
	}
	switch u.Scheme {
	case "file", "":
		return true
	case "rtmp", "rtmps", "srt", "udp", "tcp", "http", "https", "rtsp", "rtsps":
		return false
	default:
		// a Windows drive letter parses as a scheme
		return len(u.Scheme) == 1
	}
}

// FileDescriptor parses libav's "fd:N" URL form.
func FileDescriptor(urlString string) (int, bool) {
	rest, ok := strings.CutPrefix(urlString, "fd:")
	if !ok {
		return 0, false
	}
	fd, err := strconv.Atoi(rest)
	if err != nil || fd < 0 {
		return 0, false
	}
	return fd, true
}

// Redact hides the password and the query of a network URL, so that the
// result may be logged.
func Redact(urlString string) string {
	if IsFileURL(urlString) {
		return urlString
	}
	u, err := url.Parse(urlString)
	if err != nil {
		return "<unparsable URL>"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	if u.RawQuery != "" {
		u.RawQuery = "xxxxx"
	}
	return u.String()
}
