package platform

import (
	"errors"
	"regexp"
	"strings"
)

// SourcePattern matches the supported content platform hosts, with or without
// scheme and www prefix.
const SourcePattern = `^(https?://)?(www\.)?(youtube|youtu|youtube-nocookie)\.(com|be)/`

var sourceRe = regexp.MustCompile(SourcePattern)

// ErrInvalidSource is returned when a submitted link is not a supported source
var ErrInvalidSource = errors.New("invalid source link")

// ValidateSource reports whether source is a supported media link. It performs
// no I/O and is safe to call before any resource is allocated.
func ValidateSource(source string) bool {
	if source == "" {
		return false
	}
	return sourceRe.MatchString(source)
}

// NormalizeSource trims whitespace around a submitted link
func NormalizeSource(text string) string {
	return strings.TrimSpace(text)
}
