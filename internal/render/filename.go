package render

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultFileNameFormat is used when no file name format is configured.
	DefaultFileNameFormat = "{{title}}"
	// DefaultFileName replaces a name that sanitizes to nothing.
	DefaultFileName = "Untitled"
	// MaxFileNameBytes caps the name (without extension) in UTF-8 bytes.
	MaxFileNameBytes = 200
)

// reservedChars cannot appear in a file name on Windows, the strictest of the
// common targets. Each one is replaced by a single space.
const reservedChars = `/\:*?"<>|`

var reservedDeviceNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// MakeFileName renders format against rec and sanitizes the result. It never
// touches the file system and always returns a usable name.
func MakeFileName(rec Record, format string) string {
	if strings.TrimSpace(format) == "" {
		format = DefaultFileNameFormat
	}
	return SanitizeFileName(ReplaceVariableSyntax(rec, format))
}

// SanitizeFileName makes name safe for use as a file name:
//   - reserved characters and control characters become a space
//   - whitespace runs collapse to one space
//   - leading dots and trailing dots or spaces are trimmed
//   - Windows device names get a "_" suffix on their stem
//   - the result is capped at MaxFileNameBytes on a rune boundary
//   - an empty result becomes DefaultFileName
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(reservedChars, r) || unicode.IsControl(r) {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	name = trimNameEdges(strings.Join(strings.Fields(b.String()), " "))
	name = guardDeviceName(name)
	name = trimNameEdges(truncateBytes(name, MaxFileNameBytes))
	if name == "" {
		return DefaultFileName
	}
	return name
}

func trimNameEdges(s string) string {
	s = strings.TrimLeft(s, ". ")
	return strings.TrimRight(s, ". ")
}

func guardDeviceName(s string) string {
	stem, rest, found := strings.Cut(s, ".")
	if _, ok := reservedDeviceNames[strings.ToUpper(strings.TrimSpace(stem))]; !ok {
		return s
	}
	if !found {
		return stem + "_"
	}
	return stem + "_." + rest
}

// truncateBytes cuts s to at most limit bytes without splitting a rune.
func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
