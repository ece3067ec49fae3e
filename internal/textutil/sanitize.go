package textutil

import (
	"strings"
	"unicode/utf8"
)

// MaxFileNameRunes caps sanitized file names.
const MaxFileNameRunes = 200

// fileNameReplacer replaces filesystem-unsafe characters with dashes.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "-",
	"\"", "-",
	"<", "-",
	">", "-",
	"|", "-",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename with
// dashes, strips control characters, and truncates the result to
// MaxFileNameRunes. The extension is preserved when truncating.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = fileNameReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= MaxFileNameRunes {
		return name
	}
	ext := ""
	if idx := strings.LastIndexByte(name, '.'); idx > 0 && utf8.RuneCountInString(name[idx:]) <= 10 {
		ext = name[idx:]
		name = name[:idx]
	}
	keep := MaxFileNameRunes - utf8.RuneCountInString(ext)
	runes := []rune(name)
	if keep < len(runes) {
		runes = runes[:keep]
	}
	return strings.TrimSpace(string(runes)) + ext
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
