package merge

import (
	"path/filepath"
	"strings"
	"unicode"

	"docmatch/internal/attributes"
	"docmatch/internal/textutil"
)

// DefaultMarker is appended when neither side of a pair carries a date.
const DefaultMarker = "COMBINADO"

// OutputName derives the merged file name for a pair: the primary's name
// without extension, a dash, the support's date (else the primary's date,
// else marker), and the primary's extension.
func OutputName(primary, support attributes.Record, marker string) string {
	base, ext := splitExtension(primary.Identifier)

	suffix := strings.TrimSpace(marker)
	switch {
	case support.HasDate():
		suffix = support.Date.String()
	case primary.HasDate():
		suffix = primary.Date.String()
	case suffix == "":
		suffix = DefaultMarker
	}
	return textutil.SanitizeFileName(strings.TrimSpace(base) + "-" + suffix + ext)
}

func splitExtension(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == "" || strings.IndexFunc(ext, unicode.IsLetter) < 0 {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}
