package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxDisplayNameBytes = 255

// SanitizeDisplayName normalizes a client supplied filename for display.
// The result is never used to build storage paths.
func SanitizeDisplayName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	t := transform.Chain(norm.NFKC, transform.RemoveFunc(unicode.IsControl))
	if cleaned, _, err := transform.String(t, name); err == nil {
		name = cleaned
	}
	name = strings.ReplaceAll(name, `"`, "'")
	name = strings.TrimSpace(name)

	if len(name) > maxDisplayNameBytes {
		cut := maxDisplayNameBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}
