package fsutil

import "strings"

// maxNameLen bounds names produced by SafeName.
const maxNameLen = 128

// SafeName turns an arbitrary label (a trace name, a metadata label) into a
// file name component. Runs of characters other than ASCII letters, digits,
// '.', '_' and '-' become one underscore; leading and trailing dots and
// underscores are trimmed. An empty result is "unnamed".
func SafeName(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range s {
		if b.Len() >= maxNameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			underscore = false
		case !underscore:
			b.WriteByte('_')
			underscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unnamed"
	}
	return out
}
