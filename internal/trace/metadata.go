package trace

import "strings"

// Metadata keys written by the probe station acquisition software.
const (
	MetaSurfaceTreatment = "Surface Treatment"
	MetaGuardRing        = "Guard Ring"
)

// Metadata maps comment-line keys to their string values.
type Metadata map[string]string

// Get returns the value for key and whether it was present.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Label builds "<Surface Treatment>_Guard-<Guard Ring>" when both keys are
// present, otherwise returns fallback.
func (m Metadata) Label(fallback string) string {
	st, ok1 := m[MetaSurfaceTreatment]
	gr, ok2 := m[MetaGuardRing]
	if !ok1 || !ok2 {
		return fallback
	}
	return st + "_Guard-" + gr
}

// parseMetadataLine parses "# key: value". Lines without a colon or with an
// empty key are ignored.
func parseMetadataLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#"))
	k, v, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	k = strings.TrimSpace(k)
	if k == "" {
		return "", "", false
	}
	return k, strings.TrimSpace(v), true
}
