package config

import (
	"slices"
	"strings"
)

// Wildcard is the permissive value every CORS list falls back to.
const Wildcard = "*"

// ParseCORSList normalizes a raw CORS origins/methods/headers value. Absent, empty,
// wildcard and unrecognized inputs all resolve to ["*"]. It never fails.
func ParseCORSList(v any) []string {
	switch raw := v.(type) {
	case nil:
		return wildcardList()
	case []string:
		if len(raw) == 0 {
			return wildcardList()
		}
		return slices.Clone(raw)
	case string:
		return parseCORSString(raw)
	default:
		return wildcardList()
	}
}

func parseCORSString(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if raw == "" || trimmed == Wildcard {
		return wildcardList()
	}
	items := compact(strings.Split(raw, ","))
	if len(items) == 0 {
		return wildcardList()
	}
	return items
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func wildcardList() []string {
	return []string{Wildcard}
}

// AllowsAll reports whether list is the wildcard.
func AllowsAll(list []string) bool {
	return slices.Contains(list, Wildcard)
}
