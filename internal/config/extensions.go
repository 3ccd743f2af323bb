package config

import (
	"encoding/json"
	"slices"
	"sort"
	"strings"
)

var (
	defaultAudioExtensions = []string{".mp3", ".wav", ".awb", ".aac", ".ogg", ".oga", ".m4a", ".wma", ".amr"}
	defaultVideoExtensions = []string{".mp4", ".mov", ".avi", ".wmv", ".mkv"}
)

// ExtensionSet is an immutable set of lowercase file extensions with a leading dot.
type ExtensionSet struct {
	items map[string]struct{}
}

// NewExtensionSet normalizes and de-duplicates the given extensions.
func NewExtensionSet(exts ...string) ExtensionSet {
	items := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		if n := normalizeExtension(ext); n != "" {
			items[n] = struct{}{}
		}
	}
	return ExtensionSet{items: items}
}

// UnionExtensions returns a new set holding every member of a and b.
func UnionExtensions(a, b ExtensionSet) ExtensionSet {
	items := make(map[string]struct{}, a.Len()+b.Len())
	for ext := range a.items {
		items[ext] = struct{}{}
	}
	for ext := range b.items {
		items[ext] = struct{}{}
	}
	return ExtensionSet{items: items}
}

// Contains reports whether ext (in any case, with or without a dot) is a member.
func (s ExtensionSet) Contains(ext string) bool {
	_, ok := s.items[normalizeExtension(ext)]
	return ok
}

// Len returns the number of members.
func (s ExtensionSet) Len() int {
	return len(s.items)
}

// Sorted returns the members in lexical order.
func (s ExtensionSet) Sorted() []string {
	out := make([]string, 0, len(s.items))
	for ext := range s.items {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same members.
func (s ExtensionSet) Equal(other ExtensionSet) bool {
	return slices.Equal(s.Sorted(), other.Sorted())
}

// Clone returns an independent copy.
func (s ExtensionSet) Clone() ExtensionSet {
	return NewExtensionSet(s.Sorted()...)
}

func (s ExtensionSet) String() string {
	return strings.Join(s.Sorted(), ",")
}

func (s ExtensionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s ExtensionSet) MarshalYAML() (any, error) {
	return s.Sorted(), nil
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
