package config

import "encoding/json"

const redacted = "[REDACTED]"

// SensitiveString holds a secret that must not leak through logs or dumps.
type SensitiveString string

// Value returns the raw secret.
func (s SensitiveString) Value() string {
	return string(s)
}

// IsSet reports whether a secret was configured.
func (s SensitiveString) IsSet() bool {
	return s != ""
}

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s SensitiveString) MarshalYAML() (any, error) {
	return s.String(), nil
}
