package config

import (
	"slices"
	"strings"
)

// Settings is the resolved configuration. It is built once by Load and must be
// treated as read-only afterwards; share it by pointer.
type Settings struct {
	Environment string           `json:"environment" yaml:"environment" validate:"required"`
	Dev         bool             `json:"dev"         yaml:"dev"`
	Database    DatabaseSettings `json:"database"    yaml:"database"`
	Whisper     WhisperSettings  `json:"whisper"     yaml:"whisper"`
	Logging     LoggingSettings  `json:"logging"     yaml:"logging"`
	CORS        CORSSettings     `json:"cors"        yaml:"cors"`
	Server      ServerSettings   `json:"server"      yaml:"server"`

	corrections []Correction
}

// IsDevelopment reports whether the service runs in development mode.
func (s *Settings) IsDevelopment() bool {
	return s.Dev || s.Environment == "development"
}

// Corrections lists the adjustments made while reconciling the raw values.
func (s *Settings) Corrections() []Correction {
	return slices.Clone(s.corrections)
}

// NormalizeEnvironment lowercases the environment name; empty means production.
func NormalizeEnvironment(env string) string {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		return defaultEnvironment
	}
	return env
}

// Correction records one field rewritten during reconciliation.
type Correction struct {
	Field string
	From  string
	To    string
	Rule  string
}

// compute types each device can run, preferred first.
var computeTypesByDevice = map[Device][]ComputeType{
	DeviceCPU:  {ComputeInt8},
	DeviceCUDA: {ComputeFloat16, ComputeFloat32, ComputeInt8},
}

// AllowedComputeTypes returns the compute types compatible with d, preferred first.
func AllowedComputeTypes(d Device) []ComputeType {
	return slices.Clone(computeTypesByDevice[d])
}

// Reconcile rewrites an incompatible compute type to the device's preferred one.
// It never fails; the returned Correction is only meaningful when ok is true.
func Reconcile(w *WhisperSettings) (Correction, bool) {
	allowed := computeTypesByDevice[w.Device]
	if len(allowed) == 0 || slices.Contains(allowed, w.ComputeType) {
		return Correction{}, false
	}
	c := Correction{
		Field: keyWhisperComputeType,
		From:  string(w.ComputeType),
		To:    string(allowed[0]),
		Rule:  "device " + string(w.Device) + " requires " + string(allowed[0]),
	}
	w.ComputeType = allowed[0]
	return c, true
}
