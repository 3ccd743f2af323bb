package config

import (
	"slices"
	"strings"
)

// ModelSize identifies a supported transcription model.
type ModelSize string

const (
	ModelTiny           ModelSize = "tiny"
	ModelTinyEn         ModelSize = "tiny.en"
	ModelBase           ModelSize = "base"
	ModelBaseEn         ModelSize = "base.en"
	ModelSmall          ModelSize = "small"
	ModelSmallEn        ModelSize = "small.en"
	ModelMedium         ModelSize = "medium"
	ModelMediumEn       ModelSize = "medium.en"
	ModelLarge          ModelSize = "large"
	ModelLargeV1        ModelSize = "large-v1"
	ModelLargeV2        ModelSize = "large-v2"
	ModelLargeV3        ModelSize = "large-v3"
	ModelLargeV3Turbo   ModelSize = "large-v3-turbo"
	ModelDistilLargeV2  ModelSize = "distil-large-v2"
	ModelDistilLargeV3  ModelSize = "distil-large-v3"
	ModelDistilMediumEn ModelSize = "distil-medium.en"
	ModelDistilSmallEn  ModelSize = "distil-small.en"
)

var modelSizes = []ModelSize{
	ModelTiny, ModelTinyEn, ModelBase, ModelBaseEn, ModelSmall, ModelSmallEn,
	ModelMedium, ModelMediumEn, ModelLarge, ModelLargeV1, ModelLargeV2, ModelLargeV3,
	ModelLargeV3Turbo, ModelDistilLargeV2, ModelDistilLargeV3, ModelDistilMediumEn,
	ModelDistilSmallEn,
}

// ModelSizes returns every supported model in declaration order.
func ModelSizes() []ModelSize {
	return slices.Clone(modelSizes)
}

// ParseModelSize converts a literal into a ModelSize.
func ParseModelSize(s string) (ModelSize, error) {
	return parseEnum("model size", s, modelSizes)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ModelSize) UnmarshalText(text []byte) error {
	v, err := ParseModelSize(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Device selects the inference backend.
type Device string

const (
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

var devices = []Device{DeviceCPU, DeviceCUDA}

// ParseDevice converts a literal into a Device.
func ParseDevice(s string) (Device, error) {
	return parseEnum("device", s, devices)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Device) UnmarshalText(text []byte) error {
	v, err := ParseDevice(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ComputeType is the numeric precision used for inference.
type ComputeType string

const (
	ComputeFloat16 ComputeType = "float16"
	ComputeFloat32 ComputeType = "float32"
	ComputeInt8    ComputeType = "int8"
)

var computeTypes = []ComputeType{ComputeFloat16, ComputeFloat32, ComputeInt8}

// ParseComputeType converts a literal into a ComputeType.
func ParseComputeType(s string) (ComputeType, error) {
	return parseEnum("compute type", s, computeTypes)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ComputeType) UnmarshalText(text []byte) error {
	v, err := ParseComputeType(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// parseEnum matches the exact literal against a closed set. The returned
// ParseError carries no key; the binder fills it in.
func parseEnum[T ~string](kind, raw string, allowed []T) (T, error) {
	candidate := T(raw)
	if slices.Contains(allowed, candidate) {
		return candidate, nil
	}
	names := make([]string, len(allowed))
	for i, v := range allowed {
		names[i] = string(v)
	}
	var zero T
	return zero, &ParseError{
		Key:    kind,
		Value:  raw,
		Reason: "must be one of " + strings.Join(names, ", "),
	}
}
