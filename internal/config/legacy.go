package config

// LegacyView is the flat field surface kept for call sites that predate the
// sectioned Settings. It is a snapshot copied from one Settings value.
//
// Deprecated: read the equivalent fields from Settings.
type LegacyView struct {
	Lang              string
	HFToken           SensitiveString
	WhisperModel      ModelSize
	Device            Device
	ComputeType       ComputeType
	Environment       string
	LogLevel          string
	AudioExtensions   ExtensionSet
	VideoExtensions   ExtensionSet
	AllowedExtensions ExtensionSet
	DBURL             string
}

// NewLegacyView projects s into a LegacyView. Sets are copied.
//
// Deprecated: read the equivalent fields from Settings.
func NewLegacyView(s *Settings) LegacyView {
	return LegacyView{
		Lang:              s.Whisper.DefaultLang,
		HFToken:           s.Whisper.HFToken,
		WhisperModel:      s.Whisper.Model,
		Device:            s.Whisper.Device,
		ComputeType:       s.Whisper.ComputeType,
		Environment:       s.Environment,
		LogLevel:          s.Logging.Level,
		AudioExtensions:   s.Whisper.AudioExtensions.Clone(),
		VideoExtensions:   s.Whisper.VideoExtensions.Clone(),
		AllowedExtensions: s.Whisper.AllowedExtensions(),
		DBURL:             s.Database.URL,
	}
}

// Map returns the view keyed by the historical field names.
func (v LegacyView) Map() map[string]any {
	return map[string]any{
		"LANG":               v.Lang,
		"HF_TOKEN":           v.HFToken,
		"WHISPER_MODEL":      v.WhisperModel,
		"DEVICE":             v.Device,
		"COMPUTE_TYPE":       v.ComputeType,
		"ENVIRONMENT":        v.Environment,
		"LOG_LEVEL":          v.LogLevel,
		"AUDIO_EXTENSIONS":   v.AudioExtensions,
		"VIDEO_EXTENSIONS":   v.VideoExtensions,
		"ALLOWED_EXTENSIONS": v.AllowedExtensions,
		"DB_URL":             v.DBURL,
	}
}
