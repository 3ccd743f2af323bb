package config

import "time"

// DatabaseSettings configures the task store connection.
type DatabaseSettings struct {
	URL  string `json:"dbUrl"  yaml:"db_url"  validate:"required"`
	Echo bool   `json:"dbEcho" yaml:"db_echo"`
}

// WhisperSettings configures model selection and accepted media.
type WhisperSettings struct {
	HFToken         SensitiveString `json:"hfToken"         yaml:"hf_token"`
	Model           ModelSize       `json:"whisperModel"    yaml:"whisper_model"    validate:"required"`
	DefaultLang     string          `json:"defaultLang"     yaml:"default_lang"     validate:"required"`
	Device          Device          `json:"device"          yaml:"device"           validate:"required"`
	ComputeType     ComputeType     `json:"computeType"     yaml:"compute_type"     validate:"required"`
	AudioExtensions ExtensionSet    `json:"audioExtensions" yaml:"audio_extensions"`
	VideoExtensions ExtensionSet    `json:"videoExtensions" yaml:"video_extensions"`
}

// AllowedExtensions is the union of the audio and video sets, recomputed per call.
func (w WhisperSettings) AllowedExtensions() ExtensionSet {
	return UnionExtensions(w.AudioExtensions, w.VideoExtensions)
}

// LoggingSettings configures the process logger.
type LoggingSettings struct {
	Level          string `json:"logLevel"      yaml:"log_level"`
	Format         string `json:"logFormat"     yaml:"log_format"`
	FilterWarnings bool   `json:"filterWarning" yaml:"filter_warning"`
	File           string `json:"logFile"       yaml:"log_file,omitempty"`
}

// CORSSettings is the cross-origin policy applied by the HTTP layer.
type CORSSettings struct {
	Origins     []string `json:"corsOrigins"     yaml:"cors_origins"     validate:"min=1,dive,required"`
	Credentials bool     `json:"corsCredentials" yaml:"cors_credentials"`
	Methods     []string `json:"corsMethods"     yaml:"cors_methods"     validate:"min=1,dive,required"`
	Headers     []string `json:"corsHeaders"     yaml:"cors_headers"     validate:"min=1,dive,required"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Port                string        `json:"port"                yaml:"port"                  validate:"required"`
	ReadHeaderTimeout   time.Duration `json:"readHeaderTimeout"   yaml:"read_header_timeout"   validate:"gt=0"`
	WriteTimeout        time.Duration `json:"writeTimeout"        yaml:"write_timeout"         validate:"gte=0"`
	IdleTimeout         time.Duration `json:"idleTimeout"         yaml:"idle_timeout"          validate:"gte=0"`
	ShutdownGracePeriod time.Duration `json:"shutdownGracePeriod" yaml:"shutdown_grace_period" validate:"gt=0"`
	RateLimitRPS        float64       `json:"rateLimitRps"        yaml:"rate_limit_rps"        validate:"gte=0"`
	RateLimitBurst      int           `json:"rateLimitBurst"      yaml:"rate_limit_burst"      validate:"gte=0"`
	RequestLogging      bool          `json:"requestLogging"      yaml:"request_logging"`
	MaxUploadBytes      int64         `json:"maxUploadBytes"      yaml:"max_upload_bytes"      validate:"gt=0"`
}

const (
	defaultDBURL       = "sqlite:///records.db"
	defaultLang        = "en"
	defaultLogLevel    = "INFO"
	defaultLogFormat   = "text"
	defaultEnvironment = "production"
	defaultPort        = "8000"
)

func defaultDatabase() DatabaseSettings {
	return DatabaseSettings{URL: defaultDBURL}
}

// defaultWhisper leaves Device and ComputeType empty; they depend on the probe.
func defaultWhisper() WhisperSettings {
	return WhisperSettings{
		Model:           ModelTiny,
		DefaultLang:     defaultLang,
		AudioExtensions: NewExtensionSet(defaultAudioExtensions...),
		VideoExtensions: NewExtensionSet(defaultVideoExtensions...),
	}
}

func defaultLogging() LoggingSettings {
	return LoggingSettings{
		Level:          defaultLogLevel,
		Format:         defaultLogFormat,
		FilterWarnings: true,
	}
}

func defaultCORS() CORSSettings {
	return CORSSettings{
		Origins:     wildcardList(),
		Credentials: true,
		Methods:     wildcardList(),
		Headers:     wildcardList(),
	}
}

func defaultServer() ServerSettings {
	return ServerSettings{
		Port:                defaultPort,
		ReadHeaderTimeout:   5 * time.Second,
		WriteTimeout:        60 * time.Second,
		IdleTimeout:         120 * time.Second,
		ShutdownGracePeriod: 10 * time.Second,
		RateLimitRPS:        25,
		RateLimitBurst:      50,
		RequestLogging:      true,
		MaxUploadBytes:      512 << 20,
	}
}
