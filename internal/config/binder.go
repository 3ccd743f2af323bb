package config

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/v2"
)

// Environment keys. Nested sections use the "__" delimiter.
const (
	keyEnvironment = "ENVIRONMENT"
	keyDev         = "DEV"

	keyDatabaseURL  = "DATABASE__DB_URL"
	keyDatabaseEcho = "DATABASE__DB_ECHO"

	keyWhisperHFToken         = "WHISPER__HF_TOKEN"
	keyWhisperModel           = "WHISPER__WHISPER_MODEL"
	keyWhisperDefaultLang     = "WHISPER__DEFAULT_LANG"
	keyWhisperDevice          = "WHISPER__DEVICE"
	keyWhisperComputeType     = "WHISPER__COMPUTE_TYPE"
	keyWhisperAudioExtensions = "WHISPER__AUDIO_EXTENSIONS"
	keyWhisperVideoExtensions = "WHISPER__VIDEO_EXTENSIONS"

	keyLoggingLevel          = "LOGGING__LOG_LEVEL"
	keyLoggingFormat         = "LOGGING__LOG_FORMAT"
	keyLoggingFilterWarnings = "LOGGING__FILTER_WARNING"
	keyLoggingFile           = "LOGGING__LOG_FILE"

	keyCORSOrigins     = "CORS__CORS_ORIGINS"
	keyCORSCredentials = "CORS__CORS_CREDENTIALS"
	keyCORSMethods     = "CORS__CORS_METHODS"
	keyCORSHeaders     = "CORS__CORS_HEADERS"

	keyServerPort                = "SERVER__PORT"
	keyServerReadHeaderTimeout   = "SERVER__READ_HEADER_TIMEOUT"
	keyServerWriteTimeout        = "SERVER__WRITE_TIMEOUT"
	keyServerIdleTimeout         = "SERVER__IDLE_TIMEOUT"
	keyServerShutdownGracePeriod = "SERVER__SHUTDOWN_GRACE_PERIOD"
	keyServerRateLimitRPS        = "SERVER__RATE_LIMIT_RPS"
	keyServerRateLimitBurst      = "SERVER__RATE_LIMIT_BURST"
	keyServerRequestLogging      = "SERVER__REQUEST_LOGGING"
	keyServerMaxUploadBytes      = "SERVER__MAX_UPLOAD_BYTES"
)

var knownKeys = map[string]struct{}{
	keyEnvironment: {}, keyDev: {},
	keyDatabaseURL: {}, keyDatabaseEcho: {},
	keyWhisperHFToken: {}, keyWhisperModel: {}, keyWhisperDefaultLang: {}, keyWhisperDevice: {},
	keyWhisperComputeType: {}, keyWhisperAudioExtensions: {}, keyWhisperVideoExtensions: {},
	keyLoggingLevel: {}, keyLoggingFormat: {}, keyLoggingFilterWarnings: {}, keyLoggingFile: {},
	keyCORSOrigins: {}, keyCORSCredentials: {}, keyCORSMethods: {}, keyCORSHeaders: {},
	keyServerPort: {}, keyServerReadHeaderTimeout: {}, keyServerWriteTimeout: {},
	keyServerIdleTimeout: {}, keyServerShutdownGracePeriod: {}, keyServerRateLimitRPS: {},
	keyServerRateLimitBurst: {}, keyServerRequestLogging: {}, keyServerMaxUploadBytes: {},
}

// KnownKeys returns every environment key the loader binds.
func KnownKeys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	return keys
}

// koanfPath maps WHISPER__DEVICE to whisper.device. Keys are case-sensitive:
// anything outside knownKeys, including lowercase spellings, maps to "" and is
// dropped by the provider.
func koanfPath(key string) string {
	if _, ok := knownKeys[key]; !ok {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(key, "__", "."))
}

// binder reads typed values out of the merged koanf tree and collects every
// coercion failure instead of stopping at the first one.
type binder struct {
	k    *koanf.Koanf
	errs []error
}

func (b *binder) lookup(key string) (string, bool) {
	v := b.k.String(koanfPath(key))
	return v, v != ""
}

func (b *binder) fail(key, value, reason string) {
	b.errs = append(b.errs, &ParseError{Key: key, Value: value, Reason: reason})
}

func (b *binder) err() error {
	return errors.Join(b.errs...)
}

func (b *binder) setString(key string, dst *string) {
	if v, ok := b.lookup(key); ok {
		*dst = v
	}
}

func (b *binder) setBool(key string, dst *bool) {
	v, ok := b.lookup(key)
	if !ok {
		return
	}
	parsed, err := parseBool(v)
	if err != nil {
		b.fail(key, v, "must be a boolean")
		return
	}
	*dst = parsed
}

func (b *binder) setDuration(key string, dst *time.Duration) {
	v, ok := b.lookup(key)
	if !ok {
		return
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		b.fail(key, v, "must be a duration such as 30s or 5m")
		return
	}
	*dst = parsed
}

func (b *binder) setInt(key string, dst *int) {
	v, ok := b.lookup(key)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		b.fail(key, v, "must be an integer")
		return
	}
	*dst = parsed
}

func (b *binder) setInt64(key string, dst *int64) {
	v, ok := b.lookup(key)
	if !ok {
		return
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		b.fail(key, v, "must be an integer")
		return
	}
	*dst = parsed
}

func (b *binder) setFloat(key string, dst *float64) {
	v, ok := b.lookup(key)
	if !ok {
		return
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		b.fail(key, v, "must be a number")
		return
	}
	*dst = parsed
}

func (b *binder) setExtensions(key string, dst *ExtensionSet) {
	v, ok := b.lookup(key)
	if !ok {
		return
	}
	set := NewExtensionSet(splitList(v)...)
	if set.Len() == 0 {
		b.fail(key, v, "must list at least one extension")
		return
	}
	*dst = set
}

func (b *binder) setCORSList(key string, dst *[]string) {
	if v, ok := b.lookup(key); ok {
		*dst = ParseCORSList(v)
	}
}

// bindEnum parses key with parse and reports whether the key was present.
func bindEnum[T ~string](b *binder, key string, dst *T, parse func(string) (T, error)) bool {
	v, ok := b.lookup(key)
	if !ok {
		return false
	}
	parsed, err := parse(v)
	if err != nil {
		reason := err.Error()
		var pe *ParseError
		if errors.As(err, &pe) {
			reason = pe.Reason
		}
		b.fail(key, v, reason)
		return true
	}
	*dst = parsed
	return true
}

// parseBool accepts the usual truthy and falsy spellings, case-insensitively.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

// splitList accepts a JSON array or a comma separated list.
func splitList(v string) []string {
	trimmed := strings.TrimSpace(v)
	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
			return compact(items)
		}
	}
	return compact(strings.Split(v, ","))
}
