package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvFile is read when no other file is configured.
const DefaultEnvFile = ".env"

// CLIOverrides holds command-line flag overrides. They win over every other source.
type CLIOverrides struct {
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Option customizes Load.
type Option func(*loadOptions)

type loadOptions struct {
	envFile   string
	environ   func() []string
	probe     CapabilityProbe
	overrides *CLIOverrides
}

// WithEnvFile sets the .env file to read. An empty path disables the file source.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// WithEnviron replaces os.Environ as the process environment source.
func WithEnviron(environ func() []string) Option {
	return func(o *loadOptions) {
		o.environ = environ
	}
}

// WithProbe replaces the hardware capability probe.
func WithProbe(p CapabilityProbe) Option {
	return func(o *loadOptions) {
		o.probe = p
	}
}

// WithOverrides applies command-line overrides after the environment.
func WithOverrides(overrides *CLIOverrides) Option {
	return func(o *loadOptions) {
		o.overrides = overrides
	}
}

// Load builds Settings from defaults, the .env file and the environment, in
// increasing precedence, then applies CLI overrides, reconciles the device and
// compute type, and validates the result. Nothing is published on error.
func Load(opts ...Option) (*Settings, error) {
	o := loadOptions{
		envFile: DefaultEnvFile,
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(&o)
	}
	probe := memoizeProbe(o.probe)

	k := koanf.New(".")

	dotenv, err := readEnvFile(o.envFile)
	if err != nil {
		return nil, err
	}
	if len(dotenv) > 0 {
		if err := k.Load(envProvider(func() []string { return dotenv }), nil); err != nil {
			return nil, fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}
	if err := k.Load(envProvider(o.environ), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	settings, err := bind(k, probe)
	if err != nil {
		return nil, err
	}

	applyCLIOverrides(settings, o.overrides)

	if c, ok := Reconcile(&settings.Whisper); ok {
		settings.corrections = append(settings.corrections, c)
	}

	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// envProvider keeps empty values so they shadow lower sources; the binder then
// resolves an empty value to the field default.
func envProvider(environ func() []string) *env.Env {
	return env.Provider(".", env.Opt{
		EnvironFunc: environ,
		TransformFunc: func(key, value string) (string, any) {
			return koanfPath(key), value
		},
	})
}

// readEnvFile returns the file as KEY=VALUE pairs; a missing file is not an error.
func readEnvFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	pairs := make([]string, 0, len(values))
	for k, v := range values {
		pairs = append(pairs, k+"="+v)
	}
	return pairs, nil
}

func bind(k *koanf.Koanf, probe CapabilityProbe) (*Settings, error) {
	b := &binder{k: k}
	s := &Settings{
		Environment: defaultEnvironment,
		Database:    defaultDatabase(),
		Whisper:     defaultWhisper(),
		Logging:     defaultLogging(),
		CORS:        defaultCORS(),
		Server:      defaultServer(),
	}

	var environment string
	b.setString(keyEnvironment, &environment)
	s.Environment = NormalizeEnvironment(environment)
	b.setBool(keyDev, &s.Dev)

	b.setString(keyDatabaseURL, &s.Database.URL)
	b.setBool(keyDatabaseEcho, &s.Database.Echo)

	bindWhisper(b, &s.Whisper, probe)

	b.setString(keyLoggingLevel, &s.Logging.Level)
	b.setString(keyLoggingFormat, &s.Logging.Format)
	b.setBool(keyLoggingFilterWarnings, &s.Logging.FilterWarnings)
	b.setString(keyLoggingFile, &s.Logging.File)

	b.setCORSList(keyCORSOrigins, &s.CORS.Origins)
	b.setBool(keyCORSCredentials, &s.CORS.Credentials)
	b.setCORSList(keyCORSMethods, &s.CORS.Methods)
	b.setCORSList(keyCORSHeaders, &s.CORS.Headers)

	b.setString(keyServerPort, &s.Server.Port)
	b.setDuration(keyServerReadHeaderTimeout, &s.Server.ReadHeaderTimeout)
	b.setDuration(keyServerWriteTimeout, &s.Server.WriteTimeout)
	b.setDuration(keyServerIdleTimeout, &s.Server.IdleTimeout)
	b.setDuration(keyServerShutdownGracePeriod, &s.Server.ShutdownGracePeriod)
	b.setFloat(keyServerRateLimitRPS, &s.Server.RateLimitRPS)
	b.setInt(keyServerRateLimitBurst, &s.Server.RateLimitBurst)
	b.setBool(keyServerRequestLogging, &s.Server.RequestLogging)
	b.setInt64(keyServerMaxUploadBytes, &s.Server.MaxUploadBytes)

	if err := b.err(); err != nil {
		return nil, err
	}
	return s, nil
}

// bindWhisper consults the probe only for the values left unset.
func bindWhisper(b *binder, w *WhisperSettings, probe CapabilityProbe) {
	var token string
	b.setString(keyWhisperHFToken, &token)
	w.HFToken = SensitiveString(token)

	bindEnum(b, keyWhisperModel, &w.Model, ParseModelSize)
	b.setString(keyWhisperDefaultLang, &w.DefaultLang)

	if !bindEnum(b, keyWhisperDevice, &w.Device, ParseDevice) {
		w.Device = DeviceCPU
		if probe.CUDAAvailable() {
			w.Device = DeviceCUDA
		}
	}
	if !bindEnum(b, keyWhisperComputeType, &w.ComputeType, ParseComputeType) {
		w.ComputeType = ComputeInt8
		if probe.CUDAAvailable() {
			w.ComputeType = ComputeFloat16
		}
	}

	b.setExtensions(keyWhisperAudioExtensions, &w.AudioExtensions)
	b.setExtensions(keyWhisperVideoExtensions, &w.VideoExtensions)
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(s *Settings, overrides *CLIOverrides) {
	if overrides == nil {
		return
	}
	if overrides.Port != nil && *overrides.Port != "" {
		s.Server.Port = *overrides.Port
	}
	if overrides.RateLimitRPS != nil {
		s.Server.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil {
		s.Server.RateLimitBurst = *overrides.RateLimitBurst
	}
}

var validate = validator.New()

func validateSettings(s *Settings) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate settings: %w", err)
	}
	verr := &ValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Fields = append(verr.Fields, FieldError{
			Field: fe.Namespace(),
			Rule:  fe.Tag(),
			Value: fe.Value(),
		})
	}
	return verr
}
