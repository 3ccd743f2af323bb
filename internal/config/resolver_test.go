package config

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Settings(t *testing.T) {
	t.Run("Should return the identical instance on every call", func(t *testing.T) {
		r := NewResolver(WithEnvFile(""), WithEnviron(environ()), WithProbe(StaticProbe(false)))

		first, err := r.Settings()
		require.NoError(t, err)
		second, err := r.Settings()
		require.NoError(t, err)

		assert.Same(t, first, second)
	})

	t.Run("Should ignore environment changes after the first call", func(t *testing.T) {
		pairs := []string{"WHISPER__DEFAULT_LANG=en"}
		r := NewResolver(WithEnvFile(""), WithProbe(StaticProbe(false)),
			WithEnviron(func() []string { return pairs }))

		first, err := r.Settings()
		require.NoError(t, err)
		pairs = []string{"WHISPER__DEFAULT_LANG=ja"}
		second, err := r.Settings()
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, "en", second.Whisper.DefaultLang)
	})

	t.Run("Should construct once under concurrent first calls", func(t *testing.T) {
		var mu sync.Mutex
		loads := 0
		r := NewResolver(WithEnvFile(""), WithProbe(StaticProbe(false)),
			WithEnviron(func() []string {
				mu.Lock()
				loads++
				mu.Unlock()
				return nil
			}))

		const callers = 32
		results := make([]*Settings, callers)
		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s, err := r.Settings()
				assert.NoError(t, err)
				results[i] = s
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, loads)
		for _, s := range results {
			assert.Same(t, results[0], s)
		}
	})

	t.Run("Should keep returning the first error", func(t *testing.T) {
		pairs := []string{"WHISPER__DEVICE=quantum"}
		r := NewResolver(WithEnvFile(""), WithProbe(StaticProbe(false)),
			WithEnviron(func() []string { return pairs }))

		_, first := r.Settings()
		require.Error(t, first)
		assert.True(t, errors.Is(first, ErrParse))

		pairs = nil
		s, second := r.Settings()
		assert.Nil(t, s)
		assert.Equal(t, first, second)
	})
}

func TestResolver_Legacy(t *testing.T) {
	t.Run("Should mirror the resolved settings", func(t *testing.T) {
		r := NewResolver(WithEnvFile(""), WithProbe(StaticProbe(false)),
			WithEnviron(environ("WHISPER__HF_TOKEN=hf_x", "ENVIRONMENT=Testing", "WHISPER__COMPUTE_TYPE=float16")))

		s, err := r.Settings()
		require.NoError(t, err)
		legacy, err := r.Legacy()
		require.NoError(t, err)

		assert.Equal(t, s.Whisper.DefaultLang, legacy.Lang)
		assert.Equal(t, s.Whisper.HFToken, legacy.HFToken)
		assert.Equal(t, s.Whisper.Model, legacy.WhisperModel)
		assert.Equal(t, s.Whisper.Device, legacy.Device)
		assert.Equal(t, ComputeInt8, legacy.ComputeType)
		assert.Equal(t, "testing", legacy.Environment)
		assert.Equal(t, s.Logging.Level, legacy.LogLevel)
		assert.True(t, legacy.AllowedExtensions.Equal(s.Whisper.AllowedExtensions()))
		assert.Equal(t, s.Database.URL, legacy.DBURL)

		again, err := r.Legacy()
		require.NoError(t, err)
		assert.Same(t, legacy, again)
	})

	t.Run("Should be a snapshot of the source", func(t *testing.T) {
		s, err := loadWith(t, false)
		require.NoError(t, err)
		view := NewLegacyView(s)

		s.Whisper.DefaultLang = "xx"
		s.Whisper.AudioExtensions = NewExtensionSet(".only")

		assert.Equal(t, "en", view.Lang)
		assert.True(t, view.AudioExtensions.Contains(".mp3"))
		assert.Equal(t, "en", view.Map()["LANG"])
	})
}

func TestReconcile(t *testing.T) {
	t.Run("Should expose the rule table", func(t *testing.T) {
		assert.Equal(t, []ComputeType{ComputeInt8}, AllowedComputeTypes(DeviceCPU))
		assert.Contains(t, AllowedComputeTypes(DeviceCUDA), ComputeFloat16)
	})

	t.Run("Should leave compatible pairs alone", func(t *testing.T) {
		w := WhisperSettings{Device: DeviceCUDA, ComputeType: ComputeFloat16}
		_, ok := Reconcile(&w)
		assert.False(t, ok)
		assert.Equal(t, ComputeFloat16, w.ComputeType)
	})

	t.Run("Should rewrite incompatible pairs", func(t *testing.T) {
		w := WhisperSettings{Device: DeviceCPU, ComputeType: ComputeFloat32}
		c, ok := Reconcile(&w)
		require.True(t, ok)
		assert.Equal(t, ComputeInt8, w.ComputeType)
		assert.Equal(t, "float32", c.From)
	})
}

func TestNormalizeEnvironment(t *testing.T) {
	assert.Equal(t, "production", NormalizeEnvironment(""))
	assert.Equal(t, "staging", NormalizeEnvironment(" Staging "))
}

func TestParseEnums(t *testing.T) {
	m, err := ParseModelSize("large-v3")
	require.NoError(t, err)
	assert.Equal(t, ModelLargeV3, m)

	_, err = ParseModelSize("Large-V3")
	assert.True(t, errors.Is(err, ErrParse))

	var d Device
	require.NoError(t, d.UnmarshalText([]byte("cuda")))
	assert.Equal(t, DeviceCUDA, d)

	var c ComputeType
	err = c.UnmarshalText([]byte("bfloat16"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
	assert.Len(t, ModelSizes(), 17)
}

func TestSystemProbe(t *testing.T) {
	missing := func(string) (string, error) { return "", errors.New("not found") }

	t.Run("Should honor hidden devices", func(t *testing.T) {
		p := SystemProbe{
			LookupEnv: func(string) (string, bool) { return "-1", true },
			LookPath:  func(string) (string, error) { return "/usr/bin/nvidia-smi", nil },
		}
		assert.False(t, p.CUDAAvailable())
	})

	t.Run("Should detect nvidia-smi", func(t *testing.T) {
		p := SystemProbe{
			LookupEnv: func(string) (string, bool) { return "", false },
			Stat:      func(string) (os.FileInfo, error) { return nil, os.ErrNotExist },
			LookPath:  func(string) (string, error) { return "/usr/bin/nvidia-smi", nil },
		}
		assert.True(t, p.CUDAAvailable())
	})

	t.Run("Should report no GPU otherwise", func(t *testing.T) {
		p := SystemProbe{
			LookupEnv: func(string) (string, bool) { return "", false },
			Stat:      func(string) (os.FileInfo, error) { return nil, os.ErrNotExist },
			LookPath:  missing,
		}
		assert.False(t, p.CUDAAvailable())
	})
}
