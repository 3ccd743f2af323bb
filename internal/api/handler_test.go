package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/whisperx-api/internal/config"
	"github.com/eugenenazirov/whisperx-api/internal/media"
	"github.com/eugenenazirov/whisperx-api/internal/storage"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *controllableClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testSettings(t *testing.T, pairs ...string) *config.Settings {
	t.Helper()
	settings, err := config.Load(
		config.WithEnvFile(""),
		config.WithEnviron(func() []string { return pairs }),
		config.WithProbe(config.StaticProbe(false)),
	)
	if err != nil {
		t.Fatalf("failed to load settings: %v", err)
	}
	return settings
}

func setupTestRouter(t *testing.T, pairs ...string) (http.Handler, *controllableClock) {
	t.Helper()

	settings := testSettings(t, pairs...)
	logger := zaptest.NewLogger(t)
	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))
	ids := 0
	handler := NewHandler(settings, media.New(settings.Whisper, logger), storage.NewMemoryStorage(),
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			ids++
			return "task-" + strconv.Itoa(ids)
		}),
	)
	router := NewRouter(handler, logger, WithLogging(false), WithCORS(settings.CORS))
	return router, clock
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}

	resp := httptest.NewRecorder()
	writeInternalError(resp, errors.New("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, clock := setupTestRouter(t, "ENVIRONMENT=Staging")

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Status      string    `json:"status"`
		Environment string    `json:"environment"`
		Database    string    `json:"database"`
		Timestamp   time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Status != "ok" || body.Database != "ok" {
		t.Fatalf("expected healthy response, got %+v", body)
	}
	if body.Environment != "staging" {
		t.Fatalf("expected normalized environment, got %s", body.Environment)
	}
	if !body.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clock.Now(), body.Timestamp)
	}
}

type failingStorage struct {
	*storage.MemoryStorage
}

func (failingStorage) Ping(context.Context) error {
	return errors.New("database unreachable")
}

func TestHealthEndpointReportsDatabaseFailure(t *testing.T) {
	settings := testSettings(t)
	handler := NewHandler(settings, media.New(settings.Whisper, nil), failingStorage{storage.NewMemoryStorage()})
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestSettingsEndpointRedactsToken(t *testing.T) {
	router, _ := setupTestRouter(t, "WHISPER__HF_TOKEN=hf_super_secret", "WHISPER__WHISPER_MODEL=base")

	rec := doJSON(t, router, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	raw := rec.Body.String()
	if strings.Contains(raw, "hf_super_secret") {
		t.Fatalf("token leaked in response: %s", raw)
	}

	var body struct {
		Settings struct {
			Whisper struct {
				Model       string `json:"whisperModel"`
				ComputeType string `json:"computeType"`
				HFToken     string `json:"hfToken"`
			} `json:"whisper"`
		} `json:"settings"`
		AllowedExtensions []string `json:"allowedExtensions"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Settings.Whisper.Model != "base" {
		t.Fatalf("expected model base, got %s", body.Settings.Whisper.Model)
	}
	if body.Settings.Whisper.ComputeType != "int8" {
		t.Fatalf("expected int8 on cpu, got %s", body.Settings.Whisper.ComputeType)
	}
	if body.Settings.Whisper.HFToken != "[REDACTED]" {
		t.Fatalf("expected redacted token, got %q", body.Settings.Whisper.HFToken)
	}
	if len(body.AllowedExtensions) != 14 {
		t.Fatalf("expected 14 allowed extensions, got %d", len(body.AllowedExtensions))
	}
}

func TestLegacySettingsEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t, "WHISPER__DEFAULT_LANG=nl")

	rec := doJSON(t, router, http.MethodGet, "/api/settings/legacy", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["LANG"] != "nl" {
		t.Fatalf("expected LANG nl, got %v", body["LANG"])
	}
	if body["DB_URL"] != "sqlite:///records.db" {
		t.Fatalf("unexpected DB_URL %v", body["DB_URL"])
	}
}

func TestExtensionsEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t, "WHISPER__AUDIO_EXTENSIONS=.mp3", "WHISPER__VIDEO_EXTENSIONS=mp4,mkv")

	rec := doJSON(t, router, http.MethodGet, "/api/extensions", nil)
	var body struct {
		Audio   []string `json:"audio"`
		Video   []string `json:"video"`
		Allowed []string `json:"allowed"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	want := []string{".mkv", ".mp3", ".mp4"}
	if strings.Join(body.Allowed, ",") != strings.Join(want, ",") {
		t.Fatalf("expected allowed %v, got %v", want, body.Allowed)
	}
	if len(body.Audio) != 1 || len(body.Video) != 2 {
		t.Fatalf("unexpected base sets: %v %v", body.Audio, body.Video)
	}
}

func TestCreateAndGetTask(t *testing.T) {
	router, clock := setupTestRouter(t, "WHISPER__DEFAULT_LANG=de", "WHISPER__WHISPER_MODEL=small")
	clock.Advance(time.Minute)

	rec := doJSON(t, router, http.MethodPost, "/api/tasks", map[string]any{"fileName": "interview.m4a"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created storage.Task
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID != "task-1" || created.Language != "de" || created.Model != "small" {
		t.Fatalf("unexpected task %+v", created)
	}
	if created.Kind != "audio" || created.Device != "cpu" || created.ComputeType != "int8" {
		t.Fatalf("unexpected task %+v", created)
	}
	if !created.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("expected createdAt %s, got %s", clock.Now(), created.CreatedAt)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/tasks/task-1" {
		t.Fatalf("unexpected Location %q", loc)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/tasks/task-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/tasks", map[string]any{"fileName": "talk.mkv", "language": "fr"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/tasks?limit=1", nil)
	var list struct {
		Tasks []storage.Task `json:"tasks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(list.Tasks) != 1 || list.Tasks[0].ID != "task-2" {
		t.Fatalf("expected newest task first, got %+v", list.Tasks)
	}
}

func TestCreateTaskRejectsDisallowedExtension(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/tasks", map[string]any{"fileName": "slides.pdf"})
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status 415, got %d", rec.Code)
	}
	var body struct {
		Suggestion string `json:"suggestion"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Suggestion == "" {
		t.Fatalf("expected suggestion to be populated")
	}
}

func TestCreateTaskValidatesInput(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/tasks", map[string]any{"fileName": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/tasks/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestListTasksRejectsBadLimit(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/tasks?limit=-3", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestInspectMedia(t *testing.T) {
	router, _ := setupTestRouter(t)

	wav := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...)
	req := httptest.NewRequest(http.MethodPost, "/api/media/inspect?fileName=voice.wav", bytes.NewReader(wav))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/media/inspect?fileName=voice.wav", strings.NewReader("plain text pretending to be audio"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status 415, got %d", rec.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "test-request-id")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "test-request-id" {
		t.Fatalf("expected X-Request-ID header to be echoed, got %s", got)
	}
}
