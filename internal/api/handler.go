package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eugenenazirov/whisperx-api/internal/config"
	"github.com/eugenenazirov/whisperx-api/internal/media"
	"github.com/eugenenazirov/whisperx-api/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const defaultTaskListLimit = 50

// Inspector classifies uploads by name and content.
type Inspector interface {
	media.Classifier
	Inspect(fileName string, r io.Reader) (media.Report, error)
}

// Handler wires settings, the media inspector and storage into HTTP handlers.
type Handler struct {
	settings  *config.Settings
	inspector Inspector
	storage   storage.Storage

	clock func() time.Time
	newID func() string
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithIDGenerator overrides task id generation, primarily for tests.
func WithIDGenerator(newID func() string) HandlerOption {
	return func(h *Handler) {
		h.newID = newID
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(settings *config.Settings, inspector Inspector, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		settings:  settings,
		inspector: inspector,
		storage:   store,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Environment: h.settings.Environment,
		Database:    "ok",
		Timestamp:   h.clock(),
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.storage.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, settingsResponse{
		Settings:          h.settings,
		AllowedExtensions: h.settings.Whisper.AllowedExtensions(),
	})
}

func (h *Handler) handleGetLegacySettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, config.NewLegacyView(h.settings).Map())
}

func (h *Handler) handleGetExtensions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, extensionsResponse{
		Audio:   h.settings.Whisper.AudioExtensions.Sorted(),
		Video:   h.settings.Whisper.VideoExtensions.Sorted(),
		Allowed: h.settings.Whisper.AllowedExtensions().Sorted(),
	})
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	kind, err := h.inspector.Classify(req.FileName)
	if err != nil {
		writeMediaError(w, err)
		return
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = h.settings.Whisper.DefaultLang
	}

	task := storage.Task{
		ID:          h.newID(),
		FileName:    strings.TrimSpace(req.FileName),
		Kind:        string(kind),
		Language:    language,
		Model:       string(h.settings.Whisper.Model),
		Device:      string(h.settings.Whisper.Device),
		ComputeType: string(h.settings.Whisper.ComputeType),
		Status:      storage.StatusPending,
		CreatedAt:   h.clock(),
	}
	if err := h.storage.CreateTask(r.Context(), task); err != nil {
		if errors.Is(err, storage.ErrInvalidTask) {
			writeError(w, http.StatusBadRequest, "Invalid task", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	w.Header().Set("Location", "/api/tasks/"+task.ID)
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.storage.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "Not found", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	limit := defaultTaskListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	tasks, err := h.storage.ListTasks(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskListResponse{Tasks: tasks})
}

func (h *Handler) handleInspectMedia(w http.ResponseWriter, r *http.Request) {
	fileName := r.URL.Query().Get("fileName")
	body := http.MaxBytesReader(w, r.Body, h.settings.Server.MaxUploadBytes)
	defer body.Close()

	report, err := h.inspector.Inspect(fileName, body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large",
				"maximum upload size is "+strconv.FormatInt(maxErr.Limit, 10)+" bytes")
			return
		}
		writeMediaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrMissingFileName):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, media.ErrUnsupportedExtension), errors.Is(err, media.ErrUnsupportedContent):
		writeError(w, http.StatusUnsupportedMediaType, "Unsupported media", err.Error(),
			"Upload one of the formats listed at /api/extensions")
	default:
		writeInternalError(w, err)
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type createTaskRequest struct {
	FileName string `json:"fileName"`
	Language string `json:"language"`
}

type taskListResponse struct {
	Tasks []storage.Task `json:"tasks"`
}

type settingsResponse struct {
	Settings          *config.Settings    `json:"settings"`
	AllowedExtensions config.ExtensionSet `json:"allowedExtensions"`
}

type extensionsResponse struct {
	Audio   []string `json:"audio"`
	Video   []string `json:"video"`
	Allowed []string `json:"allowed"`
}

type healthResponse struct {
	Status      string    `json:"status"`
	Environment string    `json:"environment"`
	Database    string    `json:"database"`
	Timestamp   time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
