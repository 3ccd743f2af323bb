package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTaskNotFound is returned when no task has the requested id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidTask indicates a task is missing required fields.
	ErrInvalidTask = errors.New("task must have an id and a file name")
	// ErrUnsupportedDatabase is returned for database URLs with an unknown scheme.
	ErrUnsupportedDatabase = errors.New("unsupported database url")
)

// Status is the lifecycle state of a transcription task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task is a transcription request and the settings it was accepted with.
type Task struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	Kind        string    `json:"kind"`
	Language    string    `json:"language"`
	Model       string    `json:"model"`
	Device      string    `json:"device"`
	ComputeType string    `json:"computeType"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Storage persists transcription tasks.
type Storage interface {
	CreateTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	ListTasks(ctx context.Context, limit int) ([]Task, error)
	Ping(ctx context.Context) error
	Close() error
}

func validateTask(task Task) error {
	if task.ID == "" || task.FileName == "" {
		return ErrInvalidTask
	}
	return nil
}
