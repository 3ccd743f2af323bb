package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	// Register the pgx database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	// Register the modernc SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/eugenenazirov/whisperx-api/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its filesystem and dialect in package state.
var gooseMu sync.Mutex

var taskColumns = []string{
	"id", "file_name", "kind", "language", "model", "device", "compute_type", "status", "created_at",
}

// SQLStorage stores tasks in SQLite or PostgreSQL.
type SQLStorage struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
	logger  *zap.Logger
	echo    bool
}

// Open connects to the database named by cfg, applies migrations, and returns the
// store. memory:// URLs yield a MemoryStorage.
func Open(ctx context.Context, cfg config.DatabaseSettings, logger *zap.Logger) (Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, dsn, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if driver == DriverMemory {
		return NewMemoryStorage(), nil
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	var placeholder sq.PlaceholderFormat = sq.Dollar
	if driver == DriverSQLite {
		// one connection keeps :memory: databases shared and avoids writer contention
		db.SetMaxOpenConns(1)
		placeholder = sq.Question
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	store := &SQLStorage{
		db:      db,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger:  logger.Named("storage"),
		echo:    cfg.Echo,
	}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLStorage) migrate(ctx context.Context) error {
	dialect := "postgres"
	if s.driver == DriverSQLite {
		dialect = "sqlite3"
	}

	gooseMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}()
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{s.logger.Named("migrate").Sugar()})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *SQLStorage) CreateTask(ctx context.Context, task Task) error {
	if err := validateTask(task); err != nil {
		return err
	}
	query, args, err := s.builder.Insert("tasks").Columns(taskColumns...).Values(
		task.ID, task.FileName, task.Kind, task.Language, task.Model,
		task.Device, task.ComputeType, string(task.Status), task.CreatedAt.UTC().UnixMilli(),
	).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	s.logQuery(query, args)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLStorage) GetTask(ctx context.Context, id string) (Task, error) {
	query, args, err := s.builder.Select(taskColumns...).From("tasks").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Task{}, fmt.Errorf("build select: %w", err)
	}
	s.logQuery(query, args)
	task, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrTaskNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("select task: %w", err)
	}
	return task, nil
}

// ListTasks returns up to limit tasks, newest first. A non-positive limit means all.
func (s *SQLStorage) ListTasks(ctx context.Context, limit int) ([]Task, error) {
	qb := s.builder.Select(taskColumns...).From("tasks").OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	s.logQuery(query, args)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// logQuery echoes statements when DB_ECHO is set.
func (s *SQLStorage) logQuery(query string, args []any) {
	if !s.echo {
		return
	}
	s.logger.Info("sql", zap.String("query", query), zap.Any("args", args))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var (
		task      Task
		status    string
		createdAt int64
	)
	if err := row.Scan(&task.ID, &task.FileName, &task.Kind, &task.Language, &task.Model,
		&task.Device, &task.ComputeType, &status, &createdAt); err != nil {
		return Task{}, err
	}
	task.Status = Status(status)
	task.CreatedAt = time.UnixMilli(createdAt).UTC()
	return task, nil
}

type gooseLogger struct {
	*zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.Infof(format, v...)
}
