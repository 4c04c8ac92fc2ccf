// Package journal stores finished runs when the caller opts in. Nothing is read
// back into a run; the journal is an audit trail for the journal command.
package journal

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	xerrors "github.com/ashutoshrp06/switchboard/pkg/errors"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Run is one handled request.
type Run struct {
	ID         string              `json:"id"`
	CreatedAt  time.Time           `json:"created_at"`
	Input      string              `json:"input"`
	Answer     string              `json:"answer"`
	Mode       string              `json:"mode"`
	Steps      []models.StepResult `json:"step_results"`
	Transcript []models.Message    `json:"transcript"`
	ErrorCode  xerrors.Code        `json:"error_code,omitempty"`
	Error      string              `json:"error,omitempty"`
	Duration   time.Duration       `json:"duration"`
}

// Store persists runs in SQLite or MySQL.
type Store struct {
	db     *sql.DB
	driver string
	mu     sync.Mutex
}

// Open connects to the journal database and creates the schema.
func Open(driver, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, xerrors.New(xerrors.CodeConfiguration, "journal DSN is empty")
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = openSQLite(dsn)
	case DriverMySQL:
		db, err = openMySQL(dsn)
	default:
		return nil, xerrors.Newf(xerrors.CodeConfiguration, "unknown journal driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, driver: driver}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "create journal directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "open journal")
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "enable WAL mode")
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func openMySQL(dsn string) (*sql.DB, error) {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "invalid MySQL DSN")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "open journal")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "connect to MySQL")
	}
	return db, nil
}

func (s *Store) initSchema() error {
	var stmts []string
	switch s.driver {
	case DriverMySQL:
		stmts = []string{`CREATE TABLE IF NOT EXISTS runs (
        id VARCHAR(64) PRIMARY KEY,
        created_at BIGINT NOT NULL,
        input TEXT NOT NULL,
        answer TEXT,
        mode VARCHAR(32) NOT NULL DEFAULT '',
        steps TEXT,
        transcript MEDIUMTEXT,
        error_code VARCHAR(64) NOT NULL DEFAULT '',
        error TEXT,
        duration_ms BIGINT NOT NULL DEFAULT 0,
        INDEX idx_runs_created (created_at)
)`}
	default:
		stmts = []string{`CREATE TABLE IF NOT EXISTS runs (
        id TEXT PRIMARY KEY,
        created_at INTEGER NOT NULL,
        input TEXT NOT NULL,
        answer TEXT,
        mode TEXT NOT NULL DEFAULT '',
        steps TEXT,
        transcript TEXT,
        error_code TEXT NOT NULL DEFAULT '',
        error TEXT,
        duration_ms INTEGER NOT NULL DEFAULT 0
)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs (created_at)`,
		}
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "initialise runs table")
		}
	}
	return nil
}

// Record inserts a run.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArguments, "run id is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	transcript, err := json.Marshal(run.Transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `INSERT INTO runs
        (id, created_at, input, answer, mode, steps, transcript, error_code, error, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.Input, run.Answer, run.Mode,
		string(steps), string(transcript), string(run.ErrorCode), run.Error, run.Duration.Milliseconds())
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "record run")
	}
	return nil
}

const selectRuns = `SELECT id, created_at, input, answer, mode, steps, transcript, error_code, error, duration_ms FROM runs`

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = 10
	}

	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "query runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "iterate runs")
	}
	return runs, nil
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return Run{}, xerrors.Newf(xerrors.CodeNotFound, "run %s not found", id)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                         Run
		created, durationMS         int64
		answer, steps, transcript   sql.NullString
		errorCode, errText, modeVal sql.NullString
	)
	if err := sc.Scan(&run.ID, &created, &run.Input, &answer, &modeVal, &steps, &transcript, &errorCode, &errText, &durationMS); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "scan run")
	}

	run.CreatedAt = time.Unix(0, created)
	run.Answer = answer.String
	run.Mode = modeVal.String
	run.ErrorCode = xerrors.Code(errorCode.String)
	run.Error = errText.String
	run.Duration = time.Duration(durationMS) * time.Millisecond

	if steps.String != "" {
		if err := json.Unmarshal([]byte(steps.String), &run.Steps); err != nil {
			return Run{}, fmt.Errorf("decode steps: %w", err)
		}
	}
	if transcript.String != "" {
		if err := json.Unmarshal([]byte(transcript.String), &run.Transcript); err != nil {
			return Run{}, fmt.Errorf("decode transcript: %w", err)
		}
	}
	return run, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
