// Package history records transcription request metadata in SQLite.
// Only request metadata is stored; transcript content lives for the
// duration of one request/response and is never persisted.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Status of a recorded transcription request.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusEmpty     Status = "empty" // processed fine, no speech found
	StatusFailed    Status = "failed"
)

// Record is one transcription request.
type Record struct {
	ID            string     `json:"id"`
	Filename      string     `json:"filename"`
	Engine        string     `json:"engine"`
	Status        Status     `json:"status"`
	Error         string     `json:"error,omitempty"`
	Segments      int        `json:"segments"`
	AudioDuration float64    `json:"audio_duration"` // seconds, 0 if probe failed
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Store persists request records.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		engine TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		error TEXT,
		segments INTEGER NOT NULL DEFAULT 0,
		audio_duration REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME
	);`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new running record and returns its ID.
func (s *Store) Create(filename, engine string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO requests (id, filename, engine, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, filename, engine, StatusRunning, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("insert request: %w", err)
	}
	return id, nil
}

// SetAudioDuration records the probed duration of the normalized audio.
func (s *Store) SetAudioDuration(id string, seconds float64) error {
	_, err := s.db.Exec("UPDATE requests SET audio_duration = ? WHERE id = ?", seconds, id)
	return err
}

// Complete marks a record as finished with the given terminal status.
func (s *Store) Complete(id string, status Status, segments int, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE requests SET status = ?, segments = ?, error = ?, completed_at = ?
		WHERE id = ?`,
		status, segments, errMsg, time.Now(), id,
	)
	return err
}

// Get retrieves a record by ID.
func (s *Store) Get(id string) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, filename, engine, status, error, segments, audio_duration, created_at, completed_at
		FROM requests WHERE id = ?`, id)
	return scanRecord(row)
}

// List returns the most recent records, newest first.
func (s *Store) List(limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, filename, engine, status, error, segments, audio_duration, created_at, completed_at
		FROM requests ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	rec := &Record{}
	var errMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&rec.ID, &rec.Filename, &rec.Engine, &rec.Status, &errMsg,
		&rec.Segments, &rec.AudioDuration, &rec.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if errMsg.Valid {
		rec.Error = errMsg.String
	}
	if completedAt.Valid {
		rec.CompletedAt = &completedAt.Time
	}
	return rec, nil
}
