package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"research-planner/core/slate"
	"research-planner/internal/errors"
	"research-planner/internal/logging"
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS slates (
	session_id   TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'draft',
	project_name TEXT NOT NULL DEFAULT '',
	item_count   INTEGER NOT NULL DEFAULT 0,
	payload_json TEXT NOT NULL DEFAULT '{}',
	updated_at   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_slates_updated ON slates(updated_at);
`

// SQLiteStore keeps sessions in a single SQLite database
type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.Config("sqlite storage needs a path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Storage("failed to create storage directory", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Storage("open database", err)
	}

	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schemaV1); err != nil {
		db.Close()
		return nil, errors.Storage("migrate schema", err)
	}

	return &SQLiteStore{db: db, now: time.Now, logger: logging.Named("storage")}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sessionID string, sl *slate.Slate) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}

	payload, err := json.Marshal(sl)
	if err != nil {
		return errors.Storage("failed to marshal slate", err)
	}

	const q = `INSERT INTO slates (session_id, status, project_name, item_count, payload_json, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	status = excluded.status,
	project_name = excluded.project_name,
	item_count = excluded.item_count,
	payload_json = excluded.payload_json,
	updated_at = excluded.updated_at`
	_, err = s.db.ExecContext(ctx, q,
		sessionID,
		string(sl.Status),
		sl.ProjectName,
		len(sl.Items),
		string(payload),
		s.now().UnixNano(),
	)
	if err != nil {
		return errors.Storage("save slate", err).WithContext("session", sessionID)
	}

	s.logger.Debug("session saved", zap.String("session", sessionID), zap.Int("items", len(sl.Items)))
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*slate.Slate, error) {
	const q = `SELECT payload_json FROM slates WHERE session_id = ?`

	var payload string
	err := s.db.QueryRowContext(ctx, q, sessionID).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("session", sessionID)
		}
		return nil, errors.Storage("load slate", err).WithContext("session", sessionID)
	}

	var sl slate.Slate
	if err := json.Unmarshal([]byte(payload), &sl); err != nil {
		return nil, errors.Storage("failed to unmarshal slate", err).WithContext("session", sessionID)
	}
	return &sl, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slates WHERE session_id = ?`, sessionID); err != nil {
		return errors.Storage("delete slate", err).WithContext("session", sessionID)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	const q = `SELECT session_id, status, project_name, item_count, updated_at
FROM slates
ORDER BY updated_at DESC, session_id ASC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Storage("list slates", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			status  string
			updated int64
		)
		if err := rows.Scan(&sum.SessionID, &status, &sum.ProjectName, &sum.ItemCount, &updated); err != nil {
			return nil, errors.Storage("scan slate", err)
		}
		sum.Status = slate.Status(status)
		sum.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("list slates", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
