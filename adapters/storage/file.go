package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"research-planner/core/slate"
	"research-planner/internal/errors"
	"research-planner/internal/logging"
)

// FileStore keeps one JSON file per session under a directory
type FileStore struct {
	basePath string
	mu       sync.RWMutex
	logger   *zap.Logger
}

// fileRecord is the on-disk form of a session
type fileRecord struct {
	SessionID string      `json:"session_id"`
	UpdatedAt time.Time   `json:"updated_at"`
	Slate     slate.Slate `json:"slate"`
}

// NewFileStore creates a file store
func NewFileStore(basePath string) (*FileStore, error) {
	if basePath == "" {
		return nil, errors.Config("file storage needs a path")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Storage("failed to create storage directory", err)
	}
	return &FileStore{basePath: basePath, logger: logging.Named("storage")}, nil
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.basePath, sessionID+".json")
}

func (s *FileStore) Save(ctx context.Context, sessionID string, sl *slate.Slate) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(fileRecord{
		SessionID: sessionID,
		UpdatedAt: time.Now().UTC(),
		Slate:     *sl,
	}, "", "  ")
	if err != nil {
		return errors.Storage("failed to marshal slate", err)
	}

	// write then rename so a crash never leaves a truncated session
	tmp := s.path(sessionID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Storage("failed to write slate", err)
	}
	if err := os.Rename(tmp, s.path(sessionID)); err != nil {
		return errors.Storage("failed to write slate", err)
	}

	s.logger.Debug("session saved", zap.String("session", sessionID), zap.Int("items", len(sl.Items)))
	return nil
}

func (s *FileStore) read(sessionID string) (*fileRecord, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("session", sessionID)
		}
		return nil, errors.Storage("failed to read slate", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Storage("failed to unmarshal slate", err).WithContext("session", sessionID)
	}
	return &rec, nil
}

func (s *FileStore) Load(ctx context.Context, sessionID string) (*slate.Slate, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.read(sessionID)
	if err != nil {
		return nil, err
	}
	return &rec.Slate, nil
}

func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(sessionID)); err != nil && !os.IsNotExist(err) {
		return errors.Storage("failed to delete slate", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, errors.Storage("failed to read storage", err)
	}

	var out []Summary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		rec, err := s.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			// unreadable files are skipped, not fatal for a listing
			s.logger.Warn("skipping session file", zap.String("file", name), zap.Error(err))
			continue
		}
		out = append(out, summarize(rec.SessionID, &rec.Slate, rec.UpdatedAt))
	}
	sortSummaries(out)
	return out, nil
}

func (s *FileStore) Close() error {
	return nil
}
