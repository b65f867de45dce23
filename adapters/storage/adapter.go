// Package storage persists request slates between CLI invocations.
// Supports multiple backends: file, SQLite and memory.
package storage

import (
	"context"
	"io"
	"regexp"
	"sort"
	"sync"
	"time"

	"research-planner/core/slate"
	"research-planner/internal/config"
	"research-planner/internal/errors"
)

// Backend is a storage backend type
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// DefaultSession is used when no session id is given
const DefaultSession = "default"

// Store is the storage interface
type Store interface {
	// Save stores the slate of a session, replacing any previous one
	Save(ctx context.Context, sessionID string, s *slate.Slate) error

	// Load retrieves the slate of a session. Unknown sessions return a
	// NOT_FOUND error.
	Load(ctx context.Context, sessionID string) (*slate.Slate, error)

	// Delete removes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List summarizes every stored session, most recently updated first
	List(ctx context.Context) ([]Summary, error)

	// Close closes the store
	Close() error
}

// Summary describes a stored session without its items
type Summary struct {
	SessionID   string       `json:"session_id"`
	Status      slate.Status `json:"status"`
	ProjectName string       `json:"project_name,omitempty"`
	ItemCount   int          `json:"item_count"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func summarize(id string, s *slate.Slate, updated time.Time) Summary {
	return Summary{
		SessionID:   id,
		Status:      s.Status,
		ProjectName: s.ProjectName,
		ItemCount:   len(s.Items),
		UpdatedAt:   updated,
	}
}

func sortSummaries(out []Summary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].SessionID < out[j].SessionID
	})
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidateSessionID rejects ids that are unsafe as file names
func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return errors.Newf(errors.TypeInput, "invalid session id %q", id)
	}
	return nil
}

// LoadOrEmpty loads a session, or returns an empty draft if it does not exist
func LoadOrEmpty(ctx context.Context, store Store, sessionID string) (*slate.Slate, error) {
	s, err := store.Load(ctx, sessionID)
	if errors.IsType(err, errors.TypeNotFound) {
		empty := slate.Empty()
		return &empty, nil
	}
	return s, err
}

// MemoryStore is an in-memory storage backend (for testing)
type MemoryStore struct {
	slates  map[string]slate.Slate
	updated map[string]time.Time
	now     func() time.Time
	mu      sync.RWMutex
}

// NewMemoryStore creates a memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slates:  make(map[string]slate.Slate),
		updated: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, sl *slate.Slate) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slates[sessionID] = sl.Clone()
	s.updated[sessionID] = s.now()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*slate.Slate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.slates[sessionID]
	if !ok {
		return nil, errors.NotFound("session", sessionID)
	}
	out := sl.Clone()
	return &out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slates, sessionID)
	delete(s.updated, sessionID)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.slates))
	for id, sl := range s.slates {
		sl := sl
		out = append(out, summarize(id, &sl, s.updated[id]))
	}
	sortSummaries(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// New creates a store for the configured backend
func New(cfg config.StorageConfig) (Store, error) {
	switch Backend(cfg.Backend) {
	case BackendFile:
		s, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite, "":
		s, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.Configf("unsupported storage backend: %s", cfg.Backend)
	}
}

// Ensure interfaces are implemented
var (
	_ Store     = (*FileStore)(nil)
	_ Store     = (*SQLiteStore)(nil)
	_ Store     = (*MemoryStore)(nil)
	_ io.Closer = (*SQLiteStore)(nil)
)
