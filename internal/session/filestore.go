// Package session persists per-thread conversation state. The file store is
// the durable implementation; the memory store backs tests.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"servicedesk/internal/desk"
	"servicedesk/internal/logging"
)

type fileStore struct {
	baseDir string
	locks   *keyedMutex
	logger  logging.Logger
}

// NewFileStore creates a JSON-file-backed store under baseDir, one file per
// thread. Writes go through a temp file and rename so a snapshot is always
// either the previous or the new state, never a partial write.
func NewFileStore(baseDir string) (desk.Store, error) {
	if strings.HasPrefix(baseDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		baseDir = filepath.Join(home, baseDir[2:])
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &fileStore{
		baseDir: baseDir,
		locks:   newKeyedMutex(),
		logger:  logging.NewComponentLogger("SessionFileStore"),
	}, nil
}

func (s *fileStore) path(threadID string) string {
	// Thread IDs come from callers; strip path separators before building
	// the file name.
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '.':
			return '_'
		}
		return r
	}, threadID)
	return filepath.Join(s.baseDir, safe+".json")
}

func (s *fileStore) Load(_ context.Context, threadID string) (*desk.ConversationState, error) {
	data, err := os.ReadFile(s.path(threadID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, desk.ErrThreadNotFound
		}
		return nil, fmt.Errorf("read thread %s: %w", threadID, err)
	}
	var state desk.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Error("corrupt state file for thread %s: %v", threadID, err)
		return nil, fmt.Errorf("decode thread %s: %w", threadID, err)
	}
	return &state, nil
}

func (s *fileStore) Save(_ context.Context, state *desk.ConversationState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode thread %s: %w", state.ThreadID, err)
	}

	path := s.path(state.ThreadID)
	tmp, err := os.CreateTemp(s.baseDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

func (s *fileStore) Acquire(threadID string) func() {
	return s.locks.Acquire(threadID)
}
