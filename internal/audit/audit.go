// Package audit appends orchestration transitions to a JSONL journal. The
// journal is a shared best-effort sink: write failures are logged and
// swallowed, never propagated into a conversation's result path.
package audit

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	sderrors "servicedesk/internal/errors"
	"servicedesk/internal/logging"
)

// Entry is one audit record.
type Entry struct {
	Time     time.Time `json:"time"`
	ThreadID string    `json:"thread_id"`
	Node     string    `json:"node"`
	Detail   string    `json:"detail,omitempty"`
}

// Journal is an append-only audit sink.
type Journal struct {
	mu     sync.Mutex
	path   string
	logger logging.Logger
}

// NewJournal creates a journal writing to path. An empty path disables
// writes entirely.
func NewJournal(path string) *Journal {
	return &Journal{
		path:   path,
		logger: logging.NewComponentLogger("Audit"),
	}
}

// Record appends an entry. Failures are reported through the logger only.
func (j *Journal) Record(threadID, node, detail string) {
	if j == nil || j.path == "" {
		return
	}
	entry := Entry{
		Time:     time.Now(),
		ThreadID: threadID,
		Node:     node,
		Detail:   detail,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		j.logger.Error("%v", &sderrors.AuditError{Err: err})
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		j.logger.Error("%v", &sderrors.AuditError{Err: err})
		return
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(append(data, '\n')); err != nil {
		j.logger.Error("%v", &sderrors.AuditError{Err: err})
	}
}
