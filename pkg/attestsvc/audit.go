package attestsvc

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openramp-hq/openramp-solver/pkg/logger"
)

// Entry is one line of the signing audit trail. Signatures and raw
// presentations are deliberately absent: the trail records decisions, not
// material that could be replayed from a leaked log file.
type Entry struct {
	ID          string `json:"id"`
	Time        string `json:"time"`
	Solver      string `json:"solver,omitempty"`
	IntentHash  string `json:"intent_hash"`
	Outcome     string `json:"outcome"`
	Code        string `json:"code,omitempty"`
	Reason      string `json:"reason,omitempty"`
	PaymentID   string `json:"payment_id,omitempty"`
	AmountCents int64  `json:"amount_cents,omitempty"`
	ServerName  string `json:"server_name,omitempty"`
	Digest      string `json:"digest,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

// AuditLog appends one JSON object per attest decision to a file. A nil
// AuditLog is valid and records nothing.
type AuditLog struct {
	mu     sync.Mutex
	file   *os.File
	logger logger.Logger
}

// OpenAuditLog opens the audit trail for appending. An empty path disables
// auditing and returns nil.
func OpenAuditLog(path string, log logger.Logger) (*AuditLog, error) {
	if path == "" {
		return nil, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log %s: %v", path, err)
	}
	return &AuditLog{file: file, logger: log}, nil
}

// Record appends an entry, assigning it an id and timestamp. Write failures
// are logged but never fail the request being audited.
func (a *AuditLog) Record(entry Entry) {
	if a == nil {
		return
	}

	entry.ID = uuid.New().String()
	entry.Time = time.Now().UTC().Format(time.RFC3339)

	line, err := json.Marshal(entry)
	if err != nil {
		a.logger.Error("Failed to encode audit entry: %v", err)
		return
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.file.Write(line); err != nil {
		a.logger.Error("Failed to write audit entry: %v", err)
	}
}

// Close flushes and closes the audit trail
func (a *AuditLog) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
