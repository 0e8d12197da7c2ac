package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"prospect-platform/backend/internal/audit/domain"
	"prospect-platform/backend/internal/audit/repository"
)

type memAuditRepo struct {
	mu        sync.Mutex
	entries   []*domain.AuditLog
	createErr error
}

func (m *memAuditRepo) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (m *memAuditRepo) List(ctx context.Context, f repository.Filter, limit, offset int64) ([]*domain.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := m.filter(f)
	if offset >= int64(len(matched)) {
		return nil, nil
	}
	end := offset + limit
	if end > int64(len(matched)) {
		end = int64(len(matched))
	}
	return matched[offset:end], nil
}

func (m *memAuditRepo) Count(ctx context.Context, f repository.Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.filter(f))), nil
}

func (m *memAuditRepo) filter(f repository.Filter) []*domain.AuditLog {
	var out []*domain.AuditLog
	for _, e := range m.entries {
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.Resource != "" && e.Resource != f.Resource {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m *memAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &memAuditRepo{}
	l := NewLogger(repo, func(context.Context) string { return "192.168.1.1" }, nil)

	l.LogEvent(context.Background(), "user-1", ActionLeadGenerated, ResourceLead, map[string]string{"lead_id": "abc"})

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", entry.UserID, "user-1")
	}
	if entry.Action != ActionLeadGenerated {
		t.Errorf("action = %q, want %q", entry.Action, ActionLeadGenerated)
	}
	if entry.Resource != ResourceLead {
		t.Errorf("resource = %q, want %q", entry.Resource, ResourceLead)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(entry.Metadata), &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta["lead_id"] != "abc" {
		t.Errorf("metadata lead_id = %q, want abc", meta["lead_id"])
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Error("ID and CreatedAt should be set")
	}
}

func TestLogger_LogEvent_NilIPExtractor(t *testing.T) {
	repo := &memAuditRepo{}
	NewLogger(repo, nil, nil).LogEvent(context.Background(), "", ActionLoginFailure, ResourceSession, nil)

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want %q", repo.entries[0].IP, "unknown")
	}
	if repo.entries[0].Metadata != "" {
		t.Errorf("metadata = %q, want empty", repo.entries[0].Metadata)
	}
}

func TestLogger_LogEvent_RepositoryErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := &memAuditRepo{createErr: errors.New("database error")}
	NewLogger(repo, nil, zap.New(core)).LogEvent(context.Background(), "user-1", ActionLoginSuccess, ResourceSession, nil)

	if logs.FilterMessage("audit write failed").Len() != 1 {
		t.Errorf("expected one warn log for failed write, got %d", logs.Len())
	}
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	NewLogger(nil, nil, nil).LogEvent(context.Background(), "user-1", "action", "resource", nil)
	var l *Logger
	l.LogEvent(context.Background(), "user-1", "action", "resource", nil)
}
