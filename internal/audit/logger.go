package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prospect-platform/backend/internal/audit/domain"
	auditrepo "prospect-platform/backend/internal/audit/repository"
)

// Actions recorded by the services.
const (
	ActionLoginSuccess      = "login_success"
	ActionLoginFailure      = "login_failure"
	ActionTokenRefreshed    = "token_refreshed"
	ActionPINVerified       = "pin_verified"
	ActionPINFailure        = "pin_failure"
	ActionLeadGenerated     = "lead_generated"
	ActionLeadStatusChanged = "lead_status_changed"
)

// Resources named in audit entries.
const (
	ResourceSession = "session"
	ResourceUser    = "user"
	ResourceLead    = "lead"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event. LogEvent is best-effort: failures are logged and do not
// affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource string, metadata map[string]string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         *zap.Logger
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown". A nil log discards write failures.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log}
}

// LogEvent writes one audit log entry.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource string, metadata map[string]string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		CreatedAt: time.Now().UTC(),
	}
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			entry.Metadata = string(b)
		}
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Warn("audit write failed",
			zap.String("action", action),
			zap.String("resource", resource),
			zap.Error(err),
		)
	}
}

// Noop discards audit events.
type Noop struct{}

func (Noop) LogEvent(context.Context, string, string, string, map[string]string) {}
