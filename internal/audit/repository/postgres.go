package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"prospect-platform/backend/internal/audit/domain"
)

const (
	insertAuditLog = `INSERT INTO audit_logs (id, user_id, action, resource, ip, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	selectAuditLog = `SELECT id, user_id, action, resource, ip, metadata, created_at FROM audit_logs`
)

// PostgresRepository persists audit logs in the audit_logs table.
type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the audit log for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	row := r.db.QueryRowContext(ctx, selectAuditLog+` WHERE id = $1`, id)
	a, err := scanAuditLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// List returns audit logs matching f newest first, paginated by limit and offset.
func (r *PostgresRepository) List(ctx context.Context, f Filter, limit, offset int64) ([]*domain.AuditLog, error) {
	where, args := whereClause(f)
	n := len(args)
	query := selectAuditLog + where + fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		a, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count returns the number of stored audit logs matching f.
func (r *PostgresRepository) Count(ctx context.Context, f Filter) (int64, error) {
	where, args := whereClause(f)
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM audit_logs`+where, args...).Scan(&n)
	return n, err
}

// whereClause builds a positional WHERE clause for the set fields of f.
func whereClause(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("user_id", f.UserID)
	add("action", f.Action)
	add("resource", f.Resource)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, insertAuditLog,
		a.ID, nullString(a.UserID), a.Action, a.Resource, a.IP, nullString(a.Metadata), a.CreatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditLog(s rowScanner) (*domain.AuditLog, error) {
	var (
		a    domain.AuditLog
		uid  sql.NullString
		meta sql.NullString
	)
	if err := s.Scan(&a.ID, &uid, &a.Action, &a.Resource, &a.IP, &meta, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.UserID = uid.String
	a.Metadata = meta.String
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
