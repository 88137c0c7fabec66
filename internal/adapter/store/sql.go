package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/google/uuid"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"
)

// SQLStore implements port.Store on database/sql. Queries are written with
// '?' placeholders and rebound for the dialect.
type SQLStore struct {
	db       *sql.DB
	dialect  string
	isUnique func(error) bool
}

func newSQLStore(db *sql.DB, dialect string, isUnique func(error) bool) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, isUnique: isUnique}
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// rebind converts '?' placeholders to $N for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// --- Users ---

const userColumns = `id, email, password_hash, user_type, name, phone, institution_type, branch, interests, onboarded, provider, created_at, updated_at`

// Create inserts a new user profile.
func (s *SQLStore) Create(ctx context.Context, u *domain.UserProfile) error {
	interests, err := encodeInterests(u.Interests)
	if err != nil {
		return err
	}

	query := s.rebind(`INSERT INTO users (` + userColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.Role, u.Name, u.Phone, u.InstitutionType,
		u.Branch, interests, u.Onboarded, u.Provider, u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	if err != nil {
		if s.isUnique(err) {
			return port.ErrDuplicateUser
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetBySubject retrieves a user by subject id.
func (s *SQLStore) GetBySubject(ctx context.Context, id string) (*domain.UserProfile, error) {
	query := s.rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (s *SQLStore) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	if email == "" {
		return nil, port.ErrUserNotFound
	}
	query := s.rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// Update replaces the mutable profile fields.
func (s *SQLStore) Update(ctx context.Context, u *domain.UserProfile) error {
	interests, err := encodeInterests(u.Interests)
	if err != nil {
		return err
	}

	query := s.rebind(`UPDATE users SET email = ?, user_type = ?, name = ?, phone = ?,
	          institution_type = ?, branch = ?, interests = ?, onboarded = ?, updated_at = ?
	          WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query,
		u.Email, u.Role, u.Name, u.Phone, u.InstitutionType, u.Branch,
		interests, u.Onboarded, u.UpdatedAt.UTC(), u.ID,
	)
	if err != nil {
		if s.isUnique(err) {
			return port.ErrDuplicateUser
		}
		return fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return port.ErrUserNotFound
	}
	return nil
}

func (s *SQLStore) scanUser(row *sql.Row) (*domain.UserProfile, error) {
	var (
		u         domain.UserProfile
		interests string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.Phone,
		&u.InstitutionType, &u.Branch, &interests, &u.Onboarded, &u.Provider,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if interests != "" {
		if err := json.Unmarshal([]byte(interests), &u.Interests); err != nil {
			return nil, fmt.Errorf("decode interests: %w", err)
		}
	}
	return &u, nil
}

func encodeInterests(in []string) (string, error) {
	if in == nil {
		in = []string{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode interests: %w", err)
	}
	return string(b), nil
}

// --- Chat ---

// GetSession returns the ordered messages of a session.
func (s *SQLStore) GetSession(ctx context.Context, subjectID, sessionID string) (*domain.ChatSession, error) {
	query := s.rebind(`SELECT role, text, created_at FROM chat_messages
	          WHERE subject_id = ? AND session_id = ? ORDER BY id`)

	rows, err := s.db.QueryContext(ctx, query, subjectID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get chat session: %w", err)
	}
	defer rows.Close()

	sess := &domain.ChatSession{SubjectID: subjectID, SessionID: sessionID}
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.Role, &m.Text, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		sess.Messages = append(sess.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	if len(sess.Messages) == 0 {
		return nil, port.ErrSessionNotFound
	}
	return sess, nil
}

// AppendMessages inserts msgs and prunes the session to its newest limit rows.
func (s *SQLStore) AppendMessages(ctx context.Context, subjectID, sessionID string, limit int, msgs ...domain.ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	insert := s.rebind(`INSERT INTO chat_messages (subject_id, session_id, role, text, created_at)
	          VALUES (?, ?, ?, ?, ?)`)
	for _, m := range msgs {
		if _, err := tx.ExecContext(ctx, insert, subjectID, sessionID, m.Role, m.Text, m.Timestamp.UTC()); err != nil {
			return fmt.Errorf("append chat message: %w", err)
		}
	}

	if limit > 0 {
		prune := s.rebind(`DELETE FROM chat_messages
		          WHERE subject_id = ? AND session_id = ? AND id NOT IN (
		              SELECT id FROM chat_messages WHERE subject_id = ? AND session_id = ?
		              ORDER BY id DESC LIMIT ?)`)
		if _, err := tx.ExecContext(ctx, prune, subjectID, sessionID, subjectID, sessionID, limit); err != nil {
			return fmt.Errorf("prune chat session: %w", err)
		}
	}

	return tx.Commit()
}

// --- Audit Logs ---

// WriteAudit implements middleware.AuditWriter.
func (s *SQLStore) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	if details == "" {
		details = "{}"
	}
	if !json.Valid([]byte(details)) {
		wrapped, _ := json.Marshal(map[string]string{"raw": details})
		details = string(wrapped)
	}

	query := s.rebind(`INSERT INTO audit_logs (id, user_id, action, resource, resource_id, details, ip, user_agent, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(context.Background(), query,
		uuid.NewString(), userID, action, resource, resourceID, details, ip, userAgent, time.Now().UTC(),
	)
	return err
}

// ListAuditLogs returns recent audit logs, optionally filtered by action.
func (s *SQLStore) ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error) {
	query := `SELECT id, user_id, action, resource, resource_id, details, ip, user_agent, created_at
	          FROM audit_logs`
	args := []interface{}{}

	if action != "" {
		query += " WHERE action = ?"
		args = append(args, action)
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.Action, &l.Resource, &l.ResourceID,
			&l.Details, &l.IP, &l.UserAgent, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
