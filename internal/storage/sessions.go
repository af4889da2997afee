package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrSessionInvalid marks a token that is unknown or expired.
var ErrSessionInvalid = errors.New("session invalid or expired")

// SessionStore issues and validates report-access session tokens. Only the
// SHA-256 hash of a token is stored; the plaintext lives in the caller's
// cookie. Validation refreshes the expiry once a session has consumed a third
// of its lifetime, so active readers are never logged out.
type SessionStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewSessionStore(db *sql.DB, ttl time.Duration) *SessionStore {
	return &SessionStore{db: db, ttl: ttl, now: time.Now}
}

// Issue creates a session granting access to reportID and returns the
// plaintext token.
func (s *SessionStore) Issue(ctx context.Context, reportID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, report_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		hashToken(token), reportID, now, now.Add(s.ttl))
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Validate checks that token grants access to reportID, sliding the expiry
// forward when the session is past a third of its lifetime.
func (s *SessionStore) Validate(ctx context.Context, reportID, token string) error {
	if token == "" {
		return ErrSessionInvalid
	}
	hash := hashToken(token)

	var storedReport string
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT report_id, expires_at FROM sessions WHERE token_hash = ?`, hash).
		Scan(&storedReport, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionInvalid
	}
	if err != nil {
		return fmt.Errorf("look up session: %w", err)
	}

	now := s.now()
	if now.After(expiresAt) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, hash)
		return ErrSessionInvalid
	}
	if storedReport != reportID {
		return ErrSessionInvalid
	}

	if expiresAt.Sub(now) < s.ttl-s.ttl/3 {
		_, err := s.db.ExecContext(ctx,
			`UPDATE sessions SET expires_at = ? WHERE token_hash = ?`, now.Add(s.ttl), hash)
		if err != nil {
			slog.WarnContext(ctx, "Failed to refresh session expiry", "error", err)
		}
	}
	return nil
}

// Revoke deletes the session for token. Unknown tokens are a no-op.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token_hash = ?`, hashToken(token)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// PurgeExpired removes expired sessions and returns how many were deleted.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count purged sessions: %w", err)
	}
	return n, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
