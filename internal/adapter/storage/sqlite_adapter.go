package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/poslane/poslane/internal/core/domain"
)

// Session values are stored as two string entries, mirroring the durable
// client-side storage contract. A missing or malformed flag reads back as
// logged out.
const (
	sessionKeyEmployeeCode = "employee_code"
	sessionKeyLoggedIn     = "is_logged_in"
)

const schema = `
CREATE TABLE IF NOT EXISTS session (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS receipts (
	id         TEXT PRIMARY KEY,
	emp_code   TEXT NOT NULL,
	total      INTEGER NOT NULL,
	lines      TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// SQLiteAdapter is the lane's embedded durable store: the employee session
// and the local receipt journal.
type SQLiteAdapter struct {
	db *sql.DB
}

// OpenSQLiteAdapter opens (creating if needed) the store at path.
func OpenSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteAdapter{db: db}, nil
}

func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}

func (a *SQLiteAdapter) Save(ctx context.Context, session domain.Session) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	entries := map[string]string{
		sessionKeyEmployeeCode: session.EmployeeCode,
		sessionKeyLoggedIn:     fmt.Sprintf("%t", session.LoggedIn),
	}
	for key, value := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		if err != nil {
			return fmt.Errorf("save session %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func (a *SQLiteAdapter) Load(ctx context.Context) (domain.Session, error) {
	code, err := a.sessionValue(ctx, sessionKeyEmployeeCode)
	if err != nil {
		return domain.Session{}, err
	}
	flag, err := a.sessionValue(ctx, sessionKeyLoggedIn)
	if err != nil {
		return domain.Session{}, err
	}

	// Anything other than the literal "true" means logged out.
	return domain.Session{
		EmployeeCode: code,
		LoggedIn:     flag == "true",
	}, nil
}

func (a *SQLiteAdapter) Erase(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM session`)
	if err != nil {
		return fmt.Errorf("erase session: %w", err)
	}
	return nil
}

func (a *SQLiteAdapter) sessionValue(ctx context.Context, key string) (string, error) {
	var value string
	err := a.db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query session %s: %w", key, err)
	}
	return value, nil
}

func (a *SQLiteAdapter) Append(ctx context.Context, receipt domain.Receipt) error {
	lines, err := json.Marshal(receipt.Lines)
	if err != nil {
		return fmt.Errorf("encode receipt lines: %w", err)
	}
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO receipts (id, emp_code, total, lines, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		receipt.ID, receipt.EmployeeCode, receipt.Total, string(lines),
		receipt.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

func (a *SQLiteAdapter) Recent(ctx context.Context, limit int) ([]domain.Receipt, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, emp_code, total, lines, created_at
		FROM receipts ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []domain.Receipt
	for rows.Next() {
		var r domain.Receipt
		var lines string
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.EmployeeCode, &r.Total, &lines, &createdAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		if err := json.Unmarshal([]byte(lines), &r.Lines); err != nil {
			return nil, fmt.Errorf("decode receipt lines: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdAt).UTC()
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}
