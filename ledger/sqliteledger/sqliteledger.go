// Package sqliteledger provides a SQLite-backed ledger.Store.
//
// One table holds every record keyed by the composite (prefix, identity)
// bytes. WAL mode keeps single-writer durability cheap for the daemon's
// one-request-at-a-time workload.
package sqliteledger

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"xdao.co/descimarket/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	key   BLOB PRIMARY KEY,
	value BLOB NOT NULL
) WITHOUT ROWID;
`

// Store persists ledger records in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a SQLite ledger at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqliteledger: path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqliteledger: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqliteledger: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqliteledger: schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Put(prefix ledger.Prefix, identity, value []byte) error {
	if prefix == "" {
		return ledger.ErrEmptyPrefix
	}
	_, err := s.db.Exec(
		`INSERT INTO records (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		prefix.Key(identity), value,
	)
	return err
}

func (s *Store) Get(prefix ledger.Prefix, identity []byte) ([]byte, error) {
	if prefix == "" {
		return nil, ledger.ErrEmptyPrefix
	}
	var v []byte
	err := s.db.QueryRow(`SELECT value FROM records WHERE key = ?`, prefix.Key(identity)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

func (s *Store) Delete(prefix ledger.Prefix, identity []byte) error {
	if prefix == "" {
		return ledger.ErrEmptyPrefix
	}
	_, err := s.db.Exec(`DELETE FROM records WHERE key = ?`, prefix.Key(identity))
	return err
}

func (s *Store) Has(prefix ledger.Prefix, identity []byte) bool {
	if prefix == "" {
		return false
	}
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM records WHERE key = ?`, prefix.Key(identity)).Scan(&one)
	return err == nil
}
