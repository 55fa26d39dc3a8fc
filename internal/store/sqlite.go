package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/rcliao/recordbook/internal/model"
	"github.com/rcliao/recordbook/internal/notify"
)

// SQLiteStore implements Store on a private in-memory SQLite database.
// Nothing outlives Close; two SQLiteStores never share data or allocator.
type SQLiteStore struct {
	mu  sync.Mutex
	db  *sql.DB
	hub notify.Hub
}

// NewSQLiteStore opens a fresh in-memory database.
func NewSQLiteStore() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Every connection to :memory: is its own database, so pin the pool to
	// one connection that never expires.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		seq   INTEGER PRIMARY KEY AUTOINCREMENT,
		id    TEXT NOT NULL UNIQUE,
		name  TEXT NOT NULL,
		email TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS allocator (
		singleton INTEGER PRIMARY KEY CHECK (singleton = 0),
		next      INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO allocator (singleton, next) VALUES (0, 0);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Add(ctx context.Context, d model.Draft) (model.Record, error) {
	s.mu.Lock()
	rec, err := s.add(ctx, d)
	s.mu.Unlock()
	if err != nil {
		slog.Warn("add failed", "backend", BackendSQLite, "err", err)
		return model.Record{}, err
	}

	slog.Debug("record added", "id", rec.ID, "backend", BackendSQLite)
	s.hub.Publish(notify.Event{Kind: notify.RecordAdded, RecordID: rec.ID})
	return rec, nil
}

func (s *SQLiteStore) add(ctx context.Context, d model.Draft) (model.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Record{}, err
	}
	defer tx.Rollback()

	var next uint64
	if err := tx.QueryRowContext(ctx, `SELECT next FROM allocator WHERE singleton = 0`).Scan(&next); err != nil {
		return model.Record{}, fmt.Errorf("read allocator: %w", err)
	}
	id := strconv.FormatUint(next, 10)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (id, name, email) VALUES (?, ?, ?)`,
		id, d.Name, d.Email)
	if err != nil {
		return model.Record{}, fmt.Errorf("insert record: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE allocator SET next = next + 1 WHERE singleton = 0`)
	if err != nil {
		return model.Record{}, fmt.Errorf("advance allocator: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Record{}, err
	}

	return model.Record{ID: id, Name: d.Name, Email: d.Email}, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, patch model.Draft) (model.Collection, error) {
	s.mu.Lock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET name = ?, email = ? WHERE id = ?`,
		patch.Name, patch.Email, id)
	if err != nil {
		s.mu.Unlock()
		slog.Warn("update failed", "id", id, "backend", BackendSQLite, "err", err)
		return nil, fmt.Errorf("update record: %w", err)
	}
	out, err := s.list(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if n, _ := res.RowsAffected(); n > 0 {
		slog.Debug("record updated", "id", id, "backend", BackendSQLite)
		s.hub.Publish(notify.Event{Kind: notify.RecordUpdated, RecordID: id})
	}
	return out, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, id string) (model.Collection, error) {
	s.mu.Lock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		s.mu.Unlock()
		slog.Warn("remove failed", "id", id, "backend", BackendSQLite, "err", err)
		return nil, fmt.Errorf("delete record: %w", err)
	}
	out, err := s.list(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if n, _ := res.RowsAffected(); n > 0 {
		slog.Debug("record removed", "id", id, "backend", BackendSQLite)
		s.hub.Publish(notify.Event{Kind: notify.RecordRemoved, RecordID: id})
	}
	return out, nil
}

func (s *SQLiteStore) Snapshot(ctx context.Context) (model.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx)
}

func (s *SQLiteStore) list(ctx context.Context) (model.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email FROM records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := model.Collection{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM records WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Record{}, false, nil
	}
	if err != nil {
		return model.Record{}, false, fmt.Errorf("get record: %w", err)
	}
	return r, true, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &Stats{Backend: BackendSQLite}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&st.Records); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT next FROM allocator WHERE singleton = 0`).Scan(&st.Allocated); err != nil {
		return nil, fmt.Errorf("read allocator: %w", err)
	}
	st.NextID = strconv.FormatUint(st.Allocated, 10)
	return st, nil
}

func (s *SQLiteStore) Subscribe(fn notify.Func) func() {
	return s.hub.Subscribe(fn)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (model.Record, error) {
	var r model.Record
	err := row.Scan(&r.ID, &r.Name, &r.Email)
	return r, err
}
