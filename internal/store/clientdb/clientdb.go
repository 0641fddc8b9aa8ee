package clientdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoValue is returned when a secret key has never been stored.
var ErrNoValue = errors.New("no value")

// DB wraps the SQLite database used for local client state: the persisted
// session secret and a log of confirmed actions.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS secrets (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL,
	  updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS actions (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  kind TEXT NOT NULL,
	  target TEXT,
	  payload TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_actions_ts ON actions(ts);
	`)
	return err
}

// SaveSecret upserts a secret under key.
func (d *DB) SaveSecret(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO secrets(key, value, updated_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().Unix())
	return err
}

// LoadSecret returns the secret stored under key, or ErrNoValue.
func (d *DB) LoadSecret(ctx context.Context, key string) (string, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT value FROM secrets WHERE key=?`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoValue
		}
		return "", err
	}
	return v, nil
}

// DeleteSecret removes the secret under key. Missing keys are not an error.
func (d *DB) DeleteSecret(ctx context.Context, key string) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM secrets WHERE key=?`, key)
	return err
}

// PutAction records a confirmed action (like, comment, follow, post).
func (d *DB) PutAction(ctx context.Context, ts time.Time, kind, target string, payload any) error {
	var pstr *string
	if payload != nil {
		pb, _ := json.Marshal(payload)
		ps := string(pb)
		pstr = &ps
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO actions(ts, kind, target, payload) VALUES(?,?,?,?)`,
		ts.Unix(), kind, target, pstr)
	return err
}

// Action is a stored confirmed action.
type Action struct {
	TS      time.Time
	Kind    string
	Target  string
	Payload string
}

// LoadActionsRange returns actions in [start, end), optionally filtered by kind.
func (d *DB) LoadActionsRange(ctx context.Context, start, end time.Time, kind string) ([]Action, error) {
	var rows *sql.Rows
	var err error
	if kind == "" {
		rows, err = d.sql.QueryContext(ctx, `SELECT ts, kind, COALESCE(target,''), COALESCE(payload,'') FROM actions WHERE ts>=? AND ts<? ORDER BY ts`, start.Unix(), end.Unix())
	} else {
		rows, err = d.sql.QueryContext(ctx, `SELECT ts, kind, COALESCE(target,''), COALESCE(payload,'') FROM actions WHERE ts>=? AND ts<? AND kind=? ORDER BY ts`, start.Unix(), end.Unix(), kind)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Action
	for rows.Next() {
		var ts int64
		var a Action
		if err := rows.Scan(&ts, &a.Kind, &a.Target, &a.Payload); err != nil {
			return nil, err
		}
		a.TS = time.Unix(ts, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountActionsWithin counts actions of kind in [start, end).
func (d *DB) CountActionsWithin(ctx context.Context, start, end time.Time, kind string) (int, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT COUNT(1) FROM actions WHERE ts>=? AND ts<? AND kind=?`, start.Unix(), end.Unix(), kind)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
