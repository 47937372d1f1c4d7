package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/DoyleJ11/lobby-roster/internal/store"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is a single-file backend for small deployments.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(migrationFS, "migrations/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := db.Exec(upSection(string(content))); err != nil {
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
	}
	return nil
}

// upSection returns the SQL in the -- +migrate Up section.
func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, up)
	if start == -1 {
		return content
	}
	end := strings.Index(content, down)
	if end == -1 {
		return content[start+len(up):]
	}
	return content[start+len(up) : end]
}

func (s *Store) SaveSession(ctx context.Context, rec store.SessionRecord) error {
	players, err := json.Marshal(nonNil(rec.Players))
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}
	observers, err := json.Marshal(nonNil(rec.Observers))
	if err != nil {
		return fmt.Errorf("encode observers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO lobby_sessions (id, version, creator_id, creator_name, slot, players, observers, chat_id, message_id, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    version = excluded.version,
    creator_id = excluded.creator_id,
    creator_name = excluded.creator_name,
    slot = excluded.slot,
    players = excluded.players,
    observers = excluded.observers,
    chat_id = excluded.chat_id,
    message_id = excluded.message_id,
    status = excluded.status
WHERE lobby_sessions.version < excluded.version`,
		rec.ID, rec.Version, rec.CreatorID, rec.CreatorName, rec.Slot,
		string(players), string(observers), rec.ChatID, rec.MessageID,
		rec.Status, rec.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", rec.ID, err)
	}
	return nil
}

func nonNil(m []store.Member) []store.Member {
	if m == nil {
		return []store.Member{}
	}
	return m
}

const sessionColumns = `id, version, creator_id, creator_name, slot, players, observers, chat_id, message_id, status, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (store.SessionRecord, error) {
	var (
		rec                store.SessionRecord
		players, observers string
		createdAt          int64
	)
	if err := row.Scan(&rec.ID, &rec.Version, &rec.CreatorID, &rec.CreatorName, &rec.Slot,
		&players, &observers, &rec.ChatID, &rec.MessageID, &rec.Status, &createdAt); err != nil {
		return store.SessionRecord{}, err
	}
	if err := json.Unmarshal([]byte(players), &rec.Players); err != nil {
		return store.SessionRecord{}, fmt.Errorf("decode players: %w", err)
	}
	if err := json.Unmarshal([]byte(observers), &rec.Observers); err != nil {
		return store.SessionRecord{}, fmt.Errorf("decode observers: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return rec, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (store.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM lobby_sessions WHERE id = ?`, id)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.SessionRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.SessionRecord{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return rec, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lobby_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context) ([]store.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM lobby_sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []store.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) PutAdmin(ctx context.Context, a store.Admin) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO lobby_admins (id, alias, added_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET alias = excluded.alias`,
		a.ID, a.Alias, a.AddedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("put admin %d: %w", a.ID, err)
	}
	return nil
}

func (s *Store) GetAdmin(ctx context.Context, id int64) (store.Admin, error) {
	var (
		a       store.Admin
		addedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, alias, added_at FROM lobby_admins WHERE id = ?`, id).
		Scan(&a.ID, &a.Alias, &addedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Admin{}, store.ErrNotFound
	}
	if err != nil {
		return store.Admin{}, fmt.Errorf("get admin %d: %w", id, err)
	}
	a.AddedAt = time.UnixMilli(addedAt).UTC()
	return a, nil
}

func (s *Store) DeleteAdmin(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lobby_admins WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete admin %d: %w", id, err)
	}
	return nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]store.Admin, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, alias, added_at FROM lobby_admins ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var out []store.Admin
	for rows.Next() {
		var (
			a       store.Admin
			addedAt int64
		)
		if err := rows.Scan(&a.ID, &a.Alias, &addedAt); err != nil {
			return nil, fmt.Errorf("list admins: %w", err)
		}
		a.AddedAt = time.UnixMilli(addedAt).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) PutDestination(ctx context.Context, d store.Destination) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO lobby_destinations (chat_id, kind, title, added_at) VALUES (?, ?, ?, ?)
ON CONFLICT(chat_id) DO UPDATE SET kind = excluded.kind, title = excluded.title`,
		d.ChatID, string(d.Kind), d.Title, d.AddedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("put destination %d: %w", d.ChatID, err)
	}
	return nil
}

func (s *Store) DeleteDestination(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lobby_destinations WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete destination %d: %w", chatID, err)
	}
	return nil
}

func (s *Store) ListDestinations(ctx context.Context) ([]store.Destination, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id, kind, title, added_at FROM lobby_destinations ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}
	defer rows.Close()

	var out []store.Destination
	for rows.Next() {
		var (
			d       store.Destination
			kind    string
			addedAt int64
		)
		if err := rows.Scan(&d.ChatID, &kind, &d.Title, &addedAt); err != nil {
			return nil, fmt.Errorf("list destinations: %w", err)
		}
		d.Kind = store.DestinationKind(kind)
		d.AddedAt = time.UnixMilli(addedAt).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
