package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	activityKeep = 500
	timeLayout   = "2006-01-02T15:04:05.000000000Z07:00"
)

type ActivityKind string

const (
	ActivityDelete ActivityKind = "delete"
	ActivityCreate ActivityKind = "create"
	ActivityUpdate ActivityKind = "update"
	ActivityError  ActivityKind = "error"
)

type Activity struct {
	ID        string
	Kind      ActivityKind
	Resource  string
	EntityID  int
	Message   string
	CreatedAt time.Time
}

// SnapshotKey identifies one listing request.
type SnapshotKey struct {
	Resource   string
	Role       string
	Title      string
	PageNumber int
	PageSize   int
}

type Snapshot struct {
	Total     int
	FetchedAt time.Time
}

// Store is the local journal: recent activity and the last page seen per
// listing request.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS activity (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	resource TEXT NOT NULL DEFAULT '',
	entity_id INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots (
	resource TEXT NOT NULL,
	role TEXT NOT NULL,
	title TEXT NOT NULL,
	page_number INTEGER NOT NULL,
	page_size INTEGER NOT NULL,
	total INTEGER NOT NULL DEFAULT 0,
	payload TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	PRIMARY KEY (resource, role, title, page_number, page_size)
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.ensureActivityColumns()
}

// ensureActivityColumns upgrades journals created before a column existed.
func (s *Store) ensureActivityColumns() error {
	required := map[string]string{
		"resource":  "ALTER TABLE activity ADD COLUMN resource TEXT NOT NULL DEFAULT '';",
		"entity_id": "ALTER TABLE activity ADD COLUMN entity_id INTEGER NOT NULL DEFAULT 0;",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(activity);`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(alter); err != nil {
			return err
		}
	}
	return nil
}

// Record appends an entry to the activity journal and trims old entries.
func (s *Store) Record(a Activity) (Activity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO activity (id, kind, resource, entity_id, message, created_at) VALUES (?, ?, ?, ?, ?, ?);`,
		a.ID, string(a.Kind), a.Resource, a.EntityID, a.Message, a.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return a, fmt.Errorf("record activity: %w", err)
	}
	_, err = s.db.Exec(`DELETE FROM activity WHERE id NOT IN (SELECT id FROM activity ORDER BY created_at DESC, rowid DESC LIMIT ?);`, activityKeep)
	if err != nil {
		return a, fmt.Errorf("trim activity: %w", err)
	}
	return a, nil
}

// RecentActivity returns up to limit entries, newest first.
func (s *Store) RecentActivity(limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id, kind, resource, entity_id, message, created_at FROM activity ORDER BY created_at DESC, rowid DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		var kind, created string
		if err := rows.Scan(&a.ID, &kind, &a.Resource, &a.EntityID, &a.Message, &created); err != nil {
			return nil, err
		}
		a.Kind = ActivityKind(kind)
		if parsed, err := time.Parse(timeLayout, created); err == nil {
			a.CreatedAt = parsed
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveSnapshot stores items as the last page seen for key.
func (s *Store) SaveSnapshot(key SnapshotKey, total int, items any) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.Exec(`
INSERT INTO snapshots (resource, role, title, page_number, page_size, total, payload, fetched_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (resource, role, title, page_number, page_size)
DO UPDATE SET total = excluded.total, payload = excluded.payload, fetched_at = excluded.fetched_at;`,
		key.Resource, key.Role, key.Title, key.PageNumber, key.PageSize, total, string(payload), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot decodes the stored page for key into items. The bool is false
// when nothing was stored.
func (s *Store) LoadSnapshot(key SnapshotKey, items any) (Snapshot, bool, error) {
	var snap Snapshot
	var payload, fetched string
	err := s.db.QueryRow(`SELECT total, payload, fetched_at FROM snapshots
WHERE resource = ? AND role = ? AND title = ? AND page_number = ? AND page_size = ?;`,
		key.Resource, key.Role, key.Title, key.PageNumber, key.PageSize).Scan(&snap.Total, &payload, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, fmt.Errorf("load snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), items); err != nil {
		return snap, false, fmt.Errorf("decode snapshot: %w", err)
	}
	if parsed, err := time.Parse(timeLayout, fetched); err == nil {
		snap.FetchedAt = parsed
	}
	return snap, true, nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
