package journal

import (
	"database/sql"
	"sync"
	"time"

	"github.com/khaledhikmat/vg-go/model"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/xerrors"
)

const schema = `
CREATE TABLE IF NOT EXISTS announcements (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	pipeline TEXT NOT NULL,
	label TEXT NOT NULL,
	text TEXT NOT NULL,
	confidence REAL DEFAULT 0,
	timestamp DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_announcements_timestamp ON announcements(timestamp);
CREATE INDEX IF NOT EXISTS idx_announcements_pipeline ON announcements(pipeline);
`

type sqliteService struct {
	conn *sql.DB
	mu   sync.Mutex
}

// NewSqlite opens (or creates) the journal database at path.
func NewSqlite(path string) (IService, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, xerrors.Errorf("opening journal %s: %w", path, err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, xerrors.Errorf("migrating journal: %w", err)
	}

	return &sqliteService{conn: conn}, nil
}

func (svc *sqliteService) Record(a model.Announcement) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	_, err := svc.conn.Exec(`
		INSERT INTO announcements (id, run_id, pipeline, label, text, confidence, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.RunID, a.Pipeline, a.Label, a.Text, a.Confidence, a.Timestamp.UTC(),
	)
	if err != nil {
		return xerrors.Errorf("recording announcement %s: %w", a.ID, err)
	}
	return nil
}

func (svc *sqliteService) Recent(n int) ([]model.Announcement, error) {
	if n <= 0 {
		return nil, nil
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	rows, err := svc.conn.Query(`
		SELECT id, run_id, pipeline, label, text, confidence, timestamp
		FROM announcements
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, xerrors.Errorf("querying announcements: %w", err)
	}
	defer rows.Close()

	var announcements []model.Announcement
	for rows.Next() {
		var a model.Announcement
		var ts time.Time
		if err := rows.Scan(&a.ID, &a.RunID, &a.Pipeline, &a.Label, &a.Text, &a.Confidence, &ts); err != nil {
			return nil, xerrors.Errorf("scanning announcement: %w", err)
		}
		a.Timestamp = ts
		announcements = append(announcements, a)
	}
	return announcements, rows.Err()
}

func (svc *sqliteService) Close() error {
	return svc.conn.Close()
}
