package archive

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

var ErrEntryNotFound = errors.New("archive entry not found")

const schema = `CREATE TABLE IF NOT EXISTS archive (
	id            TEXT PRIMARY KEY,
	batch_id      TEXT NOT NULL,
	provider      TEXT NOT NULL,
	track_id      TEXT NOT NULL,
	title         TEXT NOT NULL,
	source        TEXT NOT NULL,
	thumbnail     TEXT NOT NULL,
	path          TEXT NOT NULL,
	size          INTEGER NOT NULL,
	outcome       TEXT NOT NULL,
	reason        TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS archive_created_at ON archive (created_at DESC);`

// Entry is the archived outcome of one job.
type Entry struct {
	Id        string    `json:"id"`
	BatchId   string    `json:"batch_id"`
	Provider  string    `json:"provider"`
	TrackId   string    `json:"track_id"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	Thumbnail string    `json:"thumbnail"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository struct {
	db *sql.DB
}

// Open opens (and creates if needed) the sqlite archive database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	return db, nil
}

func New(ctx context.Context, db *sql.DB) (*Repository, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Archive(ctx context.Context, e *Entry) error {
	if e.Id == "" {
		e.Id = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO archive (id, batch_id, provider, track_id, title, source, thumbnail, path, size, outcome, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Id, e.BatchId, e.Provider, e.TrackId, e.Title, e.Source, e.Thumbnail, e.Path, e.Size, e.Outcome, e.Reason, e.CreatedAt.UTC(),
	)
	return err
}

// List returns at most limit entries, newest first, skipping offset.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, batch_id, provider, track_id, title, source, thumbnail, path, size, outcome, reason, created_at
		 FROM archive ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.Id, &e.BatchId, &e.Provider, &e.TrackId, &e.Title, &e.Source,
			&e.Thumbnail, &e.Path, &e.Size, &e.Outcome, &e.Reason, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM archive WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}
