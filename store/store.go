// Package store keeps checkpoints on disk, addressed by content.
//
// Each checkpoint is stored once under the BLAKE3 digest of its
// uncompressed bytes, compressed with zstd or LZ4. A sqlite catalog
// records the header of every stored checkpoint so that the newest
// checkpoint of a program can be found without reading blobs.
//
//	<dir>/blobs/<digest>
//	<dir>/catalog.db
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/stasis/checkpoint"
)

var (
	ErrNotFound = errors.New("checkpoint not found")
	ErrCorrupt  = errors.New("corrupt checkpoint blob")
)

var log = commonlog.GetLogger("stasis.store")

// Options configures a Store.
type Options struct {
	Compression Compression
}

// Record is the catalog row for one stored checkpoint.
type Record struct {
	Digest      Digest
	SourcePath  string
	Lasti       uint64
	Objects     int
	Size        int // uncompressed bytes
	Stored      int // bytes on disk, frame included
	Compression Compression
	Created     time.Time
}

// Store is a directory of checkpoint blobs plus their catalog. It is safe
// for concurrent use.
type Store struct {
	dir  string
	db   *sql.DB
	opts Options
}

// Open opens or creates the store rooted at dir.
func Open(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "blobs"), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "catalog.db"))
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	// One connection serializes catalog writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS checkpoints (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		digest      TEXT NOT NULL UNIQUE,
		source_path TEXT NOT NULL,
		lasti       INTEGER NOT NULL,
		objects     INTEGER NOT NULL,
		size        INTEGER NOT NULL,
		stored      INTEGER NOT NULL,
		compression INTEGER NOT NULL,
		created     INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS checkpoints_source ON checkpoints (source_path, created)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog index: %w", err)
	}

	return &Store{dir: dir, db: db, opts: opts}, nil
}

// Close closes the catalog.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) blobPath(d Digest) string {
	return filepath.Join(s.dir, "blobs", d.String())
}

// ---------------------------------------------------------------------------
// Put / Get
// ---------------------------------------------------------------------------

// Put stores a checkpoint. The blob must be a checkpoint of the current
// version. Storing the same bytes again returns the existing record.
func (s *Store) Put(ctx context.Context, blob []byte) (Record, error) {
	sum, err := checkpoint.Inspect(blob)
	if err != nil {
		return Record{}, fmt.Errorf("refusing to store: %w", err)
	}
	d := DigestOf(blob)
	if rec, err := s.Stat(ctx, d); err == nil {
		return rec, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	payload, c, err := compress(blob, s.opts.Compression)
	if err != nil {
		return Record{}, err
	}
	frame := encodeFrame(c, len(blob), payload)
	if err := s.writeBlob(d, frame); err != nil {
		return Record{}, err
	}

	rec := Record{
		Digest:      d,
		SourcePath:  sum.SourcePath,
		Lasti:       sum.Lasti,
		Objects:     sum.Objects,
		Size:        len(blob),
		Stored:      len(frame),
		Compression: c,
		Created:     time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO checkpoints
		(digest, source_path, lasti, objects, size, stored, compression, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO NOTHING`,
		d.String(), rec.SourcePath, int64(rec.Lasti), rec.Objects, rec.Size, rec.Stored,
		int(rec.Compression), rec.Created.UnixNano())
	if err != nil {
		return Record{}, fmt.Errorf("recording %s: %w", d.Short(), err)
	}
	log.Infof("stored %s (%s, %d -> %d bytes, %s)", d.Short(), rec.SourcePath, rec.Size, rec.Stored, c)
	return rec, nil
}

// writeBlob writes data under d's path via a temporary file and rename.
func (s *Store) writeBlob(d Digest, data []byte) error {
	tmp := filepath.Join(s.dir, "blobs", ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing blob: %w", err)
	}
	if err := os.Rename(tmp, s.blobPath(d)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publishing blob: %w", err)
	}
	return nil
}

// Get returns the checkpoint stored under d, verifying its digest.
func (s *Store) Get(ctx context.Context, d Digest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.blobPath(d))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, d.Short())
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob: %w", err)
	}

	c, size, payload, err := decodeFrame(data)
	if err != nil {
		return nil, fmt.Errorf("blob %s: %w", d.Short(), err)
	}
	blob, err := decompress(payload, c, size)
	if err != nil {
		return nil, fmt.Errorf("%w: blob %s: %v", ErrCorrupt, d.Short(), err)
	}
	if DigestOf(blob) != d {
		return nil, fmt.Errorf("%w: blob %s does not match its digest", ErrCorrupt, d.Short())
	}
	log.Debugf("read %s (%d bytes)", d.Short(), len(blob))
	return blob, nil
}

// ---------------------------------------------------------------------------
// Catalog queries
// ---------------------------------------------------------------------------

const recordColumns = `digest, source_path, lasti, objects, size, stored, compression, created`

// Stat returns the catalog record for d.
func (s *Store) Stat(ctx context.Context, d Digest) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM checkpoints WHERE digest = ?`, d.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, d.Short())
	}
	return rec, err
}

// List returns the records for sourcePath, newest first. An empty
// sourcePath lists every record.
func (s *Store) List(ctx context.Context, sourcePath string) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM checkpoints`
	var args []any
	if sourcePath != "" {
		query += ` WHERE source_path = ?`
		args = append(args, sourcePath)
	}
	query += ` ORDER BY created DESC, seq DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Latest returns the newest record for sourcePath.
func (s *Store) Latest(ctx context.Context, sourcePath string) (Record, error) {
	recs, err := s.List(ctx, sourcePath)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, fmt.Errorf("%w: no checkpoints for %q", ErrNotFound, sourcePath)
	}
	return recs[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec         Record
		digest      string
		lasti       int64
		compression int
		created     int64
	)
	err := row.Scan(&digest, &rec.SourcePath, &lasti, &rec.Objects, &rec.Size, &rec.Stored, &compression, &created)
	if err != nil {
		return Record{}, err
	}
	d, err := ParseDigest(digest)
	if err != nil {
		return Record{}, fmt.Errorf("catalog: %w", err)
	}
	rec.Digest = d
	rec.Lasti = uint64(lasti)
	rec.Compression = Compression(compression)
	rec.Created = time.Unix(0, created).UTC()
	return rec, nil
}
