package profilegen

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"mime"
	"time"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

// The SQL schema for the app's database
//
//go:embed schema.sql
var schemaSQL string

// MemoryDBURI is a private in-memory database shared by every connection in the pool.
// Nothing in it outlives the process.
const MemoryDBURI = "file:profilegen?mode=memory&cache=shared"

// Nothing the user chose lives in here: just blobs on their way to the browser and a
// diagnostic log of downloads.
type DB struct {
	*sqlitex.Pool
}

func setUpDb(conn *sqlite.Conn) error {
	return sqlitex.ExecScript(conn, schemaSQL)
}

func NewDB(dbpool *sqlitex.Pool) (*DB, error) {
	conn := dbpool.Get(context.TODO())
	if conn == nil {
		return nil, errors.New("couldn't get a connection")
	}
	defer dbpool.Put(conn)

	err := setUpDb(conn)
	if err != nil {
		return nil, fmt.Errorf("couldn't set up db: %s", err)
	}

	return &DB{dbpool}, nil
}

// OpenDB opens a pool on uri and sets up the schema.
func OpenDB(uri string, poolSize int) (*DB, error) {
	dbpool, err := sqlitex.Open(uri, 0, poolSize)
	if err != nil {
		return nil, err
	}
	db, err := NewDB(dbpool)
	if err != nil {
		dbpool.Close()
		return nil, err
	}
	return db, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}

var ErrBlobNotFound = errors.New("blob not found")

type Blob struct {
	BlobID      int64
	Filename    string
	ContentType string
	CreatedAt   time.Time
	Contents    []byte
}

// ContentDisposition asks the browser to save the blob rather than display it.
func (b *Blob) ContentDisposition() string {
	return AttachmentDisposition(b.Filename)
}

// AttachmentDisposition formats an attachment Content-Disposition header. Non-ASCII
// filenames are encoded per RFC 2231.
func AttachmentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func SaveBlob(conn *sqlite.Conn, filename string, contentType string, contents []byte) (int64, error) {
	query := `
		insert into blob (filename, content_type, created_at, contents)
		values (?, ?, ?, ?)`
	err := sqlitex.Exec(conn, query, nil, filename, contentType, utcNow().Unix(), contents)
	if err != nil {
		return 0, err
	}
	return conn.LastInsertRowID(), nil
}

// TakeBlob reads a blob and deletes it in the same savepoint, so each blob can only be
// taken once.
func TakeBlob(conn *sqlite.Conn, blobID int64) (blob *Blob, err error) {
	defer sqlitex.Save(conn)(&err)

	query := `
		select blob_id, filename, content_type, created_at, contents
		from blob
		where blob_id = ?`
	collect := func(stmt *sqlite.Stmt) error {
		contents, err := io.ReadAll(stmt.ColumnReader(4))
		if err != nil {
			return err
		}
		blob = &Blob{
			BlobID:      stmt.ColumnInt64(0),
			Filename:    stmt.ColumnText(1),
			ContentType: stmt.ColumnText(2),
			CreatedAt:   time.Unix(stmt.ColumnInt64(3), 0).UTC(),
			Contents:    contents,
		}
		return nil
	}
	if err = sqlitex.Exec(conn, query, collect, blobID); err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, ErrBlobNotFound
	}
	err = sqlitex.Exec(conn, "delete from blob where blob_id = ?", nil, blobID)
	return blob, err
}

// SweepBlobs deletes blobs nobody came to collect. Returns how many were deleted.
func SweepBlobs(conn *sqlite.Conn, olderThan time.Time) (int, error) {
	err := sqlitex.Exec(conn, "delete from blob where created_at < ?", nil, olderThan.UTC().Unix())
	if err != nil {
		return 0, err
	}
	return conn.Changes(), nil
}

// RecordDownload implements DownloadRecorder.
func (db *DB) RecordDownload(ctx context.Context, d *Download) error {
	conn := db.Get(ctx)
	if conn == nil {
		return errors.New("couldn't get a connection")
	}
	defer db.Put(conn)
	return InsertDownloadEvent(conn, d)
}

func InsertDownloadEvent(conn *sqlite.Conn, d *Download) error {
	var errText any
	if d.Err != nil {
		errText = d.Err.Error()
	}
	query := `
		insert into download_event
			(download_id, name, url, filename, state, bytes, error, started_at, finished_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return sqlitex.Exec(conn, query, nil,
		d.ID, d.Name, d.URL, d.Filename, string(d.State), d.Bytes, errText,
		d.StartedAt.Unix(), d.FinishedAt.Unix(),
	)
}

type DownloadEvent struct {
	DownloadID string
	Name       string
	URL        string
	Filename   string
	State      DownloadState
	Bytes      int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

func (e *DownloadEvent) Failed() bool {
	return e.State == DownloadFailed
}

func GetRecentDownloadEvents(conn *sqlite.Conn, limit int) ([]DownloadEvent, error) {
	events := make([]DownloadEvent, 0, limit)
	query := `
		select download_id, name, url, filename, state, bytes, coalesce(error, ''),
			started_at, finished_at
		from download_event
		order by finished_at desc, download_event_id desc
		limit ?`
	collect := func(stmt *sqlite.Stmt) error {
		events = append(events, DownloadEvent{
			DownloadID: stmt.ColumnText(0),
			Name:       stmt.ColumnText(1),
			URL:        stmt.ColumnText(2),
			Filename:   stmt.ColumnText(3),
			State:      DownloadState(stmt.ColumnText(4)),
			Bytes:      stmt.ColumnInt(5),
			Error:      stmt.ColumnText(6),
			StartedAt:  time.Unix(stmt.ColumnInt64(7), 0).UTC(),
			FinishedAt: time.Unix(stmt.ColumnInt64(8), 0).UTC(),
		})
		return nil
	}
	err := sqlitex.Exec(conn, query, collect, limit)
	return events, err
}
