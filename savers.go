package profilegen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/minio/minio-go/v7"
)

// DirSaver writes avatars into a directory.
//
// The bytes go to a temp file first, which is renamed into place once fully written and
// removed if anything goes wrong. Saving the same name twice overwrites the first file.
type DirSaver struct {
	Dir string
}

func (s DirSaver) Save(ctx context.Context, filename string, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// A name like "a/b" shouldn't escape the directory
	dest := filepath.Join(s.Dir, filepath.Base(filepath.Clean("/"+filename)))
	tmp, err := os.CreateTemp(s.Dir, ".avatar-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// BlobSaver stores the avatar as a one-shot blob. The location is the blob ID, which the
// server turns into a /blobs/{id} URL; serving the blob deletes it.
type BlobSaver struct {
	DB *DB
}

func (s BlobSaver) Save(ctx context.Context, filename string, contentType string, data []byte) (string, error) {
	conn := s.DB.Get(ctx)
	if conn == nil {
		return "", ctx.Err()
	}
	defer s.DB.Put(conn)
	blobID, err := SaveBlob(conn, filename, contentType, data)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(blobID, 10), nil
}

// BucketSaver puts avatars into an S3-compatible bucket.
type BucketSaver struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

// EnsureBucket creates the bucket if it doesn't exist yet.
func (s BucketSaver) EnsureBucket(ctx context.Context) error {
	exists, err := s.Client.BucketExists(ctx, s.Bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.Client.MakeBucket(ctx, s.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.Bucket, err)
	}
	return nil
}

func (s BucketSaver) Save(ctx context.Context, filename string, contentType string, data []byte) (string, error) {
	key := path.Join(s.Prefix, filename)
	opts := minio.PutObjectOptions{
		ContentType:        contentType,
		ContentDisposition: AttachmentDisposition(filename),
	}
	info, err := s.Client.PutObject(ctx, s.Bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return info.Bucket + "/" + info.Key, nil
}
