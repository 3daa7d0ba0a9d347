package profilegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DownloadState is where a single download invocation is. An invocation goes
// Idle -> Fetching -> Saved or Failed. Saved and Failed are terminal for the Download
// record; the Downloader holds no per-invocation state, so it is Idle again as soon as
// Download returns.
type DownloadState string

const (
	DownloadIdle     DownloadState = "Idle"
	DownloadFetching DownloadState = "Fetching"
	DownloadSaved    DownloadState = "Saved"
	DownloadFailed   DownloadState = "Failed"
)

func (s DownloadState) String() string {
	return string(s)
}

// IsFinished is true once the invocation has either saved a file or given up.
func (s DownloadState) IsFinished() bool {
	return s == DownloadSaved || s == DownloadFailed
}

// ErrInactive is returned (without doing anything) when there's no name to download.
var ErrInactive = errors.New("avatar has no name")

// StatusError is a non-2xx response from the rendering service.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rendering service returned %d for %s", e.StatusCode, e.URL)
}

// Download is the record of one invocation of the download flow.
type Download struct {
	ID         string
	Name       string
	URL        string
	Filename   string
	State      DownloadState
	Bytes      int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
	// Whatever the Saver handed back to identify the saved file (a path, a blob ID, an
	// object key)
	Location string
}

// Saver turns fetched image bytes into a saved file.
type Saver interface {
	Save(ctx context.Context, filename string, contentType string, data []byte) (location string, err error)
}

type SaverFunc func(ctx context.Context, filename string, contentType string, data []byte) (string, error)

func (f SaverFunc) Save(ctx context.Context, filename string, contentType string, data []byte) (string, error) {
	return f(ctx, filename, contentType, data)
}

// DownloadRecorder keeps a diagnostic trail of finished downloads.
type DownloadRecorder interface {
	RecordDownload(ctx context.Context, d *Download) error
}

// FilenameFor is the suggested filename for a saved avatar.
func FilenameFor(name string) string {
	return name + "-avatar.png"
}

// Downloader runs the fetch-and-save flow. It holds no per-invocation state, so Download
// can be called again while an earlier call is still in flight; each call finishes (or
// fails) on its own.
type Downloader struct {
	Client   *http.Client
	Builder  Builder
	Saver    Saver
	Logger   *slog.Logger
	Recorder DownloadRecorder
	// Called on every state change. Optional.
	OnUpdate func(d Download)
}

// Download fetches the image for c and hands it to the Saver.
//
// With an empty name it returns ErrInactive straight away and makes no request. Any other
// failure is logged, recorded, and returned along with the Download record; the caller
// decides whether the user hears about it.
func (dl *Downloader) Download(ctx context.Context, c AvatarConfig) (*Download, error) {
	if !c.Active() {
		return nil, ErrInactive
	}
	d := &Download{
		ID:        uuid.NewString(),
		Name:      c.Name,
		URL:       dl.Builder.URL(c),
		Filename:  FilenameFor(c.Name),
		State:     DownloadIdle,
		StartedAt: time.Now().UTC(),
	}
	dl.setState(d, DownloadFetching)

	data, contentType, err := dl.fetch(ctx, d.URL)
	if err == nil {
		d.Bytes = len(data)
		d.Location, err = dl.Saver.Save(ctx, d.Filename, contentType, data)
	}
	d.FinishedAt = time.Now().UTC()
	if err != nil {
		d.Err = err
		dl.setState(d, DownloadFailed)
		dl.logger().Error("error downloading avatar",
			slog.String("download_id", d.ID),
			slog.String("url", d.URL),
			slog.String("error", err.Error()),
		)
	} else {
		dl.setState(d, DownloadSaved)
		dl.logger().Info("downloaded avatar",
			slog.String("download_id", d.ID),
			slog.String("filename", d.Filename),
			slog.Int("bytes", d.Bytes),
		)
	}
	dl.record(ctx, d)
	return d, err
}

func (dl *Downloader) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := dl.client().Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{StatusCode: resp.StatusCode, URL: url}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, "", fmt.Errorf("reading avatar body: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(buf.Bytes())
	}
	return buf.Bytes(), contentType, nil
}

func (dl *Downloader) setState(d *Download, state DownloadState) {
	d.State = state
	if dl.OnUpdate != nil {
		dl.OnUpdate(*d)
	}
}

func (dl *Downloader) record(ctx context.Context, d *Download) {
	if dl.Recorder == nil {
		return
	}
	// Recording never changes the outcome of the download. WithoutCancel so a client
	// hanging up doesn't lose the record.
	if err := dl.Recorder.RecordDownload(context.WithoutCancel(ctx), d); err != nil {
		dl.logger().Warn("could not record download",
			slog.String("download_id", d.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (dl *Downloader) client() *http.Client {
	if dl.Client == nil {
		return http.DefaultClient
	}
	return dl.Client
}

func (dl *Downloader) logger() *slog.Logger {
	if dl.Logger == nil {
		return slog.Default()
	}
	return dl.Logger
}
