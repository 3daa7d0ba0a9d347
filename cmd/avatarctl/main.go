// avatarctl builds avatar URLs and downloads avatars from the command line.
//
//	avatarctl url [flags] NAME
//	avatarctl download [flags] NAME...

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/maxhully/profilegen"
	"github.com/maxhully/profilegen/internal/logger"
	"github.com/maxhully/profilegen/internal/settings"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const usage = `usage:
  avatarctl url [flags] NAME
  avatarctl download [flags] NAME...

Run "avatarctl <command> -h" for the flags.
`

func main() {
	settings.LoadDotEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "avatarctl:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}
	switch args[0] {
	case "url":
		return runURL(args[1:], stdout, stderr)
	case "download":
		return runDownload(ctx, args[1:], stdout, stderr)
	}
	fmt.Fprint(stderr, usage)
	return fmt.Errorf("unknown command %q", args[0])
}

func runURL(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("url", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var avatar settings.Avatar
	avatar.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("url takes exactly one NAME")
	}
	config := avatar.Config(fs.Arg(0), nil)
	for field, problem := range profilegen.Validate(config) {
		fmt.Fprintf(stderr, "warning: %s: %s\n", field, problem)
	}
	fmt.Fprintln(stdout, avatar.Builder().URL(config))
	return nil
}

type downloadFlags struct {
	avatar   settings.Avatar
	bucket   settings.Bucket
	out      string
	parallel int
	rps      float64
	timeout  time.Duration
	env      string
}

func runDownload(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f downloadFlags
	f.avatar.RegisterFlags(fs)
	f.bucket.RegisterFlags(fs)
	fs.StringVar(&f.out, "out", ".", "Directory to save avatars in")
	fs.IntVar(&f.parallel, "parallel", 4, "Maximum downloads in flight")
	fs.Float64Var(&f.rps, "rps", 5, "Maximum requests per second to the rendering service (0 for no limit)")
	fs.DurationVar(&f.timeout, "timeout", 0, "Give up on a single download after this long (0 waits forever)")
	fs.StringVar(&f.env, "env", "development", "development or production (changes log format)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("download needs at least one NAME")
	}

	log := logger.NewWithWriter(f.env, stderr)
	saver, err := newSaver(ctx, &f)
	if err != nil {
		return err
	}
	dl := &profilegen.Downloader{
		Client:  &http.Client{Timeout: f.timeout},
		Builder: f.avatar.Builder(),
		Saver:   saver,
		Logger:  log.Logger,
	}
	results, err := downloadAll(ctx, dl, &f, fs.Args())
	for _, d := range results {
		if d != nil && d.State == profilegen.DownloadSaved {
			fmt.Fprintln(stdout, d.Location)
		}
	}
	return err
}

func newSaver(ctx context.Context, f *downloadFlags) (profilegen.Saver, error) {
	if !f.bucket.Enabled() {
		if err := os.MkdirAll(f.out, 0o755); err != nil {
			return nil, err
		}
		return profilegen.DirSaver{Dir: f.out}, nil
	}
	client, err := minio.New(f.bucket.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(f.bucket.AccessKey, f.bucket.SecretKey, ""),
		Secure: f.bucket.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	saver := profilegen.BucketSaver{Client: client, Bucket: f.bucket.Name, Prefix: f.bucket.Prefix}
	if err := saver.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return saver, nil
}

// downloadAll downloads one avatar per name. Every name gets its own attempt; a failure
// doesn't stop the others. The returned slice lines up with names.
func downloadAll(ctx context.Context, dl *profilegen.Downloader, f *downloadFlags, names []string) ([]*profilegen.Download, error) {
	limit := rate.Inf
	if f.rps > 0 {
		limit = rate.Limit(f.rps)
	}
	limiter := rate.NewLimiter(limit, 1)

	results := make([]*profilegen.Download, len(names))
	errs := make([]error, len(names))
	var g errgroup.Group
	if f.parallel > 0 {
		g.SetLimit(f.parallel)
	}
	for i, name := range names {
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				errs[i] = err
				return nil
			}
			config := f.avatar.Config(name, nil)
			results[i], errs[i] = dl.Download(ctx, config)
			if errors.Is(errs[i], profilegen.ErrInactive) {
				dl.Logger.Warn("skipping empty name", slog.Int("position", i+1))
			}
			return nil
		})
	}
	g.Wait()
	return results, errors.Join(errs...)
}
