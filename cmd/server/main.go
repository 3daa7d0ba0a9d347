// Runs the profile generator web app

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/handlers"
	"github.com/maxhully/profilegen"
	"github.com/maxhully/profilegen/internal/logger"
	"github.com/maxhully/profilegen/internal/settings"
)

type App struct {
	renderer   *profilegen.Renderer
	db         *profilegen.DB
	sessions   *profilegen.Sessions
	builder    profilegen.Builder
	downloader *profilegen.Downloader
	log        *logger.Logger
}

func timer(log *logger.Logger, name string) func() {
	start := time.Now()
	return func() {
		log.Info("timer", slog.String("name", name), slog.Duration("took", time.Since(start)))
	}
}

func NewApp(db *profilegen.DB, sessions *profilegen.Sessions, builder profilegen.Builder, client *http.Client, log *logger.Logger) *App {
	renderer, err := profilegen.NewRenderer()
	if err != nil {
		log.Error("error from NewRenderer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	return &App{
		renderer: renderer,
		db:       db,
		sessions: sessions,
		builder:  builder,
		downloader: &profilegen.Downloader{
			Client:   client,
			Builder:  builder,
			Saver:    profilegen.BlobSaver{DB: db},
			Logger:   log.Logger,
			Recorder: db,
		},
		log: log,
	}
}

func (app *App) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.log.HTTPError(r.Method, r.URL.Path, http.StatusInternalServerError, err)
	http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
}

func (app *App) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	app.log.HTTPError(r.Method, r.URL.Path, http.StatusBadRequest, err)
	http.Error(w, "400 Bad Request", http.StatusBadRequest)
}

func (app *App) RenderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := app.renderer.ExecuteTemplate(w, name, data)
	if err != nil {
		app.errorResponse(w, r, err)
	}
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type homepage struct {
	Config    profilegen.AvatarConfig
	Preview   profilegen.Preview
	Problems  map[string]string
	CSRFField template.HTML
}

func (app *App) Homepage(w http.ResponseWriter, r *http.Request) {
	store, err := app.sessions.StoreFor(w, r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	config := store.Config()
	page := &homepage{
		Config:    config,
		Preview:   profilegen.NewPreview(config, app.builder),
		Problems:  profilegen.Validate(config),
		CSRFField: csrf.TemplateField(r),
	}
	app.RenderTemplate(w, r, "index.html", page)
}

// UpdateConfig applies the whole form.
func (app *App) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	store, err := app.sessions.StoreFor(w, r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		app.badRequest(w, r, err)
		return
	}
	store.ApplyForm(r.PostForm)
	redirectHome(w, r)
}

// SetField changes one field, for clients that post a field at a time.
func (app *App) SetField(w http.ResponseWriter, r *http.Request) {
	store, err := app.sessions.StoreFor(w, r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		app.badRequest(w, r, err)
		return
	}
	err = store.SetField(r.PathValue("field"), r.PostForm.Get("value"))
	if errors.Is(err, profilegen.ErrUnknownField) {
		http.NotFound(w, r)
		return
	} else if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	redirectHome(w, r)
}

func (app *App) RandomizeBackground(w http.ResponseWriter, r *http.Request) {
	store, err := app.sessions.StoreFor(w, r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	store.RandomizeBackgroundColor()
	redirectHome(w, r)
}

// AvatarURL shows the URL the preview is loading, for debugging.
func (app *App) AvatarURL(w http.ResponseWriter, r *http.Request) {
	store, err := app.sessions.StoreFor(w, r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, app.builder.URL(store.Config()))
}

// Download fetches the avatar and sends the browser off to collect it. Failures are logged
// and recorded but the user just lands back on the form, same as with no name at all.
func (app *App) Download(w http.ResponseWriter, r *http.Request) {
	store, err := app.sessions.StoreFor(w, r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	d, err := app.downloader.Download(r.Context(), store.Config())
	if err != nil {
		redirectHome(w, r)
		return
	}
	http.Redirect(w, r, "/blobs/"+d.Location, http.StatusSeeOther)
}

// ServeBlob hands over a downloaded avatar as an attachment, once.
func (app *App) ServeBlob(w http.ResponseWriter, r *http.Request) {
	blobID, err := strconv.ParseInt(r.PathValue("blob_id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	conn := app.db.Get(r.Context())
	if conn == nil {
		app.errorResponse(w, r, r.Context().Err())
		return
	}
	defer app.db.Put(conn)
	blob, err := profilegen.TakeBlob(conn, blobID)
	if errors.Is(err, profilegen.ErrBlobNotFound) {
		http.NotFound(w, r)
		return
	} else if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Disposition", blob.ContentDisposition())
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Contents)))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(blob.Contents)
}

type downloadsPage struct {
	Events []profilegen.DownloadEvent
}

func (app *App) RecentDownloads(w http.ResponseWriter, r *http.Request) {
	conn := app.db.Get(r.Context())
	if conn == nil {
		app.errorResponse(w, r, r.Context().Err())
		return
	}
	defer app.db.Put(conn)
	events, err := profilegen.GetRecentDownloadEvents(conn, 50)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.RenderTemplate(w, r, "downloads.html", downloadsPage{Events: events})
}

func (app *App) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static", http.FileServerFS(profilegen.StaticFS())))

	mux.HandleFunc("GET /{$}", app.Homepage)
	mux.HandleFunc("GET /url", app.AvatarURL)
	mux.HandleFunc("POST /config", app.UpdateConfig)
	mux.HandleFunc("POST /config/{field}", app.SetField)
	mux.HandleFunc("POST /randomize", app.RandomizeBackground)
	mux.HandleFunc("POST /download", app.Download)
	mux.HandleFunc("GET /blobs/{blob_id}", app.ServeBlob)
	mux.HandleFunc("GET /downloads", app.RecentDownloads)
	return mux
}

// sweep clears out abandoned blobs and idle sessions until ctx is done.
func (app *App) sweep(ctx context.Context, every time.Duration, blobTTL time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		conn := app.db.Get(ctx)
		if conn == nil {
			return
		}
		blobs, err := profilegen.SweepBlobs(conn, time.Now().Add(-blobTTL))
		app.db.Put(conn)
		if err != nil {
			app.log.Warn("sweeping blobs", slog.String("error", err.Error()))
		}
		sessions := app.sessions.Sweep()
		if blobs > 0 || sessions > 0 {
			app.log.Debug("swept", slog.Int("blobs", blobs), slog.Int("sessions", sessions))
		}
	}
}

// Marks every request as plain http, so gorilla/csrf doesn't insist on a matching https
// Referer. Only for --insecure-cookies development setups.
func plaintextMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func main() {
	settings.LoadDotEnv()
	var cfg settings.Server
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	log := logger.New(cfg.Env)
	slog.SetDefault(log.Logger)
	t := timer(log, "startup")

	secretKey, err := cfg.SecretKey()
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	db, err := profilegen.OpenDB(cfg.DBURI, cfg.DBPoolSize)
	if err != nil {
		log.Error("opening database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	sessions := profilegen.NewSessions()
	sessions.IdleTTL = cfg.SessionIdleTTL
	sessions.InsecureCookies = cfg.InsecureCookies

	builder := profilegen.NewBuilder(cfg.ServiceURL)
	app := NewApp(db, sessions, builder, &http.Client{}, log)

	csrfProtect := csrf.Protect(secretKey,
		csrf.FieldName("csrf_token"),
		csrf.Secure(!cfg.InsecureCookies),
	)
	var handler http.Handler = csrfProtect(app.Routes())
	if cfg.InsecureCookies {
		handler = plaintextMiddleware(handler)
	}
	handler = profilegen.SafeHeaderMiddleware(cfg.ServiceURL)(handler)
	handler = handlers.CompressHandler(handler)
	handler = log.RequestLogger(handler)
	handler = handlers.RecoveryHandler(handlers.RecoveryLogger(log))(handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go app.sweep(ctx, time.Minute, cfg.BlobTTL)

	server := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	t()

	log.Info("listening", slog.String("addr", cfg.Addr), slog.String("service_url", cfg.ServiceURL))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
