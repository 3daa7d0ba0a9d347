// Package settings reads binary configuration from flags, falling back to PROFILEGEN_*
// environment variables (and a .env file, if there is one).
package settings

import (
	"encoding/hex"
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/maxhully/profilegen"
)

const envPrefix = "PROFILEGEN_"

// LoadDotEnv loads .env into the environment. A missing file is fine.
func LoadDotEnv(filenames ...string) {
	_ = godotenv.Load(filenames...)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(envPrefix + key); ok {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return fallback
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

type Server struct {
	Env             string
	Addr            string
	SecretKeyHex    string
	ServiceURL      string
	DBURI           string
	DBPoolSize      int
	InsecureCookies bool
	SessionIdleTTL  time.Duration
	BlobTTL         time.Duration
}

// RegisterFlags adds the server flags to fs. Each flag defaults to its environment
// variable, so call LoadDotEnv first.
func (s *Server) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&s.Env, "env", getEnv("ENV", "development"), "development or production (changes log format)")
	fs.StringVar(&s.Addr, "addr", getEnv("ADDR", ":7777"), "Address to listen on")
	// Might want this to be in a secret file instead
	fs.StringVar(&s.SecretKeyHex, "secret-key", getEnv("SECRET_KEY", ""), "Secret key for CSRF tokens (hex encoded, 32 bytes)")
	fs.StringVar(&s.ServiceURL, "service-url", getEnv("SERVICE_URL", profilegen.DefaultBaseURL), "Base URL of the avatar-rendering service")
	fs.StringVar(&s.DBURI, "db", getEnv("DB", profilegen.MemoryDBURI), "SQLite database URI for blobs and the download log")
	fs.IntVar(&s.DBPoolSize, "db-pool-size", getEnvInt("DB_POOL_SIZE", 4), "Number of SQLite connections")
	fs.BoolVar(&s.InsecureCookies, "insecure-cookies", getEnvBool("INSECURE_COOKIES", false), "Allow cookies over plain http (development only)")
	fs.DurationVar(&s.SessionIdleTTL, "session-ttl", getEnvDuration("SESSION_TTL", profilegen.DefaultSessionIdleTTL), "Forget a session after this long without requests")
	fs.DurationVar(&s.BlobTTL, "blob-ttl", getEnvDuration("BLOB_TTL", 10*time.Minute), "Delete downloads nobody collected after this long")
}

// SecretKey decodes and checks the CSRF secret.
func (s *Server) SecretKey() ([]byte, error) {
	if len(s.SecretKeyHex) == 0 {
		return nil, errors.New("--secret-key is required")
	}
	secretKey, err := hex.DecodeString(s.SecretKeyHex)
	if err != nil {
		return nil, errors.New("--secret-key must be hex-encoded")
	}
	if len(secretKey) != 32 {
		return nil, errors.New("--secret-key must be 32 bytes")
	}
	return secretKey, nil
}

// Avatar holds the avatar fields as CLI flags. Defaults match a new form session, except
// the background color, which is random unless given.
type Avatar struct {
	ServiceURL      string
	Size            string
	FontSize        string
	Length          string
	BackgroundColor string
	FontColor       string
	Rounded         bool
	Bold            bool
	Uppercase       bool
}

func (a *Avatar) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&a.ServiceURL, "service-url", getEnv("SERVICE_URL", profilegen.DefaultBaseURL), "Base URL of the avatar-rendering service")
	fs.StringVar(&a.Size, "size", profilegen.DefaultSize, "Image size in pixels")
	fs.StringVar(&a.FontSize, "font-size", profilegen.DefaultFontSize, "Font size, 0.1 to 1")
	fs.StringVar(&a.Length, "length", profilegen.DefaultLength, "Number of initials, 1 to 3")
	fs.StringVar(&a.BackgroundColor, "background", "", "Background color as hex (random if empty)")
	fs.StringVar(&a.FontColor, "color", profilegen.DefaultFontColor, "Font color as hex")
	fs.BoolVar(&a.Rounded, "rounded", true, "Render a circle instead of a square")
	fs.BoolVar(&a.Bold, "bold", true, "Bold initials")
	fs.BoolVar(&a.Uppercase, "uppercase", true, "Upper-case the name first")
}

// Config builds the AvatarConfig for name the same way the form would.
func (a *Avatar) Config(name string, src profilegen.ColorSource) profilegen.AvatarConfig {
	store := profilegen.NewStore(src)
	store.Update(func(c *profilegen.AvatarConfig) {
		c.Name = name
		c.Size = a.Size
		c.FontSize = a.FontSize
		c.Length = a.Length
		c.FontColor = profilegen.StripHash(a.FontColor)
		if a.BackgroundColor != "" {
			c.BackgroundColor = profilegen.StripHash(a.BackgroundColor)
		}
		c.Rounded = a.Rounded
		c.Bold = a.Bold
		c.Uppercase = a.Uppercase
	})
	return store.Config()
}

func (a *Avatar) Builder() profilegen.Builder {
	return profilegen.NewBuilder(a.ServiceURL)
}

// Bucket is where `avatarctl download --bucket` puts files.
type Bucket struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Name      string
	Prefix    string
}

func (b *Bucket) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&b.Endpoint, "s3-endpoint", getEnv("S3_ENDPOINT", ""), "S3-compatible endpoint (host:port)")
	fs.StringVar(&b.AccessKey, "s3-access-key", getEnv("S3_ACCESS_KEY", ""), "S3 access key")
	fs.StringVar(&b.SecretKey, "s3-secret-key", getEnv("S3_SECRET_KEY", ""), "S3 secret key")
	fs.BoolVar(&b.UseSSL, "s3-ssl", getEnvBool("S3_SSL", true), "Use https for the S3 endpoint")
	fs.StringVar(&b.Name, "bucket", getEnv("BUCKET", ""), "Save into this bucket instead of --out")
	fs.StringVar(&b.Prefix, "prefix", getEnv("BUCKET_PREFIX", "avatars"), "Object key prefix inside the bucket")
}

func (b *Bucket) Enabled() bool {
	return b.Name != ""
}
