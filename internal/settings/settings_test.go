package settings

import (
	"flag"
	"testing"
	"time"

	"github.com/maxhully/profilegen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedColorSource int

func (f fixedColorSource) IntN(n int) int { return int(f) % n }

func TestServerFlagsFromEnv(t *testing.T) {
	t.Setenv("PROFILEGEN_ADDR", ":9999")
	t.Setenv("PROFILEGEN_INSECURE_COOKIES", "true")
	t.Setenv("PROFILEGEN_BLOB_TTL", "90s")
	t.Setenv("PROFILEGEN_DB_POOL_SIZE", "not a number")

	var s Server
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	s.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-env", "production"}))

	assert.Equal(t, "production", s.Env)
	assert.Equal(t, ":9999", s.Addr)
	assert.True(t, s.InsecureCookies)
	assert.Equal(t, 90*time.Second, s.BlobTTL)
	assert.Equal(t, 4, s.DBPoolSize)
	assert.Equal(t, profilegen.DefaultSessionIdleTTL, s.SessionIdleTTL)
}

func TestSecretKey(t *testing.T) {
	var testCases = []struct {
		hex string
		err string
	}{
		{"", "--secret-key is required"},
		{"zz", "--secret-key must be hex-encoded"},
		{"abcd", "--secret-key must be 32 bytes"},
	}
	for _, testCase := range testCases {
		s := Server{SecretKeyHex: testCase.hex}
		_, err := s.SecretKey()
		assert.EqualError(t, err, testCase.err)
	}

	s := Server{SecretKeyHex: "0000000000000000000000000000000000000000000000000000000000000000"}
	key, err := s.SecretKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestAvatarConfig(t *testing.T) {
	var a Avatar
	fs := flag.NewFlagSet("avatar", flag.ContinueOnError)
	a.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-color", "#000000", "-rounded=false"}))

	c := a.Config("Grace", fixedColorSource(0x123456))
	assert.Equal(t, "Grace", c.Name)
	assert.Equal(t, "123456", c.BackgroundColor, "random when not given")
	assert.Equal(t, "000000", c.FontColor)
	assert.False(t, c.Rounded)
	assert.True(t, c.Bold)
	assert.Equal(t, profilegen.DefaultSize, c.Size)

	a.BackgroundColor = "#abcdef"
	assert.Equal(t, "abcdef", a.Config("Grace", nil).BackgroundColor)
}

func TestBucketEnabled(t *testing.T) {
	var b Bucket
	assert.False(t, b.Enabled())
	b.Name = "avatars"
	assert.True(t, b.Enabled())
}
