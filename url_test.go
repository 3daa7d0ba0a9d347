package profilegen

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adaConfig() AvatarConfig {
	c := DefaultConfig(fixedColorSource(0x112233))
	c.Name = "Ada Lovelace"
	return c
}

func TestBuilderURL(t *testing.T) {
	b := NewBuilder("")
	assert.Equal(t,
		"https://ui-avatars.com/api/?name=ADA%20LOVELACE&background=112233&color=ffffff&size=300&bold=true&rounded=true&length=2&font-size=0.5",
		b.URL(adaConfig()),
	)
}

func TestBuilderURLKeepsCase(t *testing.T) {
	c := adaConfig()
	c.Uppercase = false
	c.Bold = false
	c.Rounded = false
	u := NewBuilder("").URL(c)
	assert.Contains(t, u, "?name=Ada%20Lovelace&")
	assert.Contains(t, u, "&bold=false&rounded=false&")
}

func TestBuilderURLIsStable(t *testing.T) {
	b := NewBuilder("")
	c := adaConfig()
	assert.Equal(t, b.URL(c), b.URL(c))
}

func TestBuilderURLFollowsConfig(t *testing.T) {
	store := NewStore(fixedColorSource(0x112233))
	b := NewBuilder("")
	require.NoError(t, store.SetField(FieldName, "Grace"))
	first := b.URL(store.Config())
	require.NoError(t, store.SetField(FieldSize, "64"))
	second := b.URL(store.Config())
	assert.NotEqual(t, first, second)
	assert.Contains(t, second, "&size=64&")
}

func TestBuilderURLEmptyName(t *testing.T) {
	c := DefaultConfig(fixedColorSource(0x112233))
	assert.Contains(t, NewBuilder("").URL(c), "?name=&background=112233")
}

func TestBuilderURLRoundTrips(t *testing.T) {
	c := adaConfig()
	c.Name = "Zoë & Renée+Co?"
	c.Uppercase = false
	u, err := url.Parse(NewBuilder("").URL(c))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "Zoë & Renée+Co?", q.Get("name"))
	assert.Equal(t, "0.5", q.Get("font-size"))
}

func TestBuilderURLWithQueryInBase(t *testing.T) {
	var testCases = []struct {
		base     string
		expected string
	}{
		{"http://localhost:7778/api/", "http://localhost:7778/api/?name="},
		{"http://localhost:7778/api/?key=abc", "http://localhost:7778/api/?key=abc&name="},
		{"http://localhost:7778/api/?", "http://localhost:7778/api/?name="},
		{"http://localhost:7778/api/?key=abc&", "http://localhost:7778/api/?key=abc&name="},
	}
	for _, testCase := range testCases {
		u := NewBuilder(testCase.base).URL(adaConfig())
		assert.True(t, strings.HasPrefix(u, testCase.expected), u)
	}
}

func TestDisplayName(t *testing.T) {
	var testCases = []struct {
		name      string
		uppercase bool
		expected  string
	}{
		{"Ada Lovelace", true, "ADA LOVELACE"},
		{"Ada Lovelace", false, "Ada Lovelace"},
		{"straße", true, "STRASSE"},
		{"émile", true, "ÉMILE"},
		{"", true, ""},
	}
	for _, testCase := range testCases {
		c := AvatarConfig{Name: testCase.name, Uppercase: testCase.uppercase}
		assert.Equal(t, testCase.expected, DisplayName(c))
	}
}

func TestEncodeURIComponent(t *testing.T) {
	var testCases = []struct {
		in       string
		expected string
	}{
		{"abcXYZ019", "abcXYZ019"},
		{"-_.!~*'()", "-_.!~*'()"},
		{"a b", "a%20b"},
		{"a+b", "a%2Bb"},
		{"a&b=c", "a%26b%3Dc"},
		{"#/?:@", "%23%2F%3F%3A%40"},
		{"é", "%C3%A9"},
		{"", ""},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, EncodeURIComponent(testCase.in), testCase.in)
	}
}

func TestNewPreview(t *testing.T) {
	b := NewBuilder("")
	inactive := NewPreview(DefaultConfig(nil), b)
	assert.False(t, inactive.Active)
	assert.Empty(t, inactive.URL)

	c := adaConfig()
	preview := NewPreview(c, b)
	assert.True(t, preview.Active)
	assert.Equal(t, b.URL(c), preview.URL)
	assert.Equal(t, "300", preview.Size)
	assert.Equal(t, "avatar rounded", preview.ImageClass())

	c.Rounded = false
	assert.Equal(t, "avatar", NewPreview(c, b).ImageClass())
}
