package avatargen

import (
	"bytes"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAvatar(t *testing.T) {
	p, err := ParseParams(url.Values{"name": {"Ada Lovelace"}})
	require.NoError(t, err)
	canvas := GenerateAvatar(p)
	assert.False(t, canvas.Empty())
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("112233")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 255}, c)

	// Short strings are numbers, not CSS shorthand
	c, err = ParseHexColor("fa3")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0, G: 0x0f, B: 0xa3, A: 255}, c)

	for _, bad := range []string{"", "#112233", "1122334", "xyz"} {
		_, err := ParseHexColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseParams(t *testing.T) {
	q := url.Values{
		"name":       {"ADA LOVELACE"},
		"background": {"112233"},
		"color":      {"ffffff"},
		"size":       {"300"},
		"bold":       {"true"},
		"rounded":    {"false"},
		"length":     {"2"},
		"font-size":  {"0.5"},
	}
	p, err := ParseParams(q)
	require.NoError(t, err)
	assert.Equal(t, "ADA LOVELACE", p.Name)
	assert.Equal(t, 300.0, p.Size)
	assert.True(t, p.Bold)
	assert.False(t, p.Rounded)
	assert.Equal(t, 2, p.Length)
	assert.Equal(t, 0.5, p.FontSize)

	for key, bad := range map[string]string{"size": "0", "length": "zero", "font-size": "7", "background": "nope"} {
		q := url.Values{key: {bad}}
		_, err := ParseParams(q)
		assert.Error(t, err, key)
	}
}

func TestInitials(t *testing.T) {
	var testCases = []struct {
		name     string
		length   int
		expected string
	}{
		{"Ada Lovelace", 2, "AL"},
		{"Ada Lovelace", 1, "A"},
		{"Ada King Lovelace", 3, "AKL"},
		{"Grace", 2, "Gr"},
		{"jean-luc picard", 3, "jlp"},
		{"", 2, ""},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, Initials(testCase.name, testCase.length), testCase.name)
	}
}

func TestHandler(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/?name=GRACE&background=abc&size=64", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, r)

	result := w.Result()
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "image/png", result.Header.Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	assert.NoError(t, err)
}

func TestHandlerRejects(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/?size=100000", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/api/", nil)
	w = httptest.NewRecorder()
	Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
