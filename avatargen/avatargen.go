// Package avatargen is a stand-in for the avatar-rendering service, for tests and for
// working offline. It understands the same query parameters and answers with a PNG, but it
// doesn't try to look like the real thing: no fonts, just one mark per initial.
package avatargen

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers"
)

// MaxSize keeps the stand-in from being asked to draw something huge.
const MaxSize = 1024

type Params struct {
	Name       string
	Background color.Color
	Foreground color.Color
	Size       float64
	Bold       bool
	Rounded    bool
	Length     int
	FontSize   float64
}

// ParseHexColor accepts up to six hex digits with no "#". Shorter strings are read as a
// number, so "fa3" is 0x000fa3 rather than the CSS shorthand.
func ParseHexColor(s string) (color.RGBA, error) {
	if len(s) == 0 || len(s) > 6 {
		return color.RGBA{}, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("bad color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

func ParseParams(q map[string][]string) (*Params, error) {
	get := func(key, fallback string) string {
		if vs := q[key]; len(vs) > 0 && vs[0] != "" {
			return vs[0]
		}
		return fallback
	}
	var p Params
	var err error
	p.Name = get("name", "John Doe")
	if p.Background, err = ParseHexColor(get("background", "dddddd")); err != nil {
		return nil, err
	}
	if p.Foreground, err = ParseHexColor(get("color", "222222")); err != nil {
		return nil, err
	}
	if p.Size, err = strconv.ParseFloat(get("size", "64"), 64); err != nil || p.Size < 1 || p.Size > MaxSize {
		return nil, fmt.Errorf("bad size %q", get("size", ""))
	}
	if p.Length, err = strconv.Atoi(get("length", "2")); err != nil || p.Length < 1 {
		return nil, fmt.Errorf("bad length %q", get("length", ""))
	}
	if p.FontSize, err = strconv.ParseFloat(get("font-size", "0.5"), 64); err != nil || p.FontSize <= 0 || p.FontSize > 1 {
		return nil, fmt.Errorf("bad font-size %q", get("font-size", ""))
	}
	p.Bold = get("bold", "false") == "true"
	p.Rounded = get("rounded", "false") == "true"
	return &p, nil
}

// Initials takes the first letter of each word, or the first few letters of a single
// word, up to length.
func Initials(name string, length int) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '+'
	})
	var initials []rune
	if len(words) == 1 {
		initials = []rune(words[0])
	} else {
		for _, w := range words {
			initials = append(initials, []rune(w)[0])
		}
	}
	if len(initials) > length {
		initials = initials[:length]
	}
	return string(initials)
}

func GenerateAvatar(p *Params) *canvas.Canvas {
	size := p.Size
	c := canvas.New(size, size)
	ctx := canvas.NewContext(c)

	ctx.SetFillColor(p.Background)
	if p.Rounded {
		ctx.DrawPath(size/2, size/2, canvas.Circle(size/2))
	} else {
		ctx.DrawPath(0.0, 0.0, canvas.Rectangle(size, size))
	}

	marks := len([]rune(Initials(p.Name, p.Length)))
	if marks == 0 {
		return c
	}
	// The marks share a band across the middle, as wide as the font size allows
	band := size * p.FontSize
	slot := band / float64(marks)
	r := slot * 0.3
	if p.Bold {
		r = slot * 0.4
	}
	x0 := (size-band)/2 + slot/2
	ctx.SetFillColor(p.Foreground)
	for i := 0; i < marks; i++ {
		ctx.DrawPath(x0+float64(i)*slot, size/2, canvas.Circle(r))
	}
	return c
}

func GenerateAvatarPNG(w io.Writer, p *Params) error {
	c := GenerateAvatar(p)
	pngWriter := renderers.PNG()
	return pngWriter(w, c)
}

// Handler serves avatars at any path, configured by the query string.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "405 Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		p, err := ParseParams(r.URL.Query())
		if err != nil {
			http.Error(w, "400 Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		var buf bytes.Buffer
		if err := GenerateAvatarPNG(&buf, p); err != nil {
			http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		buf.WriteTo(w)
	})
}
