package profilegen

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultBaseURL is the public avatar-rendering service.
const DefaultBaseURL = "https://ui-avatars.com/api/"

// Builder turns an AvatarConfig into a request URL for the rendering service. The URL is
// computed on every call and never cached, so it always reflects the latest config.
type Builder struct {
	BaseURL string
}

func NewBuilder(baseURL string) Builder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Builder{BaseURL: baseURL}
}

// URL builds the request URL. An empty name still produces a URL; callers check
// AvatarConfig.Active before using it.
func (b Builder) URL(c AvatarConfig) string {
	base := b.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	var sb strings.Builder
	sb.WriteString(base)
	if strings.Contains(base, "?") {
		if !strings.HasSuffix(base, "?") && !strings.HasSuffix(base, "&") {
			sb.WriteByte('&')
		}
	} else {
		sb.WriteByte('?')
	}
	// The order here is fixed (url.Values.Encode would sort the keys)
	params := [...][2]string{
		{"name", DisplayName(c)},
		{"background", c.BackgroundColor},
		{"color", c.FontColor},
		{"size", c.Size},
		{"bold", boolParam(c.Bold)},
		{"rounded", boolParam(c.Rounded)},
		{"length", c.Length},
		{"font-size", c.FontSize},
	}
	for i, p := range params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(p[0])
		sb.WriteByte('=')
		sb.WriteString(EncodeURIComponent(p[1]))
	}
	return sb.String()
}

// DisplayName is the name as the service will render it.
func DisplayName(c AvatarConfig) string {
	if c.Uppercase {
		// Full Unicode case mapping, so "ß" becomes "SS" (strings.ToUpper leaves it alone)
		return cases.Upper(language.Und).String(c.Name)
	}
	return c.Name
}

func boolParam(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

const upperhex = "0123456789ABCDEF"

// EncodeURIComponent percent-encodes everything except A-Z a-z 0-9 and - _ . ! ~ * ' ( ).
//
// This is not url.QueryEscape: that writes spaces as "+" and escapes !*'(). The service
// expects "%20".
func EncodeURIComponent(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}
	buf := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			buf = append(buf, c)
			continue
		}
		buf = append(buf, '%', upperhex[c>>4], upperhex[c&15])
	}
	return string(buf)
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
