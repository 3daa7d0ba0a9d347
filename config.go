package profilegen

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// Form field names. These match the names the form controls post.
const (
	FieldName            = "name"
	FieldSize            = "size"
	FieldFontSize        = "fontSize"
	FieldLength          = "length"
	FieldBackgroundColor = "bgColor"
	FieldFontColor       = "fontColor"
	FieldRounded         = "rounded"
	FieldBold            = "bold"
	FieldUppercase       = "uppercase"
)

// Fields lists every form field, in the order the form shows them.
var Fields = []string{
	FieldName,
	FieldSize,
	FieldFontSize,
	FieldLength,
	FieldBackgroundColor,
	FieldFontColor,
	FieldRounded,
	FieldBold,
	FieldUppercase,
}

// "backgroundColor" is accepted too, since that's what the field is called everywhere
// except the form.
var fieldAliases = map[string]string{
	"backgroundColor": FieldBackgroundColor,
}

var ErrUnknownField = errors.New("unknown avatar field")

const (
	DefaultSize      = "300"
	DefaultFontSize  = "0.5"
	DefaultLength    = "2"
	DefaultFontColor = "ffffff"

	// Largest 24-bit RGB value
	maxColor = 0xFFFFFF
)

// AvatarConfig is everything the user can choose about their avatar.
//
// The numeric fields hold whatever text was typed into the form. Nothing parses or clamps
// them; see Validate for the (advisory) checks.
type AvatarConfig struct {
	Name     string
	Size     string
	FontSize string
	Length   string
	// Colors never have a leading "#"
	BackgroundColor string
	FontColor       string
	Rounded         bool
	Bold            bool
	Uppercase       bool
}

// Active reports whether there's enough to preview or download. Only the name matters.
func (c AvatarConfig) Active() bool {
	return c.Name != ""
}

// ColorSource is satisfied by *rand.Rand. Tests pass a seeded one.
type ColorSource interface {
	IntN(n int) int
}

type globalColorSource struct{}

func (globalColorSource) IntN(n int) int { return rand.IntN(n) }

// RandomColor picks any 24-bit color and formats it as lowercase hex.
//
// This doesn't zero-pad, so anything below 0x100000 comes out shorter than six digits
// (e.g. "fa3"). The rendering service sees exactly that string.
func RandomColor(src ColorSource) string {
	if src == nil {
		src = globalColorSource{}
	}
	return strconv.FormatInt(int64(src.IntN(maxColor+1)), 16)
}

// DefaultConfig is what a new session starts with.
func DefaultConfig(src ColorSource) AvatarConfig {
	return AvatarConfig{
		Name:            "",
		Size:            DefaultSize,
		FontSize:        DefaultFontSize,
		Length:          DefaultLength,
		BackgroundColor: RandomColor(src),
		FontColor:       DefaultFontColor,
		Rounded:         true,
		Bold:            true,
		Uppercase:       true,
	}
}

// Store owns one AvatarConfig and applies updates to it. All writes go through Update, so
// it's safe to share a Store between requests.
type Store struct {
	mu     sync.Mutex
	config AvatarConfig
	src    ColorSource
}

func NewStore(src ColorSource) *Store {
	if src == nil {
		src = globalColorSource{}
	}
	return &Store{config: DefaultConfig(src), src: src}
}

// Config returns a copy of the current configuration.
func (s *Store) Config() AvatarConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Update calls fn with the configuration locked.
func (s *Store) Update(fn func(c *AvatarConfig)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.config)
}

// SetField changes a single field and leaves the rest alone. Any value is accepted for a
// known field; only unknown field names are an error.
func (s *Store) SetField(name, raw string) error {
	apply, err := fieldSetter(name, raw)
	if err != nil {
		return err
	}
	s.Update(apply)
	return nil
}

// ApplyForm applies a whole posted form. Browsers leave unchecked checkboxes out of the
// form entirely, so a missing checkbox means false rather than "unchanged".
func (s *Store) ApplyForm(form url.Values) {
	s.Update(func(c *AvatarConfig) {
		for _, name := range Fields {
			if isCheckbox(name) {
				setChecked(c, name, form.Has(name) && checkboxValue(form.Get(name)))
				continue
			}
			if !form.Has(name) {
				continue
			}
			if isColor(name) && pickerUnchanged(c, name, form.Get(name)) {
				continue
			}
			// Only known names are in Fields, so this can't fail
			apply, _ := fieldSetter(name, form.Get(name))
			apply(c)
		}
	})
}

// RandomizeBackgroundColor picks a new background color and returns it.
func (s *Store) RandomizeBackgroundColor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.BackgroundColor = RandomColor(s.src)
	return s.config.BackgroundColor
}

func canonicalField(name string) string {
	if alias, ok := fieldAliases[name]; ok {
		return alias
	}
	return name
}

func fieldSetter(name, raw string) (func(c *AvatarConfig), error) {
	switch name = canonicalField(name); name {
	case FieldName:
		return func(c *AvatarConfig) { c.Name = raw }, nil
	case FieldSize:
		return func(c *AvatarConfig) { c.Size = raw }, nil
	case FieldFontSize:
		return func(c *AvatarConfig) { c.FontSize = raw }, nil
	case FieldLength:
		return func(c *AvatarConfig) { c.Length = raw }, nil
	case FieldBackgroundColor:
		return func(c *AvatarConfig) { c.BackgroundColor = StripHash(raw) }, nil
	case FieldFontColor:
		return func(c *AvatarConfig) { c.FontColor = StripHash(raw) }, nil
	case FieldRounded, FieldBold, FieldUppercase:
		checked := checkboxValue(raw)
		return func(c *AvatarConfig) { setChecked(c, name, checked) }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

func isCheckbox(name string) bool {
	return name == FieldRounded || name == FieldBold || name == FieldUppercase
}

func isColor(name string) bool {
	return name == FieldBackgroundColor || name == FieldFontColor
}

// A color picker posts back the padded value it was rendered with. That means "not
// edited", so the stored (possibly short) color stays as it is.
func pickerUnchanged(c *AvatarConfig, name, posted string) bool {
	current := c.BackgroundColor
	if name == FieldFontColor {
		current = c.FontColor
	}
	return strings.EqualFold(posted, PickerColor(current))
}

func setChecked(c *AvatarConfig, name string, checked bool) {
	switch name {
	case FieldRounded:
		c.Rounded = checked
	case FieldBold:
		c.Bold = checked
	case FieldUppercase:
		c.Uppercase = checked
	}
}

// A checked box posts "on" unless it has an explicit value attribute.
func checkboxValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// StripHash removes one leading "#", which is how color pickers report colors.
func StripHash(color string) string {
	return strings.TrimPrefix(color, "#")
}

// WithHash is the inverse of StripHash.
func WithHash(color string) string {
	return "#" + color
}

// PickerColor is the value for an <input type="color">, which only accepts "#rrggbb".
// Short colors like "fa3" are zero-padded for the picker only; the stored value is left
// alone.
func PickerColor(color string) string {
	if n := len(color); n > 0 && n < 6 {
		if _, err := strconv.ParseUint(color, 16, 32); err == nil {
			color = strings.Repeat("0", 6-n) + color
		}
	}
	return WithHash(strings.ToLower(color))
}
