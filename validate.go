package profilegen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// The form hints (min/max on the number inputs) are only advisory: the browser will still
// let you type anything. Validate gives the same hints server-side so the page can show
// them, but nothing is ever rejected or clamped because of it.

type parsedConfig struct {
	Size     int     `validate:"gt=0"`
	FontSize float64 `validate:"gte=0.1,lte=1"`
	Length   int     `validate:"gte=1,lte=3"`
	// Stored without the "#"
	BackgroundColor string `validate:"len=6,hexadecimal"`
	FontColor       string `validate:"len=6,hexadecimal"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var hintMessages = map[string]string{
	"Size":            "Size should be a positive whole number of pixels",
	"FontSize":        "Font size should be between 0.1 and 1",
	"Length":          "Initial characters should be 1, 2 or 3",
	"BackgroundColor": "Background color should be six hex digits",
	"FontColor":       "Font color should be six hex digits",
}

var hintFields = map[string]string{
	"Size":            FieldSize,
	"FontSize":        FieldFontSize,
	"Length":          FieldLength,
	"BackgroundColor": FieldBackgroundColor,
	"FontColor":       FieldFontColor,
}

// Validate returns advisory problems keyed by form field name. An empty map means
// everything looks fine. A missing name is not a problem here; it just means there's
// nothing to preview yet.
func Validate(c AvatarConfig) map[string]string {
	problems := make(map[string]string)
	var p parsedConfig
	var err error

	if p.Size, err = strconv.Atoi(strings.TrimSpace(c.Size)); err != nil {
		problems[FieldSize] = hintMessages["Size"]
	}
	if p.FontSize, err = strconv.ParseFloat(strings.TrimSpace(c.FontSize), 64); err != nil {
		problems[FieldFontSize] = hintMessages["FontSize"]
	}
	if p.Length, err = strconv.Atoi(strings.TrimSpace(c.Length)); err != nil {
		problems[FieldLength] = hintMessages["Length"]
	}
	p.BackgroundColor = c.BackgroundColor
	p.FontColor = c.FontColor

	err = validate.Struct(p)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			field := hintFields[fe.StructField()]
			if _, seen := problems[field]; !seen {
				problems[field] = hintMessages[fe.StructField()]
			}
		}
	} else if err != nil {
		// Only happens if parsedConfig itself is broken
		panic(fmt.Sprintf("validating avatar config: %s", err))
	}
	return problems
}
