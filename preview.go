package profilegen

// Preview is what the page needs to show the avatar image. The image itself is loaded by
// the browser straight from the rendering service; if that fails the browser shows a
// broken image and we don't retry.
type Preview struct {
	Active  bool
	URL     string
	Size    string
	Rounded bool
}

func NewPreview(c AvatarConfig, b Builder) Preview {
	if !c.Active() {
		return Preview{}
	}
	return Preview{
		Active:  true,
		URL:     b.URL(c),
		Size:    c.Size,
		Rounded: c.Rounded,
	}
}

// ImageClass is the class list for the preview image. "rounded" gives it a 50% border
// radius in app.css.
func (p Preview) ImageClass() string {
	if p.Rounded {
		return "avatar rounded"
	}
	return "avatar"
}
