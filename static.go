package profilegen

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// StaticFS holds the stylesheet, rooted so that "app.css" is at the top.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// Only fails if the embed directive above is wrong
		panic(err)
	}
	return sub
}
