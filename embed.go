package corpsite

import (
	"embed"
	"io/fs"
)

// EmbeddedAssets contains static assets shipped with the framework:
// site.css, site.js, favicon.svg and the admin shell under admin/.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS

func embeddedFS() fs.FS {
	sub, err := fs.Sub(EmbeddedAssets, "embedded")
	if err != nil {
		panic(err)
	}
	return sub
}
