// Package seed provides the built-in page documents used when neither the
// database nor the content directory has a version of a page.
package seed

import (
	"embed"
	"io/fs"
)

//go:embed defaults/*.json
var files embed.FS

// Defaults returns the built-in documents as <page>.<lang>.json files.
func Defaults() fs.FS {
	sub, err := fs.Sub(files, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}
