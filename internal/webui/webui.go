// Package webui embeds the static player and admin pages.
package webui

import (
	"embed"
	"io/fs"
)

//go:embed static
var content embed.FS

// Static returns the embedded asset tree rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		// The subtree is part of the binary; failing here means a broken build.
		panic(err)
	}
	return sub
}

// IndexHTML returns the player page served at the root path.
func IndexHTML() ([]byte, error) {
	return content.ReadFile("static/index.html")
}
