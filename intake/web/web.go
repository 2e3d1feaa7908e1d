// Package web embeds the default pages served by the intake service.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var content embed.FS

// FS returns the embedded page tree. It has the same layout a configured
// pages directory must have: templates/{index,message,error}.html and
// static/.
func FS() fs.FS {
	return content
}
