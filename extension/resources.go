package extension

import (
	"embed"
	"io/fs"
)

// The internal bindings of the built-in extensions ship inside the module
// and are scanned with the highest-precedence directory, ahead of every
// host-provided root.
//
//go:embed all:resources
var resourcesFS embed.FS

func builtinResources() fs.FS {
	sub, err := fs.Sub(resourcesFS, "resources")
	if err != nil {
		panic(err)
	}
	return sub
}
