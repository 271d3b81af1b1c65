package scene

import (
	"embed"
)

//go:embed scenes/*.yaml
var builtin embed.FS

// Builtin returns the bundled scene files in play order.
func Builtin() ([]*File, error) {
	return LoadFS(builtin, "scenes")
}
