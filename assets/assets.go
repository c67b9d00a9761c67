// Package assets holds the static files shipped within the binaries.
package assets

import "embed"

//go:embed all:templates common-passwords.txt
var FS embed.FS

const (
	EmailTemplatesDir   = "templates/email"
	CommonPasswordsFile = "common-passwords.txt"
)
