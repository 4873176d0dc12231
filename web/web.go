// Package web embeds the HTML templates and static assets served by the
// handler.
package web

import "embed"

//go:embed templates static
var FS embed.FS
