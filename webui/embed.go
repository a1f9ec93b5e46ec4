// Package webui exposes the embedded dashboard.
// It MUST live at the module root to embed the sibling "web/" directory.
// internal/server/embed.go imports this package to serve static files.
package webui

import "embed"

// FS is the embedded web directory tree; web/index.html is the whole UI.
//
//go:embed web
var FS embed.FS
