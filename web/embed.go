// Package web embeds the page template and static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page is the data the index template renders.
type Page struct {
	Query  string
	Result *Result
	Error  *ErrorView
}

// Result is a successful analysis.
type Result struct {
	Content template.HTML
	Debug   string
}

// ErrorView is a failed analysis.
type ErrorView struct {
	Message string
	Details string
}

// Templates parses the embedded templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// StaticHandler serves the embedded assets. Mount it under /static/.
func StaticHandler() http.Handler {
	subFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(subFS)))
}
