// Package web embeds the HTML templates rendered by the page handlers.
package web

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.UTC().Format("Jan 2, 2006, 3:04 p.m.")
	},
}

// Templates parses every page and partial into one set, keyed by file name.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}
