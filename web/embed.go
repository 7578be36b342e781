// Package web embeds the HTML templates for the login/2FA/challenge/status
// form workflow.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Render writes the named template with the given data.
func Render(w io.Writer, name string, data any) error {
	if err := templates.ExecuteTemplate(w, name+".html", data); err != nil {
		return fmt.Errorf("render template %q: %w", name, err)
	}
	return nil
}
