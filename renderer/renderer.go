// Package renderer turns collection reports into markdown, and markdown into
// terminal or HTML output.
package renderer

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.md
var templates embed.FS

// RenderHolding renders the holdings of a collection.
func RenderHolding(h *Holding) string {
	partials := map[string]string{
		"holding_cards":    "holding_cards.md",
		"holding_unpriced": "holding_unpriced.md",
	}
	if h.ByName {
		partials["holding_cards"] = "holding_names.md"
	}
	return renderTemplate("holding", "holding.md", partials, h)
}

// RenderHistory renders the price history of a printing.
func RenderHistory(h *History) string {
	return renderTemplate("history", "history.md", nil, h)
}

// RenderListings renders the marketplace listings of a collection.
func RenderListings(l *Listings) string {
	return renderTemplate("listings", "listings.md", nil, l)
}

// RenderSearch renders catalog search results.
func RenderSearch(s *Search) string {
	return renderTemplate("search", "search.md", nil, s)
}

// renderTemplate renders a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, "templates/"+file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}

// Terminal renders markdown for a terminal of width columns.
func Terminal(markdown string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("could not create terminal renderer: %w", err)
	}
	return r.Render(markdown)
}

// HTML renders GitHub flavored markdown to an HTML fragment.
func HTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("could not render html: %w", err)
	}
	return buf.String(), nil
}
