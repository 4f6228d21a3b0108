// Package render turns a sanitized, validated template into a single
// deterministic HTML document. It is a pure function: no I/O, no network,
// no randomness — the same template always renders to the same bytes.
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/kestrelhq/pagegen/internal/validator"
)

// Document renders t to a complete HTML5 document. Output escaping happens
// at every write site (html.EscapeString / template-equivalent quoting),
// never by trusting pre-escaped input.
func Document(t *validator.Template) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\"")
	if t.Theme.DarkMode != nil && *t.Theme.DarkMode {
		b.WriteString(" data-theme=\"dark\"")
	}
	b.WriteString(">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(orDefault(t.Metadata.Name, "Untitled page")))
	if t.Metadata.Description != "" {
		fmt.Fprintf(&b, "<meta name=\"description\" content=\"%s\">\n", html.EscapeString(t.Metadata.Description))
	}
	if t.Theme.PrimaryColor != "" {
		fmt.Fprintf(&b, "<style>:root{--primary-color:%s;}</style>\n", html.EscapeString(t.Theme.PrimaryColor))
	}
	b.WriteString("</head>\n<body>\n")

	renderSections(&b, t.Sections)

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func renderSections(b *strings.Builder, sections []validator.Section) {
	for _, s := range sections {
		renderSection(b, s)
	}
}

func renderSection(b *strings.Builder, s validator.Section) {
	class := html.EscapeString(s.ClassName)
	fmt.Fprintf(b, "<section class=\"section-%s %s\">\n", html.EscapeString(strings.ToLower(s.Type)), class)

	switch strings.ToLower(s.Type) {
	case "hero":
		renderHero(b, s)
	case "features":
		renderFeatures(b, s)
	case "products", "posts":
		renderDynamicList(b, s)
	case "testimonials":
		renderTestimonials(b, s)
	case "cta":
		renderCTA(b, s)
	case "form":
		renderForm(b, s)
	case "footer":
		renderFooter(b, s)
	default:
		renderFallback(b, s)
	}

	if len(s.Children) > 0 {
		renderSections(b, s.Children)
	}

	b.WriteString("</section>\n")
}

func renderHero(b *strings.Builder, s validator.Section) {
	if s.Title != "" {
		fmt.Fprintf(b, "<h1>%s</h1>\n", html.EscapeString(s.Title))
	}
	if s.Subtitle != "" {
		fmt.Fprintf(b, "<p class=\"subtitle\">%s</p>\n", html.EscapeString(s.Subtitle))
	}
	if s.Content != "" {
		fmt.Fprintf(b, "<p>%s</p>\n", html.EscapeString(s.Content))
	}
	renderButtons(b, s.Buttons)
}

func renderFeatures(b *strings.Builder, s validator.Section) {
	if s.Title != "" {
		fmt.Fprintf(b, "<h2>%s</h2>\n", html.EscapeString(s.Title))
	}
	b.WriteString("<div class=\"features-grid\">\n")
	for _, item := range s.Items {
		renderOpaqueItem(b, item)
	}
	b.WriteString("</div>\n")
}

func renderDynamicList(b *strings.Builder, s validator.Section) {
	if s.Title != "" {
		fmt.Fprintf(b, "<h2>%s</h2>\n", html.EscapeString(s.Title))
	}
	if s.DataSource != "" {
		fmt.Fprintf(b, "<div class=\"dynamic-list\" data-source=\"%s\">\n", html.EscapeString(s.DataSource))
	} else {
		b.WriteString("<div class=\"dynamic-list\">\n")
	}
	for _, item := range s.Items {
		renderOpaqueItem(b, item)
	}
	b.WriteString("</div>\n")
}

func renderTestimonials(b *strings.Builder, s validator.Section) {
	b.WriteString("<div class=\"testimonials\">\n")
	for _, item := range s.Items {
		renderOpaqueItem(b, item)
	}
	b.WriteString("</div>\n")
}

func renderCTA(b *strings.Builder, s validator.Section) {
	if s.Title != "" {
		fmt.Fprintf(b, "<h2>%s</h2>\n", html.EscapeString(s.Title))
	}
	if s.Content != "" {
		fmt.Fprintf(b, "<p>%s</p>\n", html.EscapeString(s.Content))
	}
	renderButtons(b, s.Buttons)
}

func renderForm(b *strings.Builder, s validator.Section) {
	b.WriteString("<form>\n")
	for _, f := range s.Fields {
		fmt.Fprintf(b, "<label>%s</label>\n", html.EscapeString(f.Label))
		fmt.Fprintf(b, "<input type=\"%s\" name=\"%s\" placeholder=\"%s\"",
			html.EscapeString(orDefault(f.Type, "text")),
			html.EscapeString(f.Name),
			html.EscapeString(f.Placeholder),
		)
		if f.Required {
			b.WriteString(" required")
		}
		b.WriteString(">\n")
	}
	b.WriteString("<button type=\"submit\">Submit</button>\n")
	b.WriteString("</form>\n")
}

func renderFooter(b *strings.Builder, s validator.Section) {
	if s.Content != "" {
		fmt.Fprintf(b, "<p>%s</p>\n", html.EscapeString(s.Content))
	}
}

func renderFallback(b *strings.Builder, s validator.Section) {
	if s.Title != "" {
		fmt.Fprintf(b, "<h2>%s</h2>\n", html.EscapeString(s.Title))
	}
	if s.Content != "" {
		fmt.Fprintf(b, "<p>%s</p>\n", html.EscapeString(s.Content))
	}
}

func renderButtons(b *strings.Builder, buttons []validator.Button) {
	if len(buttons) == 0 {
		return
	}
	b.WriteString("<div class=\"buttons\">\n")
	for _, btn := range buttons {
		href := btn.Href
		if href == "" {
			href = "#"
		}
		fmt.Fprintf(b, "<a class=\"btn btn-%s\" href=\"%s\">%s</a>\n",
			html.EscapeString(orDefault(btn.Variant, "default")),
			html.EscapeString(href),
			html.EscapeString(btn.Label),
		)
	}
	b.WriteString("</div>\n")
}

// renderOpaqueItem renders a best-effort card for a dynamic list item whose
// shape is only known at model-output time (interface{} decoded from JSON).
func renderOpaqueItem(b *strings.Builder, item any) {
	m, ok := item.(map[string]any)
	if !ok {
		fmt.Fprintf(b, "<div class=\"item\">%s</div>\n", html.EscapeString(fmt.Sprint(item)))
		return
	}
	b.WriteString("<div class=\"item\">\n")
	for _, key := range []string{"title", "name", "description", "text"} {
		if v, ok := m[key].(string); ok && v != "" {
			fmt.Fprintf(b, "<p class=\"item-%s\">%s</p>\n", html.EscapeString(key), html.EscapeString(v))
		}
	}
	b.WriteString("</div>\n")
}
