// Package sanitize performs the context-aware string-by-string cleaning the
// Worker runs over a validated template before it is rendered, mirroring
// the original sanitizer's bleach-based approach with bluemonday.
package sanitize

import (
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/kestrelhq/pagegen/internal/validator"
)

type Sanitizer struct {
	text *bluemonday.Policy
}

func New() *Sanitizer {
	return &Sanitizer{text: bluemonday.StrictPolicy()}
}

// Text strips all markup from free-form content (titles, subtitles, body
// content, labels) — the Validator has already rejected known-dangerous
// patterns, but the sanitizer is the last line of defense before render.
func (s *Sanitizer) Text(in string) string {
	return strings.TrimSpace(s.text.Sanitize(in))
}

// Class keeps only a conservative class-name charset: letters, digits,
// hyphen, colon (for variant prefixes like hover:), underscore, slash,
// period, and the space character; every other rune is dropped.
func (s *Sanitizer) Class(in string) string {
	var b strings.Builder
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == ':' || r == '_' || r == ' ' || r == '/' || r == '.':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// URL only accepts http/https absolute URLs or root-relative paths; any
// other scheme (javascript:, data:, vbscript:, ...) is dropped.
func (s *Sanitizer) URL(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	if strings.HasPrefix(in, "/") && !strings.HasPrefix(in, "//") {
		return in
	}
	u, err := url.Parse(in)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	default:
		return ""
	}
}

// Template returns a copy of t in which metadata name/description, section
// title/subtitle/content, button labels and field labels/placeholders pass
// through Text, section classNames through Class, and button hrefs through
// URL, recursing into Children. Other fields (theme, dataSources, actions,
// section type/id/items, field names and types) are copied unchanged.
func (s *Sanitizer) Template(t *validator.Template) *validator.Template {
	out := *t
	out.Metadata.Name = s.Text(t.Metadata.Name)
	out.Metadata.Description = s.Text(t.Metadata.Description)

	out.Sections = s.sections(t.Sections)
	return &out
}

func (s *Sanitizer) sections(in []validator.Section) []validator.Section {
	if in == nil {
		return nil
	}
	out := make([]validator.Section, len(in))
	for i, sec := range in {
		out[i] = sec
		out[i].Title = s.Text(sec.Title)
		out[i].Subtitle = s.Text(sec.Subtitle)
		out[i].Content = s.Text(sec.Content)
		out[i].ClassName = s.Class(sec.ClassName)

		if sec.Buttons != nil {
			buttons := make([]validator.Button, len(sec.Buttons))
			for j, b := range sec.Buttons {
				buttons[j] = b
				buttons[j].Label = s.Text(b.Label)
				buttons[j].Href = s.URL(b.Href)
			}
			out[i].Buttons = buttons
		}

		if sec.Fields != nil {
			fields := make([]validator.Field, len(sec.Fields))
			for j, f := range sec.Fields {
				fields[j] = f
				fields[j].Label = s.Text(f.Label)
				fields[j].Placeholder = s.Text(f.Placeholder)
			}
			out[i].Fields = fields
		}

		out[i].Children = s.sections(sec.Children)
	}
	return out
}
