package sanitize

import (
	"strings"
	"testing"

	"github.com/kestrelhq/pagegen/internal/validator"
)

func TestText_StripsMarkup(t *testing.T) {
	s := New()
	got := s.Text(`<script>alert(1)</script>Welcome <b>friend</b>`)
	if strings.Contains(got, "<") || strings.Contains(got, ">") {
		t.Fatalf("expected all markup stripped, got %q", got)
	}
	if !strings.Contains(got, "Welcome") || !strings.Contains(got, "friend") {
		t.Fatalf("expected text content preserved, got %q", got)
	}
}

func TestURL_AllowsHTTPAndRootRelative(t *testing.T) {
	s := New()
	cases := map[string]string{
		"https://example.com/path": "https://example.com/path",
		"/pricing":                 "/pricing",
	}
	for in, want := range cases {
		if got := s.URL(in); got != want {
			t.Errorf("URL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestURL_RejectsDangerousSchemes(t *testing.T) {
	s := New()
	for _, in := range []string{
		"javascript:alert(1)",
		"data:text/html,<script>alert(1)</script>",
		"vbscript:msgbox(1)",
		"//evil.example.com/phish",
	} {
		if got := s.URL(in); got != "" {
			t.Errorf("URL(%q) = %q, want empty string", in, got)
		}
	}
}

func TestClass_KeepsOnlyConservativeCharset(t *testing.T) {
	s := New()
	got := s.Class(`bg-red-500" onmouseover="alert(1)`)
	if strings.Contains(got, `"`) || strings.Contains(got, "(") {
		t.Fatalf("expected quotes and parens stripped, got %q", got)
	}
}

func TestTemplate_SanitizesNestedSectionsAndFields(t *testing.T) {
	s := New()
	tmpl := &validator.Template{
		Metadata: validator.Metadata{Name: "<b>Shop</b>", Description: "desc"},
		Sections: []validator.Section{
			{
				Type:      "hero",
				Title:     "<script>alert(1)</script>Hello",
				ClassName: `grid" onload="x`,
				Buttons: []validator.Button{
					{Label: "Buy <b>now</b>", Href: "javascript:alert(1)"},
				},
				Fields: []validator.Field{
					{Label: "<i>Email</i>", Placeholder: "you@example.com"},
				},
				Children: []validator.Section{
					{Type: "cta", Title: "<script>nested</script>Act now"},
				},
			},
		},
	}

	out := s.Template(tmpl)

	if strings.Contains(out.Metadata.Name, "<") {
		t.Fatalf("expected metadata name sanitized, got %q", out.Metadata.Name)
	}
	if strings.Contains(out.Sections[0].Title, "<") {
		t.Fatalf("expected section title sanitized, got %q", out.Sections[0].Title)
	}
	if out.Sections[0].Buttons[0].Href != "" {
		t.Fatalf("expected dangerous button href stripped, got %q", out.Sections[0].Buttons[0].Href)
	}
	if strings.Contains(out.Sections[0].Fields[0].Label, "<") {
		t.Fatalf("expected field label sanitized, got %q", out.Sections[0].Fields[0].Label)
	}
	if strings.Contains(out.Sections[0].Children[0].Title, "<") {
		t.Fatalf("expected nested child section sanitized, got %q", out.Sections[0].Children[0].Title)
	}

	// The input template must not be mutated in place.
	if !strings.Contains(tmpl.Metadata.Name, "<b>") {
		t.Fatalf("expected original template to be left untouched")
	}
}
