package validator

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, raw string) *Template {
	t.Helper()
	tmpl, err := ParseTemplate([]byte(raw))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	return tmpl
}

func TestValidate_EmptySectionsIsWarningNotError(t *testing.T) {
	tmpl := mustParse(t, `{"sections": []}`)
	res := Validate(tmpl)
	if !res.Valid {
		t.Fatalf("expected valid=true, got errors=%v", res.Errors)
	}
	if len(res.CompletenessWarnings) == 0 {
		t.Fatalf("expected a completeness warning for empty sections")
	}
}

func TestValidate_DangerousEndpointRejectedRegardlessOfFormat(t *testing.T) {
	tmpl := mustParse(t, `{
		"dataSources": [{"id": "ds1", "endpoint": "DROP.TABLES"}]
	}`)
	res := Validate(tmpl)
	if res.Valid {
		t.Fatalf("expected invalid template")
	}
	foundDangerous, foundFormat := false, false
	for _, e := range res.Errors {
		if strings.Contains(e, "dangerous endpoint") {
			foundDangerous = true
		}
		if strings.Contains(e, "does not match API or Module form") {
			foundFormat = true
		}
	}
	if !foundDangerous {
		t.Fatalf("expected a dangerous-endpoint error, got %v", res.Errors)
	}
	if !foundFormat {
		t.Fatalf("expected DROP.TABLES to also fail format validation (it matches neither API nor Module form), got %v", res.Errors)
	}
}

func TestValidate_ClassNameBoundary(t *testing.T) {
	at500 := strings.Repeat("a", 500)
	tmpl := mustParse(t, `{"sections": [{"type": "hero", "className": "`+at500+`"}]}`)
	res := Validate(tmpl)
	if !res.Valid {
		t.Fatalf("expected 500-char className to be accepted, got errors=%v", res.Errors)
	}

	at501 := strings.Repeat("a", 501)
	tmpl2 := mustParse(t, `{"sections": [{"type": "hero", "className": "`+at501+`"}]}`)
	res2 := Validate(tmpl2)
	if res2.Valid {
		t.Fatalf("expected 501-char className to be rejected")
	}
}

func TestValidate_PrimaryColorBoundary(t *testing.T) {
	cases := map[string]bool{
		"#fff":       true,
		"#ffffff":    true,
		"#ffffffff":  true,
		"#ffff":      false,
	}
	for color, wantValid := range cases {
		tmpl := mustParse(t, `{"theme": {"primaryColor": "`+color+`"}}`)
		res := Validate(tmpl)
		if res.Valid != wantValid {
			t.Fatalf("color %q: expected valid=%v, got valid=%v errors=%v", color, wantValid, res.Valid, res.Errors)
		}
	}
}

func TestValidate_RouteTraversalRejected(t *testing.T) {
	tmpl := mustParse(t, `{"metadata": {"route": "/../admin"}}`)
	res := Validate(tmpl)
	if res.Valid {
		t.Fatalf("expected traversal route to be rejected")
	}
	found := false
	for _, e := range res.RouteErrors {
		if strings.Contains(e, "traversal") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a traversal-specific route error, got %v", res.RouteErrors)
	}
}

func TestValidate_ScriptTagInTitleIsSecurityError(t *testing.T) {
	tmpl := mustParse(t, `{"sections": [{"type": "hero", "title": "<script>alert(1)</script>"}]}`)
	res := Validate(tmpl)
	if res.Valid {
		t.Fatalf("expected invalid template for script tag in title")
	}
	found := false
	for _, e := range res.SecurityFlags {
		if strings.Contains(e, "<script") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a script-tag security flag, got %v", res.SecurityFlags)
	}
}

func TestValidate_ReferentialIntegrity(t *testing.T) {
	tmpl := mustParse(t, `{
		"actions": [{"id": "a1", "endpoint": "post.submit"}],
		"sections": [{"type": "form", "actionRef": "missing-action", "fields": [{"name": "email"}]}]
	}`)
	res := Validate(tmpl)
	if res.Valid {
		t.Fatalf("expected invalid template for unknown actionRef")
	}
}

func TestValidate_DuplicateComponentIDsRejected(t *testing.T) {
	tmpl := mustParse(t, `{
		"sections": [
			{"type": "hero", "id": "dup"},
			{"type": "cta", "id": "dup"}
		]
	}`)
	res := Validate(tmpl)
	if res.Valid {
		t.Fatalf("expected invalid template for duplicate component ids")
	}
}

func TestValidate_Idempotence(t *testing.T) {
	tmpl := mustParse(t, `{
		"metadata": {"route": "/landing"},
		"theme": {"primaryColor": "#fff"},
		"dataSources": [{"id": "ds1", "endpoint": "get.products"}],
		"actions": [{"id": "a1", "endpoint": "post.submit"}],
		"sections": [{"type": "hero", "title": "Welcome", "dataSource": "ds1", "actionRef": "a1"}]
	}`)
	res1 := Validate(tmpl)
	res2 := Validate(tmpl)
	if !res1.Valid || !res2.Valid {
		t.Fatalf("expected accepted template to stay valid=true on re-validation: %v / %v", res1.Errors, res2.Errors)
	}
}

func TestValidate_NestedChildrenTraversed(t *testing.T) {
	tmpl := mustParse(t, `{
		"sections": [
			{"type": "container", "children": [
				{"type": "hero", "title": "<script>bad()</script>"}
			]}
		]
	}`)
	res := Validate(tmpl)
	if res.Valid {
		t.Fatalf("expected invalid template: nested child with script tag must be caught")
	}
}
