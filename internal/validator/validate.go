package validator

import (
	"fmt"
	"strings"
)

// Validate runs all nine layers over template in order. Layers 1-8 are
// errors (they block acceptance); layer 9 only produces warnings. All
// layers run even if an earlier layer already produced errors, so a single
// call surfaces every problem at once.
func Validate(t *Template) ValidationResult {
	var r ValidationResult

	r.StructuralErrors = validateStructural(t)
	r.EndpointErrors = validateEndpoints(t)
	r.CrossrefErrors = validateCrossrefs(t)
	r.SecurityFlags = validateSecurity(t)
	r.ReactiveFlags = validateReactive(t)
	r.StyleErrors = validateStyle(t)
	r.ThemeErrors = validateTheme(t)
	r.RouteErrors = validateRoute(t)
	r.CompletenessWarnings = validateCompleteness(t)

	r.Errors = append(r.Errors, r.StructuralErrors...)
	r.Errors = append(r.Errors, r.EndpointErrors...)
	r.Errors = append(r.Errors, r.CrossrefErrors...)
	r.Errors = append(r.Errors, r.SecurityFlags...)
	r.Errors = append(r.Errors, r.ReactiveFlags...)
	r.Errors = append(r.Errors, r.StyleErrors...)
	r.Errors = append(r.Errors, r.ThemeErrors...)
	r.Errors = append(r.Errors, r.RouteErrors...)

	r.Warnings = append(r.Warnings, r.CompletenessWarnings...)
	r.Valid = len(r.Errors) == 0
	return r
}

// Layer 1: structural — required fields on each entity type.
func validateStructural(t *Template) []string {
	var errs []string
	for i, ds := range t.DataSources {
		p := fmt.Sprintf("/dataSources/%d", i)
		if strings.TrimSpace(ds.ID) == "" {
			errs = append(errs, p+"/id: required")
		}
		if strings.TrimSpace(ds.Endpoint) == "" {
			errs = append(errs, p+"/endpoint: required")
		}
	}
	for i, a := range t.Actions {
		p := fmt.Sprintf("/actions/%d", i)
		if strings.TrimSpace(a.ID) == "" {
			errs = append(errs, p+"/id: required")
		}
		if strings.TrimSpace(a.Endpoint) == "" {
			errs = append(errs, p+"/endpoint: required")
		}
	}
	var walkSections func(sections []Section, base string, depth int)
	walkSections = func(sections []Section, base string, depth int) {
		if depth > maxSectionDepth {
			errs = append(errs, base+": section nesting exceeds maximum depth")
			return
		}
		for i, s := range sections {
			p := fmt.Sprintf("%s/%d", base, i)
			if strings.TrimSpace(s.Type) == "" {
				errs = append(errs, p+"/type: required")
			}
			if len(s.Children) > 0 {
				walkSections(s.Children, p+"/children", depth+1)
			}
		}
	}
	walkSections(t.Sections, "/sections", 0)
	return errs
}

// Layer 2: endpoint format + dangerous-endpoint rejection.
func validateEndpoints(t *Template) []string {
	var errs []string
	check := func(path, endpoint string) {
		if endpoint == "" {
			return
		}
		if !isValidEndpointFormat(endpoint) {
			errs = append(errs, fmt.Sprintf("%s: endpoint %q does not match API or Module form", path, endpoint))
		}
		if isDangerousEndpoint(endpoint) {
			errs = append(errs, fmt.Sprintf("%s: dangerous endpoint %q", path, endpoint))
		}
	}
	for i, ds := range t.DataSources {
		check(fmt.Sprintf("/dataSources/%d/endpoint", i), ds.Endpoint)
	}
	for i, a := range t.Actions {
		check(fmt.Sprintf("/actions/%d/endpoint", i), a.Endpoint)
	}
	return errs
}

// Layer 3: referential integrity — dataSource/actionRef existence, no
// duplicate ids within dataSources, actions, or component ids.
func validateCrossrefs(t *Template) []string {
	var errs []string

	dsIDs := map[string]bool{}
	for i, ds := range t.DataSources {
		if ds.ID == "" {
			continue
		}
		if dsIDs[ds.ID] {
			errs = append(errs, fmt.Sprintf("/dataSources/%d/id: duplicate id %q", i, ds.ID))
		}
		dsIDs[ds.ID] = true
	}

	actionIDs := map[string]bool{}
	for i, a := range t.Actions {
		if a.ID == "" {
			continue
		}
		if actionIDs[a.ID] {
			errs = append(errs, fmt.Sprintf("/actions/%d/id: duplicate id %q", i, a.ID))
		}
		actionIDs[a.ID] = true
	}

	componentIDs := map[string]bool{}
	var walk func(sections []Section, base string, depth int)
	walk = func(sections []Section, base string, depth int) {
		if depth > maxSectionDepth {
			return
		}
		for i, s := range sections {
			p := fmt.Sprintf("%s/%d", base, i)
			if s.ID != "" {
				if componentIDs[s.ID] {
					errs = append(errs, fmt.Sprintf("%s/id: duplicate component id %q", p, s.ID))
				}
				componentIDs[s.ID] = true
			}
			if s.DataSource != "" && !dsIDs[s.DataSource] {
				errs = append(errs, fmt.Sprintf("%s/dataSource: unknown data source %q", p, s.DataSource))
			}
			if s.ActionRef != "" && !actionIDs[s.ActionRef] {
				errs = append(errs, fmt.Sprintf("%s/actionRef: unknown action %q", p, s.ActionRef))
			}
			for j, b := range s.Buttons {
				if b.ActionRef != "" && !actionIDs[b.ActionRef] {
					errs = append(errs, fmt.Sprintf("%s/buttons/%d/actionRef: unknown action %q", p, j, b.ActionRef))
				}
			}
			if len(s.Children) > 0 {
				walk(s.Children, p+"/children", depth+1)
			}
		}
	}
	walk(t.Sections, "/sections", 0)
	return errs
}

// Layer 4: security — string content XSS/injection signatures.
func validateSecurity(t *Template) []string {
	var errs []string
	for _, s := range collectStrings(t) {
		if s.Value == "" {
			continue
		}
		for _, re := range xssPatterns {
			if re.MatchString(s.Value) {
				errs = append(errs, fmt.Sprintf("%s: matches forbidden pattern %q", s.Path, re.String()))
				break
			}
		}
	}
	return errs
}

// Layer 5: security — reactive-template directive signatures.
func validateReactive(t *Template) []string {
	var errs []string
	for _, s := range collectStrings(t) {
		if s.Value == "" {
			continue
		}
		for _, re := range reactivePatterns {
			if re.MatchString(s.Value) {
				errs = append(errs, fmt.Sprintf("%s: matches forbidden reactive directive %q", s.Path, re.String()))
				break
			}
		}
	}
	return errs
}

// Layer 6: style policy — className length cap + forbidden tokens.
func validateStyle(t *Template) []string {
	var errs []string
	for _, s := range classNameStrings(t) {
		if s.Value == "" {
			continue
		}
		if len(s.Value) > 500 {
			errs = append(errs, fmt.Sprintf("%s: class string exceeds 500 characters (%d)", s.Path, len(s.Value)))
		}
		for _, re := range styleForbidden {
			if re.MatchString(s.Value) {
				errs = append(errs, fmt.Sprintf("%s: class string contains forbidden token %q", s.Path, re.String()))
				break
			}
		}
	}
	return errs
}

// Layer 7: theme — primaryColor hex format, darkMode boolean (guaranteed by
// the Go type system once parsed, so only primaryColor needs a check here).
func validateTheme(t *Template) []string {
	var errs []string
	if t.Theme.PrimaryColor != "" && !hexColorPattern.MatchString(t.Theme.PrimaryColor) {
		errs = append(errs, fmt.Sprintf("/theme/primaryColor: %q is not a valid 3/6/8-digit hex color", t.Theme.PrimaryColor))
	}
	return errs
}

// Layer 8: route — charset, leading slash, no traversal/injection.
func validateRoute(t *Template) []string {
	var errs []string
	route := t.Metadata.Route
	if route == "" {
		return errs
	}
	const path = "/metadata/route"
	if !strings.HasPrefix(route, "/") {
		errs = append(errs, path+": must start with \"/\"")
		return errs
	}
	if !routePattern.MatchString(route) {
		errs = append(errs, path+": contains characters outside the allowed route charset")
	}
	if strings.Contains(route, "..") {
		errs = append(errs, path+": path traversal (\"..\") is not allowed")
	}
	if strings.ContainsAny(route, "<>\"'") {
		errs = append(errs, path+": angle brackets or quotes are not allowed")
	}
	if strings.Contains(strings.ToLower(route), "javascript:") {
		errs = append(errs, path+": javascript: scheme is not allowed")
	}
	return errs
}

// Layer 9: completeness — warnings, not errors.
func validateCompleteness(t *Template) []string {
	var warnings []string

	if len(t.Sections) == 0 {
		warnings = append(warnings, "/sections: empty sections array")
	}

	var walk func(sections []Section, base string, depth int)
	walk = func(sections []Section, base string, depth int) {
		if depth > maxSectionDepth {
			return
		}
		for i, s := range sections {
			p := fmt.Sprintf("%s/%d", base, i)
			switch strings.ToLower(s.Type) {
			case "form":
				if len(s.Fields) == 0 {
					warnings = append(warnings, p+": form section has no fields")
				}
				if s.ActionRef == "" {
					warnings = append(warnings, p+": form section has no actionRef")
				}
			case "products", "posts":
				if s.DataSource == "" {
					warnings = append(warnings, p+": dynamic-content section has no dataSource")
				}
			}
			if len(s.Children) > 0 {
				walk(s.Children, p+"/children", depth+1)
			}
		}
	}
	walk(t.Sections, "/sections", 0)

	switch strings.ToLower(t.Metadata.PageType) {
	case "product", "landing":
		if t.Metadata.Route == "" {
			warnings = append(warnings, "/metadata/route: recommended for page type "+t.Metadata.PageType)
		}
	}

	return warnings
}
