package validator

import (
	"fmt"
	"sort"
)

// stringAt pairs a scanned string value with the JSON-pointer-like path it
// was found at, so error messages can point at the offending location.
type stringAt struct {
	Path  string
	Value string
}

// collectStrings walks every string value in the template in stable,
// depth-first order — metadata, theme, dataSources, actions, then sections
// (recursing into buttons, fields, items, and children). Array elements keep
// their order; keys of opaque JSON objects are visited in sorted order.
func collectStrings(t *Template) []stringAt {
	var out []stringAt

	out = append(out,
		stringAt{"/metadata/name", t.Metadata.Name},
		stringAt{"/metadata/description", t.Metadata.Description},
		stringAt{"/metadata/pageType", t.Metadata.PageType},
		stringAt{"/metadata/route", t.Metadata.Route},
		stringAt{"/theme/primaryColor", t.Theme.PrimaryColor},
	)

	for i, ds := range t.DataSources {
		p := fmt.Sprintf("/dataSources/%d", i)
		out = append(out,
			stringAt{p + "/id", ds.ID},
			stringAt{p + "/endpoint", ds.Endpoint},
			stringAt{p + "/keyName", ds.KeyName},
		)
		out = append(out, walkAny(p+"/params", ds.Params)...)
	}

	for i, a := range t.Actions {
		p := fmt.Sprintf("/actions/%d", i)
		out = append(out,
			stringAt{p + "/id", a.ID},
			stringAt{p + "/endpoint", a.Endpoint},
			stringAt{p + "/method", a.Method},
		)
	}

	out = append(out, walkSections(t.Sections, "/sections", 0)...)
	return out
}

func walkSections(sections []Section, basePath string, depth int) []stringAt {
	var out []stringAt
	if depth > maxSectionDepth {
		return out
	}
	for i, s := range sections {
		p := fmt.Sprintf("%s/%d", basePath, i)
		out = append(out,
			stringAt{p + "/type", s.Type},
			stringAt{p + "/id", s.ID},
			stringAt{p + "/title", s.Title},
			stringAt{p + "/subtitle", s.Subtitle},
			stringAt{p + "/content", s.Content},
			stringAt{p + "/className", s.ClassName},
			stringAt{p + "/dataSource", s.DataSource},
			stringAt{p + "/actionRef", s.ActionRef},
		)
		for j, b := range s.Buttons {
			bp := fmt.Sprintf("%s/buttons/%d", p, j)
			out = append(out,
				stringAt{bp + "/label", b.Label},
				stringAt{bp + "/variant", b.Variant},
				stringAt{bp + "/href", b.Href},
				stringAt{bp + "/actionRef", b.ActionRef},
			)
		}
		for j, f := range s.Fields {
			fp := fmt.Sprintf("%s/fields/%d", p, j)
			out = append(out,
				stringAt{fp + "/name", f.Name},
				stringAt{fp + "/label", f.Label},
				stringAt{fp + "/type", f.Type},
				stringAt{fp + "/placeholder", f.Placeholder},
			)
		}
		for j, item := range s.Items {
			out = append(out, walkAny(fmt.Sprintf("%s/items/%d", p, j), item)...)
		}
		if len(s.Children) > 0 {
			out = append(out, walkSections(s.Children, p+"/children", depth+1)...)
		}
	}
	return out
}

// walkAny recurses into an opaque JSON value (map/slice/scalar) as decoded
// by encoding/json into interface{}, collecting every string leaf.
func walkAny(path string, v any) []stringAt {
	var out []stringAt
	switch val := v.(type) {
	case string:
		out = append(out, stringAt{path, val})
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, walkAny(path+"/"+k, val[k])...)
		}
	case []any:
		for i, vv := range val {
			out = append(out, walkAny(fmt.Sprintf("%s/%d", path, i), vv)...)
		}
	}
	return out
}

func classNameStrings(t *Template) []stringAt {
	var out []stringAt
	var walk func(sections []Section, base string, depth int)
	walk = func(sections []Section, base string, depth int) {
		if depth > maxSectionDepth {
			return
		}
		for i, s := range sections {
			p := fmt.Sprintf("%s/%d", base, i)
			out = append(out, stringAt{p + "/className", s.ClassName})
			if len(s.Children) > 0 {
				walk(s.Children, p+"/children", depth+1)
			}
		}
	}
	walk(t.Sections, "/sections", 0)
	return out
}
