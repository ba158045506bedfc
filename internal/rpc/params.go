package rpc

import "github.com/babar-raza/tbcv/pkg/models"

// validateParams checks req against schema, returning the missing-required
// and invalid-typed names described in §7's -32602 data shape. It never
// mutates params; optional defaults are applied by the param* helpers
// below at the point handlers read them, not here.
func validateParams(schema ParamSchema, params map[string]any) (missing []string, invalid []invalidParam) {
	for _, spec := range schema.Required {
		v, ok := params[spec.Name]
		if !ok || v == nil {
			missing = append(missing, spec.Name)
			continue
		}
		if reason, ok := typeMismatch(spec.Type, v); ok {
			invalid = append(invalid, invalidParam{Name: spec.Name, Reason: reason})
		}
	}
	for _, spec := range schema.Optional {
		v, ok := params[spec.Name]
		if !ok || v == nil {
			continue
		}
		if reason, ok := typeMismatch(spec.Type, v); ok {
			invalid = append(invalid, invalidParam{Name: spec.Name, Reason: reason})
		}
	}
	return missing, invalid
}

type invalidParam struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func typeMismatch(want ParamType, v any) (reason string, mismatched bool) {
	switch want {
	case TypeAny:
		return "", false
	case TypeString:
		if _, ok := v.(string); !ok {
			return "expected string", true
		}
	case TypeInt, TypeFloat:
		switch v.(type) {
		case float64, int:
		default:
			return "expected number", true
		}
	case TypeBool:
		if _, ok := v.(bool); !ok {
			return "expected bool", true
		}
	case TypeArray:
		switch v.(type) {
		case []any, []string:
		default:
			return "expected array", true
		}
	case TypeObject:
		if _, ok := v.(map[string]any); !ok {
			return "expected object", true
		}
	}
	return "", false
}

// The following param* helpers decode a params map the same way
// internal/workflow/folder.go's unexported helpers do; rpc keeps its own
// copy since those are private to the workflow package and this package
// decodes the same untyped map[string]any shape off the wire.

func paramString(params map[string]any, key, fallback string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func paramStringSlice(params map[string]any, key string) []string {
	v, ok := params[key]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func paramInt(params map[string]any, key string, fallback int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return fallback
}

func paramFloat(params map[string]any, key string, fallback float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}

func paramBool(params map[string]any, key string, fallback bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

func paramObject(params map[string]any, key string) map[string]any {
	if v, ok := params[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

func paramPreservationRules(params map[string]any) models.PreservationRules {
	m := paramObject(params, "preservation_rules")
	if m == nil {
		return models.DefaultPreservationRules()
	}
	return models.PreservationRules{
		Keywords:               paramStringSlice(m, "keywords"),
		ProductNames:           paramStringSlice(m, "product_names"),
		TechnicalTerms:         paramStringSlice(m, "technical_terms"),
		PreserveCodeBlocks:     paramBool(m, "preserve_code_blocks", true),
		PreserveFrontmatter:    paramBool(m, "preserve_frontmatter", true),
		PreserveHeadings:       paramBool(m, "preserve_headings", true),
		PreserveInternalLinks:  paramBool(m, "preserve_internal_links", true),
		PreserveTables:         paramBool(m, "preserve_tables", true),
		PreserveNumberedLists:  paramBool(m, "preserve_numbered_lists", true),
		MaxContentReductionPct: paramFloat(m, "max_content_reduction_pct", 0.20),
		MinContentExpansionPct: paramFloat(m, "min_content_expansion_pct", 0),
	}
}
