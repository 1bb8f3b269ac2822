package configutil

import (
	"fmt"
	"sort"
	"strings"
)

// Schema declares the keys a provider settings block accepts. Required
// keys must be present with a non-blank value; anything outside the
// declared set is rejected unless AllowUnknown is set.
type Schema struct {
	Required     []string
	Optional     []string
	AllowUnknown bool
}

type keyRule struct {
	canonical string
	required  bool
}

// ValidateSettings checks a settings map against a schema before it is
// decoded. Keys match case-insensitively and ignore underscores and
// hyphens, mirroring DecodeSettings.
func ValidateSettings(input map[string]any, schema Schema) error {
	rules := make(map[string]keyRule, len(schema.Required)+len(schema.Optional))
	for _, k := range schema.Required {
		rules[foldKey(k)] = keyRule{canonical: k, required: true}
	}
	for _, k := range schema.Optional {
		rules[foldKey(k)] = keyRule{canonical: k}
	}

	var missing, unknown []string
	present := make(map[string]bool, len(input))
	for k, v := range input {
		rule, ok := rules[foldKey(k)]
		if !ok {
			if !schema.AllowUnknown {
				unknown = append(unknown, k)
			}
			continue
		}
		present[foldKey(k)] = true
		if rule.required && blankValue(v) {
			missing = append(missing, rule.canonical)
		}
	}
	for folded, rule := range rules {
		if rule.required && !present[folded] {
			missing = append(missing, rule.canonical)
		}
	}

	if len(missing) == 0 && len(unknown) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unknown)
	switch {
	case len(unknown) == 0:
		return fmt.Errorf("missing: %s", strings.Join(missing, ", "))
	case len(missing) == 0:
		return fmt.Errorf("unknown: %s", strings.Join(unknown, ", "))
	default:
		return fmt.Errorf("missing: %s; unknown: %s",
			strings.Join(missing, ", "), strings.Join(unknown, ", "))
	}
}

// blankValue reports whether a required key is effectively unset. Only
// strings are inspected; a present bool or number always counts.
func blankValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
