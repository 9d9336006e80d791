package widget

import (
	"sort"
	"strconv"
	"strings"
)

// Field types after normalization. Upstream sends several aliases per type;
// rendering logic only ever sees these.
const (
	FieldText       = "text"
	FieldSelect     = "select"
	FieldRadio      = "radio"
	FieldCheckbox   = "checkbox"
	FieldCheckboxes = "checkboxes"
	FieldTextarea   = "textarea"
	FieldNumber     = "number"
	FieldPhone      = "phone"
)

// Option is a normalized value/label pair.
type Option struct {
	Value string
	Label string
}

// Range carries numeric/date constraints for a field.
type Range struct {
	Start string
	End   string
	Step  string
}

// FieldSpec is the tagged, normalized form of one dynamic form field.
type FieldSpec struct {
	Name        string
	Label       string
	Type        string
	Options     []Option
	Required    bool
	Defaults    []string
	Weight      int
	Placeholder string
	Help        string
	Range       Range
}

// normalizeField folds the upstream field shapes into a single FieldSpec.
func normalizeField(name string, raw map[string]any) FieldSpec {
	spec := FieldSpec{Name: name, Label: name}

	if label := stringField(raw, "label"); label != "" {
		spec.Label = label
	}
	spec.Help = stringField(raw, "instructions")
	spec.Placeholder = stringField(raw, "placeholder")
	spec.Required = boolField(raw["required"])
	spec.Options = normalizeOptions(raw)
	spec.Defaults = normalizeDefaults(raw)
	spec.Weight = fieldWeight(raw)
	spec.Range = fieldRange(raw)
	spec.Type = fieldType(raw, len(spec.Options))

	return spec
}

func fieldType(raw map[string]any, optionCount int) string {
	typ := strings.ToLower(firstString(raw, "type", "input"))
	display := strings.ToLower(firstString(raw, "display", "widget"))

	switch {
	case (typ == "select" || typ == "option" || display == "select") && optionCount > 0:
		return FieldSelect
	case (typ == "radio" || display == "radio") && optionCount > 0:
		return FieldRadio
	case (typ == "checkbox" && optionCount > 1) || display == "checkboxes":
		return FieldCheckboxes
	case typ == "checkbox":
		return FieldCheckbox
	case typ == "textarea":
		return FieldTextarea
	case typ == "spin" || typ == "number":
		return FieldNumber
	case typ == "phone":
		return FieldPhone
	case typ == "":
		return FieldText
	default:
		return FieldText
	}
}

// normalizeOptions accepts the three upstream option shapes: an array of
// objects, an array of scalars, or a keyed mapping.
func normalizeOptions(raw map[string]any) []Option {
	var source any
	for _, key := range []string{"options", "choices", "values"} {
		if v, ok := raw[key]; ok && v != nil {
			source = v
			break
		}
	}

	switch v := source.(type) {
	case []any:
		opts := make([]Option, 0, len(v))
		for _, entry := range v {
			if obj, ok := entry.(map[string]any); ok {
				value := firstString(obj, "value", "id", "name")
				label := firstString(obj, "label", "name", "value")
				opts = append(opts, Option{Value: value, Label: label})
			} else {
				s := anyString(entry)
				opts = append(opts, Option{Value: s, Label: s})
			}
		}
		return opts
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		opts := make([]Option, 0, len(keys))
		for _, key := range keys {
			if obj, ok := v[key].(map[string]any); ok {
				value := firstString(obj, "value")
				if value == "" {
					value = key
				}
				label := firstString(obj, "label", "name", "value")
				if label == "" {
					label = key
				}
				opts = append(opts, Option{Value: value, Label: label})
			} else {
				opts = append(opts, Option{Value: key, Label: anyString(v[key])})
			}
		}
		return opts
	default:
		return nil
	}
}

// normalizeDefaults accepts a scalar default or a list of them.
func normalizeDefaults(raw map[string]any) []string {
	value, ok := raw["default"]
	if !ok {
		value, ok = raw["value"]
	}
	if !ok || value == nil {
		return nil
	}
	if list, isList := value.([]any); isList {
		out := make([]string, 0, len(list))
		for _, entry := range list {
			out = append(out, anyString(entry))
		}
		return out
	}
	return []string{anyString(value)}
}

// fieldWeight reads the first ordering key present. Fields without one get
// weight zero, so they sort before explicitly positive-weighted fields.
func fieldWeight(raw map[string]any) int {
	for _, key := range []string{"order", "weight", "position", "sort"} {
		if v, ok := raw[key]; ok {
			if n, isInt := intValue(v); isInt {
				return n
			}
		}
	}
	return 0
}

func fieldRange(raw map[string]any) Range {
	for _, key := range []string{"range", "valid_range", "validation"} {
		obj, ok := raw[key].(map[string]any)
		if !ok {
			continue
		}
		return Range{
			Start: anyString(obj["start"]),
			End:   anyString(obj["end"]),
			Step:  anyString(obj["step"]),
		}
	}
	return Range{}
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := anyString(raw[key]); s != "" {
			return s
		}
	}
	return ""
}

func anyString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return ""
	default:
		return ""
	}
}

func boolField(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0" && !strings.EqualFold(t, "false")
	default:
		return false
	}
}

// intValue parses the loosely-typed integers upstream sends as numbers or
// numeric strings.
func intValue(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, true
		}
		return 0, false
	case int:
		return t, true
	default:
		return 0, false
	}
}
