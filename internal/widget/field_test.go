package widget

import (
	"reflect"
	"testing"
)

func TestNormalizeOptionsShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want []Option
	}{
		{
			"array of objects",
			map[string]any{"options": []any{
				map[string]any{"value": "uk", "label": "United Kingdom"},
				map[string]any{"id": "fr", "name": "France"},
			}},
			[]Option{{Value: "uk", Label: "United Kingdom"}, {Value: "fr", Label: "France"}},
		},
		{
			"array of scalars",
			map[string]any{"choices": []any{"Adult", "Child"}},
			[]Option{{Value: "Adult", Label: "Adult"}, {Value: "Child", Label: "Child"}},
		},
		{
			"keyed mapping",
			map[string]any{"values": map[string]any{"a": "Alpha", "b": "Beta"}},
			[]Option{{Value: "a", Label: "Alpha"}, {Value: "b", Label: "Beta"}},
		},
		{
			"no options",
			map[string]any{},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeOptions(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeOptions = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFieldTypeNormalization(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"select with options", map[string]any{"type": "select", "options": []any{"a"}}, FieldSelect},
		{"option alias", map[string]any{"type": "option", "options": []any{"a"}}, FieldSelect},
		{"display select", map[string]any{"display": "select", "options": []any{"a"}}, FieldSelect},
		{"radio", map[string]any{"type": "radio", "options": []any{"a", "b"}}, FieldRadio},
		{"checkbox group", map[string]any{"type": "checkbox", "options": []any{"a", "b"}}, FieldCheckboxes},
		{"single checkbox", map[string]any{"type": "checkbox"}, FieldCheckbox},
		{"textarea", map[string]any{"type": "textarea"}, FieldTextarea},
		{"spin becomes number", map[string]any{"type": "spin"}, FieldNumber},
		{"phone", map[string]any{"type": "phone"}, FieldPhone},
		{"input alias", map[string]any{"input": "textarea"}, FieldTextarea},
		{"untyped defaults to text", map[string]any{}, FieldText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := normalizeField("f", tt.raw)
			if spec.Type != tt.want {
				t.Errorf("Type = %q, want %q", spec.Type, tt.want)
			}
		})
	}
}

func TestNormalizeFieldDefaultsAndConstraints(t *testing.T) {
	spec := normalizeField("guest_type", map[string]any{
		"label":    "Guest type",
		"type":     "select",
		"options":  []any{"Adult", "Child"},
		"required": "1",
		"default":  []any{"Adult"},
		"order":    "3",
		"range":    map[string]any{"start": "1", "end": "10", "step": "1"},
		"instructions": "Pick one",
	})

	if spec.Label != "Guest type" || !spec.Required {
		t.Errorf("label/required = %q/%v", spec.Label, spec.Required)
	}
	if !reflect.DeepEqual(spec.Defaults, []string{"Adult"}) {
		t.Errorf("Defaults = %v", spec.Defaults)
	}
	if spec.Weight != 3 {
		t.Errorf("Weight = %d, want 3", spec.Weight)
	}
	if spec.Range.End != "10" {
		t.Errorf("Range = %+v", spec.Range)
	}
	if spec.Help != "Pick one" {
		t.Errorf("Help = %q", spec.Help)
	}
}

func TestNormalizeFieldScalarDefaultAndValueAlias(t *testing.T) {
	spec := normalizeField("customer_email_optin", map[string]any{"value": float64(1)})
	if !reflect.DeepEqual(spec.Defaults, []string{"1"}) {
		t.Errorf("Defaults = %v", spec.Defaults)
	}
	if spec.Label != "customer_email_optin" {
		t.Errorf("Label should fall back to name, got %q", spec.Label)
	}
}

func TestFieldWeightAliases(t *testing.T) {
	for alias, want := range map[string]int{"order": 1, "weight": 2, "position": 3, "sort": 4} {
		spec := normalizeField("f", map[string]any{alias: float64(want)})
		if spec.Weight != want {
			t.Errorf("%s: Weight = %d, want %d", alias, spec.Weight, want)
		}
	}
}

func TestFieldWeightDefaultsToZero(t *testing.T) {
	spec := normalizeField("f", map[string]any{"label": "No ordering key"})
	if spec.Weight != 0 {
		t.Errorf("Weight = %d, want 0", spec.Weight)
	}
}

func TestUnweightedFieldsSortBeforeWeighted(t *testing.T) {
	rated, err := ParseRated([]byte(`{"item":{"param":{
		"guest_type": {"order": 5},
		"customer_name": {}
	}}}`))
	if err != nil {
		t.Fatalf("ParseRated error: %v", err)
	}
	got := make([]string, 0, len(rated.Fields))
	for _, f := range rated.Fields {
		got = append(got, f.Name)
	}
	if !reflect.DeepEqual(got, []string{"customer_name", "guest_type"}) {
		t.Errorf("field order = %v, want [customer_name guest_type]", got)
	}
}
