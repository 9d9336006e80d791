// Package widget is the headless booking widget: it owns the client-side
// selection state (dates, quantity, timeslot), parses rated availability
// responses, validates the dynamic booking form and drives the two proxy
// endpoints.
package widget

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Timeslot is a bookable time window within a day.
type Timeslot struct {
	Start  string `json:"start_time"`
	End    string `json:"end_time"`
	Status string `json:"status"`
}

// Rate is the availability view of an item for the queried range.
type Rate struct {
	Status    string
	Available *int
	Slip      string
	Summary   map[string]any
	Timeslots []Timeslot
}

// Rated is the parsed item-rated response.
type Rated struct {
	HasItem   bool
	ItemName  string
	Fields    []FieldSpec
	MinQty    int
	MaxQty    int
	Rate      *Rate
	FormError string
}

// ParseRated decodes an item-rated response. Ordering matters twice: dynamic
// form fields tie-break on document order, and the timeslot list comes from
// the first date bucket; both are recovered with a token walk since Go maps
// do not keep JSON key order.
func ParseRated(data []byte) (*Rated, error) {
	var doc struct {
		Item      json.RawMessage `json:"item"`
		FormError string          `json:"form_error"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("widget: decode rated response: %w", err)
	}

	out := &Rated{FormError: doc.FormError}
	if len(doc.Item) == 0 || bytes.Equal(doc.Item, []byte("null")) {
		return out, nil
	}

	var item map[string]json.RawMessage
	if err := json.Unmarshal(doc.Item, &item); err != nil {
		return nil, fmt.Errorf("widget: decode item: %w", err)
	}
	out.HasItem = true

	if raw, ok := item["name"]; ok {
		_ = json.Unmarshal(raw, &out.ItemName)
	}

	if raw, ok := item["param"]; ok {
		out.Fields = parseFields(raw)
	}

	if raw, ok := item["rules"]; ok {
		out.MinQty, out.MaxQty = parseRuleBounds(raw)
	}

	if raw, ok := item["rate"]; ok && !bytes.Equal(raw, []byte("null")) {
		rate, err := parseRate(raw)
		if err != nil {
			return nil, err
		}
		out.Rate = rate
	}

	return out, nil
}

// parseFields normalizes the dynamic field map, sorted by ascending ordering
// weight with document order breaking ties.
func parseFields(raw json.RawMessage) []FieldSpec {
	var specs map[string]map[string]any
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil
	}

	fields := make([]FieldSpec, 0, len(specs))
	for _, name := range orderedKeys(raw) {
		spec, ok := specs[name]
		if !ok {
			continue
		}
		fields = append(fields, normalizeField(name, spec))
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Weight < fields[j].Weight
	})
	return fields
}

func parseRate(raw json.RawMessage) (*Rate, error) {
	var obj struct {
		Status    string          `json:"status"`
		Available any             `json:"available"`
		Slip      string          `json:"slip"`
		Summary   map[string]any  `json:"summary"`
		Dates     json.RawMessage `json:"dates"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("widget: decode rate: %w", err)
	}

	rate := &Rate{
		Status:  obj.Status,
		Slip:    obj.Slip,
		Summary: obj.Summary,
	}
	if n, ok := intValue(obj.Available); ok {
		rate.Available = &n
	}

	// Timeslots live under the first date of the per-date breakdown.
	if len(obj.Dates) > 0 {
		if keys := orderedKeys(obj.Dates); len(keys) > 0 {
			var days map[string]struct {
				Timeslots []Timeslot `json:"timeslots"`
			}
			if err := json.Unmarshal(obj.Dates, &days); err == nil {
				rate.Timeslots = days[keys[0]].Timeslots
			}
		}
	}
	return rate, nil
}

// parseRuleBounds reads MIN/MAX from the first entry of the rules parameter
// map. Rules arrive either as an object or as a JSON-encoded string.
func parseRuleBounds(raw json.RawMessage) (minQty, maxQty int) {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}

	var rules struct {
		Param json.RawMessage `json:"param"`
	}
	if err := json.Unmarshal(raw, &rules); err != nil || len(rules.Param) == 0 {
		return 0, 0
	}

	keys := orderedKeys(rules.Param)
	if len(keys) == 0 {
		return 0, 0
	}
	var params map[string]map[string]any
	if err := json.Unmarshal(rules.Param, &params); err != nil {
		return 0, 0
	}
	first := params[keys[0]]
	if n, ok := intValue(first["MIN"]); ok {
		minQty = n
	}
	if n, ok := intValue(first["MAX"]); ok {
		maxQty = n
	}
	return minQty, maxQty
}

// orderedKeys returns the keys of a JSON object in document order.
func orderedKeys(raw json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil
		}
		keys = append(keys, key)
		if err := skipValue(dec); err != nil {
			return nil
		}
	}
	return keys
}

func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil
	}
	for dec.More() {
		if delim == '{' {
			if _, err := dec.Token(); err != nil { // key
				return err
			}
		}
		if err := skipValue(dec); err != nil {
			return err
		}
	}
	_, err = dec.Token() // closing delimiter
	return err
}
