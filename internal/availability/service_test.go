package availability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/howstean/checkfront-widget/internal/checkfront"
)

// fakeUpstream serves item metadata, rate queries and the booking form the
// way the Checkfront API shapes them.
type fakeUpstream struct {
	rules       string
	rateQueries []string
	formStatus  int
	formFields  map[string]any
}

func (f *fakeUpstream) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/3.0/item/"):
			if r.URL.RawQuery != "" {
				f.rateQueries = append(f.rateQueries, r.URL.RawQuery)
			}
			item := map[string]any{
				"name":  "Gorge Walk",
				"param": map[string]any{"customer_name": map[string]any{"label": "Name", "required": true}},
				"rate": map[string]any{
					"status":    "AVAILABLE",
					"available": 5,
					"slip":      "ABC@09:00XDEF",
				},
			}
			if f.rules != "" {
				item["rules"] = f.rules
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"item": item})
		case r.URL.Path == "/api/3.0/booking/form":
			if f.formStatus >= 400 {
				w.WriteHeader(f.formStatus)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "form unavailable"})
				return
			}
			fields := f.formFields
			if fields == nil {
				fields = map[string]any{}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"booking_form_ui": fields})
		default:
			t.Errorf("unexpected upstream path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestService(t *testing.T, up *fakeUpstream) *Service {
	t.Helper()
	ts := httptest.NewServer(up.handler(t))
	t.Cleanup(ts.Close)
	return NewService(checkfront.NewClient(ts.URL, "key", "secret", nil), nil)
}

func TestRatedItemValidation(t *testing.T) {
	svc := newTestService(t, &fakeUpstream{})

	tests := []struct {
		name string
		req  RatedItemRequest
		code string
	}{
		{"missing item", RatedItemRequest{Date: "2024-06-01", Qty: 1}, "missing_item"},
		{"missing date", RatedItemRequest{ItemID: 123, Qty: 1}, "missing_date"},
		{"zero qty", RatedItemRequest{ItemID: 123, Date: "2024-06-01"}, "missing_qty"},
		{"bad date", RatedItemRequest{ItemID: 123, Date: "june first", Qty: 1}, "bad_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RatedItem(context.Background(), tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Code != tt.code {
				t.Errorf("Code = %s, want %s", verr.Code, tt.code)
			}
		})
	}
}

func TestRatedItemForcesMinimumStay(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		endDate string
		wantEnd string
	}{
		{"end missing", "2024-06-01", "", "20240602"},
		{"end equals start", "2024-06-01", "2024-06-01", "20240602"},
		{"end before start", "2024-06-05", "2024-06-01", "20240606"},
		{"end after start kept", "2024-06-01", "2024-06-03", "20240603"},
		{"compact dates accepted", "20240601", "20240601", "20240602"},
		{"month rollover", "2024-06-30", "2024-06-30", "20240701"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUpstream{}
			svc := newTestService(t, up)

			_, err := svc.RatedItem(context.Background(), RatedItemRequest{
				ItemID: 123, Date: tt.date, EndDate: tt.endDate, Qty: 1,
			})
			if err != nil {
				t.Fatalf("RatedItem error: %v", err)
			}
			if len(up.rateQueries) != 1 {
				t.Fatalf("rate queries = %v", up.rateQueries)
			}
			if !strings.Contains(up.rateQueries[0], "end_date="+tt.wantEnd) {
				t.Errorf("query %q, want end_date=%s", up.rateQueries[0], tt.wantEnd)
			}
		})
	}
}

func TestRatedItemResolvesPerUnitParam(t *testing.T) {
	up := &fakeUpstream{rules: `{"param":{"pergroup":{"MIN":"1","MAX":"10"},"perperson":{}}}`}
	svc := newTestService(t, up)

	_, err := svc.RatedItem(context.Background(), RatedItemRequest{ItemID: 123, Date: "2024-06-01", Qty: 4})
	if err != nil {
		t.Fatalf("RatedItem error: %v", err)
	}
	if !strings.Contains(up.rateQueries[0], "param%5Bpergroup%5D=4") {
		t.Errorf("query %q, want param[pergroup]=4", up.rateQueries[0])
	}
}

func TestRatedItemDefaultParamName(t *testing.T) {
	up := &fakeUpstream{} // no rules at all
	svc := newTestService(t, up)

	_, err := svc.RatedItem(context.Background(), RatedItemRequest{ItemID: 123, Date: "2024-06-01", Qty: 2})
	if err != nil {
		t.Fatalf("RatedItem error: %v", err)
	}
	if !strings.Contains(up.rateQueries[0], "param%5Bperperson%5D=2") {
		t.Errorf("query %q, want param[perperson]=2", up.rateQueries[0])
	}
}

func TestRatedItemMergesFormFieldsAdditively(t *testing.T) {
	up := &fakeUpstream{
		formFields: map[string]any{
			"customer_name":  map[string]any{"label": "Overridden"},
			"customer_email": map[string]any{"label": "Email", "required": true},
		},
	}
	svc := newTestService(t, up)

	rated, err := svc.RatedItem(context.Background(), RatedItemRequest{ItemID: 123, Date: "2024-06-01", Qty: 1})
	if err != nil {
		t.Fatalf("RatedItem error: %v", err)
	}

	params := rated["item"].(map[string]any)["param"].(map[string]any)
	existing := params["customer_name"].(map[string]any)
	if existing["label"] != "Name" {
		t.Errorf("existing param overwritten: %v", existing)
	}
	added, ok := params["customer_email"].(map[string]any)
	if !ok || added["label"] != "Email" {
		t.Errorf("form field not merged: %v", params)
	}
}

func TestRatedItemSurvivesFormFetchFailure(t *testing.T) {
	up := &fakeUpstream{formStatus: http.StatusInternalServerError}
	svc := newTestService(t, up)

	rated, err := svc.RatedItem(context.Background(), RatedItemRequest{ItemID: 123, Date: "2024-06-01", Qty: 1})
	if err != nil {
		t.Fatalf("availability must not fail on form fetch error, got %v", err)
	}
	if _, ok := rated["form_error"].(string); !ok {
		t.Errorf("expected form_error annotation, got %v", rated["form_error"])
	}
	if _, ok := rated["item"]; !ok {
		t.Error("rate response missing item")
	}
}

func TestPerUnitParamNameShapes(t *testing.T) {
	tests := []struct {
		name  string
		rules any
		want  string
	}{
		{"nil rules", nil, "perperson"},
		{"string rules first key", `{"param":{"perday":{},"perperson":{}}}`, "perday"},
		{"string rules empty param", `{"param":{}}`, "perperson"},
		{"garbage string", "not json", "perperson"},
		{"decoded single key", map[string]any{"param": map[string]any{"pernight": map[string]any{}}}, "pernight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := perUnitParamName(tt.rules); got != tt.want {
				t.Errorf("perUnitParamName = %q, want %q", got, tt.want)
			}
		})
	}
}
