// Package availability implements the item-rated proxy: it translates the
// widget's simplified query into Checkfront rate-query parameters and
// best-effort enriches the response with the booking form definition.
package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/howstean/checkfront-widget/internal/checkfront"
	"github.com/howstean/checkfront-widget/pkg/logging"
)

// defaultParamName is used when the item rules carry no parameter map.
const defaultParamName = "perperson"

// ValidationError reports bad caller input. It is terminal for the call and
// maps to HTTP 400.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string     { return e.Message }
func (e *ValidationError) HTTPStatus() int   { return http.StatusBadRequest }
func (e *ValidationError) ErrorCode() string { return e.Code }

// shapeError reports an upstream response missing the expected item document.
type shapeError struct{ message string }

func (e *shapeError) Error() string     { return e.message }
func (e *shapeError) HTTPStatus() int   { return http.StatusInternalServerError }
func (e *shapeError) ErrorCode() string { return "no_item" }

// RatedItemRequest is the simplified availability query from the widget.
type RatedItemRequest struct {
	ItemID  int
	Date    string
	EndDate string
	Qty     int
}

// Service resolves rated availability for an item.
type Service struct {
	api    *checkfront.Client
	logger *logging.Logger
}

func NewService(api *checkfront.Client, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{api: api, logger: logger}
}

// RatedItem validates the query, resolves the item's per-unit parameter name,
// issues the rate query and merges in the booking form definition. A failing
// form fetch never fails the call: the response is annotated with form_error
// instead.
func (s *Service) RatedItem(ctx context.Context, req RatedItemRequest) (map[string]any, error) {
	if req.ItemID <= 0 {
		return nil, &ValidationError{Code: "missing_item", Message: "Item ID is required."}
	}
	if strings.TrimSpace(req.Date) == "" {
		return nil, &ValidationError{Code: "missing_date", Message: "Date is required."}
	}
	if req.Qty < 1 {
		return nil, &ValidationError{Code: "missing_qty", Message: "At least one participant is required."}
	}

	start, err := parseDate(req.Date)
	if err != nil {
		return nil, &ValidationError{Code: "bad_date", Message: "Invalid date format."}
	}

	itemPath := "item/" + strconv.Itoa(req.ItemID)

	meta, err := s.api.Get(ctx, itemPath, nil)
	if err != nil {
		return nil, err
	}
	item, ok := meta["item"].(map[string]any)
	if !ok || len(item) == 0 {
		return nil, &shapeError{message: "Unable to load item from Checkfront."}
	}

	paramName := perUnitParamName(item["rules"])

	// Minimum one-unit stay: a missing or non-forward end date becomes
	// start + 1 day.
	end := start.AddDate(0, 0, 1)
	if req.EndDate != "" {
		if parsed, perr := parseDate(req.EndDate); perr == nil && parsed.After(start) {
			end = parsed
		}
	}

	startYmd := start.Format("20060102")
	endYmd := end.Format("20060102")

	query := url.Values{}
	query.Set("start_date", startYmd)
	query.Set("end_date", endYmd)
	query.Set("param["+paramName+"]", strconv.Itoa(req.Qty))

	rated, err := s.api.Get(ctx, itemPath, query)
	if err != nil {
		return nil, err
	}

	s.mergeFormFields(ctx, rated, req.ItemID, startYmd, endYmd)
	return rated, nil
}

// mergeFormFields fetches the booking form definition and folds it into the
// rated item's param map. Existing entries win; failures only annotate.
func (s *Service) mergeFormFields(ctx context.Context, rated map[string]any, itemID int, startYmd, endYmd string) {
	query := url.Values{}
	query.Set("item_id", strconv.Itoa(itemID))
	query.Set("start_date", startYmd)
	query.Set("end_date", endYmd)

	form, err := s.api.Get(ctx, "booking/form", query)
	if err != nil {
		s.logger.Warn("booking form fetch failed", "item_id", itemID, "error", err)
		rated["form_error"] = err.Error()
		return
	}

	fields := formFieldDefinitions(form)
	if len(fields) == 0 {
		return
	}

	item, ok := rated["item"].(map[string]any)
	if !ok {
		return
	}
	params, ok := item["param"].(map[string]any)
	if !ok {
		params = map[string]any{}
		item["param"] = params
	}
	for name, spec := range fields {
		if _, exists := params[name]; !exists {
			params[name] = spec
		}
	}
}

// formFieldDefinitions extracts the field-spec map from the booking/form
// response, accepting the shapes Checkfront has used over time.
func formFieldDefinitions(form map[string]any) map[string]any {
	for _, key := range []string{"booking_form_ui", "form", "fields"} {
		if m, ok := form[key].(map[string]any); ok && len(m) > 0 {
			return m
		}
	}
	return nil
}

// perUnitParamName reads the first key of the item rules' parameter map.
// Rules arrive either as a JSON-encoded string or as an already-decoded
// object; only the string form preserves key order, so it is scanned
// token-wise.
func perUnitParamName(rules any) string {
	switch v := rules.(type) {
	case string:
		if name := firstParamKeyFromJSON(v); name != "" {
			return name
		}
	case map[string]any:
		if params, ok := v["param"].(map[string]any); ok && len(params) > 0 {
			if len(params) == 1 {
				for name := range params {
					return name
				}
			}
			// Decoded maps lose document order; fall back to the
			// lexically first key so the choice stays deterministic.
			first := ""
			for name := range params {
				if first == "" || name < first {
					first = name
				}
			}
			return first
		}
	}
	return defaultParamName
}

// firstParamKeyFromJSON walks the rules document and returns the first key of
// its "param" object in document order.
func firstParamKeyFromJSON(rules string) string {
	var doc struct {
		Param json.RawMessage `json:"param"`
	}
	if err := json.Unmarshal([]byte(rules), &doc); err != nil || len(doc.Param) == 0 {
		return ""
	}

	dec := json.NewDecoder(strings.NewReader(string(doc.Param)))
	tok, err := dec.Token()
	if err != nil {
		return ""
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ""
	}
	tok, err = dec.Token()
	if err != nil {
		return ""
	}
	if key, ok := tok.(string); ok {
		return key
	}
	return ""
}

// parseDate accepts the wire formats used between widget and proxy.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
