// Package booking implements the create-booking proxy: a two-step upstream
// transaction that turns a reservation slip plus submitted form fields into a
// Checkfront booking.
package booking

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/howstean/checkfront-widget/internal/checkfront"
	"github.com/howstean/checkfront-widget/pkg/logging"
)

// allowedFields is the customer-field allowlist forwarded to booking/create.
var allowedFields = []string{
	"customer_first_name",
	"customer_last_name",
	"customer_email",
	"customer_phone",
	"company_name",
	"customer_address",
	"customer_city",
	"customer_country",
	"customer_region",
	"customer_postal_zip",
	"how_did_you_hear_about_us",
	"other_please_specify",
	"search_engine_google_yahoo_etc",
	"guest_type",
	"customer_email_optin",
	"tc",
	"customer_tos_agree",
}

// ValidationError reports bad caller input; maps to HTTP 400.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string     { return e.Message }
func (e *ValidationError) HTTPStatus() int   { return http.StatusBadRequest }
func (e *ValidationError) ErrorCode() string { return e.Code }

// NoSessionError means the session call succeeded but carried no usable
// session id. Fatal for the attempt, never retried.
type NoSessionError struct {
	Response map[string]any
}

func (e *NoSessionError) Error() string {
	return "Could not determine session_id from booking/session response"
}
func (e *NoSessionError) HTTPStatus() int   { return http.StatusInternalServerError }
func (e *NoSessionError) ErrorCode() string { return "no_session" }
func (e *NoSessionError) ErrorBody() any    { return e.Response }

// CreateBookingRequest is the client payload for the create-booking endpoint.
// The terms flag is accepted in any of the three shapes clients have sent it.
type CreateBookingRequest struct {
	Slip          string         `json:"slip"`
	TOSAgree      any            `json:"customer_tos_agree"`
	Form          map[string]any `json:"form"`
	BookingPolicy map[string]any `json:"booking_policy"`
}

// Service executes the session-then-create booking transaction.
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

// CreateBooking runs both upstream steps. Either step's failure aborts the
// whole operation and surfaces that step's error verbatim; a session created
// before a failed create step is not rolled back (Checkfront offers no
// compensation call).
func (s *Service) CreateBooking(ctx context.Context, req CreateBookingRequest) (map[string]any, error) {
	slip := strings.TrimSpace(req.Slip)
	if slip == "" {
		return nil, &ValidationError{Code: "missing_slip", Message: "Missing SLIP parameter"}
	}

	sessionBody := url.Values{}
	sessionBody.Set("slip[]", slip)
	sessionResp, err := s.api.Post(ctx, "booking/session", sessionBody)
	if err != nil {
		return nil, err
	}

	sessionID := extractSessionID(sessionResp)
	if sessionID == "" {
		return nil, &NoSessionError{Response: sessionResp}
	}

	createBody := url.Values{}
	createBody.Set("session_id", sessionID)
	createBody.Set("customer_tos_agree", strconv.Itoa(tosFlag(req)))
	for name, value := range filterFormFields(req.Form) {
		createBody.Set("form["+name+"]", value)
	}

	createResp, err := s.api.Post(ctx, "booking/create", createBody)
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created", "session_id", sessionID)

	// Echo the session id so the caller can audit/correlate.
	createResp["_session_id"] = sessionID
	return createResp, nil
}

// extractSessionID tries the response shapes Checkfront has used, in order.
func extractSessionID(resp map[string]any) string {
	if booking, ok := resp["booking"].(map[string]any); ok {
		if session, ok := booking["session"].(map[string]any); ok {
			if id := stringValue(session["id"]); id != "" {
				return id
			}
		}
		if id := stringValue(booking["session_id"]); id != "" {
			return id
		}
	}
	return stringValue(resp["session_id"])
}

// tosFlag normalizes the terms-acceptance flag from its possible locations.
func tosFlag(req CreateBookingRequest) int {
	if v, ok := truthy(req.TOSAgree); ok {
		return v
	}
	if req.Form != nil {
		if v, ok := truthy(req.Form["customer_tos_agree"]); ok {
			return v
		}
	}
	if req.BookingPolicy != nil {
		if v, ok := truthy(req.BookingPolicy["customer_tos_agree"]); ok {
			return v
		}
	}
	return 0
}

func truthy(v any) (int, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case float64:
		if t != 0 {
			return 1, true
		}
		return 0, true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil && n != 0 {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// filterFormFields keeps allowed, scalar, non-empty values, sanitizing email
// separately from free text.
func filterFormFields(form map[string]any) map[string]string {
	out := map[string]string{}
	if form == nil {
		return out
	}
	for _, name := range allowedFields {
		raw, ok := form[name]
		if !ok {
			continue
		}
		value := scalarString(raw)
		if value == "" {
			continue
		}
		if name == "customer_email" {
			value = sanitizeEmail(value)
		} else {
			value = sanitizeText(value)
		}
		if value != "" {
			out[name] = value
		}
	}
	return out
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// scalarString renders a JSON scalar as its submitted text; lists and nested
// objects are dropped.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "1"
		}
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	controlPattern = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	emailPattern   = regexp.MustCompile("[^a-zA-Z0-9.!#$%&'*+/=?^_`{|}~@-]")
)

func sanitizeText(value string) string {
	value = tagPattern.ReplaceAllString(value, "")
	value = controlPattern.ReplaceAllString(value, " ")
	return strings.Join(strings.Fields(value), " ")
}

func sanitizeEmail(value string) string {
	return emailPattern.ReplaceAllString(strings.TrimSpace(value), "")
}
