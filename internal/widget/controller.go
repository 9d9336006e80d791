package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/howstean/checkfront-widget/pkg/logging"
)

// Phase is the widget's lifecycle state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseRated   Phase = "rated"
	PhaseBooking Phase = "booking"
	PhaseSuccess Phase = "success"
)

const (
	defaultMinQty = 1
	defaultMaxQty = 60

	contactErrorMessage = "Error contacting Checkfront. Please try again."
	pendingReference    = "(pending reference)"
)

var (
	// ErrBusy means a call is in flight; the triggering control is disabled.
	ErrBusy = errors.New("widget: request already in flight")
	// ErrNoSlip means no reservation slip is held yet.
	ErrNoSlip = errors.New("widget: no reservation slip held; check availability first")
	// ErrTermsNotAccepted means the terms-of-service box was not ticked.
	ErrTermsNotAccepted = errors.New("widget: terms of service not accepted")
)

// MissingFieldsError lists required fields left empty on submit, in form
// order. No network call is made when it is returned.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// BookingError is a booking/create response that came back HTTP-successful
// but carried an upstream error block.
type BookingError struct {
	Details string
}

func (e *BookingError) Error() string {
	if e.Details == "" {
		return "There was a problem completing your booking."
	}
	return "There was a problem completing your booking: " + e.Details
}

// API is the widget's view of the two proxy endpoints.
type API interface {
	ItemRated(ctx context.Context, itemID, date, endDate string, qty int) (*Rated, error)
	CreateBooking(ctx context.Context, req BookingSubmission) (map[string]any, error)
}

// BookingSubmission is the payload handed to the booking endpoint.
type BookingSubmission struct {
	Slip     string
	TOSAgree bool
	Form     map[string]any
}

// State is the widget's mutable view model. One instance per page view; no
// persistence.
type State struct {
	ItemID    string
	StartDate time.Time
	EndDate   time.Time

	Qty    int
	MinQty int
	MaxQty int

	ItemName  string
	Fields    []FieldSpec
	Timeslots []Timeslot

	SelectedTimeslot int
	BaseSlip         string
	Slip             string

	Status    string
	Available *int
	Summary   map[string]any
	FormError string

	Loading      bool
	Phase        Phase
	Message      string
	Confirmation string
}

// FormVisible reports whether the dynamic booking form should be shown.
func (s State) FormVisible() bool { return s.Slip != "" }

// CanCheck reports whether the availability control is enabled.
func (s State) CanCheck() bool { return !s.Loading }

// CanSubmit reports whether the booking control is enabled.
func (s State) CanSubmit() bool { return !s.Loading && s.Slip != "" }

// Controller owns the widget state and serializes every mutation. Network
// completions apply "last response wins": a stale availability response is
// still applied unless DiscardStaleResponses is set.
type Controller struct {
	api    API
	logger *logging.Logger

	// DiscardStaleResponses drops availability responses that were
	// superseded by a newer request before they arrived. Off by default to
	// keep the historical last-response-wins behavior.
	DiscardStaleResponses bool

	mu         sync.Mutex
	state      State
	fetchGen   uint64
	appliedGen uint64
	now        func() time.Time
}

// NewController creates a widget controller for one bookable item. The date
// range starts as today to tomorrow with a single participant.
func NewController(api API, itemID string, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Controller{
		api:    api,
		logger: logger,
		now:    time.Now,
	}
	today := midnight(c.now())
	c.state = State{
		ItemID:    itemID,
		StartDate: today,
		EndDate:   today.AddDate(0, 0, 1),
		Qty:       1,
		MinQty:    defaultMinQty,
		MaxQty:    defaultMaxQty,
		Phase:     PhaseIdle,
	}
	return c
}

// State returns a snapshot of the current widget state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetStartDate selects a new check-in date. A check-out date that is no
// longer strictly after it is pushed to the following day, then availability
// is refreshed.
func (c *Controller) SetStartDate(ctx context.Context, date time.Time) error {
	c.mu.Lock()
	c.state.StartDate = midnight(date)
	if !c.state.EndDate.After(c.state.StartDate) {
		c.state.EndDate = c.state.StartDate.AddDate(0, 0, 1)
	}
	c.mu.Unlock()
	return c.refresh(ctx)
}

// SetEndDate selects a new check-out date. A date not strictly after the
// check-in collapses to check-in plus one day, then availability refreshes.
func (c *Controller) SetEndDate(ctx context.Context, date time.Time) error {
	c.mu.Lock()
	date = midnight(date)
	if !date.After(c.state.StartDate) {
		date = c.state.StartDate.AddDate(0, 0, 1)
	}
	c.state.EndDate = date
	c.mu.Unlock()
	return c.refresh(ctx)
}

// IncrementQty raises the participant count by one. At the upper bound this
// is a no-op and no request is issued.
func (c *Controller) IncrementQty(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Qty >= c.state.MaxQty {
		c.mu.Unlock()
		return nil
	}
	c.state.Qty++
	c.mu.Unlock()
	return c.refresh(ctx)
}

// DecrementQty lowers the participant count by one. At the lower bound this
// is a no-op and no request is issued.
func (c *Controller) DecrementQty(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Qty <= c.state.MinQty {
		c.mu.Unlock()
		return nil
	}
	c.state.Qty--
	c.mu.Unlock()
	return c.refresh(ctx)
}

// SelectTimeslot changes the active timeslot and recomputes the active slip.
// It never re-fetches availability.
func (c *Controller) SelectTimeslot(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.state.Timeslots) {
		return fmt.Errorf("widget: timeslot index %d out of range", index)
	}
	c.state.SelectedTimeslot = index
	c.state.Slip = SubstituteSlipTime(c.state.BaseSlip, c.state.Timeslots[index].Start)
	return nil
}

// CheckAvailability fetches rated availability for the current query.
func (c *Controller) CheckAvailability(ctx context.Context) error {
	return c.refresh(ctx)
}

func (c *Controller) refresh(ctx context.Context) error {
	c.mu.Lock()
	c.state.Loading = true
	c.state.Phase = PhaseLoading
	c.fetchGen++
	gen := c.fetchGen
	itemID := c.state.ItemID
	date := c.state.StartDate.Format("2006-01-02")
	endDate := c.state.EndDate.Format("2006-01-02")
	qty := c.state.Qty
	c.mu.Unlock()

	rated, err := c.api.ItemRated(ctx, itemID, date, endDate, qty)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false

	if err != nil {
		c.logger.Error("availability fetch failed", "item_id", itemID, "error", err)
		c.state.Message = contactErrorMessage
		if c.state.Slip != "" {
			c.state.Phase = PhaseRated
		} else {
			c.state.Phase = PhaseIdle
		}
		return err
	}

	if c.DiscardStaleResponses && gen < c.appliedGen {
		// A newer response already landed; this one is stale.
		return nil
	}
	c.appliedGen = gen
	c.applyRated(rated)
	return nil
}

// applyRated folds an availability response into the state. Caller holds the
// lock.
func (c *Controller) applyRated(rated *Rated) {
	if rated == nil || !rated.HasItem {
		c.state.Message = "No availability data returned."
		c.state.Phase = PhaseIdle
		return
	}

	c.state.ItemName = rated.ItemName
	c.state.Fields = rated.Fields
	c.state.FormError = rated.FormError

	if rated.MinQty > 0 {
		c.state.MinQty = rated.MinQty
	}
	if rated.MaxQty > 0 {
		c.state.MaxQty = rated.MaxQty
	}
	if c.state.Qty < c.state.MinQty {
		c.state.Qty = c.state.MinQty
	}
	if c.state.Qty > c.state.MaxQty {
		c.state.Qty = c.state.MaxQty
	}

	if rated.Rate == nil {
		c.state.Message = "No rated response from Checkfront."
		c.state.Phase = PhaseIdle
		return
	}

	// Preserve the previously selected slot by start time if possible.
	previousStart := ""
	if c.state.SelectedTimeslot >= 0 && c.state.SelectedTimeslot < len(c.state.Timeslots) {
		previousStart = c.state.Timeslots[c.state.SelectedTimeslot].Start
	}

	c.state.Status = rated.Rate.Status
	c.state.Available = rated.Rate.Available
	c.state.Summary = rated.Rate.Summary
	c.state.BaseSlip = rated.Rate.Slip
	c.state.Slip = rated.Rate.Slip
	c.state.Timeslots = rated.Rate.Timeslots

	selected := 0
	for i, ts := range c.state.Timeslots {
		if previousStart != "" && ts.Start == previousStart {
			selected = i
			break
		}
	}
	c.state.SelectedTimeslot = selected
	if len(c.state.Timeslots) > 0 {
		c.state.Slip = SubstituteSlipTime(c.state.BaseSlip, c.state.Timeslots[selected].Start)
	}

	c.state.Message = ""
	c.state.Phase = PhaseRated
}

// Submit validates the rendered form values and creates the booking.
// values maps field name to a scalar string or a []string for multi-value
// controls. On success the returned string is the booking reference.
func (c *Controller) Submit(ctx context.Context, values map[string]any) (string, error) {
	c.mu.Lock()
	if c.state.Loading {
		c.mu.Unlock()
		return "", ErrBusy
	}
	if c.state.Slip == "" {
		c.mu.Unlock()
		return "", ErrNoSlip
	}

	form, missing := collectForm(c.state.Fields, values)
	if len(missing) > 0 {
		c.mu.Unlock()
		return "", &MissingFieldsError{Fields: missing}
	}

	tosAgreed := boolField(form["customer_tos_agree"])
	if !tosAgreed {
		c.mu.Unlock()
		return "", ErrTermsNotAccepted
	}

	slip := c.state.Slip
	c.state.Loading = true
	c.state.Phase = PhaseBooking
	c.mu.Unlock()

	resp, err := c.api.CreateBooking(ctx, BookingSubmission{
		Slip:     slip,
		TOSAgree: tosAgreed,
		Form:     form,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false

	if err != nil {
		c.logger.Error("booking submit failed", "error", err)
		c.state.Message = contactErrorMessage
		c.state.Phase = PhaseRated
		return "", err
	}
	if detail := upstreamErrorDetails(resp); detail != nil {
		c.state.Message = detail.Error()
		c.state.Phase = PhaseRated
		return "", detail
	}

	ref := bookingReference(resp)
	c.state.Confirmation = ref
	c.state.Message = ""
	c.state.Phase = PhaseSuccess
	return ref, nil
}

// collectForm normalizes submitted values against the rendered field list
// and reports empty required fields in form order.
func collectForm(fields []FieldSpec, values map[string]any) (map[string]any, []string) {
	form := make(map[string]any, len(fields))
	var missing []string

	for _, field := range fields {
		value := normalizeValue(values[field.Name])
		if field.Required && valueEmpty(value) {
			missing = append(missing, field.Name)
		}
		form[field.Name] = value
	}
	return form, missing
}

// normalizeValue collapses multi-value selections: a list keeps its list
// shape only when more than one entry is chosen.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case []string:
		switch len(t) {
		case 0:
			return ""
		case 1:
			return t[0]
		default:
			return t
		}
	case []any:
		out := make([]string, 0, len(t))
		for _, entry := range t {
			out = append(out, anyString(entry))
		}
		return normalizeValue(out)
	case string:
		return strings.TrimSpace(t)
	default:
		return anyString(t)
	}
}

func valueEmpty(v any) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	default:
		return v == nil
	}
}

// upstreamErrorDetails detects the soft-error shape booking/create can
// return inside an HTTP 200.
func upstreamErrorDetails(resp map[string]any) *BookingError {
	request, ok := resp["request"].(map[string]any)
	if !ok {
		return nil
	}
	errBlock, ok := request["error"].(map[string]any)
	if !ok {
		return nil
	}
	details, _ := errBlock["details"].(string)
	return &BookingError{Details: details}
}

// bookingReference resolves the confirmation reference from the shapes the
// create response can take.
func bookingReference(resp map[string]any) string {
	var id, ref string
	if booking, ok := resp["booking"].(map[string]any); ok {
		id = anyString(booking["booking_id"])
		ref = anyString(booking["id"])
		if code := anyString(booking["code"]); code != "" {
			ref = code
		}
	}
	if ref == "" {
		ref = anyString(resp["booking_id"])
	}
	if ref != "" {
		return ref
	}
	if id != "" {
		return id
	}
	return pendingReference
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
