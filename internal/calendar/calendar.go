// Package calendar renders a month-view availability picker on top of the
// widget. Each render probes rated availability once per visible day and
// colors the day from the outcome; selecting a day feeds the start date back
// into the widget controller.
package calendar

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/howstean/checkfront-widget/internal/widget"
	"github.com/howstean/checkfront-widget/pkg/logging"
)

// DayStatus is the availability color of one calendar cell.
type DayStatus string

const (
	// DayPending means the probe for this day has not completed yet.
	DayPending DayStatus = "pending"
	// DayClosed covers past days and days whose probe failed or returned no
	// rate block.
	DayClosed DayStatus = "closed"
	// DayAvailable means the day can be booked.
	DayAvailable DayStatus = "available"
	// DaySoldOut means the day exists but has no remaining capacity.
	DaySoldOut DayStatus = "sold_out"
)

const dayKeyFormat = "2006-01-02"

// Day is one cell of the rendered grid.
type Day struct {
	Date     time.Time
	InMonth  bool
	Selected bool
	Status   DayStatus
}

// View is a rendered month. Weeks run Monday to Sunday; leading and trailing
// cells outside the month carry InMonth=false and are never probed.
type View struct {
	Year  int
	Month time.Month
	Weeks [][]Day
}

// AvailabilityProbe fetches rated availability for one day. Satisfied by
// widget.ProxyClient.
type AvailabilityProbe interface {
	ItemRated(ctx context.Context, itemID, date, endDate string, qty int) (*widget.Rated, error)
}

// Calendar probes and caches day statuses for the month under its cursor.
// Probes run concurrently and are keyed by a render generation; a probe
// result that lands after the cursor moved on is dropped.
type Calendar struct {
	probe      AvailabilityProbe
	controller *widget.Controller
	logger     *logging.Logger

	mu     sync.Mutex
	cursor time.Time // first day of the displayed month
	days   map[string]DayStatus
	gen    uint64
	now    func() time.Time

	wg sync.WaitGroup
}

// New creates a calendar over the given probe and widget controller. The
// cursor starts on the month of the widget's start date.
func New(probe AvailabilityProbe, controller *widget.Controller, logger *logging.Logger) *Calendar {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Calendar{
		probe:      probe,
		controller: controller,
		logger:     logger,
		days:       make(map[string]DayStatus),
		now:        time.Now,
	}
	start := controller.State().StartDate
	c.cursor = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	return c
}

// Cursor returns the first day of the displayed month.
func (c *Calendar) Cursor() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Next advances the cursor one month and starts probing it.
func (c *Calendar) Next(ctx context.Context) {
	c.shift(ctx, 1)
}

// Prev moves the cursor one month back and starts probing it.
func (c *Calendar) Prev(ctx context.Context) {
	c.shift(ctx, -1)
}

func (c *Calendar) shift(ctx context.Context, months int) {
	c.mu.Lock()
	c.cursor = c.cursor.AddDate(0, months, 0)
	c.mu.Unlock()
	c.Refresh(ctx)
}

// ErrDayUnavailable is returned by Select for a day the probes marked closed
// or sold out.
var ErrDayUnavailable = errors.New("calendar: day is not available")

// Select books a day into the widget: the start date moves there and the
// widget refreshes its availability. Days already known to be closed or sold
// out are refused; days with an unknown or pending status go through.
func (c *Calendar) Select(ctx context.Context, date time.Time) error {
	c.mu.Lock()
	status := c.days[midnight(date).Format(dayKeyFormat)]
	c.mu.Unlock()
	if status == DayClosed || status == DaySoldOut {
		return ErrDayUnavailable
	}
	return c.controller.SetStartDate(ctx, date)
}

// Refresh re-probes every in-month day that is not in the past. Each day gets
// its own goroutine; results from an earlier refresh are discarded.
func (c *Calendar) Refresh(ctx context.Context) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	cursor := c.cursor
	c.days = make(map[string]DayStatus)

	today := midnight(c.now())
	state := c.controller.State()

	var probeDays []time.Time
	for day := cursor; day.Month() == cursor.Month(); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayKeyFormat)
		if day.Before(today) {
			c.days[key] = DayClosed
			continue
		}
		c.days[key] = DayPending
		probeDays = append(probeDays, day)
	}
	c.mu.Unlock()

	for _, day := range probeDays {
		c.wg.Add(1)
		go func(day time.Time) {
			defer c.wg.Done()
			c.probeDay(ctx, gen, day, state)
		}(day)
	}
}

// Wait blocks until all in-flight probes have completed.
func (c *Calendar) Wait() {
	c.wg.Wait()
}

func (c *Calendar) probeDay(ctx context.Context, gen uint64, day time.Time, state widget.State) {
	end := state.EndDate
	if !end.After(day) {
		end = day.AddDate(0, 0, 1)
	}

	// Probes always ask for a single unit. The cell shows whether the day can
	// be booked at all; the widget re-rates with the real quantity on select.
	rated, err := c.probe.ItemRated(ctx, state.ItemID,
		day.Format(dayKeyFormat), end.Format(dayKeyFormat), 1)

	status := dayStatus(rated, err)
	if err != nil {
		c.logger.Warn("calendar probe failed",
			"item_id", state.ItemID, "date", day.Format(dayKeyFormat), "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.days[day.Format(dayKeyFormat)] = status
}

// dayStatus maps a probe outcome to a cell color.
func dayStatus(rated *widget.Rated, err error) DayStatus {
	if err != nil || rated == nil || rated.Rate == nil {
		return DayClosed
	}
	if !strings.EqualFold(rated.Rate.Status, "AVAILABLE") {
		return DaySoldOut
	}
	if rated.Rate.Available != nil && *rated.Rate.Available <= 0 {
		return DaySoldOut
	}
	return DayAvailable
}

// View renders the cursor month as Monday-first weeks. Out-of-month filler
// cells are closed; the widget's current start date is marked selected.
func (c *Calendar) View() View {
	selected := c.controller.State().StartDate

	c.mu.Lock()
	defer c.mu.Unlock()

	first := c.cursor
	// Walk back to the Monday on or before the first of the month.
	lead := (int(first.Weekday()) + 6) % 7
	cell := first.AddDate(0, 0, -lead)

	view := View{Year: first.Year(), Month: first.Month()}
	for {
		week := make([]Day, 0, 7)
		for i := 0; i < 7; i++ {
			day := Day{
				Date:     cell,
				InMonth:  cell.Month() == first.Month(),
				Selected: cell.Equal(midnight(selected)),
			}
			if day.InMonth {
				day.Status = c.days[cell.Format(dayKeyFormat)]
				if day.Status == "" {
					day.Status = DayPending
				}
			} else {
				day.Status = DayClosed
			}
			week = append(week, day)
			cell = cell.AddDate(0, 0, 1)
		}
		view.Weeks = append(view.Weeks, week)
		if cell.Month() != first.Month() {
			break
		}
	}
	return view
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
