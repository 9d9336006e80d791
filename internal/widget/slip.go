package widget

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// slipTimePattern matches the time component embedded in a reservation slip:
// <prefix>@<HH:MM>X<suffix>.
var slipTimePattern = regexp.MustCompile(`^(.*@)(\d{2}:\d{2})(X.*)$`)

// SubstituteSlipTime rewrites the time component of a base slip to the given
// timeslot start time. A slip that does not match the expected pattern is
// returned unchanged.
func SubstituteSlipTime(baseSlip, startTime string) string {
	if baseSlip == "" || startTime == "" {
		return baseSlip
	}
	m := slipTimePattern.FindStringSubmatch(baseSlip)
	if m == nil {
		return baseSlip
	}
	return m[1] + startTime + m[3]
}

// TimeslotLabel renders a timeslot as a 12-hour display label,
// e.g. "9:00 AM - 12:00 PM".
func TimeslotLabel(ts Timeslot) string {
	start := to12Hour(ts.Start)
	end := to12Hour(ts.End)
	switch {
	case start != "" && end != "":
		return start + " - " + end
	case start != "":
		return start
	case end != "":
		return end
	default:
		return "Selected time slot"
	}
}

func to12Hour(time24 string) string {
	parts := strings.SplitN(time24, ":", 2)
	if len(parts) != 2 {
		return time24
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time24
	}
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	if hour %= 12; hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%s %s", hour, parts[1], meridiem)
}
