// internal/assistant/temporal/natural.go
package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The natural-language engine recognizes a small closed vocabulary: relative
// day words, weekday references, "in N units" offsets, explicit month-day
// and numeric dates, and clock times. It resolves against a reference
// instant, so end expressions can anchor on a resolved start.

var (
	reISODate  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reSlash    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	reMonthDay = regexp.MustCompile(`\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)
	reInOffset = regexp.MustCompile(`\bin\s+(\d+)\s*(minutes?|mins?|hours?|hrs?|days?|weeks?|months?)\b`)
	reWeekday  = regexp.MustCompile(`\b(next|this)?\s*(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	reClock    = regexp.MustCompile(`\b(?:at\s+)?(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	reClockAt  = regexp.MustCompile(`\bat\s+(\d{1,2})\s*(am|pm)?\b`)
	reClockSuf = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// Parse resolves expr relative to ref. The boolean is false when the
// expression contains nothing the engine recognizes.
func Parse(expr string, ref time.Time) (time.Time, bool) {
	text := strings.ToLower(strings.TrimSpace(expr))
	if text == "" {
		return time.Time{}, false
	}

	loc := ref.Location()
	date := ref
	dateFound := false
	timeFound := false
	hour, minute := 0, 0

	switch {
	case strings.Contains(text, "day after tomorrow"):
		date = ref.AddDate(0, 0, 2)
		dateFound = true
	case strings.Contains(text, "tomorrow"):
		date = ref.AddDate(0, 0, 1)
		dateFound = true
	case strings.Contains(text, "yesterday"):
		date = ref.AddDate(0, 0, -1)
		dateFound = true
	case strings.Contains(text, "tonight"):
		date = ref
		dateFound = true
		if !strings.Contains(text, ":") && !strings.Contains(text, "am") && !strings.Contains(text, "pm") {
			hour, minute = 19, 0
			timeFound = true
		}
	case strings.Contains(text, "today"), text == "now":
		date = ref
		dateFound = true
	case strings.Contains(text, "next week"):
		date = ref.AddDate(0, 0, 7)
		dateFound = true
	case strings.Contains(text, "next month"):
		date = ref.AddDate(0, 1, 0)
		dateFound = true
	}

	if !dateFound {
		if m := reISODate.FindStringSubmatch(text); m != nil {
			y, _ := strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			d, _ := strconv.Atoi(m[3])
			date = time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
			dateFound = true
			timeFound = false
		} else if m := reMonthDay.FindStringSubmatch(text); m != nil {
			mo := monthsByPrefix[m[1][:3]]
			d, _ := strconv.Atoi(m[2])
			y := ref.Year()
			if m[3] != "" {
				y, _ = strconv.Atoi(m[3])
			}
			date = time.Date(y, mo, d, 0, 0, 0, 0, loc)
			// A bare month-day already past this year means next year.
			if m[3] == "" && date.Before(time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)) {
				date = date.AddDate(1, 0, 0)
			}
			dateFound = true
		} else if m := reSlash.FindStringSubmatch(text); m != nil {
			mo, _ := strconv.Atoi(m[1])
			d, _ := strconv.Atoi(m[2])
			if mo >= 1 && mo <= 12 && d >= 1 && d <= 31 {
				y := ref.Year()
				if m[3] != "" {
					y, _ = strconv.Atoi(m[3])
					if y < 100 {
						y += 2000
					}
				}
				date = time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
				dateFound = true
			}
		}
	}

	if !dateFound {
		if m := reWeekday.FindStringSubmatch(text); m != nil {
			target := weekdays[m[2]]
			diff := (int(target) - int(ref.Weekday()) + 7) % 7
			switch m[1] {
			case "this":
				// "this friday" on a Friday means today.
			default:
				if diff == 0 {
					diff = 7
				}
			}
			date = ref.AddDate(0, 0, diff)
			dateFound = true
		}
	}

	if !dateFound {
		if m := reInOffset.FindStringSubmatch(text); m != nil {
			n, _ := strconv.Atoi(m[1])
			unit := m[2]
			switch {
			case strings.HasPrefix(unit, "min"):
				return ref.Add(time.Duration(n) * time.Minute), true
			case strings.HasPrefix(unit, "h"):
				return ref.Add(time.Duration(n) * time.Hour), true
			case strings.HasPrefix(unit, "day"):
				date = ref.AddDate(0, 0, n)
			case strings.HasPrefix(unit, "week"):
				date = ref.AddDate(0, 0, 7*n)
			case strings.HasPrefix(unit, "month"):
				date = ref.AddDate(0, n, 0)
			}
			dateFound = true
		}
	}

	// Clock time, usable on its own or combined with any date rule above.
	if !timeFound {
		if strings.Contains(text, "noon") {
			hour, minute = 12, 0
			timeFound = true
		} else if strings.Contains(text, "midnight") {
			hour, minute = 0, 0
			timeFound = true
		} else if m := reClock.FindStringSubmatch(text); m != nil {
			h, _ := strconv.Atoi(m[1])
			mm, _ := strconv.Atoi(m[2])
			if h <= 23 && mm <= 59 {
				hour, minute = adjustMeridiem(h, m[3]), mm
				timeFound = true
			}
		} else if m := reClockAt.FindStringSubmatch(text); m != nil {
			h, _ := strconv.Atoi(m[1])
			if h <= 23 {
				hour, minute = adjustMeridiem(h, m[2]), 0
				timeFound = true
			}
		} else if m := reClockSuf.FindStringSubmatch(text); m != nil {
			h, _ := strconv.Atoi(m[1])
			if h <= 12 {
				hour, minute = adjustMeridiem(h, m[2]), 0
				timeFound = true
			}
		}
	}

	if !dateFound && !timeFound {
		return time.Time{}, false
	}

	y, mo, d := date.Date()
	var result time.Time
	if timeFound {
		result = time.Date(y, mo, d, hour, minute, 0, 0, loc)
		// A bare clock time already past today rolls to the next day.
		if !dateFound && !result.After(ref) {
			result = result.AddDate(0, 0, 1)
		}
	} else {
		switch {
		case sameDate(date, ref):
			result = ref
		case date.Hour() != 0 || date.Minute() != 0:
			// Relative day shifts keep the reference clock time.
			result = date
		default:
			result = time.Date(y, mo, d, 0, 0, 0, 0, loc)
		}
	}

	return result, true
}

func adjustMeridiem(h int, meridiem string) int {
	switch meridiem {
	case "pm":
		if h < 12 {
			return h + 12
		}
	case "am":
		if h == 12 {
			return 0
		}
	}
	return h
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
