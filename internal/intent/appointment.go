package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Appointment categories offered by the scheduler.
const (
	CategoryGeneralCheckup = "General Check-up"
	CategorySpecialist     = "Specialist Consultation"
	CategoryFollowUp       = "Follow-up"
	CategoryVaccination    = "Vaccination"
)

// AppointmentDetails holds the optional fields found in an appointment
// request. Date is YYYY-MM-DD and Time is "H:MM AM/PM".
type AppointmentDetails struct {
	Date string `json:"date,omitempty"`
	Time string `json:"time,omitempty"`
	Type string `json:"type,omitempty"`
}

// IsZero reports whether nothing was extracted.
func (d AppointmentDetails) IsZero() bool {
	return d.Date == "" && d.Time == "" && d.Type == ""
}

var (
	todayRE    = regexp.MustCompile(`\btoday\b`)
	tomorrowRE = regexp.MustCompile(`\btomorrow\b`)
	monthDayRE = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	weekdayRE  = regexp.MustCompile(`\b(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)

	clockTimeRE = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	atTimeRE    = regexp.MustCompile(`(?:\bat|@)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
)

var categoryRules = []struct {
	re       *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`\b(general|check[-\s]?up|physical|routine|annual)\b`), CategoryGeneralCheckup},
	{regexp.MustCompile(`\b(specialist|consult|consultation|refer|referral)\b`), CategorySpecialist},
	{regexp.MustCompile(`\b(follow[-\s]?up|checking|monitoring)\b`), CategoryFollowUp},
	{regexp.MustCompile(`\b(vaccine|vaccination|shot|immunization|booster|flu)\b`), CategoryVaccination},
}

var monthNumbers = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

var weekdayNumbers = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// ExtractAppointmentDetails scans a message for a date, a time and an
// appointment category relative to now. Each field is extracted
// independently and may be empty.
func ExtractAppointmentDetails(message string, now time.Time) AppointmentDetails {
	lower := strings.ToLower(message)
	return AppointmentDetails{
		Date: extractDate(lower, now),
		Time: extractTime(lower),
		Type: extractCategory(lower),
	}
}

// ExtractAppointmentDetailsNow is ExtractAppointmentDetails against the wall clock.
func ExtractAppointmentDetailsNow(message string) AppointmentDetails {
	return ExtractAppointmentDetails(message, time.Now())
}

func extractDate(text string, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if todayRE.MatchString(text) {
		return formatDate(today)
	}
	if tomorrowRE.MatchString(text) {
		return formatDate(today.AddDate(0, 0, 1))
	}
	if m := monthDayRE.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[2])
		month := monthNumbers[m[1]]
		candidate := time.Date(today.Year(), month, day, 0, 0, 0, 0, today.Location())
		// time.Date normalizes overflow (e.g. february 30); treat that as no date.
		if candidate.Day() != day || candidate.Month() != month {
			return ""
		}
		if candidate.Before(today) {
			candidate = time.Date(today.Year()+1, month, day, 0, 0, 0, 0, today.Location())
		}
		return formatDate(candidate)
	}
	if m := weekdayRE.FindStringSubmatch(text); m != nil {
		daysToAdd := int(weekdayNumbers[m[1]]) - int(today.Weekday())
		if daysToAdd <= 0 {
			daysToAdd += 7
		}
		return formatDate(today.AddDate(0, 0, daysToAdd))
	}
	return ""
}

func extractTime(text string) string {
	if m := clockTimeRE.FindStringSubmatch(text); m != nil {
		if t, ok := formatClock(m[1], m[2], m[3]); ok {
			return t
		}
	}
	if m := atTimeRE.FindStringSubmatch(text); m != nil {
		ampm := m[3]
		if ampm == "" {
			hour, _ := strconv.Atoi(m[1])
			ampm = "pm"
			if hour < 12 {
				ampm = "am"
			}
		}
		if t, ok := formatClock(m[1], m[2], ampm); ok {
			return t
		}
	}
	return ""
}

// formatClock normalizes an hour, optional minute and am/pm marker to
// "H:MM AM/PM".
func formatClock(hourStr, minuteStr, ampm string) (string, bool) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour > 23 {
		return "", false
	}
	minute := 0
	if minuteStr != "" {
		if minute, err = strconv.Atoi(minuteStr); err != nil || minute > 59 {
			return "", false
		}
	}

	switch {
	case ampm == "pm" && hour < 12:
		hour += 12
	case ampm == "am" && hour == 12:
		hour = 0
	}

	display := hour % 12
	if display == 0 {
		display = 12
	}
	marker := "AM"
	if hour >= 12 {
		marker = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", display, minute, marker), true
}

func extractCategory(text string) string {
	for _, rule := range categoryRules {
		if rule.re.MatchString(text) {
			return rule.category
		}
	}
	return ""
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
