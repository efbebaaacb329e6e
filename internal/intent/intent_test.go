package intent

import (
	"testing"
	"time"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		message string
		want    ServiceType
	}{
		{"I'd like to book a visit", ServiceAppointment},
		{"Can I SCHEDULE something next week?", ServiceAppointment},
		{"Please search for flu symptoms", ServiceSearch},
		{"look up ibuprofen dosage", ServiceSearch},
		{"show me a YouTube clip on stretching", ServiceVideo},
		{"I want to watch something about sleep", ServiceVideo},
		{"book a video about diabetes", ServiceAppointment},
		{"search for a video on yoga", ServiceSearch},
		{"hello there", ServiceNone},
		{"", ServiceNone},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := ClassifyIntent(tt.message); got != tt.want {
				t.Fatalf("ClassifyIntent(%q) = %s, want %s", tt.message, got, tt.want)
			}
		})
	}
}

func TestClassifyIntentBookWithoutOtherKeywords(t *testing.T) {
	for _, msg := range []string{"book", "Book me in", "can you book it", "notebook check"} {
		if got := ClassifyIntent(msg); got != ServiceAppointment {
			t.Fatalf("expected appointment for %q, got %s", msg, got)
		}
	}
}

func TestExtractQuery(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"tell me about diabetes", "diabetes"},
		{"Tell me about Diabetes", "diabetes"},
		{"Can you search for  heart disease  ", "heart disease"},
		{"play a video on knee exercises", "knee exercises"},
		{"find information about asthma triggers", "asthma triggers"},
		{"show me", ""},
		{"What is hypertension?", "hypertension"},
		{"how can you help me", ""},
		{"Migraine remedies", "migraine remedies"},
		{"Could you explain Lyme disease, please?", "explain lyme disease, please"},
		{"can you help?", ""},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := ExtractQuery(tt.message); got != tt.want {
				t.Fatalf("ExtractQuery(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestExtractQueryUsesFirstMatchingPhrase(t *testing.T) {
	// "look up" precedes "tell me about" in the phrase list.
	got := ExtractQuery("tell me about it, or look up measles")
	if got != "measles" {
		t.Fatalf("expected phrase order to win, got %q", got)
	}
}

// Wednesday.
var refNow = time.Date(2024, time.March, 13, 10, 30, 0, 0, time.UTC)

func TestExtractAppointmentDetailsDates(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"today", "Can I come in today?", "2024-03-13"},
		{"tomorrow", "book me for tomorrow", "2024-03-14"},
		{"today wins over weekday", "today or friday", "2024-03-13"},
		{"month day later this year", "how about March 20th", "2024-03-20"},
		{"month day same day", "march 13 please", "2024-03-13"},
		{"month day rolls over", "on march 10", "2025-03-10"},
		{"invalid month day", "february 30", ""},
		{"month day wins over weekday", "friday, april 2nd", "2024-04-02"},
		{"next weekday", "next Friday works", "2024-03-15"},
		{"earlier weekday", "monday", "2024-03-18"},
		{"same weekday advances a week", "wednesday", "2024-03-20"},
		{"no date", "sometime soon", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAppointmentDetails(tt.message, refNow).Date
			if got != tt.want {
				t.Fatalf("date for %q = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestExtractAppointmentDetailsTomorrowAcrossMonth(t *testing.T) {
	now := time.Date(2024, time.February, 29, 23, 59, 0, 0, time.UTC)
	if got := ExtractAppointmentDetails("tomorrow", now).Date; got != "2024-03-01" {
		t.Fatalf("expected leap day rollover, got %s", got)
	}
}

func TestExtractAppointmentDetailsTimes(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"at 3pm", "3:00 PM"},
		{"around 10:15 am", "10:15 AM"},
		{"12pm works", "12:00 PM"},
		{"12am is odd", "12:00 AM"},
		{"at 9", "9:00 AM"},
		{"@ 14:30", "2:30 PM"},
		{"at 12", "12:00 PM"},
		{"at 7 pm", "7:00 PM"},
		{"that 5 is fine", ""},
		{"no time here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := ExtractAppointmentDetails(tt.message, refNow).Time; got != tt.want {
				t.Fatalf("time for %q = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestExtractAppointmentDetailsCategory(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"annual physical", CategoryGeneralCheckup},
		{"a check-up", CategoryGeneralCheckup},
		{"need a referral to a specialist", CategorySpecialist},
		{"follow up on my results", CategoryFollowUp},
		{"flu shot", CategoryVaccination},
		{"routine booster", CategoryGeneralCheckup},
		{"my knee hurts", ""},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := ExtractAppointmentDetails(tt.message, refNow).Type; got != tt.want {
				t.Fatalf("type for %q = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestExtractAppointmentDetailsCombined(t *testing.T) {
	got := ExtractAppointmentDetails("appointment on Friday at 3pm for a checkup", refNow)
	want := AppointmentDetails{Date: "2024-03-15", Time: "3:00 PM", Type: CategoryGeneralCheckup}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestExtractAppointmentDetailsPartial(t *testing.T) {
	got := ExtractAppointmentDetails("schedule something tomorrow", refNow)
	if got.Date != "2024-03-14" || got.Time != "" || got.Type != "" {
		t.Fatalf("expected date only, got %+v", got)
	}
	if got.IsZero() {
		t.Fatalf("expected non-zero details")
	}
	if !(AppointmentDetails{}).IsZero() {
		t.Fatalf("expected empty details to be zero")
	}
}
