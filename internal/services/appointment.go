// Package services builds the structured payloads rendered inline with a
// chat reply: appointment options, search results and video metadata.
package services

import "github.com/wolfman30/medassist/internal/intent"

// AppointmentData feeds the inline appointment scheduler.
type AppointmentData struct {
	AppointmentTypes []string                   `json:"appointmentTypes"`
	Doctors          []string                   `json:"doctors"`
	ExtractedDetails *intent.AppointmentDetails `json:"extractedDetails,omitempty"`
}

var (
	appointmentTypes = []string{
		intent.CategoryGeneralCheckup,
		intent.CategorySpecialist,
		intent.CategoryFollowUp,
		intent.CategoryVaccination,
	}
	doctors = []string{"Dr. Smith", "Dr. Johnson", "Dr. Williams", "Dr. Brown"}
)

// PrepareAppointmentData returns the scheduler options, echoing back any
// details pulled from the message.
func PrepareAppointmentData(details *intent.AppointmentDetails) AppointmentData {
	data := AppointmentData{
		AppointmentTypes: append([]string(nil), appointmentTypes...),
		Doctors:          append([]string(nil), doctors...),
	}
	if details != nil && !details.IsZero() {
		d := *details
		data.ExtractedDetails = &d
	}
	return data
}
