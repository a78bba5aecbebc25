package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/meinhoongagan/hospital-booking/models"
)

const layout = `{{define "layout"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #667eea; padding: 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">{{.Hospital}}</h1>
  </div>
  <div style="padding: 20px; background-color: #f9f9f9;">
    <h2 style="color: #333;">{{.Subject}}</h2>
    <div style="background: white; padding: 20px; border-radius: 8px;">{{template "body" .}}</div>
    <div style="margin-top: 20px; text-align: center; color: #666;">
      <p>This is an automated message from {{.Hospital}} System.</p>
      <p>Please do not reply to this email.</p>
    </div>
  </div>
</div>{{end}}
{{define "details"}}<div style="background: #f0f8ff; padding: 15px; border-radius: 5px; margin: 15px 0;">
  <h4>Appointment Details:</h4>
  <p><strong>Doctor:</strong> {{.DoctorName}}</p>
  <p><strong>Department:</strong> {{.Department}}</p>
  <p><strong>Date:</strong> {{.Date}}</p>
  <p><strong>Time:</strong> {{.Time}}</p>
  {{- if .Symptoms}}
  <p><strong>Symptoms:</strong> {{.Symptoms}}</p>{{end}}
  {{- if .Status}}
  <p><strong>Status:</strong> {{.Status}}</p>{{end}}
</div>{{end}}`

var bodies = map[Kind]string{
	KindBookingConfirmation: `{{define "body"}}<h3>Dear {{.PatientName}},</h3>
<p>Your appointment has been successfully booked!</p>
{{template "details" .}}
<p>Please arrive 15 minutes before your scheduled appointment time.</p>
<p>If you need to reschedule or cancel, please contact us at least 24 hours in advance.</p>
<p>Your appointment slip is attached.</p>{{end}}`,

	KindAdminAlert: `{{define "body"}}<h3>New Appointment Alert</h3>
<p>A new appointment has been booked in the system.</p>
<p><strong>Patient:</strong> {{.PatientName}} ({{.PatientEmail}})</p>
<p><strong>Phone:</strong> {{.PatientPhone}}</p>
{{template "details" .}}
<p><strong>Booked At:</strong> {{.BookedAt}}</p>
<p>Please review this appointment in the admin dashboard.</p>{{end}}`,

	KindStatusUpdate: `{{define "body"}}<h3>Dear {{.PatientName}},</h3>
<p>{{.StatusMessage}}</p>
{{template "details" .}}
<p>If you have any questions, please contact our support team.</p>{{end}}`,

	KindReminder: `{{define "body"}}<h3>Dear {{.PatientName}},</h3>
<p>This is a reminder of your appointment tomorrow.</p>
{{template "details" .}}
<p>Please arrive 15 minutes early. Contact us if you can no longer attend.</p>{{end}}`,
}

var statusMessages = map[models.AppointmentStatus]string{
	models.StatusCompleted: "Your appointment has been completed.",
	models.StatusCancelled: "Your appointment has been cancelled.",
	models.StatusNoShow:    "You were marked as no-show for your appointment.",
}

var templates = mustParse()

func mustParse() map[Kind]*template.Template {
	out := make(map[Kind]*template.Template, len(bodies))
	for kind, body := range bodies {
		t := template.Must(template.New(string(kind)).Parse(layout))
		out[kind] = template.Must(t.Parse(body))
	}
	return out
}

// MessageData feeds the email templates, the SMS text and the PDF slip.
type MessageData struct {
	Hospital      string
	Subject       string
	PatientName   string
	PatientEmail  string
	PatientPhone  string
	DoctorName    string
	Department    string
	Date          string
	Time          string
	Symptoms      string
	Status        string
	StatusMessage string
	BookedAt      string
	AppointmentID string
}

func newMessageData(hospital string, a *models.Appointment, patient, doctor *models.User) MessageData {
	return MessageData{
		Hospital:      hospital,
		PatientName:   patient.Name,
		PatientEmail:  patient.Email,
		PatientPhone:  patient.Phone,
		DoctorName:    doctor.Name,
		Department:    a.Department,
		Date:          a.Date.Format("Monday, 02 January 2006"),
		Time:          a.Time,
		Symptoms:      a.Symptoms,
		BookedAt:      a.CreatedAt.Local().Format("02 Jan 2006 15:04"),
		AppointmentID: a.ID,
	}
}

func subjectFor(kind Kind, hospital string, status models.AppointmentStatus) string {
	switch kind {
	case KindBookingConfirmation:
		return "Appointment Confirmation - " + hospital
	case KindAdminAlert:
		return "New Appointment Booked - " + hospital
	case KindStatusUpdate:
		s := string(status)
		if s != "" {
			s = strings.ToUpper(s[:1]) + s[1:]
		}
		return fmt.Sprintf("Appointment %s - %s", s, hospital)
	case KindReminder:
		return "Appointment Reminder - " + hospital
	}
	return hospital
}

// Render produces the subject and HTML body for kind.
func Render(kind Kind, data MessageData) (subject, html string, err error) {
	t, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("no template for %q", kind)
	}
	if data.Subject == "" {
		data.Subject = subjectFor(kind, data.Hospital, models.AppointmentStatus(strings.ToLower(data.Status)))
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", kind, err)
	}
	return data.Subject, buf.String(), nil
}
