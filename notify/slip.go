package notify

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// AppointmentSlip renders a one-page PDF summarising a booked appointment.
func AppointmentSlip(d MessageData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(102, 126, 234)
	pdf.CellFormat(0, 10, d.Hospital, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Appointment Slip", "1", 1, "C", false, 0, "")
	pdf.Ln(4)

	slipRow(pdf, "Reference", d.AppointmentID)
	slipRow(pdf, "Patient", d.PatientName)
	slipRow(pdf, "Doctor", d.DoctorName)
	slipRow(pdf, "Department", d.Department)
	slipRow(pdf, "Date", d.Date)
	slipRow(pdf, "Time", d.Time)
	if d.Symptoms != "" {
		slipRow(pdf, "Symptoms", d.Symptoms)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, "Please arrive 15 minutes before your scheduled time and bring this slip with you.", "", "L", false)
	pdf.SetY(pdf.GetY() + 12)
	pdf.CellFormat(0, 10, "This is a computer generated document", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render slip: %w", err)
	}
	return buf.Bytes(), nil
}

func slipRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(45, 10, label, "1", 0, "", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 10, value, "1", 1, "", false, 0, "")
}
