package tickets

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRDataURL renders token as a PNG QR code data URL
func QRDataURL(token string) (string, error) {
	png, err := qrcode.Encode(token, qrcode.High, qrSize)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// RenderPDF draws a one-page printable ticket with the QR code
func RenderPDF(ticket *Ticket, details ScanDetails) ([]byte, error) {
	png, err := qrcode.Encode(ticket.Token, qrcode.High, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.Cell(0, 15, "PARKING ENTRY TICKET")
	pdf.Ln(18)

	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(8)

	top := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, top, 120, 62, "F")

	pdf.SetXY(20, top+7)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, ticket.TicketNumber)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range []string{
		"Space: " + details.Space,
		"Vehicle: " + details.Vehicle,
		"From: " + details.StartTime.UTC().Format("02 Jan 2006 15:04 MST"),
		"Until: " + details.EndTime.UTC().Format("02 Jan 2006 15:04 MST"),
		"Name: " + details.UserName,
	} {
		pdf.SetX(20)
		pdf.Cell(0, 8, line)
		pdf.Ln(7)
	}

	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(png))
	pdf.ImageOptions("qr", 142, top+4, 50, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

	pdf.SetY(top + 70)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 6, "Present this QR code at the gate. It is valid for one entry.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render ticket PDF: %w", err)
	}
	return buf.Bytes(), nil
}
