package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// InvitationPDFData holds what is printed on a guest e-invitation
type InvitationPDFData struct {
	UniqueCode     string
	GuestName      string
	Organisation   string
	EventName      string
	EventDate      string
	EventTime      string
	Location       string
	QRCodePngBytes []byte // raw PNG, not base64
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// GenerateInvitationPDF renders a single-page A4 invitation with the guest QR code on top
func GenerateInvitationPDF(data InvitationPDFData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(data.EventName), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 12, tr(truncate(data.EventName, 45)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if len(data.QRCodePngBytes) > 0 {
		imgOpts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		name := "qr_" + data.UniqueCode
		if data.UniqueCode == "" {
			name = "qr_guest"
		}
		pdf.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(data.QRCodePngBytes))
		size := 100.0
		pdf.ImageOptions(name, (210.0-size)/2, pdf.GetY(), size, size, false, imgOpts, 0, "")
		pdf.Ln(size + 4)
	}

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.5)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(8)

	rows := [][2]string{
		{"Guest", data.GuestName},
		{"Organisation", data.Organisation},
		{"Date", data.EventDate},
		{"Time", data.EventTime},
		{"Location", data.Location},
	}
	for _, row := range rows {
		if strings.TrimSpace(row[1]) == "" {
			continue
		}
		pdf.SetX(25)
		pdf.SetFont("Arial", "", 14)
		pdf.CellFormat(45, 9, row[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, tr(truncate(row[1], 60)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	if data.UniqueCode != "" {
		pdf.SetFont("Arial", "I", 13)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 9, fmt.Sprintf("Invitation code: %s", data.UniqueCode), "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 6, "Please show this QR code at the registration desk.", "", "C", false)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to build PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
