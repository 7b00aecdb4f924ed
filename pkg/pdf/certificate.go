package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData carries the fields rendered on a notarization certificate.
type CertificateData struct {
	DocumentID    string
	DocumentName  string
	RequesterName string
	NotaryName    string
	CompletedAt   time.Time
	OutputFiles   []string
}

// Generator renders completion certificates.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Certificate renders a single-page notarization certificate as PDF bytes.
func (g *Generator) Certificate(data CertificateData) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 22)
	doc.CellFormat(0, 14, "Certificate of Notarization", "", 1, "C", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Helvetica", "", 12)
	doc.CellFormat(0, 8, fmt.Sprintf("Document: %s", data.DocumentName), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 8, fmt.Sprintf("Reference: %s", data.DocumentID), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 8, fmt.Sprintf("Requested by: %s", data.RequesterName), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 8, fmt.Sprintf("Notarized by: %s", data.NotaryName), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 8, fmt.Sprintf("Completed: %s", data.CompletedAt.Format(time.RFC1123)), "", 1, "L", false, 0, "")
	doc.Ln(4)

	if len(data.OutputFiles) > 0 {
		doc.SetFont("Helvetica", "B", 12)
		doc.CellFormat(0, 8, "Notarized files", "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		for _, name := range data.OutputFiles {
			doc.CellFormat(0, 7, "- "+name, "", 1, "L", false, 0, "")
		}
	}

	doc.Ln(10)
	doc.SetFont("Helvetica", "I", 10)
	doc.MultiCell(0, 6, "This certificate attests that the listed files passed the full "+
		"notarization workflow, including dual-party digital signature approval.", "", "L", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
