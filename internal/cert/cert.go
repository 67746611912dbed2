// Package cert renders course completion certificates as PDF documents.
package cert

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Generator renders a letter-sized completion certificate.
type Generator struct {
	nowFunc func() time.Time
}

// NewGenerator creates a certificate generator.
func NewGenerator() *Generator {
	return &Generator{nowFunc: time.Now}
}

// Generate renders a certificate for the given course title and returns the
// PDF bytes together with the suggested download filename.
func (g *Generator) Generate(courseTitle string) ([]byte, string, error) {
	now := g.nowFunc()

	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.AddPage()
	pageWidth, _ := pdf.GetPageSize()

	centered := func(y float64, text string) {
		pdf.SetXY(0, y)
		pdf.CellFormat(pageWidth, 24, text, "", 0, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 24)
	centered(92, "Certificate of Completion")

	pdf.SetFont("Helvetica", "", 16)
	centered(142, "This certifies that")

	pdf.SetFont("Helvetica", "B", 20)
	centered(192, "Student")

	pdf.SetFont("Helvetica", "", 16)
	centered(242, "has successfully completed the course")

	pdf.SetFont("Helvetica", "B", 18)
	centered(292, courseTitle)

	pdf.SetFont("Helvetica", "", 12)
	centered(342, "Date: "+now.Format("January 2, 2006"))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render certificate: %w", err)
	}

	filename := fmt.Sprintf("certificate_%s.pdf", now.Format("20060102"))
	return buf.Bytes(), filename, nil
}
