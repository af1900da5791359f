package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Layout in points on an A4 page.
const (
	cm = 72 / 2.54

	pageMargin      = 2 * cm
	titleSize       = 16
	bodySize        = 11
	titleGap        = 1.5 * cm
	titleLineHeight = 0.8 * cm
	lineHeight      = 0.5 * cm
	paragraphGap    = 0.5 * cm

	titleFont = "Helvetica"
	bodyFont  = "Helvetica"
)

// documentDate is stamped into every PDF so output depends only on the inputs.
var documentDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// RenderPDF lays out the notes as an A4 document with a bold title line and
// word-wrapped body paragraphs. A blank line in the notes becomes a vertical
// gap, and a new page starts whenever the next line would cross the bottom
// margin.
func RenderPDF(title, notesText string) ([]byte, error) {
	pdf := layoutPDF(title, notesText)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func layoutPDF(title, notesText string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCreationDate(documentDate)
	pdf.SetModificationDate(documentDate)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)

	pageWidth, pageHeight := pdf.GetPageSize()
	maxWidth := pageWidth - 2*pageMargin
	bottom := pageHeight - pageMargin

	pdf.AddPage()
	y := pageMargin
	for i, line := range titleLines(pdf, tr(title), maxWidth) {
		if i > 0 {
			y += titleLineHeight
		}
		pdf.Text(pageMargin, y, line)
	}
	y += titleGap

	pdf.SetFont(bodyFont, "", bodySize)

	ensureRoom := func() {
		if y > bottom {
			pdf.AddPage()
			pdf.SetFont(bodyFont, "", bodySize)
			y = pageMargin
		}
	}

	for _, paragraph := range strings.Split(notesText, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			y += paragraphGap
			continue
		}
		for _, line := range wrapLine(tr(paragraph), maxWidth, pdf.GetStringWidth) {
			ensureRoom()
			pdf.Text(pageMargin, y, line)
			y += lineHeight
		}
	}

	return pdf
}

// titleLines selects the title font and wraps the title to maxWidth.
func titleLines(pdf *fpdf.Fpdf, title string, maxWidth float64) []string {
	pdf.SetFont(titleFont, "B", titleSize)
	return wrapLine(title, maxWidth, pdf.GetStringWidth)
}

// wrapLine splits text into lines no wider than maxWidth. Words wider than
// a full line are broken by character.
func wrapLine(text string, maxWidth float64, width func(string) float64) []string {
	var lines []string
	line := ""

	for _, word := range strings.Fields(text) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if width(candidate) <= maxWidth {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
			line = ""
		}
		for width(word) > maxWidth {
			cut := fitPrefix(word, maxWidth, width)
			lines = append(lines, word[:cut])
			word = word[cut:]
		}
		line = word
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// fitPrefix returns the longest byte prefix of word that fits, at least one byte.
func fitPrefix(word string, maxWidth float64, width func(string) float64) int {
	cut := 1
	for cut < len(word) && width(word[:cut+1]) <= maxWidth {
		cut++
	}
	return cut
}
