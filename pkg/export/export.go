package export

import (
	"errors"
	"fmt"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatText Format = "txt"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Artifact is a rendered, downloadable copy of a lecture's notes.
type Artifact struct {
	Data      []byte
	Filename  string
	MediaType string
}

// ParseFormat accepts exactly "pdf" or "txt".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPDF:
		return FormatPDF, nil
	case FormatText:
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Render produces the artifact for format. It performs no I/O.
func Render(format Format, title, notesText string) (*Artifact, error) {
	switch format {
	case FormatText:
		return &Artifact{
			Data:      RenderText(title, notesText),
			Filename:  "lecture_notes.txt",
			MediaType: "text/plain; charset=utf-8",
		}, nil
	case FormatPDF:
		data, err := RenderPDF(title, notesText)
		if err != nil {
			return nil, err
		}
		return &Artifact{
			Data:      data,
			Filename:  "lecture_notes.pdf",
			MediaType: "application/pdf",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// RenderText returns the UTF-8 bytes of "{title}\n\n{notes}".
func RenderText(title, notesText string) []byte {
	return []byte(title + "\n\n" + notesText)
}
