package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const excerptLimit = 500

const docxMime = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Excerpt derives a short textual preview for document types. It is best
// effort: unreadable or non-document inputs yield an empty string, never an
// error, because previews must not block ingestion.
func Excerpt(mimeType string, data []byte) string {
	switch mimeType {
	case docxMime:
		excerpt, err := docxExcerpt(data)
		if err != nil {
			return ""
		}
		return excerpt
	case "application/pdf":
		pages, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil || pages < 1 {
			return ""
		}
		if pages == 1 {
			return "PDF document, 1 page"
		}
		return fmt.Sprintf("PDF document, %d pages", pages)
	default:
		return ""
	}
}

// docxExcerpt pulls the first characters of visible text out of the main
// document part of a docx archive.
func docxExcerpt(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}

	var document *zip.File
	for _, file := range reader.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}
	if document == nil {
		return "", fmt.Errorf("docx archive missing word/document.xml")
	}

	part, err := document.Open()
	if err != nil {
		return "", fmt.Errorf("open document part: %w", err)
	}
	defer part.Close()

	var builder strings.Builder
	decoder := xml.NewDecoder(part)
	inText := false
	for builder.Len() < excerptLimit {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document part: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
			if t.Name.Local == "p" && builder.Len() > 0 {
				builder.WriteByte(' ')
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				builder.Write(t)
			}
		}
	}

	excerpt := strings.Join(strings.Fields(builder.String()), " ")
	if len(excerpt) > excerptLimit {
		cut := excerptLimit
		// Back up to a rune boundary so the excerpt stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
	}
	return excerpt, nil
}
