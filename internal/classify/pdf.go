package classify

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfHeader = []byte("%PDF-")

// isPDF reports whether the bytes look like a PDF document.
func isPDF(b []byte) bool {
	return bytes.HasPrefix(b, pdfHeader)
}

// hasTextLayer sniffs the raw bytes for font and text-operator markers to
// decide "native text" vs "scanned". Content streams are usually compressed,
// so this looks at object dictionaries rather than stream contents; a font
// resource is the strongest signal that the PDF carries selectable text.
func hasTextLayer(b []byte) bool {
	if bytes.Contains(b, []byte("/Font")) {
		return true
	}
	// Uncompressed content streams expose the text operators directly.
	return bytes.Contains(b, []byte("BT")) && (bytes.Contains(b, []byte("Tj")) || bytes.Contains(b, []byte("TJ")))
}

// pageCount returns the number of pages, or 0 if the PDF cannot be parsed.
func pageCount(b []byte) int {
	n, err := api.PageCount(bytes.NewReader(b), model.NewDefaultConfiguration())
	if err != nil {
		return 0
	}
	return n
}
