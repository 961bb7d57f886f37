package ocr

import (
	"fmt"
	"strings"
)

// FormatPDFReport renders a PDF result as a Persian page-by-page report:
// a range header followed by each page under its own separator line.
func FormatPDFReport(res ExtractionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 استخراج صفحات %d تا %d از %d صفحه:\n\n", res.FirstPage, res.LastPage, res.TotalPages)
	for _, p := range res.PageTexts {
		fmt.Fprintf(&b, "--- صفحه %d ---\n%s\n\n", p.Number, p.Text)
	}
	return strings.TrimSpace(b.String())
}

// FormatResult renders PDFs as a report and images as their plain text.
func FormatResult(res ExtractionResult) string {
	if res.TotalPages > 0 {
		return FormatPDFReport(res)
	}
	return res.Text
}
