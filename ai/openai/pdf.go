package openai

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/poliscope/core"
)

// documentText recovers plain text from document bytes. PDF documents are
// parsed page by page; anything else is treated as UTF-8 text. Unreadable
// or empty documents are input errors, never retried.
func documentText(data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: document %s is empty", core.ErrInput, filename)
	}

	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", fmt.Errorf("%w: document %s has no text", core.ErrInput, filename)
		}
		return text, nil
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: reading PDF %s: %v", core.ErrInput, filename, err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: extracting text from PDF %s page %d: %v", core.ErrInput, filename, i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: PDF %s has no extractable text", core.ErrInput, filename)
	}
	return text, nil
}
