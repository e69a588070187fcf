package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
)

const pdfPageSeparator = "\n\n"

var pdfPagePattern = regexp.MustCompile(`page_(\d+)`)

type pdfExtractor struct {
	tempDir string
}

func init() {
	Register("application/pdf", newPDFExtractor())
}

func newPDFExtractor() *pdfExtractor {
	tempDir := filepath.Join(os.TempDir(), "filegpt-pdf")
	_ = os.MkdirAll(tempDir, 0o755)
	return &pdfExtractor{tempDir: tempDir}
}

// Extract pulls page text in page order. pdfcpu works on files, so the
// blob is staged in a temp directory for the duration of the call. The
// extracted content streams are operator programs rather than plain text,
// so the text-show operands are decoded before pages are assembled.
func (e *pdfExtractor) Extract(ctx context.Context, r io.Reader) (string, error) {
	_ = ctx
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrExtraction, err)
	}
	tempFile, err := os.CreateTemp(e.tempDir, "extract_*.pdf")
	if err != nil {
		return "", err
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)
	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return "", err
	}
	tempFile.Close()

	pdfCtx, err := api.ReadContextFile(tempPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrExtraction, err)
	}
	pageCount := pdfCtx.PageCount

	outDir, err := os.MkdirTemp(e.tempDir, "pages_")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(outDir)

	conf := pdfmodel.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempPath, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrExtraction, err)
	}

	pageTexts := make(map[int]string)
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		pageNum, ok := parsePageNumber(entry.Name())
		if !ok {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		pageTexts[pageNum] = decodeContentText(content)
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text := pageTexts[pageNum]
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString(pdfPageSeparator)
		}
		builder.WriteString(text)
	}
	return builder.String(), nil
}

func parsePageNumber(name string) (int, bool) {
	m := pdfPagePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// decodeContentText recovers the shown text from a page content stream by
// collecting the string operands of the text-show operators (Tj, TJ, ' and ").
// Kerning numbers inside TJ arrays are skipped and text-positioning operators
// become line breaks; every other operator is dropped.
func decodeContentText(content []byte) string {
	var out []byte
	var pending []string

	appendText := func(s string) {
		if s != "" {
			out = append(out, s...)
		}
	}
	appendBreak := func(b byte) {
		if len(out) == 0 {
			return
		}
		switch out[len(out)-1] {
		case '\n':
		case ' ':
			if b == '\n' {
				out[len(out)-1] = '\n'
			}
		default:
			out = append(out, b)
		}
	}

	i := 0
	n := len(content)
	for i < n {
		c := content[i]
		switch {
		case c == '%':
			for i < n && content[i] != '\n' {
				i++
			}
		case c == '(':
			s, next := parseLiteralString(content, i)
			pending = append(pending, s)
			i = next
		case c == '<':
			if i+1 < n && content[i+1] == '<' {
				i += 2
				continue
			}
			s, next := parseHexString(content, i)
			pending = append(pending, s)
			i = next
		case c == '[':
			pending = pending[:0]
			i++
		case isPDFSpace(c) || isPDFDelimiter(c):
			i++
		default:
			start := i
			for i < n && !isPDFSpace(content[i]) && !isPDFDelimiter(content[i]) {
				i++
			}
			switch op := string(content[start:i]); op {
			case "Tj":
				if len(pending) > 0 {
					appendText(pending[len(pending)-1])
					appendBreak(' ')
				}
				pending = pending[:0]
			case "TJ":
				appendText(strings.Join(pending, ""))
				appendBreak(' ')
				pending = pending[:0]
			case "'", `"`:
				appendBreak('\n')
				if len(pending) > 0 {
					appendText(pending[len(pending)-1])
				}
				pending = pending[:0]
			case "Td", "TD", "T*", "Tm":
				appendBreak('\n')
				pending = pending[:0]
			default:
				// Numeric operands between the strings of a TJ array must
				// not discard the strings collected so far.
				if !isNumericToken(op) {
					pending = pending[:0]
				}
			}
		}
	}
	return strings.TrimSpace(string(out))
}

func isNumericToken(tok string) bool {
	if tok == "" {
		return true
	}
	switch tok[0] {
	case '+', '-', '.':
		return true
	}
	return tok[0] >= '0' && tok[0] <= '9'
}

// parseLiteralString decodes a (...) string starting at content[start] and
// returns the text plus the index just past the closing parenthesis.
func parseLiteralString(content []byte, start int) (string, int) {
	var raw []byte
	depth := 0
	i := start
	for i < len(content) {
		c := content[i]
		switch c {
		case '\\':
			if i+1 >= len(content) {
				return decodeTextString(raw), i + 1
			}
			i++
			switch e := content[i]; e {
			case 'n':
				raw = append(raw, '\n')
			case 'r':
				raw = append(raw, '\r')
			case 't':
				raw = append(raw, '\t')
			case 'b':
				raw = append(raw, '\b')
			case 'f':
				raw = append(raw, '\f')
			case '(', ')', '\\':
				raw = append(raw, e)
			case '\n':
			case '\r':
				if i+1 < len(content) && content[i+1] == '\n' {
					i++
				}
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && i+1 < len(content) && content[i+1] >= '0' && content[i+1] <= '7'; k++ {
						i++
						val = val*8 + int(content[i]-'0')
					}
					raw = append(raw, byte(val))
				} else {
					raw = append(raw, e)
				}
			}
			i++
		case '(':
			depth++
			if depth > 1 {
				raw = append(raw, c)
			}
			i++
		case ')':
			depth--
			if depth == 0 {
				return decodeTextString(raw), i + 1
			}
			raw = append(raw, c)
			i++
		default:
			raw = append(raw, c)
			i++
		}
	}
	return decodeTextString(raw), i
}

// parseHexString decodes a <...> string starting at content[start]. An odd
// digit count is padded with a trailing zero per the file format.
func parseHexString(content []byte, start int) (string, int) {
	var digits []byte
	i := start + 1
	for i < len(content) && content[i] != '>' {
		if isHexDigit(content[i]) {
			digits = append(digits, content[i])
		}
		i++
	}
	if i < len(content) {
		i++
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	raw := make([]byte, 0, len(digits)/2)
	for k := 0; k+1 < len(digits); k += 2 {
		raw = append(raw, hexValue(digits[k])<<4|hexValue(digits[k+1]))
	}
	return decodeTextString(raw), i
}

// decodeTextString maps raw string bytes to Go text: UTF-16BE when the BOM
// is present, one rune per byte otherwise.
func decodeTextString(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		units := make([]uint16, 0, (len(raw)-2)/2)
		for i := 2; i+1 < len(raw); i += 2 {
			units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		return string(utf16.Decode(units))
	}
	runes := make([]rune, 0, len(raw))
	for _, b := range raw {
		runes = append(runes, rune(b))
	}
	return string(runes)
}

func isPDFSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/':
		return true
	}
	return false
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
