package pipeline

import (
	"bytes"
	"encoding/csv"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
)

var reLineBreak = regexp.MustCompile(`\r?\n`)

var utf8BOM = []byte("\xef\xbb\xbf")

// ParseCSV turns raw text into headers plus one map per row. A zero delimiter
// means: pick ';' when the header line holds more semicolons than commas,
// ',' otherwise. Rows whose cells are all empty are dropped.
func ParseCSV(text string, delimiter rune) internal.Table {
	lines := splitCSVLines(text)
	if len(lines) == 0 {
		return internal.Table{Headers: []string{}, Rows: []map[string]string{}}
	}

	if delimiter == 0 {
		delimiter = SniffDelimiter(lines[0])
	}

	headers := splitCSVLine(lines[0], delimiter)
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	rows := make([]map[string]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cells := splitCSVLine(line, delimiter)
		row := make(map[string]string, len(headers))
		allEmpty := true
		for idx, h := range headers {
			value := ""
			if idx < len(cells) {
				value = strings.TrimSpace(cells[idx])
			}
			row[h] = value
			if value != "" {
				allEmpty = false
			}
		}
		if allEmpty {
			continue
		}
		rows = append(rows, row)
	}

	return internal.Table{Headers: headers, Rows: rows}
}

func SniffDelimiter(headerLine string) rune {
	if strings.Count(headerLine, ";") > strings.Count(headerLine, ",") {
		return ';'
	}
	return ','
}

func splitCSVLines(text string) []string {
	parts := reLineBreak.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitCSVLine honours double quotes within a single line and falls back to
// a plain split when the line is not valid CSV.
func splitCSVLine(line string, delimiter rune) []string {
	if !strings.ContainsRune(line, '"') {
		return strings.Split(line, string(delimiter))
	}
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	record, err := r.Read()
	if err != nil {
		return strings.Split(line, string(delimiter))
	}
	return record
}

// DecodeText returns UTF-8 text for a user-supplied CSV file. A leading BOM
// is dropped; input that is not valid UTF-8 is read as Windows-1252, or as
// ISO-8859-1 when the detector says so.
func DecodeText(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw)
	}

	var dec transform.Transformer = charmap.Windows1252.NewDecoder()
	if det, err := chardet.NewTextDetector().DetectBest(raw); err == nil && det != nil {
		if strings.EqualFold(det.Charset, "ISO-8859-1") {
			dec = charmap.ISO8859_1.NewDecoder()
		}
	}

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), dec))
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	return string(out)
}
