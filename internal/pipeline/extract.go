package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/util"
)

type OfferFormat string

const (
	OfferCSV   OfferFormat = "csv"
	OfferXLSX  OfferFormat = "xlsx"
	OfferHTML  OfferFormat = "html"
	OfferPDF   OfferFormat = "pdf"
	OfferEmail OfferFormat = "eml"
)

// pdfCodeColumn names the single column of a table built from PDF text.
const pdfCodeColumn = "codi"

var rePDFCode = regexp.MustCompile(`\b230\d{3,4}\b`)

var errNoOfferTable = errors.New("no s'ha trobat cap taula a l'oferta")

// Offer is an offer list as read from disk. CSV offers keep their text so the
// comparator can apply its own delimiter fallback; other formats are tabulated.
type Offer struct {
	Name   string
	Format OfferFormat
	Text   string
	Table  internal.Table
}

func (o Offer) Compare(subjects []internal.Subject) (internal.ComparisonResult, error) {
	if o.Format == OfferCSV {
		return Compare(subjects, o.Text)
	}
	return CompareTable(subjects, o.Table)
}

// Rows returns the offer rows, parsing CSV text with the comparator's delimiter rule.
func (o Offer) Rows() []map[string]string {
	if o.Format == OfferCSV {
		return parseOfferText(o.Text).Rows
	}
	return o.Table.Rows
}

func LoadOfferFile(path string) (Offer, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Offer{}, err
	}
	return LoadOffer(filepath.Base(path), blob)
}

// LoadOffer dispatches on the file extension of name.
func LoadOffer(name string, content []byte) (Offer, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		table, err := parseXLSXTable(content)
		return Offer{Name: name, Format: OfferXLSX, Table: table}, err
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		table, err := parseHTMLTable(DecodeText(content))
		return Offer{Name: name, Format: OfferHTML, Table: table}, err
	case strings.HasSuffix(lower, ".pdf"):
		table, err := parsePDFCodes(content)
		return Offer{Name: name, Format: OfferPDF, Table: table}, err
	case strings.HasSuffix(lower, ".eml"):
		return parseEmailOffer(name, content)
	default:
		return Offer{Name: name, Format: OfferCSV, Text: DecodeText(content)}, nil
	}
}

func parseOfferText(text string) internal.Table {
	table := ParseCSV(text, ';')
	if len(table.Headers) <= 1 && strings.Contains(text, ",") {
		commaTable := ParseCSV(text, ',')
		if len(commaTable.Headers) > len(table.Headers) {
			return commaTable
		}
	}
	return table
}

func parseXLSXTable(content []byte) (internal.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return internal.Table{}, err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if table, ok := cellsToTable(rows); ok {
			return table, nil
		}
	}
	return internal.Table{}, errNoOfferTable
}

func parseHTMLTable(html string) (internal.Table, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return internal.Table{}, err
	}

	var found internal.Table
	ok := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := [][]string{}
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := []string{}
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.NormalizeSpaces(cell.Text()))
			})
			rows = append(rows, cells)
		})
		found, ok = cellsToTable(rows)
		return !ok
	})
	if !ok {
		return internal.Table{}, errNoOfferTable
	}
	return found, nil
}

// parsePDFCodes collects every subject code printed in the document, in
// reading order, as a one-column table.
func parsePDFCodes(content []byte) (internal.Table, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return internal.Table{}, err
	}

	table := internal.Table{Headers: []string{pdfCodeColumn}, Rows: []map[string]string{}}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, code := range rePDFCode.FindAllString(text, -1) {
			table.Rows = append(table.Rows, map[string]string{pdfCodeColumn: code})
		}
	}
	return table, nil
}

// parseEmailOffer picks the first tabular attachment of a saved message,
// falling back to a table in the HTML body.
func parseEmailOffer(name string, raw []byte) (Offer, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Offer{}, err
	}

	for _, att := range env.Attachments {
		lower := strings.ToLower(strings.TrimSpace(att.FileName))
		if strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".xlsx") {
			return LoadOffer(att.FileName, att.Content)
		}
	}

	if env.HTML != "" {
		if table, err := parseHTMLTable(env.HTML); err == nil {
			return Offer{Name: name, Format: OfferHTML, Table: table}, nil
		}
	}
	return Offer{}, fmt.Errorf("%s: %w", name, errNoOfferTable)
}

// cellsToTable uses the first non-empty row as headers. Rows whose cells are
// all empty are dropped, as in ParseCSV.
func cellsToTable(rows [][]string) (internal.Table, bool) {
	headerIdx := -1
	for i, row := range rows {
		if !allBlank(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return internal.Table{}, false
	}

	headers := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		headers[i] = strings.TrimSpace(h)
	}

	table := internal.Table{Headers: headers, Rows: []map[string]string{}}
	for _, cells := range rows[headerIdx+1:] {
		if allBlank(cells) {
			continue
		}
		row := make(map[string]string, len(headers))
		for idx, h := range headers {
			value := ""
			if idx < len(cells) {
				value = strings.TrimSpace(cells[idx])
			}
			row[h] = value
		}
		table.Rows = append(table.Rows, row)
	}
	return table, true
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
