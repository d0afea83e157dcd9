package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Format is an export file type.
type Format string

const (
	XLSX Format = "xlsx"
	CSV  Format = "csv"
	JSON Format = "json"
)

const sheetName = "Sheet1"

var contentTypes = map[Format]string{
	XLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	CSV:  "text/csv",
	JSON: "application/json",
}

// Formats lists the supported file types, the default first.
func Formats() []Format {
	return []Format{XLSX, CSV, JSON}
}

// ParseFormat returns the format named s; empty selects xlsx.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return XLSX, nil
	}
	f := Format(strings.ToLower(s))
	if _, ok := contentTypes[f]; !ok {
		return "", fmt.Errorf("unsupported export format %q", s)
	}
	return f, nil
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if ct, ok := contentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Write encodes the table in the given format.
func (t *Table) Write(w io.Writer, f Format) error {
	switch f {
	case XLSX:
		return t.writeXLSX(w)
	case CSV:
		return t.writeCSV(w)
	case JSON:
		return t.writeJSON(w)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func (t *Table) writeXLSX(w io.Writer) error {
	book := excelize.NewFile()
	defer book.Close()
	rows := append([][]string{t.Headers}, t.Rows...)
	for idx, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, idx+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for col, v := range row {
			values[col] = v
		}
		if err := book.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}
	return book.Write(w)
}

func (t *Table) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func (t *Table) writeJSON(w io.Writer) error {
	records := make([]map[string]string, len(t.Rows))
	for idx, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for col, h := range t.Headers {
			rec[h] = row[col]
		}
		records[idx] = rec
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

var (
	slugInvalidRE  = regexp.MustCompile(`[^\w\s-]`)
	slugSeparateRE = regexp.MustCompile(`[-\s]+`)
)

// Slugify converts s to lowercase ASCII words separated by hyphens.
// Accents are stripped; other non-ASCII characters are dropped.
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}
	ascii = slugInvalidRE.ReplaceAllString(ascii, "")
	ascii = strings.ToLower(strings.TrimSpace(ascii))
	return strings.Trim(slugSeparateRE.ReplaceAllString(ascii, "-"), "-")
}

// Filename returns export-<language>-<slug>-YYYY-MM-DD.<ext>.
func Filename(formName, language string, now time.Time, f Format) string {
	return fmt.Sprintf("export-%s-%s-%s.%s", language, Slugify(formName), now.Format(dateLayout), f)
}
