package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/G-Node/formtonic/formtonic/db"
	"github.com/G-Node/formtonic/formtonic/form"
	"github.com/xuri/excelize/v2"
)

// latest first, as returned by FindSubmissions
func testSubmissions() []db.Submission {
	return []db.Submission{
		{ID: 3, Name: "Contact", Data: []form.SerializedField{
			{Name: "textfield_1", Label: "Name", Value: "Grace"},
			{Name: "emailfield_1", Label: "E-mail", Value: "grace@example.org"},
			{Name: "hidden", Label: "", Value: "x"},
		}},
		{ID: 2, Name: "Contact", Data: []form.SerializedField{
			{Name: "textfield_1", Label: "Name", Value: "Ada"},
			{Name: "textfield_2", Label: "Phone", Value: "123"},
		}},
		{ID: 1, Name: "Contact", Data: []form.SerializedField{
			{Name: "textfield_1", Label: "Full name", Value: "Alan"},
		}},
	}
}

func TestParseQuery(t *testing.T) {
	q, errs := ParseQuery(url.Values{
		"form_name": {"Contact"},
		"language":  {"en"},
		"from_date": {"2024-03-01"},
		"to_date":   {""},
	})
	if len(errs) != 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if q.FormName != "Contact" || q.Language != "en" || q.From.Day() != 1 || !q.To.IsZero() {
		t.Fatalf("Unexpected query: %+v", q)
	}
	if v := q.Values(); v.Get("from_date") != "2024-03-01" || v.Get("to_date") != "" {
		t.Fatalf("Unexpected query values: %v", v)
	}
	if f := q.Filter(); f.Name != "Contact" || f.Language != "en" || !f.From.Equal(q.From) {
		t.Fatalf("Unexpected filter: %+v", f)
	}

	_, errs = ParseQuery(url.Values{"from_date": {"yesterday"}})
	for _, key := range []string{"form_name", "language", "from_date"} {
		if len(errs[key]) == 0 {
			t.Fatalf("Missing error for %s: %v", key, errs)
		}
	}
}

func TestCheck(t *testing.T) {
	if err := Check(0); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("Expected ErrNoRecords, got %v", err)
	}
	if err := Check(Limit); !errors.Is(err, ErrTooManyRecords) {
		t.Fatalf("Expected ErrTooManyRecords, got %v", err)
	}
	if err := Check(Limit - 1); err != nil {
		t.Fatalf("Unexpected error below the limit: %v", err)
	}
}

func TestFieldsForExport(t *testing.T) {
	current, old := FieldsForExport(testSubmissions())
	if len(current) != 2 || current[0].ID != "Name-textfield_1" || current[1].ID != "E-mail-emailfield_1" {
		t.Fatalf("Unexpected current fields: %+v", current)
	}
	if len(old) != 2 || old[0].ID != "Phone-textfield_2" || old[1].ID != "Full name-textfield_1" {
		t.Fatalf("Unexpected old fields: %+v", old)
	}

	current, old = FieldsForExport(nil)
	if len(current) != 0 || len(old) != 0 {
		t.Fatal("Fields found without submissions")
	}
}

func TestSelectedFields(t *testing.T) {
	current, old := FieldsForExport(testSubmissions())
	if _, err := SelectedFields(url.Values{}, current, old); !errors.Is(err, ErrNoFields) {
		t.Fatalf("Expected ErrNoFields, got %v", err)
	}
	values := url.Values{"current_fields": {"Name-textfield_1"}, "old_fields": {"Phone-textfield_2"}}
	ids, err := SelectedFields(values, current, old)
	if err != nil || len(ids) != 2 || ids[0] != "Name-textfield_1" || ids[1] != "Phone-textfield_2" {
		t.Fatalf("Unexpected selection: %v (%v)", ids, err)
	}

	invalid := []url.Values{
		{"current_fields": {"Nickname-textfield_9"}},
		// old fields are not offered as current ones
		{"current_fields": {"Phone-textfield_2"}},
		{"current_fields": {"Name-textfield_1"}, "old_fields": {"E-mail-emailfield_1"}},
	}
	for idx, v := range invalid {
		if _, err := SelectedFields(v, current, old); !errors.Is(err, ErrInvalidField) {
			t.Errorf("%d: expected ErrInvalidField, got %v", idx, err)
		}
	}
}

func TestDataset(t *testing.T) {
	table := Dataset(testSubmissions(), []string{"Name-textfield_1", "Phone-textfield_2"})
	if len(table.Headers) != 2 || table.Headers[0] != "Name" || table.Headers[1] != "Phone" {
		t.Fatalf("Unexpected headers: %v", table.Headers)
	}
	expected := [][]string{{"Grace", ""}, {"Ada", "123"}, {"", ""}}
	if len(table.Rows) != len(expected) {
		t.Fatalf("Unexpected number of rows: %d", len(table.Rows))
	}
	for idx, row := range expected {
		for col := range row {
			if table.Rows[idx][col] != row[col] {
				t.Fatalf("Unexpected row %d: %v (expected %v)", idx, table.Rows[idx], row)
			}
		}
	}
}

func TestWriters(t *testing.T) {
	table := Dataset(testSubmissions(), []string{"Name-textfield_1", "E-mail-emailfield_1"})

	buf := new(bytes.Buffer)
	if err := table.Write(buf, CSV); err != nil {
		t.Fatalf("CSV export failed: %v", err)
	}
	records, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV export: %v", err)
	}
	if len(records) != 4 || records[0][0] != "Name" || records[1][1] != "grace@example.org" {
		t.Fatalf("Unexpected CSV records: %v", records)
	}

	buf.Reset()
	if err := table.Write(buf, JSON); err != nil {
		t.Fatalf("JSON export failed: %v", err)
	}
	var rows []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("Failed to read JSON export: %v", err)
	}
	if len(rows) != 3 || rows[1]["Name"] != "Ada" {
		t.Fatalf("Unexpected JSON rows: %v", rows)
	}

	buf.Reset()
	if err := table.Write(buf, XLSX); err != nil {
		t.Fatalf("XLSX export failed: %v", err)
	}
	book, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("Failed to open XLSX export: %v", err)
	}
	defer book.Close()
	if v, err := book.GetCellValue("Sheet1", "A1"); err != nil || v != "Name" {
		t.Fatalf("Unexpected header cell: %q (%v)", v, err)
	}
	if v, err := book.GetCellValue("Sheet1", "A3"); err != nil || v != "Ada" {
		t.Fatalf("Unexpected data cell: %q (%v)", v, err)
	}

	if err := table.Write(buf, Format("xls")); err == nil {
		t.Fatal("Unsupported format accepted")
	}
}

func TestFormats(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != XLSX {
		t.Fatalf("Unexpected default format: %s (%v)", f, err)
	}
	if f, err := ParseFormat("CSV"); err != nil || f != CSV {
		t.Fatalf("Unexpected format: %s (%v)", f, err)
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Fatal("Unsupported format accepted")
	}
	if CSV.ContentType() != "text/csv" || Format("x").ContentType() != "application/octet-stream" {
		t.Fatal("Unexpected content types")
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"Contact":             "export-en-contact-2024-03-05.xlsx",
		"Anmeldung Übersicht": "export-en-anmeldung-ubersicht-2024-03-05.xlsx",
		"  Job -- offers! ":   "export-en-job-offers-2024-03-05.xlsx",
	}
	for name, expected := range cases {
		if got := Filename(name, "en", now, XLSX); got != expected {
			t.Errorf("Filename(%q) = %q (expected %q)", name, got, expected)
		}
	}
}
