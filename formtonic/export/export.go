// Package export builds spreadsheets from stored submissions.
package export

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/G-Node/formtonic/formtonic/db"
	"github.com/G-Node/formtonic/formtonic/form"
)

// Limit is the number of rows an export may not reach; older spreadsheet
// formats can't hold more.
const Limit = 65536

const dateLayout = "2006-01-02"

var (
	ErrNoRecords      = errors.New("No records found")
	ErrTooManyRecords = errors.New("Export failed! More than 65,536 entries found, exceeded Excel limitation!")
	ErrNoFields       = errors.New("Please select at least one field to export.")
	ErrInvalidField   = errors.New("Select a valid choice.")
)

// Query selects the submissions to export.  From is inclusive and To
// includes the whole day.
type Query struct {
	FormName string
	Language string
	From     time.Time
	To       time.Time
}

// ParseQuery reads a query from the submitted wizard values.  Errors are
// keyed by input name.
func ParseQuery(values url.Values) (Query, map[string][]string) {
	errs := make(map[string][]string)
	q := Query{
		FormName: strings.TrimSpace(values.Get("form_name")),
		Language: strings.TrimSpace(values.Get("language")),
	}
	if q.FormName == "" {
		errs["form_name"] = append(errs["form_name"], "This field is required.")
	}
	if q.Language == "" {
		errs["language"] = append(errs["language"], "This field is required.")
	}
	for _, key := range []string{"from_date", "to_date"} {
		v := strings.TrimSpace(values.Get(key))
		if v == "" {
			continue
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			errs[key] = append(errs[key], "Enter a valid date.")
			continue
		}
		if key == "from_date" {
			q.From = t
		} else {
			q.To = t
		}
	}
	return q, errs
}

// Values encodes the query as wizard inputs.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("form_name", q.FormName)
	v.Set("language", q.Language)
	v.Set("from_date", FormatDate(q.From))
	v.Set("to_date", FormatDate(q.To))
	return v
}

// FormatDate formats t for a date input; the zero time is empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// Filter converts the query to a submission filter.
func (q Query) Filter() db.SubmissionFilter {
	return db.SubmissionFilter{
		Name:     q.FormName,
		Language: q.Language,
		From:     q.From,
		To:       q.To,
	}
}

// Check rejects empty and oversized result sets, given the number of
// matching submissions.
func Check(count int) error {
	if count >= Limit {
		return ErrTooManyRecords
	}
	if count == 0 {
		return ErrNoRecords
	}
	return nil
}

// Field is an exportable column.  Fields are identified by label and name,
// so a relabelled field shows up as a separate column.
type Field struct {
	ID    string
	Label string
	Name  string
}

// FieldID returns the column ID of a stored field.
func FieldID(f form.SerializedField) string {
	return fmt.Sprintf("%s-%s", f.Label, f.Name)
}

// header returns the label part of a column ID.
func header(id string) string {
	if idx := strings.LastIndex(id, "-"); idx >= 0 {
		return id[:idx]
	}
	return id
}

// FieldsForExport splits the columns of the submissions (latest first) into
// the fields of the latest submission and the fields only found in older
// ones.  Fields without a label are skipped.
func FieldsForExport(subs []db.Submission) (current []Field, old []Field) {
	current = make([]Field, 0)
	old = make([]Field, 0)
	if len(subs) == 0 {
		return current, old
	}
	seen := make(map[string]bool)
	for _, f := range subs[0].FieldData() {
		if f.Label == "" {
			continue
		}
		id := FieldID(f)
		if seen[id] {
			continue
		}
		seen[id] = true
		current = append(current, Field{ID: id, Label: f.Label, Name: f.Name})
	}
	for _, sub := range subs[1:] {
		for _, f := range sub.FieldData() {
			if f.Label == "" {
				continue
			}
			id := FieldID(f)
			if seen[id] {
				continue
			}
			seen[id] = true
			old = append(old, Field{ID: id, Label: f.Label, Name: f.Name})
		}
	}
	return current, old
}

// SelectedFields joins the chosen current and old field IDs.  Only IDs
// offered by FieldsForExport are accepted.
func SelectedFields(values url.Values, current, old []Field) ([]string, error) {
	ids := make([]string, 0)
	for _, group := range []struct {
		key     string
		offered []Field
	}{{"current_fields", current}, {"old_fields", old}} {
		valid := make(map[string]bool, len(group.offered))
		for _, f := range group.offered {
			valid[f.ID] = true
		}
		for _, id := range values[group.key] {
			if !valid[id] {
				return nil, fmt.Errorf("%w %s is not one of the available choices.", ErrInvalidField, id)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoFields
	}
	return ids, nil
}

// Table is a rectangular export with one header per column.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Dataset builds the table of the given columns with one row per
// submission.  Missing values are left blank.
func Dataset(subs []db.Submission, fieldIDs []string) *Table {
	t := &Table{
		Headers: make([]string, len(fieldIDs)),
		Rows:    make([][]string, 0, len(subs)),
	}
	for idx, id := range fieldIDs {
		t.Headers[idx] = header(id)
	}
	for _, sub := range subs {
		values := make(map[string]string)
		for _, f := range sub.FieldData() {
			id := FieldID(f)
			if _, ok := values[id]; !ok {
				values[id] = f.Value
			}
		}
		row := make([]string, len(fieldIDs))
		for idx, id := range fieldIDs {
			row[idx] = values[id]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
