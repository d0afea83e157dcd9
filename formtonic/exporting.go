// Export wizard
package formtonic

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/G-Node/formtonic/formtonic/db"
	"github.com/G-Node/formtonic/formtonic/export"
	"github.com/G-Node/formtonic/templates"
)

func flattenErrors(errs map[string][]string) []string {
	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]string, 0)
	for _, key := range keys {
		for _, msg := range errs[key] {
			out = append(out, fmt.Sprintf("%s: %s", key, msg))
		}
	}
	return out
}

// exportLanguages lists the configured languages followed by any other
// language found in the submissions.
func (srv *Service) exportLanguages() ([]string, error) {
	langs := srv.Languages()
	stored, err := srv.db.SubmissionLanguages()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(langs))
	for _, l := range langs {
		seen[l] = true
	}
	for _, l := range stored {
		if l != "" && !seen[l] {
			langs = append(langs, l)
			seen[l] = true
		}
	}
	return langs, nil
}

func (srv *Service) renderExportQuery(w http.ResponseWriter, status int, q export.Query, errs []string) {
	names, err := srv.db.SubmissionNames()
	if err == nil {
		var langs []string
		if langs, err = srv.exportLanguages(); err == nil {
			data := map[string]interface{}{
				"names":     names,
				"languages": langs,
				"query":     q,
				"from_date": export.FormatDate(q.From),
				"to_date":   export.FormatDate(q.To),
				"errors":    errs,
			}
			srv.web.Render(w, status, templates.ExportQuery, data)
			return
		}
	}
	srv.log.Errorw("Failed to prepare export", "error", err)
	srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to prepare export")
}

func (srv *Service) exportQuery(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	srv.renderExportQuery(w, http.StatusOK, export.Query{}, nil)
}

// findExport parses the query and loads the matching submissions.  On
// failure it renders the first wizard step and returns false.
func (srv *Service) findExport(w http.ResponseWriter, r *http.Request) (export.Query, []db.Submission, bool) {
	if err := r.ParseForm(); err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read form data")
		return export.Query{}, nil, false
	}
	q, errs := export.ParseQuery(r.PostForm)
	if len(errs) > 0 {
		srv.renderExportQuery(w, http.StatusBadRequest, q, flattenErrors(errs))
		return q, nil, false
	}
	count, err := srv.db.CountSubmissions(q.Filter())
	if err != nil {
		srv.log.Errorw("Failed to count submissions for export", "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to load submissions")
		return q, nil, false
	}
	if err := export.Check(count); err != nil {
		status := http.StatusOK
		if errors.Is(err, export.ErrTooManyRecords) {
			status = http.StatusBadRequest
		}
		srv.renderExportQuery(w, status, q, []string{err.Error()})
		return q, nil, false
	}
	subs, err := srv.db.FindSubmissions(q.Filter())
	if err != nil {
		srv.log.Errorw("Failed to load submissions for export", "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to load submissions")
		return q, nil, false
	}
	return q, subs, true
}

func (srv *Service) renderExportFields(w http.ResponseWriter, status int, q export.Query, subs []db.Submission, errs []string) {
	current, old := export.FieldsForExport(subs)
	data := map[string]interface{}{
		"query":     q,
		"from_date": export.FormatDate(q.From),
		"to_date":   export.FormatDate(q.To),
		"current":   current,
		"old":       old,
		"formats":   export.Formats(),
		"errors":    errs,
	}
	srv.web.Render(w, status, templates.ExportFields, data)
}

// exportQueryPost is the second step of the wizard: pick fields and format.
func (srv *Service) exportQueryPost(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	q, subs, ok := srv.findExport(w, r)
	if !ok {
		return
	}
	srv.renderExportFields(w, http.StatusOK, q, subs, nil)
}

func (srv *Service) exportDownload(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	q, subs, ok := srv.findExport(w, r)
	if !ok {
		return
	}
	current, old := export.FieldsForExport(subs)
	fields, err := export.SelectedFields(r.PostForm, current, old)
	if err != nil {
		srv.renderExportFields(w, http.StatusBadRequest, q, subs, []string{err.Error()})
		return
	}
	format, err := export.ParseFormat(r.PostForm.Get("file_type"))
	if err != nil {
		srv.renderExportFields(w, http.StatusBadRequest, q, subs, []string{err.Error()})
		return
	}

	table := export.Dataset(subs, fields)
	filename := export.Filename(q.FormName, q.Language, time.Now(), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := table.Write(w, format); err != nil {
		srv.log.Errorw("Failed to write export", "form", q.FormName, "error", err)
		return
	}
	srv.log.Infow("Exported submissions", "form", q.FormName, "language", q.Language, "rows", len(table.Rows), "format", format)
}
