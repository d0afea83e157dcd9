// Public routes and pages
package formtonic

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/G-Node/formtonic/formtonic/actions"
	"github.com/G-Node/formtonic/formtonic/db"
	"github.com/G-Node/formtonic/formtonic/form"
	"github.com/G-Node/formtonic/templates"
	"github.com/gorilla/mux"
)

// setupWebRoutes sets up the public form pages and the admin area.
func (srv *Service) setupWebRoutes() {
	router := srv.web.Router
	router.StrictSlash(true)

	router.HandleFunc("/", srv.index).Methods("GET")
	router.HandleFunc("/forms/{id:[0-9]+}", srv.renderForm).Methods("GET")
	router.HandleFunc("/forms/{id:[0-9]+}", srv.processForm).Methods("POST")

	srv.setupAdminRoutes(router)

	router.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", http.FileServer(http.Dir("./assets"))))
}

func (srv *Service) index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin/forms", http.StatusFound)
}

func idVar(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// loadForm reads the form named by the id route variable.  On failure it
// writes the error page and returns nil.
func (srv *Service) loadForm(w http.ResponseWriter, r *http.Request) *form.Form {
	id, err := idVar(r)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return nil
	}
	def, root, err := srv.db.GetForm(id)
	if errors.Is(err, db.ErrNotFound) {
		srv.web.ErrorResponse(w, http.StatusNotFound, "No such form")
		return nil
	} else if err != nil {
		srv.log.Errorw("Failed to load form", "form", id, "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to load form")
		return nil
	}
	return form.Build(def, root)
}

func (srv *Service) formData(r *http.Request, f *form.Form, res *form.Result) map[string]interface{} {
	data := make(map[string]interface{})
	data["definition"] = f.Definition
	data["elements"] = f.Views(res)
	data["language"] = srv.requestLanguage(r, f.Definition.Language)
	data["action"] = r.URL.Path
	data["has_submit"] = form.FindSubmitButton(f.Root) != nil
	if res != nil {
		data["errors"] = res.Errors[form.NonFieldErrors]
		if res.Language != "" {
			data["language"] = srv.requestLanguage(r, res.Language)
		}
	}
	return data
}

func (srv *Service) renderForm(w http.ResponseWriter, r *http.Request) {
	f := srv.loadForm(w, r)
	if f == nil {
		return
	}
	srv.web.Render(w, http.StatusOK, templates.Form, srv.formData(r, f, nil))
}

// uploads reads the files of a multipart request, keyed by field name.
func uploads(r *http.Request) (map[string]*form.Upload, error) {
	files := make(map[string]*form.Upload)
	if r.MultipartForm == nil {
		return files, nil
	}
	for name, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		fp, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(fp)
		fp.Close()
		if err != nil {
			return nil, err
		}
		files[name] = &form.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Data:        data,
		}
	}
	return files, nil
}

func (srv *Service) processForm(w http.ResponseWriter, r *http.Request) {
	f := srv.loadForm(w, r)
	if f == nil {
		return
	}
	def := f.Definition

	r.Body = http.MaxBytesReader(w, r.Body, srv.Config.MaxUploadSize)
	if err := r.ParseMultipartForm(srv.Config.MaxUploadSize); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read form data")
			return
		}
		if err := r.ParseForm(); err != nil {
			srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read form data")
			return
		}
	}
	files, err := uploads(r)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read uploaded files")
		return
	}

	res := f.Validate(r.PostForm, files)
	if res.FormID != 0 && res.FormID != def.ID {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Form data does not belong to this form")
		return
	}
	if !res.Valid() {
		srv.web.Render(w, http.StatusOK, templates.Form, srv.formData(r, f, res))
		return
	}

	for name, upload := range res.Files {
		if err := srv.media.Save(upload); err != nil {
			srv.log.Errorw("Failed to store upload", "form", def.Name, "field", name, "error", err)
			srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to store uploaded file")
			return
		}
	}

	formURL := r.Referer()
	if formURL == "" {
		formURL = r.URL.String()
	}
	sub := &actions.Submission{
		Form:     f,
		Result:   res,
		Language: srv.requestLanguage(r, res.Language),
		FormURL:  formURL,
		Data:     f.Serialize(res, false),
	}
	plugin := srv.newPlugin(sub)
	err = srv.actions.Get(def.ActionBackend).FormValid(r.Context(), plugin, sub)
	// prepared mails go out even when the action failed
	plugin.deliver(sub)
	if err != nil {
		plugin.Log().Errorw("Action failed", "backend", def.ActionBackend, "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to process the submission")
		return
	}

	target, err := form.SuccessURL(def, form.ConditionMet(def, f.CleanedData(res, false)))
	if err != nil {
		plugin.Log().Errorw("Invalid redirect settings", "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if target != "" {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	data := map[string]interface{}{
		"definition": def,
		"message":    strings.Join(sub.Messages, " "),
	}
	srv.web.Render(w, http.StatusOK, templates.Success, data)
}
