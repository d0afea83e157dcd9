// Admin area: sign in, form editing, notifications and submissions
package formtonic

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/G-Node/formtonic/formtonic/db"
	"github.com/G-Node/formtonic/formtonic/form"
	"github.com/G-Node/formtonic/formtonic/notify"
	"github.com/G-Node/formtonic/templates"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// authedHandler is a handler that requires a signed in admin.
type authedHandler func(w http.ResponseWriter, r *http.Request, sess *db.Session)

// reqLoginHandler acts as middleware to check if the admin is signed in.
// Returns a function that matches 'authedHandler()'.
func (srv *Service) reqLoginHandler(handler authedHandler) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(srv.Config.CookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}
		sess, err := srv.db.GetSession(cookie.Value)
		if err != nil {
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}
		if sess.IsExpired() {
			if err := srv.db.DeleteSession(sess.ID); err != nil {
				srv.log.Errorw("Failed to remove expired session", "error", err)
			}
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}
		handler(w, r, sess)
	}
}

func (srv *Service) setupAdminRoutes(router *mux.Router) {
	router.HandleFunc("/admin/login", srv.renderLoginPage).Methods("GET")
	router.HandleFunc("/admin/login", srv.loginPost).Methods("POST")
	router.HandleFunc("/admin/logout", srv.reqLoginHandler(srv.logout)).Methods("GET", "POST")

	router.HandleFunc("/admin/forms", srv.reqLoginHandler(srv.listForms)).Methods("GET")
	router.HandleFunc("/admin/forms", srv.reqLoginHandler(srv.importForm)).Methods("POST")
	router.HandleFunc("/admin/forms/{id:[0-9]+}", srv.reqLoginHandler(srv.showFormDetail)).Methods("GET")
	router.HandleFunc("/admin/forms/{id:[0-9]+}", srv.reqLoginHandler(srv.updateForm)).Methods("POST")
	router.HandleFunc("/admin/forms/{id:[0-9]+}/delete", srv.reqLoginHandler(srv.deleteForm)).Methods("POST")
	router.HandleFunc("/admin/forms/{id:[0-9]+}/elements", srv.reqLoginHandler(srv.addElement)).Methods("POST")
	router.HandleFunc("/admin/forms/{id:[0-9]+}/notifications", srv.reqLoginHandler(srv.addNotification)).Methods("POST")
	router.HandleFunc("/admin/elements/{id:[0-9]+}/move", srv.reqLoginHandler(srv.moveElement)).Methods("POST")
	router.HandleFunc("/admin/elements/{id:[0-9]+}/delete", srv.reqLoginHandler(srv.deleteElement)).Methods("POST")
	router.HandleFunc("/admin/notifications/{id:[0-9]+}/delete", srv.reqLoginHandler(srv.deleteNotification)).Methods("POST")

	router.HandleFunc("/admin/submissions", srv.reqLoginHandler(srv.listSubmissions)).Methods("GET")
	router.HandleFunc("/admin/submissions/{id:[0-9]+}", srv.reqLoginHandler(srv.showSubmission)).Methods("GET")
	router.HandleFunc("/admin/submissions/{id:[0-9]+}/delete", srv.reqLoginHandler(srv.deleteSubmission)).Methods("POST")
	router.HandleFunc("/admin/media/{name}", srv.reqLoginHandler(srv.serveMedia)).Methods("GET")

	router.HandleFunc("/admin/export", srv.reqLoginHandler(srv.exportQuery)).Methods("GET")
	router.HandleFunc("/admin/export", srv.reqLoginHandler(srv.exportQueryPost)).Methods("POST")
	router.HandleFunc("/admin/export/download", srv.reqLoginHandler(srv.exportDownload)).Methods("POST")
}

func (srv *Service) renderLoginPage(w http.ResponseWriter, r *http.Request) {
	srv.web.Render(w, http.StatusOK, templates.Login, map[string]interface{}{})
}

// checkCredentials compares against the configured admin account.
func (srv *Service) checkCredentials(username, password string) bool {
	if srv.Config.AdminPasswordHash == "" {
		srv.log.Warn("Sign in attempt but no admin password is configured")
		return false
	}
	if username != srv.Config.AdminUser {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(srv.Config.AdminPasswordHash), []byte(password)) == nil
}

func (srv *Service) loginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read form data")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" || !srv.checkCredentials(username, password) {
		srv.log.Infow("Failed sign in", "user", username)
		srv.web.Render(w, http.StatusUnauthorized, templates.Login, map[string]interface{}{"error": "Invalid username or password"})
		return
	}

	sess := db.NewSession(username, srv.Config.SessionTTL)
	if err := srv.db.InsertSession(sess); err != nil {
		srv.log.Errorw("Failed to store session", "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}
	cookie := http.Cookie{
		Name:     srv.Config.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.Expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, &cookie)
	srv.log.Infow("Signed in", "user", username)
	http.Redirect(w, r, "/admin/forms", http.StatusFound)
}

func (srv *Service) logout(w http.ResponseWriter, r *http.Request, sess *db.Session) {
	if err := srv.db.DeleteSession(sess.ID); err != nil {
		srv.log.Errorw("Failed to remove session", "error", err)
	}
	http.SetCookie(w, &http.Cookie{Name: srv.Config.CookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/admin/login", http.StatusFound)
}

func (srv *Service) renderFormList(w http.ResponseWriter, status int, errs []string) {
	forms, err := srv.db.AllForms()
	if err != nil {
		srv.log.Errorw("Failed to list forms", "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to list forms")
		return
	}
	srv.web.Render(w, status, templates.FormList, map[string]interface{}{"forms": forms, "errors": errs})
}

func (srv *Service) listForms(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	srv.renderFormList(w, http.StatusOK, nil)
}

// importForm creates a form from an uploaded YAML definition.
func (srv *Service) importForm(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	if err := r.ParseMultipartForm(srv.Config.MaxUploadSize); err != nil {
		srv.renderFormList(w, http.StatusBadRequest, []string{"Please upload a form definition."})
		return
	}
	fp, _, err := r.FormFile("definition")
	if err != nil {
		srv.renderFormList(w, http.StatusBadRequest, []string{"Please upload a form definition."})
		return
	}
	defer fp.Close()
	def, root, err := form.DecodeYAML(fp)
	if err == nil {
		err = srv.CreateForm(def, root)
	}
	if err != nil {
		srv.renderFormList(w, http.StatusBadRequest, []string{err.Error()})
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/admin/forms/%d", def.ID), http.StatusSeeOther)
}

// renderFormDetail shows the editor page of a form.
func (srv *Service) renderFormDetail(w http.ResponseWriter, status int, def *form.Definition, root *form.Node, messages []string, errs map[string][]string) {
	notifications, err := srv.db.FormNotifications(def.ID)
	if err != nil {
		srv.log.Errorw("Failed to load notifications", "form", def.ID, "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to load form")
		return
	}
	kinds := make([]form.Kind, 0)
	for _, k := range form.Kinds() {
		if k != form.FormPlugin {
			kinds = append(kinds, k)
		}
	}
	containers := make([]*form.Node, 0)
	for _, n := range form.Nested(root, true) {
		if n.Kind.IsContainer() {
			containers = append(containers, n)
		}
	}
	data := map[string]interface{}{
		"definition":    def,
		"nodes":         form.Build(def, root).Views(nil),
		"kinds":         kinds,
		"containers":    containers,
		"fields":        form.FieldChoices(root),
		"backends":      srv.actions.Choices(),
		"notifications": notifications,
		"themes":        notify.Themes(),
		"variables":     notify.TextVariables(root),
		"messages":      messages,
		"errors":        errs,
	}
	srv.web.Render(w, status, templates.FormDetail, data)
}

// loadAdminForm reads the form named by the id route variable.  On failure
// it writes the error page and returns false.
func (srv *Service) loadAdminForm(w http.ResponseWriter, id int64) (*form.Definition, *form.Node, bool) {
	def, root, err := srv.db.GetForm(id)
	if errors.Is(err, db.ErrNotFound) {
		srv.web.ErrorResponse(w, http.StatusNotFound, "No such form")
		return nil, nil, false
	} else if err != nil {
		srv.log.Errorw("Failed to load form", "form", id, "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to load form")
		return nil, nil, false
	}
	return def, root, true
}

func (srv *Service) showFormDetail(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	id, err := idVar(r)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	def, root, ok := srv.loadAdminForm(w, id)
	if !ok {
		return
	}
	srv.renderFormDetail(w, http.StatusOK, def, root, nil, nil)
}

func splitLines(s string) []string {
	out := make([]string, 0)
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// updateForm stores the form-level settings.
func (srv *Service) updateForm(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	id, err := idVar(r)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	def, root, ok := srv.loadAdminForm(w, id)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read form data")
		return
	}
	values := r.PostForm
	def.Name = strings.TrimSpace(values.Get("name"))
	def.ErrorMessage = values.Get("error_message")
	def.SuccessMessage = values.Get("success_message")
	def.RedirectType = form.RedirectType(values.Get("redirect_type"))
	def.RedirectPage = strings.TrimSpace(values.Get("redirect_page"))
	def.RedirectURL = strings.TrimSpace(values.Get("redirect_url"))
	def.NegativeRedirectURL = strings.TrimSpace(values.Get("negative_redirect_url"))
	def.ConditionField = values.Get("condition_field")
	def.ConditionValue = values.Get("condition_value")
	def.CustomClasses = values.Get("custom_classes")
	def.ActionBackend = values.Get("action_backend")
	def.Recipients = splitLines(values.Get("recipients"))

	errs := form.ValidateDefinition(def)
	if def.ActionBackend != "" && !srv.actions.Has(def.ActionBackend) {
		errs["action_backend"] = append(errs["action_backend"], fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", def.ActionBackend))
	}
	if def.ConditionField != "" {
		if _, ok := form.FieldsByName(root)[def.ConditionField]; !ok {
			errs["condition_field"] = append(errs["condition_field"], fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", def.ConditionField))
		}
	}
	if _, invalid := notify.ParseRecipients(def.Recipients); len(invalid) > 0 {
		errs["recipients"] = append(errs["recipients"], fmt.Sprintf("Invalid e-mail addresses: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		srv.renderFormDetail(w, http.StatusBadRequest, def, root, nil, errs)
		return
	}
	if err := srv.db.UpdateForm(def); err != nil {
		srv.log.Errorw("Failed to update form", "form", id, "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to update form")
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/admin/forms/%d", id), http.StatusSeeOther)
}

func (srv *Service) deleteForm(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	id, err := idVar(r)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	if err := srv.db.DeleteForm(id); errors.Is(err, db.ErrNotFound) {
		srv.web.ErrorResponse(w, http.StatusNotFound, "No such form")
		return
	} else if err != nil {
		srv.log.Errorw("Failed to delete form", "form", id, "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete form")
		return
	}
	srv.log.Infow("Form deleted", "form", id)
	http.Redirect(w, r, "/admin/forms", http.StatusSeeOther)
}

func (srv *Service) addNotification(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	id, err := idVar(r)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	def, root, ok := srv.loadAdminForm(w, id)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read form data")
		return
	}
	values := r.PostForm
	n := &notify.Notification{
		FormID:    def.ID,
		Theme:     values.Get("theme"),
		ToName:    strings.TrimSpace(values.Get("to_name")),
		ToEmail:   strings.TrimSpace(values.Get("to_email")),
		ToUser:    strings.TrimSpace(values.Get("to_user")),
		FromName:  strings.TrimSpace(values.Get("from_name")),
		FromEmail: strings.TrimSpace(values.Get("from_email")),
		Subject:   values.Get("subject"),
		BodyText:  values.Get("body_text"),
		BodyHTML:  values.Get("body_html"),
	}
	if err := srv.AddNotification(n); err != nil {
		srv.renderFormDetail(w, http.StatusBadRequest, def, root, nil, map[string][]string{"notification": {err.Error()}})
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/admin/forms/%d", def.ID), http.StatusSeeOther)
}

func (srv *Service) deleteNotification(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	id, err := idVar(r)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	n, err := srv.db.GetNotification(id)
	if errors.Is(err, db.ErrNotFound) {
		srv.web.ErrorResponse(w, http.StatusNotFound, "No such notification")
		return
	} else if err == nil {
		err = srv.db.DeleteNotification(id)
	}
	if err != nil {
		srv.log.Errorw("Failed to delete notification", "notification", id, "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete notification")
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/admin/forms/%d", n.FormID), http.StatusSeeOther)
}

func (srv *Service) listSubmissions(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	filter := db.SubmissionFilter{
		Name:     r.URL.Query().Get("name"),
		Language: r.URL.Query().Get("language"),
	}
	subs, err := srv.db.FindSubmissions(filter)
	if err != nil {
		srv.log.Errorw("Failed to list submissions", "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to list submissions")
		return
	}
	names, err := srv.db.SubmissionNames()
	if err != nil {
		srv.log.Errorw("Failed to list form names", "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to list submissions")
		return
	}
	data := map[string]interface{}{
		"submissions": subs,
		"names":       names,
		"name":        filter.Name,
		"language":    filter.Language,
	}
	srv.web.Render(w, http.StatusOK, templates.SubmissionList, data)
}

func (srv *Service) showSubmission(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	id, err := idVar(r)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	sub, err := srv.db.GetSubmission(id)
	if errors.Is(err, db.ErrNotFound) {
		srv.web.ErrorResponse(w, http.StatusNotFound, "No such submission")
		return
	} else if err != nil {
		srv.log.Errorw("Failed to load submission", "submission", id, "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to load submission")
		return
	}
	jobs, err := srv.db.SubmissionJobs(id)
	if err != nil {
		srv.log.Errorw("Failed to load jobs", "submission", id, "error", err)
	}
	data := map[string]interface{}{
		"submission": sub,
		"data":       sub.FieldData(),
		"recipients": sub.RecipientsForDisplay(),
		"jobs":       jobs,
	}
	srv.web.Render(w, http.StatusOK, templates.SubmissionView, data)
}

func (srv *Service) deleteSubmission(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	id, err := idVar(r)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	if err := srv.db.DeleteSubmission(id); errors.Is(err, db.ErrNotFound) {
		srv.web.ErrorResponse(w, http.StatusNotFound, "No such submission")
		return
	} else if err != nil {
		srv.log.Errorw("Failed to delete submission", "submission", id, "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete submission")
		return
	}
	http.Redirect(w, r, "/admin/submissions", http.StatusSeeOther)
}

// serveMedia sends a stored upload.
func (srv *Service) serveMedia(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	path, err := srv.media.Path(mux.Vars(r)["name"])
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusNotFound, "No such file")
		return
	}
	http.ServeFile(w, r, path)
}

func atoiOr(s string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return v
	}
	return fallback
}
