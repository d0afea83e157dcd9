package formtonic

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/G-Node/formtonic/formtonic/db"
	"github.com/G-Node/formtonic/formtonic/form"
	"github.com/G-Node/formtonic/formtonic/notify"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/html"
)

const testPassword = "correct horse"

func testConfig(t *testing.T, port uint16) Config {
	tmpfile, err := os.CreateTemp("", "testdb")
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %s", err.Error())
	}
	tmpfile.Close()
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %s", err.Error())
	}
	return Config{
		Port:              port,
		DBSource:          tmpfile.Name(),
		MediaDir:          t.TempDir(),
		Languages:         []string{"en", "de"},
		AdminUser:         "admin",
		AdminPasswordHash: string(hash),
		LogMode:           "production",
	}
}

// newTestService returns a service with a running worker and a recording
// mailer.  The web server is not started; requests go to the router.
func newTestService(t *testing.T) (*Service, *notify.Recorder) {
	rec := new(notify.Recorder)
	srv, err := NewService(testConfig(t, 4260), rec)
	if err != nil {
		t.Fatalf("Failed to initialise service: %s", err.Error())
	}
	srv.SetLogger(zap.NewNop().Sugar())
	srv.worker.Start()
	t.Cleanup(func() {
		srv.worker.Stop()
		srv.db.Close()
	})
	return srv, rec
}

func contactForm() (*form.Definition, *form.Node) {
	def := &form.Definition{
		Name:           "Contact",
		SuccessMessage: "Thanks for your message",
		Recipients:     []string{"Staff <staff@example.org>"},
	}
	root := &form.Node{Kind: form.FormPlugin}
	root.Adopt(&form.Node{Kind: form.TextField, Label: "Name", Required: true})
	root.Adopt(&form.Node{Kind: form.EmailField, Label: "E-mail", SendNotification: true, EmailSubject: "Hello $textfield_1"})
	root.Adopt(&form.Node{Kind: form.SubmitButton, Label: "Send"})
	return def, root
}

func createForm(t *testing.T, srv *Service, def *form.Definition, root *form.Node) {
	if err := srv.CreateForm(def, root); err != nil {
		t.Fatalf("Failed to create form: %s", err.Error())
	}
}

func serve(srv *Service, req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.web.Router.ServeHTTP(rec, req)
	return rec
}

func post(srv *Service, path string, values url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return serve(srv, req, cookie)
}

func get(srv *Service, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return serve(srv, httptest.NewRequest("GET", path, nil), cookie)
}

func login(t *testing.T, srv *Service) *http.Cookie {
	rec := post(srv, "/admin/login", url.Values{"username": {"admin"}, "password": {testPassword}}, nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("Sign in failed with status %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == srv.Config.CookieName {
			return c
		}
	}
	t.Fatal("No session cookie set after sign in")
	return nil
}

func waitForMails(t *testing.T, rec *notify.Recorder, n int) []*notify.Message {
	for try := 0; try < 500; try++ {
		if sent := rec.Sent(); len(sent) >= n {
			return sent
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d mails, got %d", n, len(rec.Sent()))
	return nil
}

// inputs returns the names of the input, select and textarea elements of a
// page.
func inputs(t *testing.T, body string) map[string]bool {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Bad HTML: %s", err.Error())
	}
	names := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "input" || n.Data == "select" || n.Data == "textarea") {
			for _, a := range n.Attr {
				if a.Key == "name" {
					names[a.Val] = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return names
}

func TestLoggers(t *testing.T) {
	srv, err := NewService(testConfig(t, 4250), new(notify.Recorder))
	if err != nil {
		t.Fatalf("Failed to initialise service: %s", err.Error())
	}

	core, logs := observer.New(zap.InfoLevel)
	srv.SetLogger(zap.New(core).Sugar())

	if err := srv.Start(); err != nil {
		t.Fatalf("Failed to start service: %s", err.Error())
	}
	srv.Stop()

	expMessages := []string{
		"Starting worker",
		"Worker started",
		"Starting web service",
		"Web server started on :4250",
		"Stopping web service",
		"Stopping worker queue",
		"Closing database connection",
		"Service stopped",
	}
	for _, msg := range expMessages {
		if logs.FilterMessageSnippet(msg).Len() == 0 {
			t.Errorf("Expected message %q not found in log", msg)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := testConfig(t, 4251)
	cfg.Languages = []string{"not a language!"}
	if _, err := NewService(cfg, nil); err == nil {
		t.Fatal("Service accepted an invalid language")
	}
	cfg = testConfig(t, 4251)
	cfg.ActionBackends = []string{"carrier_pigeon"}
	if _, err := NewService(cfg, nil); err == nil {
		t.Fatal("Service accepted an unknown action backend")
	}
}

func TestRenderForm(t *testing.T) {
	srv, _ := newTestService(t)
	def, root := contactForm()
	createForm(t, srv, def, root)

	rec := get(srv, fmt.Sprintf("/forms/%d", def.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Form page returned %d", rec.Code)
	}
	names := inputs(t, rec.Body.String())
	for _, name := range []string{"textfield_1", "emailfield_1", form.LanguageInput, form.FormIDInput} {
		if !names[name] {
			t.Errorf("Input %q missing from form page", name)
		}
	}

	if rec := get(srv, "/forms/999", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("Unknown form returned %d", rec.Code)
	}
}

func TestSubmitForm(t *testing.T) {
	srv, mails := newTestService(t)
	def, root := contactForm()
	createForm(t, srv, def, root)
	path := fmt.Sprintf("/forms/%d", def.ID)

	// missing required field
	rec := post(srv, path, url.Values{"emailfield_1": {"ada@example.org"}}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Invalid submission returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "This field is required.") {
		t.Fatalf("Validation error not shown: %s", rec.Body.String())
	}
	if n, _ := srv.db.CountSubmissions(db.SubmissionFilter{}); n != 0 {
		t.Fatalf("Invalid submission was stored")
	}

	rec = post(srv, path, url.Values{
		"textfield_1":  {"Ada"},
		"emailfield_1": {"ada@example.org"},
		"language":     {"de"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Valid submission returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Thanks for your message") {
		t.Fatalf("Success message not shown: %s", rec.Body.String())
	}

	subs, err := srv.db.FindSubmissions(db.SubmissionFilter{Name: "Contact"})
	if err != nil || len(subs) != 1 {
		t.Fatalf("Expected one stored submission, got %d (%v)", len(subs), err)
	}
	sub := subs[0]
	if sub.Language != "de" {
		t.Errorf("Unexpected submission language %q", sub.Language)
	}
	if v, _ := sub.Value("textfield_1"); v != "Ada" {
		t.Errorf("Unexpected stored value %q", v)
	}
	if len(sub.Recipients) != 1 || sub.Recipients[0].Email != "staff@example.org" {
		t.Errorf("Unexpected recipients: %+v", sub.Recipients)
	}

	sent := waitForMails(t, mails, 2)
	subjects := make(map[string]bool)
	for _, m := range sent {
		subjects[m.Subject] = true
	}
	if !subjects["[Form submission] Contact"] || !subjects["Hello Ada"] {
		t.Fatalf("Unexpected mails: %v", subjects)
	}

	// the delivery is recorded for the submission
	for try := 0; try < 100; try++ {
		if jobs, _ := srv.db.SubmissionJobs(sub.ID); len(jobs) == 1 && jobs[0].IsFinished() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("No finished job recorded for the submission")
}

func TestSubmitRedirect(t *testing.T) {
	srv, _ := newTestService(t)
	def, root := contactForm()
	def.RedirectType = form.RedirectToURL
	def.RedirectURL = "https://example.org/thanks"
	def.NegativeRedirectURL = "https://example.org/sorry"
	def.ConditionField = "textfield_1"
	def.ConditionValue = "nobody"
	createForm(t, srv, def, root)
	path := fmt.Sprintf("/forms/%d", def.ID)

	for value, target := range map[string]string{"Ada": "https://example.org/thanks", "nobody": "https://example.org/sorry"} {
		rec := post(srv, path, url.Values{"textfield_1": {value}}, nil)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("Submission returned %d instead of a redirect", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != target {
			t.Fatalf("Submission with %q redirected to %q instead of %q", value, loc, target)
		}
	}
}

func TestSubmitNoAction(t *testing.T) {
	srv, mails := newTestService(t)
	def, root := contactForm()
	def.ActionBackend = "none"
	createForm(t, srv, def, root)

	rec := post(srv, fmt.Sprintf("/forms/%d", def.ID), url.Values{"textfield_1": {"Ada"}, "emailfield_1": {"ada@example.org"}}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Submission returned %d", rec.Code)
	}
	if n, _ := srv.db.CountSubmissions(db.SubmissionFilter{}); n != 0 {
		t.Fatalf("Submission stored despite the none backend")
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(mails.Sent()); n != 0 {
		t.Fatalf("%d mails sent despite the none backend", n)
	}
}

func TestSubmitUpload(t *testing.T) {
	srv, _ := newTestService(t)
	def := &form.Definition{Name: "Upload"}
	root := &form.Node{Kind: form.FormPlugin}
	root.Adopt(&form.Node{Kind: form.FileField, Label: "Attachment", Required: true, MaxSize: 1024})
	createForm(t, srv, def, root)

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("filefield_1", "notes.txt")
	if err != nil {
		t.Fatalf("Failed to build request: %s", err.Error())
	}
	io.WriteString(fw, "lab notes")
	mw.Close()

	req := httptest.NewRequest("POST", fmt.Sprintf("/forms/%d", def.ID), body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if rec := serve(srv, req, nil); rec.Code != http.StatusOK {
		t.Fatalf("Upload returned %d: %s", rec.Code, rec.Body.String())
	}

	subs, err := srv.db.FindSubmissions(db.SubmissionFilter{Name: "Upload"})
	if err != nil || len(subs) != 1 {
		t.Fatalf("Expected one stored submission, got %d (%v)", len(subs), err)
	}
	stored, _ := subs[0].Value("filefield_1")
	if !strings.HasSuffix(stored, "-notes.txt") {
		t.Fatalf("Unexpected stored file name %q", stored)
	}
	data, err := os.ReadFile(filepath.Join(srv.Config.MediaDir, stored))
	if err != nil || string(data) != "lab notes" {
		t.Fatalf("Upload not stored: %q (%v)", data, err)
	}

	cookie := login(t, srv)
	if rec := get(srv, "/admin/media/"+stored, cookie); rec.Code != http.StatusOK || rec.Body.String() != "lab notes" {
		t.Fatalf("Stored upload not served: %d", rec.Code)
	}
}

func TestRequestLanguage(t *testing.T) {
	srv, _ := newTestService(t)

	req := httptest.NewRequest("GET", "/", nil)
	if lang := srv.requestLanguage(req, ""); lang != "en" {
		t.Errorf("Expected the first language without a header, got %q", lang)
	}
	req.Header.Set("Accept-Language", "de-CH,de;q=0.9,en;q=0.5")
	if lang := srv.requestLanguage(req, ""); lang != "de" {
		t.Errorf("Expected negotiated language de, got %q", lang)
	}
	if lang := srv.requestLanguage(req, "en"); lang != "en" {
		t.Errorf("Posted language not used, got %q", lang)
	}
	if lang := srv.requestLanguage(req, "fr"); lang != "de" {
		t.Errorf("Unsupported posted language not ignored, got %q", lang)
	}
}

func TestAdminLogin(t *testing.T) {
	srv, _ := newTestService(t)
	def, root := contactForm()
	createForm(t, srv, def, root)

	rec := get(srv, "/admin/forms", nil)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/admin/login" {
		t.Fatalf("Anonymous request not redirected to sign in: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	rec = post(srv, "/admin/login", url.Values{"username": {"admin"}, "password": {"wrong"}}, nil)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Invalid username or password") {
		t.Fatalf("Wrong password not rejected: %d", rec.Code)
	}

	cookie := login(t, srv)
	rec = get(srv, "/admin/forms", cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Contact") {
		t.Fatalf("Form list not shown: %d", rec.Code)
	}

	if rec := get(srv, "/admin/logout", cookie); rec.Code != http.StatusFound {
		t.Fatalf("Sign out returned %d", rec.Code)
	}
	if rec := get(srv, "/admin/forms", cookie); rec.Code != http.StatusFound {
		t.Fatalf("Session still valid after sign out: %d", rec.Code)
	}

	expired := db.NewSession("admin", -time.Minute)
	srv.db.InsertSession(expired)
	if rec := get(srv, "/admin/forms", &http.Cookie{Name: srv.Config.CookieName, Value: expired.ID}); rec.Code != http.StatusFound {
		t.Fatalf("Expired session accepted: %d", rec.Code)
	}
}

func TestAdminFormSettings(t *testing.T) {
	srv, _ := newTestService(t)
	def, root := contactForm()
	createForm(t, srv, def, root)
	cookie := login(t, srv)
	path := fmt.Sprintf("/admin/forms/%d", def.ID)

	rec := get(srv, path, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("Form detail returned %d", rec.Code)
	}
	if names := inputs(t, rec.Body.String()); !names["redirect_type"] || !names["action_backend"] || !names["kind"] {
		t.Fatalf("Editor inputs missing: %v", names)
	}

	rec = post(srv, path, url.Values{"name": {"Contact"}, "redirect_type": {"redirect_to_url"}, "action_backend": {"default"}}, cookie)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Please provide an absolute URL for redirect.") {
		t.Fatalf("Missing redirect URL not rejected: %d", rec.Code)
	}

	rec = post(srv, path, url.Values{
		"name":            {"Contact us"},
		"redirect_type":   {"redirect_to_url"},
		"redirect_url":    {"https://example.org/done"},
		"action_backend":  {"email_only"},
		"condition_field": {"textfield_1"},
		"recipients":      {"Staff <staff@example.org>\n\nops@example.org\n"},
	}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Settings update returned %d: %s", rec.Code, rec.Body.String())
	}
	udef, _, err := srv.db.GetForm(def.ID)
	if err != nil {
		t.Fatalf("Failed to load form: %s", err.Error())
	}
	if udef.Name != "Contact us" || udef.ActionBackend != "email_only" || len(udef.Recipients) != 2 || udef.RedirectURL != "https://example.org/done" {
		t.Fatalf("Settings not stored: %+v", udef)
	}

	if rec := post(srv, path+"/delete", nil, cookie); rec.Code != http.StatusSeeOther {
		t.Fatalf("Form deletion returned %d", rec.Code)
	}
	if rec := get(srv, path, cookie); rec.Code != http.StatusNotFound {
		t.Fatalf("Deleted form still shown: %d", rec.Code)
	}
}

func TestAdminElements(t *testing.T) {
	srv, _ := newTestService(t)
	cookie := login(t, srv)

	defA := &form.Definition{Name: "A"}
	rootA := &form.Node{Kind: form.FormPlugin}
	fieldset := &form.Node{Kind: form.Fieldset, Legend: "Details"}
	rootA.Adopt(fieldset)
	fieldset.Adopt(&form.Node{Kind: form.TextField, Name: "topic", Label: "Topic"})
	fieldset.Adopt(&form.Node{Kind: form.TextField, Label: "Comment"})
	createForm(t, srv, defA, rootA)

	defB := &form.Definition{Name: "B"}
	rootB := &form.Node{Kind: form.FormPlugin}
	moved := &form.Node{Kind: form.TextField, Name: "topic", Label: "Subject"}
	rootB.Adopt(moved)
	createForm(t, srv, defB, rootB)

	// adding a clashing name renames the new field
	rec := post(srv, fmt.Sprintf("/admin/forms/%d/elements", defA.ID), url.Values{
		"kind":   {"TextField"},
		"parent": {fmt.Sprint(rootA.ID)},
		"label":  {"Another topic"},
		"name":   {"topic"},
	}, cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "renamed to") {
		t.Fatalf("Clashing element not renamed: %d", rec.Code)
	}
	_, root, _ := srv.db.GetForm(defA.ID)
	if len(root.Children) != 2 || root.Children[1].Name != "topic_" {
		t.Fatalf("Unexpected tree after adding: %+v", root.Children)
	}

	rec = post(srv, fmt.Sprintf("/admin/forms/%d/elements", defA.ID), url.Values{"kind": {"SelectField"}, "parent": {fmt.Sprint(rootA.ID)}}, cookie)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Please provide at least one option.") {
		t.Fatalf("Select without options accepted: %d", rec.Code)
	}

	// move a field from B to the top of A
	rec = post(srv, fmt.Sprintf("/admin/elements/%d/move", moved.ID), url.Values{"parent": {fmt.Sprint(rootA.ID)}, "position": {"0"}}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("Move returned %d: %s", rec.Code, rec.Body.String())
	}
	_, root, _ = srv.db.GetForm(defA.ID)
	if len(root.Children) != 3 || root.Children[0].ID != moved.ID || root.Children[0].Name != "topic__" {
		t.Fatalf("Unexpected tree after move: %+v", root.Children)
	}
	if root.Children[1].Kind != form.Fieldset || root.Children[1].Position != 1 {
		t.Fatalf("Siblings not shifted: %+v", root.Children[1])
	}
	if _, rootB, _ := srv.db.GetForm(defB.ID); len(rootB.Children) != 0 {
		t.Fatalf("Moved element still in source form: %+v", rootB.Children)
	}

	if rec := post(srv, fmt.Sprintf("/admin/elements/%d/move", fieldset.ID), url.Values{"parent": {fmt.Sprint(fieldset.ID)}}, cookie); rec.Code != http.StatusBadRequest {
		t.Fatalf("Move into itself returned %d", rec.Code)
	}

	// deleting the fieldset removes its fields
	if rec := post(srv, fmt.Sprintf("/admin/elements/%d/delete", fieldset.ID), nil, cookie); rec.Code != http.StatusSeeOther {
		t.Fatalf("Delete returned %d", rec.Code)
	}
	_, root, _ = srv.db.GetForm(defA.ID)
	if len(form.Nested(root, false)) != 2 {
		t.Fatalf("Unexpected tree after delete: %+v", form.Nested(root, false))
	}
	for idx, c := range root.Children {
		if c.Position != idx {
			t.Fatalf("Positions not compacted: %+v", root.Children)
		}
	}
	if rec := post(srv, fmt.Sprintf("/admin/elements/%d/delete", rootA.ID), nil, cookie); rec.Code != http.StatusBadRequest {
		t.Fatalf("Deleting the form element returned %d", rec.Code)
	}
}

func TestAdminNotifications(t *testing.T) {
	srv, mails := newTestService(t)
	def, root := contactForm()
	def.Recipients = nil
	createForm(t, srv, def, root)
	cookie := login(t, srv)

	path := fmt.Sprintf("/admin/forms/%d/notifications", def.ID)
	if rec := post(srv, path, url.Values{"theme": {"default"}, "subject": {"x"}}, cookie); rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Please provide a recipient.") {
		t.Fatalf("Notification without recipient accepted: %d", rec.Code)
	}
	rec := post(srv, path, url.Values{
		"theme":     {"default"},
		"to_email":  {"ops@example.org"},
		"subject":   {"New $form_name"},
		"body_text": {"From ${textfield_1}"},
	}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Adding notification returned %d", rec.Code)
	}
	notifications, _ := srv.db.FormNotifications(def.ID)
	if len(notifications) != 1 {
		t.Fatalf("Unexpected notifications: %+v", notifications)
	}

	post(srv, fmt.Sprintf("/forms/%d", def.ID), url.Values{"textfield_1": {"Ada"}}, nil)
	sent := waitForMails(t, mails, 1)
	if sent[0].Subject != "New Contact" || !strings.Contains(sent[0].Text, "From Ada") {
		t.Fatalf("Unexpected notification mail: %+v", sent[0])
	}
	if sent[0].To[0].Email != "ops@example.org" {
		t.Fatalf("Unexpected recipient: %+v", sent[0].To)
	}

	rec = post(srv, fmt.Sprintf("/admin/notifications/%d/delete", notifications[0].ID), nil, cookie)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != fmt.Sprintf("/admin/forms/%d", def.ID) {
		t.Fatalf("Deleting notification returned %d", rec.Code)
	}
}

func TestAdminSubmissions(t *testing.T) {
	srv, _ := newTestService(t)
	cookie := login(t, srv)
	sub := &db.Submission{
		Name:       "Contact",
		Language:   "en",
		Data:       []form.SerializedField{{Name: "textfield_1", Label: "Name", Value: "Grace"}},
		Recipients: []notify.Recipient{{Name: "Staff", Email: "staff@example.org"}},
	}
	if err := srv.db.InsertSubmission(sub); err != nil {
		t.Fatalf("Failed to insert submission: %s", err.Error())
	}

	rec := get(srv, "/admin/submissions?name=Contact", cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), fmt.Sprintf("/admin/submissions/%d", sub.ID)) {
		t.Fatalf("Submission not listed: %d", rec.Code)
	}
	if rec := get(srv, "/admin/submissions?name=Other", cookie); strings.Contains(rec.Body.String(), fmt.Sprintf("/admin/submissions/%d\"", sub.ID)) {
		t.Fatal("Filter did not exclude the submission")
	}

	rec = get(srv, fmt.Sprintf("/admin/submissions/%d", sub.ID), cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Grace") || !strings.Contains(rec.Body.String(), "staff@example.org") {
		t.Fatalf("Submission details not shown: %d", rec.Code)
	}

	if rec := post(srv, fmt.Sprintf("/admin/submissions/%d/delete", sub.ID), nil, cookie); rec.Code != http.StatusSeeOther {
		t.Fatalf("Deleting submission returned %d", rec.Code)
	}
	if rec := get(srv, fmt.Sprintf("/admin/submissions/%d", sub.ID), cookie); rec.Code != http.StatusNotFound {
		t.Fatalf("Deleted submission returned %d", rec.Code)
	}
}

func TestExportWizard(t *testing.T) {
	srv, _ := newTestService(t)
	cookie := login(t, srv)
	for _, name := range []string{"Ada", "Grace"} {
		sub := &db.Submission{
			Name:     "Contact form",
			Language: "en",
			Data:     []form.SerializedField{{Name: "textfield_1", Label: "Name", Value: name}},
		}
		if err := srv.db.InsertSubmission(sub); err != nil {
			t.Fatalf("Failed to insert submission: %s", err.Error())
		}
	}

	if rec := get(srv, "/admin/export", cookie); rec.Code != http.StatusOK || !inputs(t, rec.Body.String())["form_name"] {
		t.Fatalf("Export page returned %d", rec.Code)
	}

	rec := post(srv, "/admin/export", url.Values{"form_name": {"Other"}, "language": {"en"}}, cookie)
	if !strings.Contains(rec.Body.String(), "No records found") {
		t.Fatalf("Empty export not reported: %d", rec.Code)
	}
	rec = post(srv, "/admin/export", url.Values{"form_name": {"Contact form"}}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Export without language returned %d", rec.Code)
	}

	query := url.Values{"form_name": {"Contact form"}, "language": {"en"}}
	rec = post(srv, "/admin/export", query, cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `value="Name-textfield_1"`) {
		t.Fatalf("Field selection not shown: %d %s", rec.Code, rec.Body.String())
	}

	if rec := post(srv, "/admin/export/download", query, cookie); rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Please select at least one field to export.") {
		t.Fatalf("Export without fields returned %d", rec.Code)
	}

	query.Set("file_type", "csv")
	query.Set("current_fields", "Nickname-textfield_9")
	if rec := post(srv, "/admin/export/download", query, cookie); rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "is not one of the available choices") {
		t.Fatalf("Export of an unknown field returned %d", rec.Code)
	}

	future := url.Values{"form_name": {"Contact form"}, "language": {"en"}, "from_date": {time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")}}
	if rec := post(srv, "/admin/export", future, cookie); !strings.Contains(rec.Body.String(), "No records found") {
		t.Fatalf("Date range not applied: %d", rec.Code)
	}

	query.Set("current_fields", "Name-textfield_1")
	rec = post(srv, "/admin/export/download", query, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("Download returned %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "export-en-contact-form-") || !strings.HasSuffix(cd, `.csv"`) {
		t.Errorf("Unexpected content disposition %q", cd)
	}
	if body := rec.Body.String(); body != "Name\nGrace\nAda\n" {
		t.Errorf("Unexpected export: %q", body)
	}
}

const importYAML = `name: Imported
success_message: Done
elements:
  - kind: Fieldset
    legend: You
    children:
      - kind: TextField
        label: Name
        required: true
  - kind: SubmitButton
    label: Go
`

func TestImportForm(t *testing.T) {
	srv, _ := newTestService(t)
	cookie := login(t, srv)

	upload := func(content string) *httptest.ResponseRecorder {
		body := new(bytes.Buffer)
		mw := multipart.NewWriter(body)
		fw, _ := mw.CreateFormFile("definition", "form.yaml")
		io.WriteString(fw, content)
		mw.Close()
		req := httptest.NewRequest("POST", "/admin/forms", body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return serve(srv, req, cookie)
	}

	rec := upload(importYAML)
	if rec.Code != http.StatusSeeOther || !strings.HasPrefix(rec.Header().Get("Location"), "/admin/forms/") {
		t.Fatalf("Import returned %d: %s", rec.Code, rec.Body.String())
	}
	forms, _ := srv.db.AllForms()
	if len(forms) != 1 || forms[0].Name != "Imported" {
		t.Fatalf("Imported form not stored: %+v", forms)
	}

	if rec := upload("name: Broken\ncolour: red\n"); rec.Code != http.StatusBadRequest {
		t.Fatalf("Broken definition returned %d", rec.Code)
	}

	// form files are only imported once
	path := filepath.Join(t.TempDir(), "imported.yaml")
	if err := os.WriteFile(path, []byte(importYAML), 0o644); err != nil {
		t.Fatalf("Failed to write form file: %s", err.Error())
	}
	id, err := srv.ImportFormFile(path)
	if err != nil || id != forms[0].ID {
		t.Fatalf("Existing form imported again: %d (%v)", id, err)
	}
}

func TestSubmitStorageFailure(t *testing.T) {
	srv, mails := newTestService(t)
	def, root := contactForm()
	createForm(t, srv, def, root)

	conn, err := sql.Open("sqlite3", srv.Config.DBSource)
	if err != nil {
		t.Fatalf("Failed to open database: %s", err.Error())
	}
	defer conn.Close()
	if _, err := conn.Exec("DROP TABLE submission"); err != nil {
		t.Fatalf("Failed to drop submission table: %s", err.Error())
	}

	rec := post(srv, fmt.Sprintf("/forms/%d", def.ID), url.Values{"textfield_1": {"Ada"}, "emailfield_1": {"ada@example.org"}}, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Thanks for your message") {
		t.Fatalf("Submission with failing storage returned %d", rec.Code)
	}

	sent := waitForMails(t, mails, 2)
	subjects := make(map[string]bool)
	for _, m := range sent {
		subjects[m.Subject] = true
	}
	if !subjects["[Form submission] Contact"] || !subjects["Hello Ada"] {
		t.Fatalf("Unexpected mails: %v", subjects)
	}

	// the delivery is recorded without a submission
	for try := 0; try < 100; try++ {
		if jobs, _ := srv.db.SubmissionJobs(0); len(jobs) == 1 && jobs[0].IsFinished() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("No finished job recorded for the unsaved submission")
}

func TestSubmitNoStorage(t *testing.T) {
	srv, mails := newTestService(t)
	def, root := contactForm()
	def.ActionBackend = "no_storage"
	createForm(t, srv, def, root)

	rec := post(srv, fmt.Sprintf("/forms/%d", def.ID), url.Values{"textfield_1": {"Ada"}, "emailfield_1": {"ada@example.org"}}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Submission returned %d", rec.Code)
	}
	if n, _ := srv.db.CountSubmissions(db.SubmissionFilter{}); n != 0 {
		t.Fatalf("Submission stored despite the no_storage backend")
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(mails.Sent()); n != 0 {
		t.Fatalf("%d mails sent despite the no_storage backend", n)
	}

	cfg := testConfig(t, 4261)
	cfg.ActionBackends = []string{"default", "no_storage"}
	selected, err := NewService(cfg, new(notify.Recorder))
	if err != nil {
		t.Fatalf("Storage backend rejected in configuration: %s", err.Error())
	}
	defer selected.db.Close()
	if !selected.actions.Has("no_storage") || selected.actions.Has("email_only") {
		t.Fatalf("Unexpected backends: %+v", selected.actions.Choices())
	}
}

func TestCreateFormDuplicateNames(t *testing.T) {
	srv, _ := newTestService(t)
	def := &form.Definition{Name: "Duplicates"}
	root := &form.Node{Kind: form.FormPlugin}
	root.Adopt(&form.Node{Kind: form.EmailField, Name: "email", Label: "First"})
	root.Adopt(&form.Node{Kind: form.EmailField, Name: "email", Label: "Second"})
	createForm(t, srv, def, root)

	_, stored, err := srv.db.GetForm(def.ID)
	if err != nil {
		t.Fatalf("Failed to load form: %s", err.Error())
	}
	if byName := form.FieldsByName(stored); len(byName) != 2 || byName["email_"].Label != "Second" {
		t.Fatalf("Field names not made unique: %+v", form.Fields(stored))
	}

	rec := post(srv, fmt.Sprintf("/forms/%d", def.ID), url.Values{"email": {"ada@example.org"}, "email_": {"grace@example.org"}}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Submission returned %d", rec.Code)
	}
	subs, err := srv.db.FindSubmissions(db.SubmissionFilter{Name: "Duplicates"})
	if err != nil || len(subs) != 1 {
		t.Fatalf("Expected one stored submission, got %d (%v)", len(subs), err)
	}
	if v, _ := subs[0].Value("email_"); v != "grace@example.org" {
		t.Fatalf("Second field stored %q", v)
	}
}

func TestAddElementDefaults(t *testing.T) {
	srv, _ := newTestService(t)
	cookie := login(t, srv)
	def, root := contactForm()
	createForm(t, srv, def, root)

	rec := get(srv, fmt.Sprintf("/admin/forms/%d", def.ID), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("Form detail returned %d", rec.Code)
	}
	doc, err := html.Parse(strings.NewReader(rec.Body.String()))
	if err != nil {
		t.Fatalf("Bad HTML: %s", err.Error())
	}
	var required *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "input" {
			for _, a := range n.Attr {
				if a.Key == "name" && a.Val == "required" {
					required = n
				}
			}
		}
		for c := n.FirstChild; c != nil && required == nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if required == nil {
		t.Fatal("Required checkbox missing from the add element form")
	}
	for _, a := range required.Attr {
		if a.Key == "checked" {
			return
		}
	}
	t.Fatal("New elements are not required by default")
}
