package db

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/G-Node/formtonic/formtonic/form"
	"github.com/G-Node/formtonic/formtonic/notify"
)

func newTestDB(t *testing.T) *Connection {
	tmpfile, err := os.CreateTemp("", "testdb")
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %s", err.Error())
	}
	tmpfile.Close()
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	db, err := NewSQLite(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to initialise database connection to file %q: %s", tmpfile.Name(), err.Error())
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func intp(v int) *int {
	return &v
}

func testTree() (*form.Definition, *form.Node) {
	def := &form.Definition{
		Name:          "Contact",
		ActionBackend: "default",
		Language:      "en",
		Recipients:    []string{"Staff <staff@example.org>"},
	}
	root := &form.Node{Kind: form.FormPlugin}
	fieldset := &form.Node{Kind: form.Fieldset, Legend: "About you"}
	root.Adopt(fieldset)
	fieldset.Adopt(&form.Node{Kind: form.TextField, Label: "Name", Required: true, MaxValue: intp(100)})
	fieldset.Adopt(&form.Node{Kind: form.EmailField, Label: "E-mail"})
	root.Adopt(&form.Node{Kind: form.SelectField, Label: "Topic", Options: []form.Option{{Value: "Sales"}, {Value: "Support", Default: true}}})
	root.Adopt(&form.Node{Kind: form.SubmitButton, Label: "Send"})
	return def, root
}

func TestInitEmpty(t *testing.T) {
	db := newTestDB(t)

	// db should be empty
	jobs, err := db.AllJobs()
	if err != nil {
		t.Fatalf("Failed to retrieve all jobs from empty db: %s", err.Error())
	}
	if jobs == nil {
		t.Fatal("Job listing returned nil instead of empty slice")
	}
	if len(jobs) != 0 {
		t.Fatalf("Job listing returned %d entries; should be 0", len(jobs))
	}

	forms, err := db.AllForms()
	if err != nil {
		t.Fatalf("Failed to retrieve all forms from empty db: %s", err.Error())
	}
	if len(forms) != 0 {
		t.Fatalf("Form listing returned %d entries; should be 0", len(forms))
	}

	subs, err := db.FindSubmissions(SubmissionFilter{})
	if err != nil {
		t.Fatalf("Failed to retrieve all submissions from empty db: %s", err.Error())
	}
	if len(subs) != 0 {
		t.Fatalf("Submission listing returned %d entries; should be 0", len(subs))
	}
}

func TestFormStore(t *testing.T) {
	db := newTestDB(t)

	def, root := testTree()
	if err := db.InsertForm(def, root); err != nil {
		t.Fatalf("Failed to insert form: %s", err.Error())
	}
	if def.ID == 0 || root.ID == 0 {
		t.Fatalf("IDs not assigned on insertion: form %d, root %d", def.ID, root.ID)
	}

	ldef, lroot, err := db.GetForm(def.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve form: %s", err.Error())
	}
	if ldef.Name != def.Name || ldef.ActionBackend != "default" || len(ldef.Recipients) != 1 {
		t.Fatalf("Unexpected form definition: %+v", ldef)
	}
	if len(lroot.Children) != 3 {
		t.Fatalf("Unexpected number of root children: %d", len(lroot.Children))
	}
	if lroot.Children[0].Kind != form.Fieldset || len(lroot.Children[0].Children) != 2 {
		t.Fatalf("Fieldset not restored: %+v", lroot.Children[0])
	}
	name := lroot.Children[0].Children[0]
	if name.Label != "Name" || !name.Required || name.MaxValue == nil || *name.MaxValue != 100 || name.MinValue != nil {
		t.Fatalf("Field settings not restored: %+v", name)
	}
	if name.Parent() != lroot.Children[0] {
		t.Fatal("Parent link not restored")
	}
	topic := lroot.Children[1]
	if len(topic.Options) != 2 || !topic.Options[1].Default {
		t.Fatalf("Options not restored: %+v", topic.Options)
	}

	fields := form.Fields(lroot)
	if len(fields) != 3 || fields[0].Name != "textfield_1" || fields[2].Name != "selectfield_1" {
		t.Fatalf("Unexpected fields: %+v", fields)
	}

	ldef.SuccessMessage = "Thanks"
	if err := db.UpdateForm(ldef); err != nil {
		t.Fatalf("Failed to update form: %s", err.Error())
	}
	if udef, _, err := db.GetForm(def.ID); err != nil {
		t.Fatalf("Failed to retrieve updated form: %s", err.Error())
	} else if udef.SuccessMessage != "Thanks" {
		t.Fatalf("Form update not stored: %+v", udef)
	}

	// add and move elements
	extra := &form.Node{Kind: form.TextAreaField, Label: "Message", ParentID: lroot.ID, Position: 3}
	if err := db.InsertElement(def.ID, extra); err != nil {
		t.Fatalf("Failed to insert element: %s", err.Error())
	}
	extra.ParentID = lroot.Children[0].ID
	extra.Position = 0
	if err := db.UpdateElement(def.ID, extra); err != nil {
		t.Fatalf("Failed to update element: %s", err.Error())
	}
	row, err := db.GetElement(extra.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve element: %s", err.Error())
	}
	if row.ParentID != lroot.Children[0].ID || row.Kind != string(form.TextAreaField) {
		t.Fatalf("Unexpected element row: %+v", row)
	}

	// swap the fieldset children in one go
	fs := lroot.Children[0]
	fs.Children[0].Position, fs.Children[1].Position = 1, 0
	if err := db.UpdateElements(def.ID, fs.Children); err != nil {
		t.Fatalf("Failed to update elements: %s", err.Error())
	}
	if _, sroot, err := db.GetForm(def.ID); err != nil {
		t.Fatalf("Failed to retrieve form after reordering: %s", err.Error())
	} else if kids := sroot.Children[0].Children; kids[len(kids)-1].ID != fs.Children[0].ID {
		t.Fatalf("Reordering not stored: %+v", kids)
	}

	if err := db.DeleteElements([]int64{extra.ID, topic.ID}); err != nil {
		t.Fatalf("Failed to delete elements: %s", err.Error())
	}
	_, droot, err := db.GetForm(def.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve form after deletion: %s", err.Error())
	}
	if len(droot.Children) != 2 {
		t.Fatalf("Unexpected number of root children after deletion: %d", len(droot.Children))
	}

	if _, err := db.GetElement(extra.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for deleted element, got %v", err)
	}
	if _, _, err := db.GetForm(1000); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for invalid form ID, got %v", err)
	}

	if err := db.DeleteForm(def.ID); err != nil {
		t.Fatalf("Failed to delete form: %s", err.Error())
	}
	if forms, err := db.AllForms(); err != nil || len(forms) != 0 {
		t.Fatalf("Form still listed after deletion: %+v (%v)", forms, err)
	}
	if err := db.DeleteForm(def.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound deleting form twice, got %v", err)
	}
}

func TestInsertFormRejectsNonFormRoot(t *testing.T) {
	db := newTestDB(t)
	if err := db.InsertForm(&form.Definition{Name: "x"}, &form.Node{Kind: form.Fieldset}); err == nil {
		t.Fatal("Succeeded inserting form with a fieldset root")
	}
}

func TestSubmissionStore(t *testing.T) {
	db := newTestDB(t)

	day := func(d int) time.Time {
		return time.Date(2024, time.March, d, 12, 0, 0, 0, time.UTC)
	}
	entries := []Submission{
		{Name: "Contact", Language: "en", SentAt: day(1)},
		{Name: "Contact", Language: "de", SentAt: day(2)},
		{Name: "Contact", Language: "en", SentAt: day(3).Add(11 * time.Hour)},
		{Name: "Signup", Language: "en", SentAt: day(4)},
	}
	for idx := range entries {
		entries[idx].Data = []form.SerializedField{{Name: "textfield_1", Label: "Name", Value: "Ada"}}
		if err := db.InsertSubmission(&entries[idx]); err != nil {
			t.Fatalf("Failed to insert submission: %s", err.Error())
		}
	}

	all, err := db.FindSubmissions(SubmissionFilter{})
	if err != nil {
		t.Fatalf("Failed to list submissions: %s", err.Error())
	}
	if len(all) != 4 {
		t.Fatalf("Unexpected number of submissions: %d", len(all))
	}
	if all[0].Name != "Signup" || !all[3].SentAt.Equal(day(1)) {
		t.Fatalf("Submissions not ordered latest first: %+v", all)
	}

	contact, err := db.FindSubmissions(SubmissionFilter{Name: "Contact", Language: "en"})
	if err != nil {
		t.Fatalf("Failed to filter submissions: %s", err.Error())
	}
	if len(contact) != 2 {
		t.Fatalf("Unexpected number of filtered submissions: %d", len(contact))
	}

	// to date includes the whole day
	ranged, err := db.FindSubmissions(SubmissionFilter{From: day(2), To: day(3)})
	if err != nil {
		t.Fatalf("Failed to filter submissions by date: %s", err.Error())
	}
	if len(ranged) != 2 {
		t.Fatalf("Unexpected number of submissions in range: %d", len(ranged))
	}

	if n, err := db.CountSubmissions(SubmissionFilter{Name: "Signup"}); err != nil || n != 1 {
		t.Fatalf("Unexpected count: %d (%v)", n, err)
	}

	// from starts at midnight; 23:00 of the to date is still in
	ranges := []struct {
		filter   SubmissionFilter
		expected int
	}{
		{SubmissionFilter{From: day(2), To: day(3)}, 2},
		{SubmissionFilter{From: day(3)}, 2},
		{SubmissionFilter{From: day(3), To: day(3)}, 1},
		{SubmissionFilter{To: day(1)}, 1},
		{SubmissionFilter{Name: "Contact", From: day(4)}, 0},
	}
	for idx, r := range ranges {
		if n, err := db.CountSubmissions(r.filter); err != nil || n != r.expected {
			t.Errorf("%d: expected %d submissions, counted %d (%v)", idx, r.expected, n, err)
		}
	}

	names, err := db.SubmissionNames()
	if err != nil {
		t.Fatalf("Failed to list names: %s", err.Error())
	}
	if len(names) != 2 || names[0] != "Contact" || names[1] != "Signup" {
		t.Fatalf("Unexpected names: %v", names)
	}
	langs, err := db.SubmissionLanguages()
	if err != nil {
		t.Fatalf("Failed to list languages: %s", err.Error())
	}
	if len(langs) != 2 || langs[0] != "de" {
		t.Fatalf("Unexpected languages: %v", langs)
	}

	sub, err := db.GetSubmission(entries[0].ID)
	if err != nil {
		t.Fatalf("Failed to retrieve submission: %s", err.Error())
	}
	if data := sub.FieldData(); len(data) != 1 || data[0].Value != "Ada" {
		t.Fatalf("Unexpected submission data: %+v", data)
	}
	if v, ok := sub.Value("textfield_1"); !ok || v != "Ada" {
		t.Fatalf("Unexpected field value: %q", v)
	}

	sub.Recipients = []notify.Recipient{{Name: "Staff", Email: "staff@example.org"}}
	if err := db.UpdateSubmission(sub); err != nil {
		t.Fatalf("Failed to update submission: %s", err.Error())
	}
	if usub, err := db.GetSubmission(sub.ID); err != nil {
		t.Fatalf("Failed to retrieve updated submission: %s", err.Error())
	} else if display := usub.RecipientsForDisplay(); len(display) != 1 || display[0] != `"Staff" <staff@example.org>` {
		t.Fatalf("Unexpected recipients: %v", display)
	}

	if err := db.DeleteSubmission(sub.ID); err != nil {
		t.Fatalf("Failed to delete submission: %s", err.Error())
	}
	if _, err := db.GetSubmission(sub.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for deleted submission, got %v", err)
	}
	if err := db.DeleteSubmission(sub.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound deleting submission twice, got %v", err)
	}
}

func TestNotificationStore(t *testing.T) {
	db := newTestDB(t)

	if err := db.InsertNotification(&notify.Notification{FormID: 1, Subject: "x"}); !errors.Is(err, notify.ErrNoRecipient) {
		t.Fatalf("Expected ErrNoRecipient, got %v", err)
	}
	n := &notify.Notification{FormID: 1, ToUser: "Staff <staff@example.org>", Subject: "New $form_name", BodyText: "$textfield_1"}
	if err := db.InsertNotification(n); err != nil {
		t.Fatalf("Failed to insert notification: %s", err.Error())
	}
	if n.ID == 0 {
		t.Fatal("Notification ID not assigned")
	}
	db.InsertNotification(&notify.Notification{FormID: 2, ToEmail: "other@example.org"})

	list, err := db.FormNotifications(1)
	if err != nil {
		t.Fatalf("Failed to list notifications: %s", err.Error())
	}
	if len(list) != 1 || list[0].RecipientEmail() != "staff@example.org" || list[0].Subject != n.Subject {
		t.Fatalf("Unexpected notifications: %+v", list)
	}
	if got, err := db.GetNotification(n.ID); err != nil || got.FormID != 1 || got.ToUser != n.ToUser {
		t.Fatalf("Unexpected notification %+v (error: %v)", got, err)
	}
	if err := db.DeleteNotification(n.ID); err != nil {
		t.Fatalf("Failed to delete notification: %s", err.Error())
	}
	if _, err := db.GetNotification(n.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after deletion, got %v", err)
	}
	if list, _ := db.FormNotifications(1); len(list) != 0 {
		t.Fatalf("Notification still listed after deletion: %+v", list)
	}
}

func TestSessionStore(t *testing.T) {
	db := newTestDB(t)

	sess := NewSession("admin", time.Hour)
	if err := db.InsertSession(sess); err != nil {
		t.Fatalf("Failed inserting new session: %s", err.Error())
	}
	if db.InsertSession(sess) == nil {
		t.Fatal("Succeeded inserting duplicate session")
	}

	dupe := NewSession("anotheruser", time.Hour)
	dupe.ID = sess.ID
	if db.InsertSession(dupe) == nil {
		t.Fatal("Succeeded inserting session with conflicting ID")
	}

	if s, err := db.GetSession(sess.ID); err != nil {
		t.Fatalf("Failed to retrieve test session from db: %s", err.Error())
	} else if s.ID != sess.ID || s.UserName != "admin" {
		t.Fatalf("Unexpected session returned from db: %+v (not %+v)", s, sess)
	} else if s.IsExpired() {
		t.Fatalf("New session appears expired: %+v", s)
	}

	expired := NewSession("admin", -time.Minute)
	if err := db.InsertSession(expired); err != nil {
		t.Fatalf("Failed inserting expired session: %s", err.Error())
	}
	if !expired.IsExpired() {
		t.Fatalf("Expired session appears valid: %+v", expired)
	}
	if n, err := db.DeleteExpiredSessions(time.Now()); err != nil {
		t.Fatalf("Failed to delete expired sessions: %s", err.Error())
	} else if n != 1 {
		t.Fatalf("Unexpected number of expired sessions removed: %d", n)
	}
	if _, err := db.GetSession(expired.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expired session still stored: %v", err)
	}

	if err := db.DeleteSession(sess.ID); err != nil {
		t.Fatalf("Failed to delete session: %s", err.Error())
	}
	if _, err := db.GetSession(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Session still stored after deletion: %v", err)
	}
}

func TestJobStore(t *testing.T) {
	db := newTestDB(t)

	empty := &Job{}
	if db.InsertJob(empty) != nil {
		t.Fatal("Failed inserting empty job")
	}
	if empty.ID != 1 {
		t.Fatalf("Job ID autoincrement failed: %d", empty.ID)
	}
	if db.InsertJob(empty) == nil {
		t.Fatal("Succeeded while entering duplicate empty job")
	}

	job := &Job{SubmissionID: 42, Label: "New submission", Recipients: []string{"a@example.org", "b@example.org"}, SubmitTime: time.Now()}
	if err := db.InsertJob(job); err != nil {
		t.Fatalf("Failed inserting new job: %s", err.Error())
	}

	nExpected := 2
	if jobs, err := db.AllJobs(); err != nil {
		t.Fatalf("Failed to retrieve all jobs from db: %s", err.Error())
	} else if len(jobs) != nExpected {
		t.Fatalf("Unexpected number of jobs found: %d (expected %d)", len(jobs), nExpected)
	}

	if j, err := db.GetJob(job.ID); err != nil {
		t.Fatalf("Failed to retrieve test job from db: %s", err.Error())
	} else if j.ID != job.ID || len(j.Recipients) != 2 || j.Recipients[1] != "b@example.org" {
		t.Fatalf("Unexpected job returned from db: %+v (not %+v)", j, job)
	}

	if j, err := db.GetJob(1000); err == nil {
		t.Fatalf("Succeeded retrieving job using invalid ID: %+v", j)
	}

	if job.IsFinished() {
		t.Fatalf("New (unfinished) job appears finished: %+v", job)
	}
	job.EndTime = time.Now()
	job.Error = "connection refused"
	if !job.IsFinished() || !job.Failed() {
		t.Fatalf("Failed job appears unfinished: %+v", job)
	}
	if err := db.UpdateJob(job); err != nil {
		t.Fatalf("Failed to update job (finished): %s", err.Error())
	}
	if jobs, err := db.SubmissionJobs(42); err != nil {
		t.Fatalf("Failed to retrieve submission jobs: %s", err.Error())
	} else if len(jobs) != 1 || !jobs[0].Failed() || jobs[0].Error != "connection refused" {
		t.Fatalf("Finished job, loaded from db, has unexpected state: %+v", jobs)
	}
}
