package db

import (
	"time"

	"github.com/G-Node/formtonic/formtonic/form"
	"github.com/G-Node/formtonic/formtonic/notify"
	"xorm.io/xorm"
)

// Submission is a stored form submission.
type Submission struct {
	ID       int64  `xorm:"pk autoincr"`
	FormID   int64  `xorm:"index"`
	Name     string `xorm:"varchar(50) index"`
	Language string `xorm:"varchar(10)"`
	// Serialized form data (name, label, value per field)
	Data []form.SerializedField `xorm:"json"`
	// People who were notified about the submission
	Recipients []notify.Recipient `xorm:"json"`
	FormURL    string
	SentAt     time.Time
}

// FieldData returns the stored fields of the submission.
func (sub *Submission) FieldData() []form.SerializedField {
	if sub.Data == nil {
		return []form.SerializedField{}
	}
	return sub.Data
}

// Value returns the stored value of the named field.
func (sub *Submission) Value(name string) (string, bool) {
	for _, f := range sub.Data {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// RecipientsForDisplay formats the notified people as RFC 5322 addresses.
func (sub *Submission) RecipientsForDisplay() []string {
	out := make([]string, len(sub.Recipients))
	for idx, r := range sub.Recipients {
		out[idx] = r.String()
	}
	return out
}

// SubmissionFilter selects submissions.  Empty fields match everything.  From
// is inclusive; To includes the whole day.
type SubmissionFilter struct {
	Name     string
	Language string
	From     time.Time
	To       time.Time
}

// timeLayout matches how the engine stores times.
const timeLayout = "2006-01-02 15:04:05"

// where adds the filter conditions to a query.
func (f SubmissionFilter) where(sess *xorm.Session) *xorm.Session {
	if f.Name != "" {
		sess.And("name = ?", f.Name)
	}
	if f.Language != "" {
		sess.And("language = ?", f.Language)
	}
	if !f.From.IsZero() {
		sess.And("sent_at >= ?", dayStart(f.From).Format(timeLayout))
	}
	if !f.To.IsZero() {
		sess.And("sent_at < ?", dayStart(f.To).AddDate(0, 0, 1).Format(timeLayout))
	}
	return sess
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InsertSubmission stores a new submission.  A zero SentAt is set to the
// current time.
func (conn *Connection) InsertSubmission(sub *Submission) error {
	if sub.SentAt.IsZero() {
		sub.SentAt = time.Now().UTC()
	}
	_, err := conn.engine.Insert(sub)
	return err
}

// UpdateSubmission stores the recipients of an existing submission.
func (conn *Connection) UpdateSubmission(sub *Submission) error {
	_, err := conn.engine.ID(sub.ID).Cols("recipients").Update(sub)
	return err
}

// GetSubmission retrieves a submission given its ID.
func (conn *Connection) GetSubmission(id int64) (*Submission, error) {
	sub := new(Submission)
	if has, err := conn.engine.ID(id).Get(sub); err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotFound
	}
	return sub, nil
}

// DeleteSubmission removes the submission with the given ID.
func (conn *Connection) DeleteSubmission(id int64) error {
	n, err := conn.engine.ID(id).Delete(new(Submission))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindSubmissions returns the submissions matching the filter, latest first.
func (conn *Connection) FindSubmissions(filter SubmissionFilter) ([]Submission, error) {
	subs := make([]Submission, 0)
	sess := conn.engine.NewSession()
	defer sess.Close()
	if err := filter.where(sess).Desc("sent_at", "id").Find(&subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// CountSubmissions returns the number of submissions matching the filter.
func (conn *Connection) CountSubmissions(filter SubmissionFilter) (int, error) {
	sess := conn.engine.NewSession()
	defer sess.Close()
	n, err := filter.where(sess).Count(new(Submission))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// SubmissionNames returns the distinct form names of all submissions,
// sorted.
func (conn *Connection) SubmissionNames() ([]string, error) {
	rows := make([]Submission, 0)
	if err := conn.engine.Distinct("name").Asc("name").Find(&rows); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
	}
	return names, nil
}

// SubmissionLanguages returns the distinct languages of all submissions,
// sorted.
func (conn *Connection) SubmissionLanguages() ([]string, error) {
	rows := make([]Submission, 0)
	if err := conn.engine.Distinct("language").Asc("language").Find(&rows); err != nil {
		return nil, err
	}
	langs := make([]string, 0, len(rows))
	for _, r := range rows {
		langs = append(langs, r.Language)
	}
	return langs, nil
}
