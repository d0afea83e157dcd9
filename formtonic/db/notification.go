package db

import (
	"github.com/G-Node/formtonic/formtonic/notify"
)

// EmailNotification is an e-mail configured for a form and sent for every
// submission.
type EmailNotification struct {
	ID        int64 `xorm:"pk autoincr"`
	FormID    int64 `xorm:"index"`
	Theme     string `xorm:"varchar(200)"`
	ToName    string `xorm:"varchar(200)"`
	ToEmail   string
	ToUser    string
	FromName  string `xorm:"varchar(200)"`
	FromEmail string
	Subject   string `xorm:"varchar(200)"`
	BodyText  string `xorm:"text"`
	BodyHTML  string `xorm:"text"`
}

func notificationRow(n *notify.Notification) *EmailNotification {
	return &EmailNotification{
		ID:        n.ID,
		FormID:    n.FormID,
		Theme:     n.Theme,
		ToName:    n.ToName,
		ToEmail:   n.ToEmail,
		ToUser:    n.ToUser,
		FromName:  n.FromName,
		FromEmail: n.FromEmail,
		Subject:   n.Subject,
		BodyText:  n.BodyText,
		BodyHTML:  n.BodyHTML,
	}
}

// Notification converts the row to a notification.
func (en *EmailNotification) Notification() *notify.Notification {
	return &notify.Notification{
		ID:        en.ID,
		FormID:    en.FormID,
		Theme:     en.Theme,
		ToName:    en.ToName,
		ToEmail:   en.ToEmail,
		ToUser:    en.ToUser,
		FromName:  en.FromName,
		FromEmail: en.FromEmail,
		Subject:   en.Subject,
		BodyText:  en.BodyText,
		BodyHTML:  en.BodyHTML,
	}
}

// InsertNotification stores a new notification after validating it.  Upon
// successful return, the notification has a new unique ID.
func (conn *Connection) InsertNotification(n *notify.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	row := notificationRow(n)
	row.ID = 0
	if _, err := conn.engine.Insert(row); err != nil {
		return err
	}
	n.ID = row.ID
	return nil
}

// FormNotifications returns the notifications configured for a form.
func (conn *Connection) FormNotifications(formID int64) ([]*notify.Notification, error) {
	rows := make([]EmailNotification, 0)
	if err := conn.engine.Where("form_id = ?", formID).Asc("id").Find(&rows); err != nil {
		return nil, err
	}
	out := make([]*notify.Notification, len(rows))
	for idx := range rows {
		out[idx] = rows[idx].Notification()
	}
	return out, nil
}

// DeleteNotification removes the notification with the given ID.
func (conn *Connection) DeleteNotification(id int64) error {
	n, err := conn.engine.ID(id).Delete(new(EmailNotification))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetNotification retrieves a single notification.
func (conn *Connection) GetNotification(id int64) (*notify.Notification, error) {
	row := new(EmailNotification)
	if has, err := conn.engine.ID(id).Get(row); err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotFound
	}
	return row.Notification(), nil
}
