package notify

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/G-Node/formtonic/formtonic/form"
	"github.com/G-Node/formtonic/templates"
)

// DefaultTheme is the theme used when a notification names none.
const DefaultTheme = "default"

// ErrNoRecipient is returned by Validate for notifications without an
// address to send to.
var ErrNoRecipient = errors.New("Please provide a recipient.")

var themes = map[string]string{
	DefaultTheme: templates.ThemeDefault,
}

// Themes returns the names of the available e-mail themes.
func Themes() []string {
	return []string{DefaultTheme}
}

// Notification is an e-mail configured by an editor for a form.  Every text
// setting may contain $placeholders for the submitted fields and form_name.
type Notification struct {
	ID      int64
	FormID  int64
	Theme   string
	ToName  string
	ToEmail string
	// ToUser is a staff member used when no explicit name or address is
	// set ("Jane Doe <jane@example.org>").
	ToUser    string
	FromName  string
	FromEmail string
	Subject   string
	BodyText  string
	BodyHTML  string
}

func (n *Notification) user() Recipient {
	if n.ToUser == "" {
		return Recipient{}
	}
	r, err := ParseRecipient(n.ToUser)
	if err != nil {
		return Recipient{}
	}
	return r
}

// RecipientName returns the explicit recipient name, falling back to the
// staff user's name.
func (n *Notification) RecipientName() string {
	if n.ToName != "" {
		return n.ToName
	}
	return n.user().Name
}

// RecipientEmail returns the explicit recipient address, falling back to the
// staff user's address.
func (n *Notification) RecipientEmail() string {
	if n.ToEmail != "" {
		return n.ToEmail
	}
	return n.user().Email
}

// Validate checks that the notification can be delivered.
func (n *Notification) Validate() error {
	if n.RecipientEmail() == "" {
		return ErrNoRecipient
	}
	if n.Theme != "" {
		if _, ok := themes[n.Theme]; !ok {
			return fmt.Errorf("unknown theme %q", n.Theme)
		}
	}
	return nil
}

// String describes the notification as "name (email)".
func (n *Notification) String() string {
	return fmt.Sprintf("%s (%s)", n.RecipientName(), n.RecipientEmail())
}

// Prepare renders the notification for a submission.  The sender defaults
// to from when the notification has no sender address.
func (n *Notification) Prepare(ctx map[string]string, from Recipient) (*Message, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	to := Recipient{
		Name:  RenderText(n.RecipientName(), ctx),
		Email: RenderText(n.RecipientEmail(), ctx),
	}
	if n.FromEmail != "" {
		from = Recipient{
			Name:  RenderText(n.FromName, ctx),
			Email: RenderText(n.FromEmail, ctx),
		}
	}
	msg := &Message{
		From:    from,
		To:      []Recipient{to},
		Subject: RenderText(n.Subject, ctx),
		Text:    RenderText(n.BodyText, ctx),
	}
	if n.BodyHTML != "" {
		body := RenderText(n.BodyHTML, ctx)
		html, err := applyTheme(n.Theme, msg.Subject, body)
		if err != nil {
			return nil, err
		}
		msg.HTML = html
	}
	return msg, nil
}

func applyTheme(theme, subject, body string) (string, error) {
	if theme == "" {
		theme = DefaultTheme
	}
	tmpl, err := htmltemplate.New(theme).Parse(themes[theme])
	if err != nil {
		return "", err
	}
	buf := new(bytes.Buffer)
	data := struct {
		Subject string
		Body    htmltemplate.HTML
	}{subject, htmltemplate.HTML(body)}
	if err := tmpl.Execute(buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type mailData struct {
	FormName string
	Body     string
	Data     []form.SerializedField
}

func renderText(name, src string, data mailData) (string, error) {
	tmpl, err := texttemplate.New(name).Parse(src)
	if err != nil {
		return "", err
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StaffNotification renders the mail sent to the staff recipients of a form
// with the submitted data.
func StaffNotification(formName string, to []Recipient, from Recipient, data []form.SerializedField) (*Message, error) {
	if len(to) == 0 {
		return nil, ErrNoRecipient
	}
	md := mailData{FormName: formName, Data: data}
	text, err := renderText("notification", templates.NotificationText, md)
	if err != nil {
		return nil, err
	}
	tmpl, err := htmltemplate.New("notification").Parse(templates.NotificationHTML)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, md); err != nil {
		return nil, err
	}
	return &Message{
		From:    from,
		To:      to,
		Subject: fmt.Sprintf("[Form submission] %s", formName),
		Text:    text,
		HTML:    buf.String(),
	}, nil
}

// Confirmations renders the mails sent to visitors who entered an address
// in an e-mail field with notifications enabled.
func Confirmations(f *form.Form, res *form.Result, from Recipient) ([]*Message, error) {
	data := f.Serialize(res, true)
	ctx := Context(f.Definition.Name, data)
	msgs := make([]*Message, 0)
	for _, field := range f.Fields {
		n := field.Node
		if n.Kind != form.EmailField || !n.SendNotification {
			continue
		}
		addr := strings.TrimSpace(res.Value(field.Name))
		if addr == "" {
			continue
		}
		subject := RenderText(n.EmailSubject, ctx)
		if subject == "" {
			subject = f.Definition.Name
		}
		text, err := renderText("confirmation", templates.ConfirmationText, mailData{
			FormName: f.Definition.Name,
			Body:     RenderText(n.EmailBody, ctx),
			Data:     data,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, &Message{
			From:    from,
			To:      []Recipient{{Email: addr}},
			Subject: subject,
			Text:    text,
		})
	}
	return msgs, nil
}
