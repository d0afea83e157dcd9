package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wneessen/go-mail"
)

// Message is a rendered e-mail ready for delivery.
type Message struct {
	From    Recipient
	To      []Recipient
	Subject string
	Text    string
	HTML    string
}

// Recipients lists the addresses of the message in RFC 5322 form.
func (m *Message) Recipients() []string {
	addrs := make([]string, len(m.To))
	for idx, r := range m.To {
		addrs[idx] = r.String()
	}
	return addrs
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msgs ...*Message) error
}

// SMTPConfig holds the settings of the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLS makes STARTTLS mandatory; otherwise it is used when offered.
	TLS bool
}

// SMTPMailer sends messages through an SMTP server.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer returns a mailer for the given server.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *Message) build() (*mail.Msg, error) {
	if len(m.To) == 0 {
		return nil, errors.New("message has no recipients")
	}
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.From.Name, m.From.Email); err != nil {
		return nil, fmt.Errorf("sender %s: %w", m.From, err)
	}
	for _, r := range m.To {
		if err := msg.AddToFormat(r.Name, r.Email); err != nil {
			return nil, fmt.Errorf("recipient %s: %w", r, err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	}
	return msg, nil
}

// Bytes renders the complete message including headers.
func (m *Message) Bytes() ([]byte, error) {
	msg, err := m.build()
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if _, err := msg.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Send delivers all messages over a single connection.
func (sm *SMTPMailer) Send(ctx context.Context, msgs ...*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]*mail.Msg, 0, len(msgs))
	for _, m := range msgs {
		msg, err := m.build()
		if err != nil {
			return err
		}
		out = append(out, msg)
	}

	opts := []mail.Option{mail.WithPort(sm.cfg.Port)}
	if sm.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if sm.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(sm.cfg.Username),
			mail.WithPassword(sm.cfg.Password),
		)
	}
	client, err := mail.NewClient(sm.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client for %s: %w", sm.cfg.Host, err)
	}
	if err := client.DialAndSendWithContext(ctx, out...); err != nil {
		return fmt.Errorf("sending mail via %s: %w", sm.cfg.Host, err)
	}
	return nil
}

// Recorder keeps messages in memory instead of sending them.
type Recorder struct {
	mu   sync.Mutex
	sent []*Message
	// Err, if set, is returned by Send and nothing is recorded.
	Err error
}

// Send records the messages.
func (r *Recorder) Send(_ context.Context, msgs ...*Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for _, m := range msgs {
		if _, err := m.build(); err != nil {
			return err
		}
	}
	r.sent = append(r.sent, msgs...)
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Message(nil), r.sent...)
}
