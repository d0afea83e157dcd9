package formtonic

import (
	"context"

	"github.com/G-Node/formtonic/formtonic/actions"
	"github.com/G-Node/formtonic/formtonic/db"
	"github.com/G-Node/formtonic/formtonic/notify"
	"github.com/G-Node/formtonic/formtonic/worker"
	"go.uber.org/zap"
)

const defaultSuccessMessage = "The form has been sent."

// formPlugin runs the operations of an action backend for one submission.
// Mails prepared by SendNotifications are queued by deliver once the action
// has finished, so the job can refer to the stored submission.
type formPlugin struct {
	srv     *Service
	pending []*notify.Message
	log     *zap.SugaredLogger
}

func (srv *Service) newPlugin(sub *actions.Submission) *formPlugin {
	return &formPlugin{
		srv: srv,
		log: srv.log.With("form", sub.Form.Definition.Name),
	}
}

// SendNotifications prepares the staff mail, the configured notifications
// and the confirmation mails.  Returns the staff and notification recipients.
// Mails that can't be prepared are logged and skipped.
func (p *formPlugin) SendNotifications(_ context.Context, sub *actions.Submission) ([]notify.Recipient, error) {
	def := sub.Form.Definition
	recipients := make([]notify.Recipient, 0)

	staff, invalid := notify.ParseRecipients(def.Recipients)
	for _, addr := range invalid {
		p.log.Warnw("Ignoring invalid recipient", "recipient", addr)
	}
	if len(staff) > 0 {
		if msg, err := notify.StaffNotification(def.Name, staff, p.srv.from, sub.Data); err != nil {
			p.log.Errorw("Failed to prepare staff notification", "error", err)
		} else {
			p.pending = append(p.pending, msg)
			recipients = append(recipients, staff...)
		}
	}

	notifications, err := p.srv.db.FormNotifications(def.ID)
	if err != nil {
		p.log.Errorw("Failed to load notifications", "error", err)
	}
	ctx := notify.Context(def.Name, sub.Data)
	for _, n := range notifications {
		msg, err := n.Prepare(ctx, p.srv.from)
		if err != nil {
			p.log.Errorw("Failed to prepare notification", "notification", n.ID, "error", err)
			continue
		}
		p.pending = append(p.pending, msg)
		recipients = append(recipients, msg.To...)
	}

	confirmations, err := notify.Confirmations(sub.Form, sub.Result, p.srv.from)
	if err != nil {
		p.log.Errorw("Failed to prepare confirmation mails", "error", err)
	}
	p.pending = append(p.pending, confirmations...)
	return recipients, nil
}

// Save stores the submission.  A failed insert is logged and the submission
// goes on without an ID.
func (p *formPlugin) Save(_ context.Context, sub *actions.Submission) error {
	row := &db.Submission{
		FormID:     sub.Form.Definition.ID,
		Name:       sub.Form.Definition.Name,
		Language:   sub.Language,
		Data:       sub.Data,
		Recipients: sub.Recipients,
		FormURL:    sub.FormURL,
	}
	if err := p.srv.db.InsertSubmission(row); err != nil {
		p.log.Errorw("Failed to store submission", "error", err)
		return nil
	}
	sub.ID = row.ID
	p.log.Infow("Submission stored", "submission", row.ID)
	return nil
}

// SendSuccessMessage adds the success message of the form.
func (p *formPlugin) SendSuccessMessage(sub *actions.Submission) {
	msg := sub.Form.Definition.SuccessMessage
	if msg == "" {
		msg = defaultSuccessMessage
	}
	sub.Messages = append(sub.Messages, msg)
}

func (p *formPlugin) Log() *zap.SugaredLogger {
	return p.log
}

// deliver queues the prepared mails.
func (p *formPlugin) deliver(sub *actions.Submission) *worker.MailJob {
	if len(p.pending) == 0 {
		return nil
	}
	job := worker.NewMailJob(sub.ID, p.pending)
	p.srv.worker.Enqueue(job)
	p.pending = nil
	return job
}
