package worker

import (
	"context"
	"time"

	"github.com/G-Node/formtonic/formtonic/db"
	"github.com/G-Node/formtonic/formtonic/notify"
	"go.uber.org/zap"
)

// DefaultQueueLength is used when New is given no queue length.
const DefaultQueueLength = 100

// MailJob is a job that delivers the notification mails of a submission.
type MailJob struct {
	*db.Job
	Messages []*notify.Message
	done     chan struct{}
}

// NewMailJob creates a job for the given messages.
func NewMailJob(submissionID int64, msgs []*notify.Message) *MailJob {
	j := &MailJob{
		Job:      &db.Job{SubmissionID: submissionID},
		Messages: msgs,
		done:     make(chan struct{}),
	}
	recipients := make([]string, 0, len(msgs))
	for _, m := range msgs {
		recipients = append(recipients, m.Recipients()...)
	}
	j.Recipients = recipients
	if len(msgs) > 0 {
		j.Label = msgs[0].Subject
	}
	return j
}

// Done is closed once the job has finished.
func (j *MailJob) Done() <-chan struct{} {
	return j.done
}

// Worker with queue for sending notification mails asynchronously.
type Worker struct {
	queue  chan *MailJob
	stop   chan bool
	db     *db.Connection
	mailer notify.Mailer
	log    *zap.SugaredLogger
	// Timeout limits the delivery of a single job.
	Timeout time.Duration
}

// New returns a worker that delivers through mailer and records jobs in
// dbconn.
func New(dbconn *db.Connection, mailer notify.Mailer, queueLength int, logger *zap.SugaredLogger) *Worker {
	if queueLength <= 0 {
		queueLength = DefaultQueueLength
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	w := new(Worker)
	w.queue = make(chan *MailJob, queueLength)
	w.stop = make(chan bool)
	w.db = dbconn
	w.mailer = mailer
	w.log = logger
	w.Timeout = time.Minute
	return w
}

// SetLogger replaces the worker logger.
func (w *Worker) SetLogger(logger *zap.SugaredLogger) {
	w.log = logger
}

// Enqueue adds the job to the queue and stores it in the database.
func (w *Worker) Enqueue(j *MailJob) {
	j.SubmitTime = time.Now().UTC()
	if err := w.db.InsertJob(j.Job); err != nil {
		w.log.Errorw("Error inserting job into db", "label", j.Label, "error", err)
	}
	w.queue <- j
}

// Stop finishes the queued jobs and stops the worker.
func (w *Worker) Stop() {
	w.stop <- true
	<-w.stop
}

func (w *Worker) run(j *MailJob) {
	defer close(j.done)
	defer func() {
		// Update job entry in db when done
		if err := w.db.UpdateJob(j.Job); err != nil {
			w.log.Errorw("Error updating job", "job", j.ID, "error", err)
		}
	}()
	w.log.Infof("Starting job [J%d] %q", j.ID, j.Label)
	ctx, cancel := context.WithTimeout(context.Background(), w.Timeout)
	defer cancel()
	err := w.mailer.Send(ctx, j.Messages...)
	j.EndTime = time.Now().UTC()
	if err == nil {
		w.log.Infof("Job [J%d] %s finished: %d mails sent", j.ID, j.Label, len(j.Messages))
	} else {
		w.log.Errorf("Job [J%d] %s failed: %s", j.ID, j.Label, err)
		j.Error = err.Error()
	}
}

// Start runs the worker loop in a goroutine.
func (w *Worker) Start() {
	go func() {
		for {
			select {
			case job := <-w.queue:
				w.run(job)
			case <-w.stop:
				w.drain()
				w.stop <- true
				return
			}
		}
	}()
	w.log.Info("Worker started")
}

func (w *Worker) drain() {
	for {
		select {
		case job := <-w.queue:
			w.run(job)
		default:
			return
		}
	}
}
