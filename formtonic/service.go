package formtonic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/G-Node/formtonic/formtonic/actions"
	"github.com/G-Node/formtonic/formtonic/db"
	"github.com/G-Node/formtonic/formtonic/form"
	"github.com/G-Node/formtonic/formtonic/notify"
	"github.com/G-Node/formtonic/formtonic/web"
	"github.com/G-Node/formtonic/formtonic/worker"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Service represents a full form service which contains a web server, a
// database for forms, submissions and sessions, and a worker that delivers
// notification mails.
type Service struct {
	web     *web.Server
	db      *db.Connection
	worker  *worker.Worker
	log     *zap.SugaredLogger
	actions *actions.Registry
	media   *MediaStore
	from    notify.Recipient
	tags    []language.Tag
	matcher language.Matcher
	Config  Config
}

// NewService creates a new Service from the configuration.  A nil mailer
// sends through the configured SMTP server, or only logs mails when no
// server is configured.
func NewService(cfg Config, mailer notify.Mailer) (*Service, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := NewLogger(cfg.LogMode)
	if err != nil {
		return nil, err
	}
	srv := new(Service)
	srv.Config = cfg
	srv.log = logger

	srv.from, _ = notify.ParseRecipient(cfg.DefaultFrom)
	srv.tags, _ = cfg.languageTags()
	srv.matcher = language.NewMatcher(srv.tags)

	backends := actions.KnownBackends()
	if len(cfg.ActionBackends) > 0 {
		if backends, err = actions.Select(backends, cfg.ActionBackends); err != nil {
			return nil, err
		}
		if _, ok := backends[actions.DefaultKey]; !ok {
			backends[actions.DefaultKey] = actions.DefaultAction{}
		}
	}
	if srv.actions, err = actions.NewRegistry(backends); err != nil {
		return nil, err
	}

	// DB
	srv.log.Infow("Initialising database", "driver", cfg.DBDriver)
	conn, err := db.New(cfg.DBDriver, cfg.DBSource)
	if err != nil {
		return nil, fmt.Errorf("database %s: %w", cfg.DBDriver, err)
	}
	srv.db = conn

	if srv.media, err = NewMediaStore(cfg.MediaDir); err != nil {
		conn.Close()
		return nil, err
	}

	// Worker
	if mailer == nil {
		if cfg.SMTPHost != "" {
			mailer = notify.NewSMTPMailer(cfg.smtp())
		} else {
			srv.log.Warn("No SMTP server configured; mails will only be logged")
			mailer = &logMailer{srv: srv}
		}
	}
	srv.worker = worker.New(srv.db, mailer, cfg.QueueLength, srv.log.Named("worker"))

	// Web server
	srv.web = web.New(cfg.Port, srv.log.Named("web"))
	srv.setupWebRoutes()

	for _, path := range cfg.FormFiles {
		if _, err := srv.ImportFormFile(path); err != nil {
			srv.db.Close()
			return nil, err
		}
	}
	return srv, nil
}

// SetLogger replaces the logger of the service and its components.
func (srv *Service) SetLogger(logger *zap.SugaredLogger) {
	srv.log = logger
	srv.worker.SetLogger(logger.Named("worker"))
	srv.web.SetLogger(logger.Named("web"))
}

// Start the service (worker and web server).
func (srv *Service) Start() error {
	if srv.db == nil {
		return errors.New("service has no database")
	}
	if n, err := srv.db.DeleteExpiredSessions(time.Now().UTC()); err != nil {
		srv.log.Errorw("Failed to remove expired sessions", "error", err)
	} else if n > 0 {
		srv.log.Infof("Removed %d expired sessions", n)
	}

	srv.log.Info("Starting worker")
	srv.worker.Start()

	srv.log.Info("Starting web service")
	srv.web.Start()
	srv.log.Infof("Web server started on %s", srv.web.Addr)
	return nil
}

// WaitForInterrupt blocks until the service receives an interrupt signal (SIGINT).
func (srv *Service) WaitForInterrupt() {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt)
	<-sigchan
}

// Stop the service by gracefully shutting down the web service, stopping the
// worker, and closing the database connection, in that order.
func (srv *Service) Stop() {
	srv.log.Info("Stopping web service")
	srv.web.Stop()

	srv.log.Info("Stopping worker queue")
	srv.worker.Stop()

	srv.log.Info("Closing database connection")
	if err := srv.db.Close(); err != nil {
		srv.log.Errorw("Error closing database", "error", err)
	}
	srv.log.Info("Service stopped")
	_ = srv.log.Sync()
}

// CreateForm validates and stores a new form tree.  Repeated field names
// are made unique first.
func (srv *Service) CreateForm(def *form.Definition, root *form.Node) error {
	if errs := form.ValidateDefinition(def); len(errs) > 0 {
		return fmt.Errorf("form %q: %v", def.Name, errs)
	}
	if def.ActionBackend != "" && !srv.actions.Has(def.ActionBackend) {
		return fmt.Errorf("form %q: unknown action backend %q", def.Name, def.ActionBackend)
	}
	for _, msg := range form.MakeNamesUnique(root) {
		srv.log.Warnw(msg, "form", def.Name)
	}
	if err := srv.db.InsertForm(def, root); err != nil {
		return err
	}
	srv.log.Infow("Form created", "form", def.Name, "id", def.ID)
	return nil
}

// EnsureForm creates the form unless a form with the same name exists.
// Returns the ID of the new or existing form.
func (srv *Service) EnsureForm(def *form.Definition, root *form.Node) (int64, error) {
	existing, err := srv.db.AllForms()
	if err != nil {
		return 0, err
	}
	for _, e := range existing {
		if e.Name == def.Name {
			srv.log.Infow("Form exists; skipping", "form", def.Name, "id", e.ID)
			return e.ID, nil
		}
	}
	if err := srv.CreateForm(def, root); err != nil {
		return 0, err
	}
	return def.ID, nil
}

// ImportFormFile creates the form described by a YAML file unless a form
// with the same name exists.
func (srv *Service) ImportFormFile(path string) (int64, error) {
	def, root, err := form.LoadYAML(path)
	if err != nil {
		return 0, err
	}
	return srv.EnsureForm(def, root)
}

// AddNotification stores an e-mail notification for a form.
func (srv *Service) AddNotification(n *notify.Notification) error {
	if _, _, err := srv.db.GetForm(n.FormID); err != nil {
		return err
	}
	return srv.db.InsertNotification(n)
}

// logMailer stands in for an SMTP server during development.
type logMailer struct {
	srv *Service
}

func (lm *logMailer) Send(_ context.Context, msgs ...*notify.Message) error {
	for _, m := range msgs {
		lm.srv.log.Infow("Mail not sent (no SMTP server)", "to", m.Recipients(), "subject", m.Subject)
	}
	return nil
}
