package formtonic

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/G-Node/formtonic/formtonic/actions"
	"github.com/G-Node/formtonic/formtonic/notify"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config containing all the configuration values for a service.
type Config struct {
	Port       uint16 `env:"PORT" envDefault:"3000" yaml:"port"`
	CookieName string `env:"COOKIE_NAME" envDefault:"formtonic-session" yaml:"cookie_name"`
	// Admin sessions expire after this duration.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h" yaml:"session_ttl"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite3" yaml:"db_driver"`
	// Path of the sqlite file or postgres connection string.
	DBSource string `env:"DB_SOURCE" envDefault:"./formtonic.db" yaml:"db_source"`

	SMTPHost     string `env:"SMTP_HOST" yaml:"smtp_host"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587" yaml:"smtp_port"`
	SMTPUsername string `env:"SMTP_USERNAME" yaml:"smtp_username"`
	SMTPPassword string `env:"SMTP_PASSWORD" yaml:"smtp_password"`
	SMTPTLS      bool   `env:"SMTP_TLS" envDefault:"true" yaml:"smtp_tls"`
	// Sender of all mails without an explicit sender.
	DefaultFrom string `env:"DEFAULT_FROM" envDefault:"Forms <forms@localhost>" yaml:"default_from"`

	AdminUser string `env:"ADMIN_USER" envDefault:"admin" yaml:"admin_user"`
	// bcrypt hash of the admin password
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH" yaml:"admin_password_hash"`

	Languages []string `env:"LANGUAGES" envSeparator:"," envDefault:"en" yaml:"languages"`
	// Directory for uploaded files.
	MediaDir string `env:"MEDIA_DIR" envDefault:"./media" yaml:"media_dir"`
	// Upper bound for the whole multipart request.
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760" yaml:"max_upload_size"`

	QueueLength int `env:"QUEUE_LENGTH" envDefault:"100" yaml:"queue_length"`

	// Keys of the enabled action backends; empty enables all built-ins.
	ActionBackends []string `env:"ACTION_BACKENDS" envSeparator:"," yaml:"action_backends"`
	// Forms created from YAML files at startup when no form of the same name
	// exists.
	FormFiles []string `env:"FORM_FILES" envSeparator:"," yaml:"form_files"`

	// "production" or "development"
	LogMode string `env:"LOG_MODE" envDefault:"development" yaml:"log_mode"`
}

// ConfigFromEnv reads the configuration from FORMTONIC_* environment
// variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "FORMTONIC_"}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadConfig reads a YAML configuration file on top of the environment
// configuration.
func LoadConfig(path string) (Config, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// withDefaults fills in the values that are left empty when a Config is
// built in code rather than read from the environment.
func (cfg Config) withDefaults() Config {
	if cfg.CookieName == "" {
		cfg.CookieName = "formtonic-session"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = "sqlite3"
	}
	if cfg.DBSource == "" {
		cfg.DBSource = "./formtonic.db"
	}
	if cfg.DefaultFrom == "" {
		cfg.DefaultFrom = "Forms <forms@localhost>"
	}
	if cfg.AdminUser == "" {
		cfg.AdminUser = "admin"
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = "./media"
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 10 << 20
	}
	return cfg
}

// Validate checks the values that can't be used as given.
func (cfg Config) Validate() error {
	if _, err := cfg.languageTags(); err != nil {
		return err
	}
	if _, err := notify.ParseRecipient(cfg.DefaultFrom); err != nil {
		return fmt.Errorf("default sender: %w", err)
	}
	for _, key := range cfg.ActionBackends {
		if _, ok := actions.KnownBackends()[key]; !ok {
			return fmt.Errorf("%w: unknown action backend %q", actions.ErrImproperlyConfigured, key)
		}
	}
	return nil
}

func (cfg Config) languageTags() ([]language.Tag, error) {
	if len(cfg.Languages) == 0 {
		return []language.Tag{language.English}, nil
	}
	tags := make([]language.Tag, 0, len(cfg.Languages))
	for _, l := range cfg.Languages {
		tag, err := language.Parse(strings.TrimSpace(l))
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", l, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (cfg Config) smtp() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		TLS:      cfg.SMTPTLS,
	}
}

// NewLogger builds the service logger for the given mode.
func NewLogger(mode string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
