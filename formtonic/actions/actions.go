// Package actions holds the backends that decide what happens with a valid
// form submission.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/G-Node/formtonic/formtonic/form"
	"github.com/G-Node/formtonic/formtonic/notify"
	"go.uber.org/zap"
)

// MaxKeyLength is the maximum length of a backend key; it is stored in a
// column of that size.
const MaxKeyLength = 15

// DefaultKey names the backend used when a form doesn't name one.
const DefaultKey = "default"

// ErrImproperlyConfigured is wrapped by all registry validation errors.
var ErrImproperlyConfigured = errors.New("improperly configured")

// Submission is a validated form submission passed to an action.
type Submission struct {
	Form     *form.Form
	Result   *form.Result
	Language string
	FormURL  string
	// Serialized data as stored and sent to the staff
	Data []form.SerializedField
	// People notified, filled in by the action
	Recipients []notify.Recipient
	// Set once the submission has been stored
	ID int64
	// Messages to show to the visitor
	Messages []string
}

// Plugin provides the operations an action can run for a submission.
type Plugin interface {
	SendNotifications(ctx context.Context, sub *Submission) ([]notify.Recipient, error)
	Save(ctx context.Context, sub *Submission) error
	SendSuccessMessage(sub *Submission)
	Log() *zap.SugaredLogger
}

// Action handles valid submissions.
type Action interface {
	VerboseName() string
	FormValid(ctx context.Context, plugin Plugin, sub *Submission) error
}

// DefaultAction notifies, stores the submission and shows the success
// message.
type DefaultAction struct{}

func (DefaultAction) VerboseName() string { return "Default action backend" }

func (DefaultAction) FormValid(ctx context.Context, plugin Plugin, sub *Submission) error {
	recipients, err := plugin.SendNotifications(ctx, sub)
	if err != nil {
		return err
	}
	sub.Recipients = recipients
	if err := plugin.Save(ctx, sub); err != nil {
		return err
	}
	plugin.SendSuccessMessage(sub)
	return nil
}

// EmailAction only sends the notifications.
type EmailAction struct{}

func (EmailAction) VerboseName() string { return "Email action backend" }

func (EmailAction) FormValid(ctx context.Context, plugin Plugin, sub *Submission) error {
	recipients, err := plugin.SendNotifications(ctx, sub)
	if err != nil {
		return err
	}
	sub.Recipients = recipients
	plugin.Log().Infof("Sent email notifications to %d recipients.", len(recipients))
	return nil
}

// NoAction drops the submission.
type NoAction struct{}

func (NoAction) VerboseName() string { return "No action backend" }

func (NoAction) FormValid(_ context.Context, plugin Plugin, sub *Submission) error {
	plugin.Log().Infof("Not persisting data for %q since action_backend is set to %q", sub.Form.Definition.Name, "none")
	return nil
}

// DefaultStorageBackend behaves like DefaultAction.  Storage backends are
// kept for forms configured before action backends existed.
type DefaultStorageBackend struct{ DefaultAction }

func (DefaultStorageBackend) VerboseName() string { return "Regular Database Storage" }

// NoStorageBackend notifies nobody and stores nothing.
type NoStorageBackend struct{}

func (NoStorageBackend) VerboseName() string { return "No Database Storage" }

func (NoStorageBackend) FormValid(_ context.Context, plugin Plugin, sub *Submission) error {
	plugin.Log().Infof("Not persisting data for %q since the storage_backend is set to %q", sub.Form.Definition.Name, "no_storage")
	return nil
}

// DefaultActions returns the built-in action backends.
func DefaultActions() map[string]Action {
	return map[string]Action{
		DefaultKey:   DefaultAction{},
		"email_only": EmailAction{},
		"none":       NoAction{},
	}
}

// DefaultStorageBackends returns the built-in storage backends.
func DefaultStorageBackends() map[string]Action {
	return map[string]Action{
		DefaultKey:   DefaultStorageBackend{},
		"no_storage": NoStorageBackend{},
	}
}

// KnownBackends returns the built-in action backends together with the
// storage backends.  The "default" key belongs to DefaultAction.
func KnownBackends() map[string]Action {
	known := DefaultStorageBackends()
	for key, b := range DefaultActions() {
		known[key] = b
	}
	return known
}

// Registry maps backend keys to backends.
type Registry struct {
	backends map[string]Action
}

// NewRegistry validates the backends: every key fits MaxKeyLength, no
// backend is nil and a "default" key exists.
func NewRegistry(backends map[string]Action) (*Registry, error) {
	const base = "invalid backend registry."
	for key, b := range backends {
		if len(key) > MaxKeyLength {
			return nil, fmt.Errorf("%w: %s Ensure all keys are no longer than %d characters.", ErrImproperlyConfigured, base, MaxKeyLength)
		}
		if b == nil {
			return nil, fmt.Errorf("%w: %s Backend %q is nil.", ErrImproperlyConfigured, base, key)
		}
	}
	if _, ok := backends[DefaultKey]; !ok {
		return nil, fmt.Errorf("%w: %s Key %q is missing.", ErrImproperlyConfigured, base, DefaultKey)
	}
	reg := &Registry{backends: make(map[string]Action, len(backends))}
	for key, b := range backends {
		reg.backends[key] = b
	}
	return reg, nil
}

// Select returns the subset of known backends named by keys.  Unknown keys
// are an error.
func Select(known map[string]Action, keys []string) (map[string]Action, error) {
	out := make(map[string]Action, len(keys))
	for _, key := range keys {
		b, ok := known[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown backend %q", ErrImproperlyConfigured, key)
		}
		out[key] = b
	}
	return out, nil
}

// Choice is a (key, verbose name) pair.
type Choice struct {
	Key  string
	Name string
}

// Choices returns the registered backends sorted by verbose name.
func (reg *Registry) Choices() []Choice {
	choices := make([]Choice, 0, len(reg.backends))
	for key, b := range reg.backends {
		choices = append(choices, Choice{Key: key, Name: b.VerboseName()})
	}
	sort.Slice(choices, func(i, j int) bool {
		if choices[i].Name == choices[j].Name {
			return choices[i].Key < choices[j].Key
		}
		return choices[i].Name < choices[j].Name
	})
	return choices
}

// Has reports whether key is registered.
func (reg *Registry) Has(key string) bool {
	_, ok := reg.backends[key]
	return ok
}

// Get returns the backend for key, falling back to the default backend for
// empty or unknown keys.
func (reg *Registry) Get(key string) Action {
	if b, ok := reg.backends[key]; ok {
		return b
	}
	return reg.backends[DefaultKey]
}
