package form

import (
	"errors"
	"fmt"
	"net/url"
)

// RedirectType selects where visitors are sent after a successful submission.
type RedirectType string

const (
	// NoRedirect renders the success message in place of the form.
	NoRedirect     RedirectType = ""
	RedirectToPage RedirectType = "redirect_to_page"
	RedirectToURL  RedirectType = "redirect_to_url"
)

// MaxNameLength is the maximum length of a form name.
const MaxNameLength = 50

// ErrNotConfigured is returned when the redirect settings of a form are
// inconsistent.
var ErrNotConfigured = errors.New("form is not configured properly")

// Definition holds the form-level settings of a FormPlugin node.
type Definition struct {
	ID int64 `yaml:"-"`
	// Name is used to group and filter submissions.
	Name string `yaml:"name"`
	// Displayed as a non-field error if the form doesn't validate.
	ErrorMessage string `yaml:"error_message,omitempty"`
	// Displayed after a successful submission when there is no redirect.
	SuccessMessage string       `yaml:"success_message,omitempty"`
	RedirectType   RedirectType `yaml:"redirect_type,omitempty"`
	// Site path used with RedirectToPage.
	RedirectPage string `yaml:"redirect_page,omitempty"`
	// Absolute URL used with RedirectToURL.
	RedirectURL string `yaml:"redirect_url,omitempty"`
	// Used instead of the regular redirect when the condition is met.
	NegativeRedirectURL string `yaml:"negative_redirect_url,omitempty"`
	ConditionField      string `yaml:"condition_field,omitempty"`
	ConditionValue      string `yaml:"condition_value,omitempty"`
	CustomClasses       string `yaml:"custom_classes,omitempty"`
	Template            string `yaml:"template,omitempty"`
	ActionBackend       string `yaml:"action_backend,omitempty"`
	Language            string `yaml:"language,omitempty"`
	// Staff members who get the form content via e-mail, as RFC 5322
	// addresses ("Jane Doe <jane@example.org>").
	Recipients []string `yaml:"recipients,omitempty"`
}

// ValidateDefinition checks the redirect settings of a form and returns the
// errors keyed by setting name.
func ValidateDefinition(def *Definition) map[string][]string {
	errs := make(map[string][]string)
	if def.Name == "" {
		errs["name"] = append(errs["name"], "This field is required.")
	} else if len([]rune(def.Name)) > MaxNameLength {
		errs["name"] = append(errs["name"], fmt.Sprintf("Ensure this value has at most %d characters.", MaxNameLength))
	}
	switch def.RedirectType {
	case NoRedirect:
	case RedirectToPage:
		if def.RedirectPage == "" {
			errs["redirect_page"] = append(errs["redirect_page"], "Please provide CMS page for redirect.")
		}
		def.RedirectURL = ""
	case RedirectToURL:
		if def.RedirectURL == "" {
			errs["redirect_url"] = append(errs["redirect_url"], "Please provide an absolute URL for redirect.")
		} else if u, err := url.Parse(def.RedirectURL); err != nil || !u.IsAbs() {
			errs["redirect_url"] = append(errs["redirect_url"], "Enter a valid URL.")
		}
		def.RedirectPage = ""
	default:
		errs["redirect_type"] = append(errs["redirect_type"], fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", def.RedirectType))
	}
	return errs
}

// ValidateNode checks the settings of a single element.
func ValidateNode(n *Node) map[string][]string {
	errs := make(map[string][]string)
	if !n.Kind.Valid() {
		errs["kind"] = append(errs["kind"], fmt.Sprintf("Unknown element kind %q.", n.Kind))
		return errs
	}
	if n.MinValue != nil && n.MaxValue != nil && *n.MinValue > *n.MaxValue {
		errs["min_value"] = append(errs["min_value"], "Min value can not be greater then max value.")
	}
	if len(n.Options) == 0 && (n.Kind == SelectField || n.Kind == MultipleSelectField || n.Kind == RadioSelectField) {
		errs["options"] = append(errs["options"], "Please provide at least one option.")
	}
	return errs
}

// ConditionMet reports whether the condition field of the form holds the
// condition value.
func ConditionMet(def *Definition, cleaned map[string]string) bool {
	if def.ConditionField == "" {
		return false
	}
	value, ok := cleaned[def.ConditionField]
	return ok && value == def.ConditionValue
}

// SuccessURL resolves the redirect target after a successful submission.  An
// empty URL means the success message is rendered instead.
func SuccessURL(def *Definition, conditionMet bool) (string, error) {
	if conditionMet && def.NegativeRedirectURL != "" {
		return def.NegativeRedirectURL, nil
	}
	switch def.RedirectType {
	case NoRedirect:
		return "", nil
	case RedirectToPage:
		if def.RedirectPage == "" {
			return "", ErrNotConfigured
		}
		return def.RedirectPage, nil
	case RedirectToURL:
		if def.RedirectURL == "" {
			return "", ErrNotConfigured
		}
		return def.RedirectURL, nil
	default:
		return "", ErrNotConfigured
	}
}
