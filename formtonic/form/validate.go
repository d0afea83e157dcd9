package form

import (
	"bytes"
	"fmt"
	"image"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	// Registered image formats for dimension checks of uploads
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// NonFieldErrors is the error key for errors not tied to a field.
	NonFieldErrors = "__all__"

	// Names of the internal hidden inputs rendered with every form.
	LanguageInput = "language"
	FormIDInput   = "form_plugin_id"

	requiredMessage = "This field is required."
	dateLayout      = "2006-01-02"
)

var phoneRe = regexp.MustCompile(`^\+?[0-9 ()./-]{3,}$`)

// Upload is a file submitted through a file or image field.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
	// StoredName is set once the file has been written to the media store.
	StoredName string
}

// Form is the runtime form built from a form tree.
type Form struct {
	Definition *Definition
	Root       *Node
	Fields     []FormField
}

// Build constructs the runtime form for the tree rooted at root.
func Build(def *Definition, root *Node) *Form {
	return &Form{
		Definition: def,
		Root:       root,
		Fields:     Fields(root),
	}
}

// Field returns the field with the given name.
func (f *Form) Field(name string) (FormField, bool) {
	for _, ff := range f.Fields {
		if ff.Name == name {
			return ff, true
		}
	}
	return FormField{}, false
}

// Result holds the outcome of validating submitted values against a form.
type Result struct {
	// Submitted values, keyed by field name.
	Values map[string][]string
	Files  map[string]*Upload
	// Errors keyed by field name.  NonFieldErrors holds form-level errors.
	Errors map[string][]string
	// Language and form id carried by the hidden internal inputs.
	Language string
	FormID   int64
}

// Valid reports whether the submission passed validation.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// AddError adds message to the errors of field.
func (r *Result) AddError(field, message string) {
	r.Errors[field] = append(r.Errors[field], message)
}

// Value returns the first submitted value of the named field.
func (r *Result) Value(name string) string {
	if v := r.Values[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Validate checks the submitted values and files against every field of the
// form.  When the form doesn't validate, the form-level error message is
// added to the non-field errors.
func (f *Form) Validate(values url.Values, files map[string]*Upload) *Result {
	res := &Result{
		Values: make(map[string][]string),
		Files:  make(map[string]*Upload),
		Errors: make(map[string][]string),
	}
	res.Language = values.Get(LanguageInput)
	if id, err := strconv.ParseInt(values.Get(FormIDInput), 10, 64); err == nil {
		res.FormID = id
	}

	for _, field := range f.Fields {
		n := field.Node
		switch n.Kind {
		case FileField, ImageField:
			upload := files[field.Name]
			if upload != nil && upload.Size > 0 {
				res.Files[field.Name] = upload
			}
			for _, msg := range cleanUpload(n, upload) {
				res.AddError(field.Name, msg)
			}
		default:
			submitted := trimAll(values[field.Name])
			res.Values[field.Name] = submitted
			for _, msg := range cleanValues(n, submitted) {
				res.AddError(field.Name, msg)
			}
		}
	}

	if !res.Valid() && f.Definition != nil && f.Definition.ErrorMessage != "" {
		res.AddError(NonFieldErrors, f.Definition.ErrorMessage)
	}
	return res
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func required(n *Node) bool {
	if n.Kind == MultipleSelectField && n.MinValue != nil && *n.MinValue == 0 {
		return false
	}
	return n.Required
}

func missing(n *Node) string {
	if n.RequiredMessage != "" {
		return n.RequiredMessage
	}
	return requiredMessage
}

func cleanValues(n *Node, values []string) []string {
	if len(values) == 0 {
		if required(n) {
			return []string{missing(n)}
		}
		return nil
	}
	value := values[0]
	errs := make([]string, 0)

	switch n.Kind {
	case TextField, TextAreaField, EmailField, PhoneField, HiddenField:
		length := utf8.RuneCountInString(value)
		if n.MinValue != nil && length < *n.MinValue {
			errs = append(errs, fmt.Sprintf("Ensure this value has at least %d characters (it has %d).", *n.MinValue, length))
		}
		if n.MaxValue != nil && *n.MaxValue > 0 && length > *n.MaxValue {
			errs = append(errs, fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", *n.MaxValue, length))
		}
		if n.Kind == EmailField {
			if addr, err := mail.ParseAddress(value); err != nil || addr.Address != value {
				errs = append(errs, "Enter a valid email address.")
			}
		}
		if n.Kind == PhoneField && !phoneRe.MatchString(value) {
			errs = append(errs, "Enter a valid phone number.")
		}
	case NumberField:
		number, err := strconv.Atoi(value)
		if err != nil {
			errs = append(errs, "Enter a whole number.")
			break
		}
		if n.MinValue != nil && number < *n.MinValue {
			errs = append(errs, fmt.Sprintf("Ensure this value is greater than or equal to %d.", *n.MinValue))
		}
		if n.MaxValue != nil && number > *n.MaxValue {
			errs = append(errs, fmt.Sprintf("Ensure this value is less than or equal to %d.", *n.MaxValue))
		}
	case DateField:
		if _, err := time.Parse(dateLayout, value); err != nil {
			errs = append(errs, "Enter a valid date.")
		}
	case BooleanField:
		switch strings.ToLower(value) {
		case "on", "true", "1", "yes":
		case "false", "0", "no", "off":
			if n.Required {
				errs = append(errs, missing(n))
			}
		default:
			errs = append(errs, "Enter a valid value.")
		}
	case SelectField, RadioSelectField:
		if !hasOption(n, value) {
			errs = append(errs, "Select a valid choice. That choice is not one of the available choices.")
		}
	case MultipleSelectField:
		for _, v := range values {
			if !hasOption(n, v) {
				errs = append(errs, fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", v))
			}
		}
		chosen := len(values)
		if n.MinValue != nil && chosen < *n.MinValue {
			errs = append(errs, fmt.Sprintf("You have to choose at least %d options (chosen %d).", *n.MinValue, chosen))
		}
		if n.MaxValue != nil && *n.MaxValue > 0 && chosen > *n.MaxValue {
			errs = append(errs, fmt.Sprintf("You can't choose more than %d options (chosen %d).", *n.MaxValue, chosen))
		}
	}
	return errs
}

func hasOption(n *Node, value string) bool {
	for _, o := range n.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// DefaultOption returns the value of the default option of a choice field.
func DefaultOption(n *Node) string {
	for _, o := range n.Options {
		if o.Default {
			return o.Value
		}
	}
	return ""
}

func cleanUpload(n *Node, upload *Upload) []string {
	if upload == nil || upload.Size == 0 {
		if n.Required {
			return []string{missing(n)}
		}
		return nil
	}
	errs := make([]string, 0)
	if n.MaxSize > 0 && upload.Size > n.MaxSize {
		errs = append(errs, fmt.Sprintf("File size must be under %s. Current file size is %s.", FormatSize(n.MaxSize), FormatSize(upload.Size)))
	}
	if n.Kind != ImageField {
		return errs
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(upload.Data))
	if err != nil {
		return append(errs, "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	if n.MaxWidth > 0 && cfg.Width > n.MaxWidth {
		errs = append(errs, fmt.Sprintf("Image width must be under %d pixels. Current width is %d pixels.", n.MaxWidth, cfg.Width))
	}
	if n.MaxHeight > 0 && cfg.Height > n.MaxHeight {
		errs = append(errs, fmt.Sprintf("Image height must be under %d pixels. Current height is %d pixels.", n.MaxHeight, cfg.Height))
	}
	return errs
}
