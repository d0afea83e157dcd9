package form

import "strings"

const (
	CheckboxInput ElementType = "checkbox"
	DateInput     ElementType = "date"
	EmailInput    ElementType = "email"
	FileInput     ElementType = "file"
	HiddenInput   ElementType = "hidden"
	NumberInput   ElementType = "number"
	RadioInput    ElementType = "radio"
	TelInput      ElementType = "tel"
	TextInput     ElementType = "text"
	TextArea      ElementType = "textarea"
	Select        ElementType = "select"
)

// ElementType defines the type of a form input element:
// https://developer.mozilla.org/en-US/docs/Web/HTML/Element/input
type ElementType string

// Kind identifies the type of a node in a form tree.
type Kind string

const (
	FormPlugin          Kind = "FormPlugin"
	Fieldset            Kind = "Fieldset"
	TextField           Kind = "TextField"
	TextAreaField       Kind = "TextAreaField"
	EmailField          Kind = "EmailField"
	BooleanField        Kind = "BooleanField"
	SelectField         Kind = "SelectField"
	MultipleSelectField Kind = "MultipleSelectField"
	RadioSelectField    Kind = "RadioSelectField"
	HiddenField         Kind = "HiddenField"
	PhoneField          Kind = "PhoneField"
	NumberField         Kind = "NumberField"
	DateField           Kind = "DateField"
	FileField           Kind = "FileField"
	ImageField          Kind = "ImageField"
	SubmitButton        Kind = "SubmitButton"
	Text                Kind = "Text"
)

type kindInfo struct {
	name      string
	element   bool
	field     bool
	container bool
	input     ElementType
}

var kinds = map[Kind]kindInfo{
	FormPlugin:          {name: "Form", element: true, container: true},
	Fieldset:            {name: "Fieldset", element: true, container: true},
	TextField:           {name: "Text Field", element: true, field: true, input: TextInput},
	TextAreaField:       {name: "Text Area Field", element: true, field: true, input: TextArea},
	EmailField:          {name: "Email Field", element: true, field: true, input: EmailInput},
	BooleanField:        {name: "Yes/No Field", element: true, field: true, input: CheckboxInput},
	SelectField:         {name: "Select Field", element: true, field: true, input: Select},
	MultipleSelectField: {name: "Multiple Select Field", element: true, field: true, input: CheckboxInput},
	RadioSelectField:    {name: "Radio Select Field", element: true, field: true, input: RadioInput},
	HiddenField:         {name: "Hidden Field", element: true, field: true, input: HiddenInput},
	PhoneField:          {name: "Phone Field", element: true, field: true, input: TelInput},
	NumberField:         {name: "Number Field", element: true, field: true, input: NumberInput},
	DateField:           {name: "Date Field", element: true, field: true, input: DateInput},
	FileField:           {name: "File Upload Field", element: true, field: true, input: FileInput},
	ImageField:          {name: "Image Upload Field", element: true, field: true, input: FileInput},
	SubmitButton:        {name: "Submit Button", element: true},
	Text:                {name: "Text"},
}

// Kinds returns all known node kinds.
func Kinds() []Kind {
	return []Kind{
		FormPlugin, Fieldset, TextField, TextAreaField, EmailField, BooleanField,
		SelectField, MultipleSelectField, RadioSelectField, HiddenField,
		PhoneField, NumberField, DateField, FileField, ImageField, SubmitButton, Text,
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Name is the human readable name of the kind, as shown in the editor.
func (k Kind) Name() string {
	return kinds[k].name
}

// FieldType is the lower case kind used as the prefix of generated field
// names.
func (k Kind) FieldType() string {
	return strings.ToLower(string(k))
}

// IsElement reports whether nodes of this kind take part in the form.
func (k Kind) IsElement() bool {
	return kinds[k].element
}

// IsField reports whether nodes of this kind produce an input value.
func (k Kind) IsField() bool {
	return kinds[k].field
}

// IsContainer reports whether nodes of this kind may have children.
func (k Kind) IsContainer() bool {
	return kinds[k].container
}

// InputType is the HTML input type used when rendering the field.
func (k Kind) InputType() ElementType {
	return kinds[k].input
}
