package notify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/G-Node/formtonic/formtonic/form"
)

// $$, $name and ${name}; identifiers are ASCII, case-insensitive.
var placeholderRE = regexp.MustCompile(`(?i)\$(?:(\$)|([_a-z][_a-z0-9]*)|\{([_a-z][_a-z0-9]*)\})`)

// RenderText replaces $name and ${name} placeholders with the values from
// ctx.  Placeholders without a value are left untouched and $$ yields a
// literal $.
func RenderText(tmpl string, ctx map[string]string) string {
	return placeholderRE.ReplaceAllStringFunc(tmpl, func(match string) string {
		sub := placeholderRE.FindStringSubmatch(match)
		if sub[1] != "" {
			return "$"
		}
		key := sub[2]
		if key == "" {
			key = sub[3]
		}
		if value, ok := ctx[key]; ok {
			return value
		}
		return match
	})
}

// Variable is a placeholder that can be used in notification texts.
type Variable struct {
	Key   string
	Label string
}

// TextVariables lists the placeholders available for the fields of a form.
// Fields without a label are shown as "<Kind name> #<n>".
func TextVariables(root *form.Node) []Variable {
	fields := form.Fields(root)
	vars := make([]Variable, 0, len(fields))
	for _, f := range fields {
		label := f.Node.Label
		if label == "" {
			label = fmt.Sprintf("%s #%d", f.Node.Kind.Name(), f.Occurrence)
		}
		vars = append(vars, Variable{Key: f.Name, Label: label})
	}
	return vars
}

// Context builds the substitution values for a submission: every serialized
// field by name plus form_name.
func Context(formName string, data []form.SerializedField) map[string]string {
	ctx := make(map[string]string, len(data)+1)
	for _, f := range data {
		ctx[f.Name] = f.Value
	}
	ctx["form_name"] = formName
	return ctx
}

// FormatData renders serialized fields as "Label: value" lines.
func FormatData(data []form.SerializedField) string {
	var b strings.Builder
	for _, f := range data {
		fmt.Fprintf(&b, "%s: %s\n", f.Label, f.Value)
	}
	return b.String()
}
