package form

import (
	"fmt"
	"strings"
)

// View is the render state of one node of the tree: the node itself, its
// field name, the value to show and the validation errors.
type View struct {
	Node     *Node
	Name     string
	Label    string
	Values   []string
	Errors   []string
	Children []*View
	ReadOnly bool
}

// Views returns the render state of the top level nodes of the form.  res may
// be nil for a pristine form, in which case default options are selected.
func (f *Form) Views(res *Result) []*View {
	names := make(map[*Node]FormField, len(f.Fields))
	for _, field := range f.Fields {
		names[field.Node] = field
	}
	return buildViews(f.Root.Children, names, res)
}

func buildViews(nodes []*Node, names map[*Node]FormField, res *Result) []*View {
	views := make([]*View, 0, len(nodes))
	for _, n := range nodes {
		v := &View{Node: n, Label: n.Label}
		if field, ok := names[n]; ok {
			v.Name = field.Name
			v.Label = field.Label
			if res != nil {
				v.Values = res.Values[field.Name]
				v.Errors = res.Errors[field.Name]
			} else if def := DefaultOption(n); def != "" {
				v.Values = []string{def}
			}
		}
		v.Children = buildViews(n.Children, names, res)
		views = append(views, v)
	}
	return views
}

// ID is the HTML id of the input.
func (v *View) ID() string {
	if v.Name != "" {
		return "id_" + v.Name
	}
	return fmt.Sprintf("id_element_%d", v.Node.ID)
}

// Kind is shorthand for the node's kind as a string, for use in templates.
func (v *View) Kind() string {
	return string(v.Node.Kind)
}

// InputType is the HTML input type for the node.
func (v *View) InputType() string {
	return string(v.Node.Kind.InputType())
}

// Value returns the first value.
func (v *View) Value() string {
	if len(v.Values) > 0 {
		return v.Values[0]
	}
	return ""
}

// Selected reports whether option is among the values.
func (v *View) Selected(option string) bool {
	for _, val := range v.Values {
		if val == option {
			return true
		}
	}
	return false
}

// Checked reports whether a boolean field is ticked.
func (v *View) Checked() bool {
	val := v.Value()
	return val != "" && !isFalse(val)
}

// Required reports whether the input should be marked as required.
func (v *View) Required() bool {
	return required(v.Node)
}

// HelpText returns the help text with the MAXSIZE, MAXWIDTH and MAXHEIGHT
// placeholders replaced for upload fields.
func (v *View) HelpText() string {
	help := v.Node.HelpText
	if v.Node.MaxSize > 0 {
		help = strings.ReplaceAll(help, "MAXSIZE", FormatSize(v.Node.MaxSize))
	}
	if v.Node.MaxWidth > 0 {
		help = strings.ReplaceAll(help, "MAXWIDTH", fmt.Sprint(v.Node.MaxWidth))
	}
	if v.Node.MaxHeight > 0 {
		help = strings.ReplaceAll(help, "MAXHEIGHT", fmt.Sprint(v.Node.MaxHeight))
	}
	return help
}
