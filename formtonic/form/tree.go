package form

import (
	"fmt"
	"sort"
)

// Option is a single choice of a select, multiple select or radio field.
type Option struct {
	Value   string `yaml:"value" json:"value"`
	Default bool   `yaml:"default,omitempty" json:"default,omitempty"`
}

// Node is a single element of a form tree.  The settings that apply depend
// on the Kind; the rest are left at their zero value.
type Node struct {
	// ID of the element.  Assigned by the database.
	ID int64 `yaml:"-"`
	// ID of the parent element.  Zero for the root FormPlugin.
	ParentID int64 `yaml:"-"`
	// Position among the siblings.
	Position int  `yaml:"-"`
	Kind     Kind `yaml:"kind"`

	// The Label of the field as it appears on the rendered form.
	Label string `yaml:"label,omitempty"`
	// Optional field name chosen by the editor.  Must be unique within the
	// form; overrides the generated name.
	Name            string `yaml:"name,omitempty"`
	Required        bool   `yaml:"required,omitempty"`
	RequiredMessage string `yaml:"required_message,omitempty"`
	Placeholder     string `yaml:"placeholder,omitempty"`
	HelpText        string `yaml:"help_text,omitempty"`
	// For text fields these are min and max length, for multiple select
	// fields min and max number of choices, for number fields the range.
	MinValue      *int   `yaml:"min_value,omitempty"`
	MaxValue      *int   `yaml:"max_value,omitempty"`
	CustomClasses string `yaml:"custom_classes,omitempty"`

	Columns int      `yaml:"columns,omitempty"`
	Rows    int      `yaml:"rows,omitempty"`
	Options []Option `yaml:"options,omitempty"`

	// Maximum upload size in bytes.
	MaxSize   int64 `yaml:"max_size,omitempty"`
	MaxWidth  int   `yaml:"max_width,omitempty"`
	MaxHeight int   `yaml:"max_height,omitempty"`

	// When set on an e-mail field, the submitted address receives a
	// confirmation mail.
	SendNotification bool   `yaml:"send_notification,omitempty"`
	EmailSubject     string `yaml:"email_subject,omitempty"`
	EmailBody        string `yaml:"email_body,omitempty"`

	Legend string `yaml:"legend,omitempty"`
	Body   string `yaml:"body,omitempty"`

	Children []*Node `yaml:"children,omitempty"`

	parent *Node
}

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Adopt appends child to the node's children and links it back.
func (n *Node) Adopt(child *Node) {
	child.parent = n
	child.ParentID = n.ID
	child.Position = len(n.Children)
	n.Children = append(n.Children, child)
}

// Link sets the parent pointers and positions of the whole subtree.
func (n *Node) Link() {
	for idx, child := range n.Children {
		child.parent = n
		child.ParentID = n.ID
		child.Position = idx
		child.Link()
	}
}

// BuildTree assembles a tree from flat rows as stored in the database.  The
// root is the single row without a parent.  Siblings are ordered by position.
func BuildTree(rows []*Node) (*Node, error) {
	byID := make(map[int64]*Node, len(rows))
	var root *Node
	for _, n := range rows {
		n.Children = nil
		n.parent = nil
		byID[n.ID] = n
		if n.ParentID == 0 {
			if root != nil {
				return nil, fmt.Errorf("multiple roots: %d and %d", root.ID, n.ID)
			}
			root = n
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	for _, n := range rows {
		if n == root {
			continue
		}
		parent, ok := byID[n.ParentID]
		if !ok {
			return nil, fmt.Errorf("element %d: parent %d not found", n.ID, n.ParentID)
		}
		n.parent = parent
		parent.Children = append(parent.Children, n)
	}
	for _, n := range rows {
		sort.SliceStable(n.Children, func(i, j int) bool {
			return n.Children[i].Position < n.Children[j].Position
		})
	}
	return root, nil
}

// Nested returns a flat, depth-first list of the descendants of node.
func Nested(node *Node, includeSelf bool) []*Node {
	found := make([]*Node, 0)
	if includeSelf {
		found = append(found, node)
	}
	for _, child := range node.Children {
		found = append(found, Nested(child, true)...)
	}
	return found
}

// Elements returns the descendants of root that are form elements, in tree
// order.  Static content is skipped.
func Elements(root *Node) []*Node {
	nested := Nested(root, false)
	elements := make([]*Node, 0, len(nested))
	for _, n := range nested {
		if n.Kind.IsElement() {
			elements = append(elements, n)
		}
	}
	return elements
}

// FindSubmitButton returns the first submit button of the form, or nil.
func FindSubmitButton(root *Node) *Node {
	for _, n := range Elements(root) {
		if n.Kind == SubmitButton {
			return n
		}
	}
	return nil
}

// FindForm returns the closest FormPlugin node, starting at node itself and
// walking up the parents.  Returns nil if there is none.
func FindForm(node *Node) *Node {
	for node != nil {
		if node.Kind == FormPlugin {
			return node
		}
		node = node.parent
	}
	return nil
}

// FieldNames returns the explicit field names used in the form, ignoring
// exclude.
func FieldNames(form *Node, exclude *Node) []string {
	names := make([]string, 0)
	if form == nil {
		return names
	}
	for _, n := range Nested(form, false) {
		if n == exclude || n.Name == "" {
			continue
		}
		names = append(names, n.Name)
	}
	return names
}

// MakeUniqueName appends underscores to name until it is not in taken.
func MakeUniqueName(name string, taken []string) string {
	used := make(map[string]bool, len(taken))
	for _, t := range taken {
		used[t] = true
	}
	for used[name] {
		name += "_"
	}
	return name
}

// RenameOnMove is applied after node was moved or pasted into a form.  If its
// explicit name clashes with another field of the form, the node is renamed
// and a message for the editor is returned.
func RenameOnMove(node *Node) (string, bool) {
	if node.Name == "" {
		return "", false
	}
	taken := FieldNames(FindForm(node.parent), node)
	unique := MakeUniqueName(node.Name, taken)
	if unique == node.Name {
		return "", false
	}
	msg := renameMessage(node.Name, unique)
	node.Name = unique
	return msg, true
}

func renameMessage(from, to string) string {
	return fmt.Sprintf("The field '%s' has been renamed to '%s', because such a name is already in the form.", from, to)
}

// MakeNamesUnique renames elements whose explicit name is already used by
// an earlier element of the form, in tree order.  Returns a message per
// renamed element.
func MakeNamesUnique(root *Node) []string {
	taken := make([]string, 0)
	messages := make([]string, 0)
	for _, n := range Nested(root, false) {
		if n.Name == "" {
			continue
		}
		if unique := MakeUniqueName(n.Name, taken); unique != n.Name {
			messages = append(messages, renameMessage(n.Name, unique))
			n.Name = unique
		}
		taken = append(taken, n.Name)
	}
	return messages
}
