package form

import "fmt"

// FormField is a field of the form with its generated name.
type FormField struct {
	// Name is the key used for the submitted value.
	Name string
	// Label as shown to visitors and in exports.
	Label string
	Node  *Node
	// Occurrence counts the fields of the same kind up to and including this
	// one.
	Occurrence int
}

// Fields returns the fields of the form in tree order.  Fields without an
// explicit name are named after their kind and occurrence (textfield_1,
// textfield_2, emailfield_1, ...).  Clashing names get underscores appended.
func Fields(root *Node) []FormField {
	fields := make([]FormField, 0)
	occurrences := make(map[Kind]int)
	taken := FieldNames(root, nil)

	for _, n := range Elements(root) {
		if !n.Kind.IsField() {
			continue
		}
		occurrences[n.Kind]++
		occurrence := occurrences[n.Kind]

		name := n.Name
		if name == "" {
			name = MakeUniqueName(fmt.Sprintf("%s_%d", n.Kind.FieldType(), occurrence), taken)
			taken = append(taken, name)
		}
		label := n.Label
		if label == "" {
			label = n.Placeholder
		}
		if label == "" {
			label = name
		}
		fields = append(fields, FormField{
			Name:       name,
			Label:      label,
			Node:       n,
			Occurrence: occurrence,
		})
	}
	return fields
}

// FieldsByName returns the fields of the form keyed by name.
func FieldsByName(root *Node) map[string]FormField {
	fields := Fields(root)
	byName := make(map[string]FormField, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	return byName
}

// Choice is a (value, label) pair for selection lists.
type Choice struct {
	Value string
	Label string
}

// FieldChoices returns (name, label) pairs for all fields of the form.
func FieldChoices(root *Node) []Choice {
	fields := Fields(root)
	choices := make([]Choice, len(fields))
	for idx, f := range fields {
		choices[idx] = Choice{Value: f.Name, Label: f.Label}
	}
	return choices
}

// FieldNameOf returns the name of the field generated for node, or an empty
// string if node is not a field of the form.
func FieldNameOf(root *Node, node *Node) string {
	for _, f := range Fields(root) {
		if f.Node == node {
			return f.Name
		}
	}
	return ""
}
