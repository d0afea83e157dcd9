package form

import "strings"

// SerializedField is the stored representation of one submitted field.
type SerializedField struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Serialize renders the validated values in field order.  The
// isConfirmation flag marks data used in the confirmation mail sent to the
// visitor, which leaves out hidden fields.
func (f *Form) Serialize(res *Result, isConfirmation bool) []SerializedField {
	out := make([]SerializedField, 0, len(f.Fields))
	for _, field := range f.Fields {
		if isConfirmation && field.Node.Kind == HiddenField {
			continue
		}
		out = append(out, SerializedField{
			Name:  field.Name,
			Label: field.Label,
			Value: serializeValue(field.Node, res, field.Name),
		})
	}
	return out
}

func serializeValue(n *Node, res *Result, name string) string {
	switch n.Kind {
	case BooleanField:
		if res.Value(name) != "" && !isFalse(res.Value(name)) {
			return "Yes"
		}
		return "No"
	case MultipleSelectField:
		return strings.Join(res.Values[name], ", ")
	case FileField, ImageField:
		upload := res.Files[name]
		if upload == nil {
			return ""
		}
		if upload.StoredName != "" {
			return upload.StoredName
		}
		return upload.Filename
	default:
		return res.Value(name)
	}
}

func isFalse(v string) bool {
	switch strings.ToLower(v) {
	case "false", "0", "no", "off":
		return true
	}
	return false
}

// CleanedData returns the serialized values keyed by field name.
func (f *Form) CleanedData(res *Result, isConfirmation bool) map[string]string {
	data := make(map[string]string)
	for _, sf := range f.Serialize(res, isConfirmation) {
		data[sf.Name] = sf.Value
	}
	return data
}
