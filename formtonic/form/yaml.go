package form

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the YAML representation of a complete form: the form settings
// and its elements.
type Document struct {
	Definition `yaml:",inline"`
	Elements   []*Node `yaml:"elements"`
}

// DecodeYAML reads a form document and returns its definition and the root
// FormPlugin node with all elements attached.  Repeated field names get
// underscores appended.
func DecodeYAML(r io.Reader) (*Definition, *Node, error) {
	doc := new(Document)
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(doc); err != nil {
		return nil, nil, fmt.Errorf("decode form document: %w", err)
	}
	root := &Node{Kind: FormPlugin, Children: doc.Elements}
	root.Link()

	for _, n := range Nested(root, false) {
		if n.Kind == FormPlugin {
			return nil, nil, fmt.Errorf("nested forms are not supported")
		}
		if errs := ValidateNode(n); len(errs) > 0 {
			return nil, nil, fmt.Errorf("invalid element %q: %v", n.Label, errs)
		}
		if len(n.Children) > 0 && !n.Kind.IsContainer() {
			return nil, nil, fmt.Errorf("element %q of kind %s can't have children", n.Label, n.Kind)
		}
	}
	MakeNamesUnique(root)
	def := doc.Definition
	if errs := ValidateDefinition(&def); len(errs) > 0 {
		return nil, nil, fmt.Errorf("invalid form %q: %v", def.Name, errs)
	}
	return &def, root, nil
}

// LoadYAML reads a form document from the file at path.
func LoadYAML(path string) (*Definition, *Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return DecodeYAML(f)
}
