// Package cases parses the case-groups YAML and expands it into the
// named metadata subsets each analysis stage iterates over.
package cases

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AllGroup is the implicit case group meaning "no filtering". Every
// Collection ends with it so each stage always has at least one case.
const AllGroup = "ALL"

// Spec is one metadata-subsetting rule: a variable and the values to
// keep. Values are either all discrete (set membership) or one-to-two
// bound expressions prefixed with '<' or '>' combined with AND.
type Spec struct {
	Variable string
	Values   []string
}

// bound reports whether the value-list is to be read as bound
// expressions. A single '<'/'>'-prefixed entry makes the whole list
// bound; mixed lists are not split.
func (s Spec) bound() bool {
	for _, v := range s.Values {
		if strings.HasPrefix(v, "<") || strings.HasPrefix(v, ">") {
			return true
		}
	}
	return false
}

// Group is one case-group: a variable name and the value-lists to test
// for it, in YAML document order.
type Group struct {
	Variable   string
	ValueLists [][]string
}

// Collection is the ordered set of case groups from one groups file,
// ending with the implicit ALL group.
type Collection struct {
	Groups []Group
}

// Specs expands the collection into the flat ordered list of subset
// rules, one per (group, value-list) pair.
func (c Collection) Specs() []Spec {
	var specs []Spec
	for _, group := range c.Groups {
		for _, vals := range group.ValueLists {
			specs = append(specs, Spec{Variable: group.Variable, Values: vals})
		}
	}
	return specs
}

// ConfigError is a fatal configuration failure: the whole generation
// run aborts, no partial output is kept.
type ConfigError struct {
	Path string
	Err  error
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Path, e.Err)
}

func (e ConfigError) Unwrap() error { return e.Err }

// Load reads a case-groups YAML file of the shape
//
//	variable_name:
//	- [val1, val2]
//	- ['>10', '<20']
//
// preserving group order, and appends the ALL group with a single empty
// value-list.
func Load(path string) (Collection, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Collection{}, ConfigError{Path: path, Err: err}
	}
	collection, err := Parse(buf)
	if err != nil {
		return Collection{}, ConfigError{Path: path, Err: err}
	}
	return collection, nil
}

// Parse decodes the case-groups mapping. The YAML is decoded through
// yaml.Node rather than a map so that group order survives and variable
// names keep their exact case (they are metadata column names).
func Parse(buf []byte) (Collection, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return Collection{}, err
	}
	collection := Collection{}
	if doc.Kind != 0 && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind != yaml.MappingNode {
			return Collection{}, errors.Errorf("expected a mapping of variable to value-lists, got %s", nodeKind(root))
		}
		for i := 0; i+1 < len(root.Content); i += 2 {
			key := root.Content[i]
			val := root.Content[i+1]
			group := Group{Variable: key.Value}
			if err := val.Decode(&group.ValueLists); err != nil {
				return Collection{}, errors.Wrapf(err, "group %q", key.Value)
			}
			collection.Groups = append(collection.Groups, group)
		}
	}
	collection.Groups = append(collection.Groups, Group{
		Variable:   AllGroup,
		ValueLists: [][]string{{}},
	})
	return collection, nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.MappingNode:
		return "a mapping"
	}
	return "an unknown node"
}

var labelReplacer = strings.NewReplacer("<", "below", ">", "above")

// Label builds the deterministic case label used in every output file
// name: the variable, the sanitized values joined with '-', and the
// model formula when one applies. Same inputs always give the same
// label; distinct inputs are not guaranteed distinct labels (known
// limitation of the sanitization).
func Label(vals []string, variable string, formula string) string {
	label := variable
	if len(vals) > 0 {
		sanitized := make([]string, len(vals))
		for i, v := range vals {
			sanitized[i] = labelReplacer.Replace(v)
		}
		label = fmt.Sprintf("%s_%s", variable, strings.Join(sanitized, "-"))
	}
	if formula != "" {
		label = fmt.Sprintf("%s_%s", label, formula)
	}
	label = strings.ReplaceAll(label, "__", "_")
	label = strings.ReplaceAll(label, " ", "-")
	label = strings.NewReplacer("(", "", ")", "", "/", "").Replace(label)
	return label
}

// Label is the spec's label with no formula attached.
func (s Spec) Label() string {
	return Label(s.Values, s.Variable, "")
}
