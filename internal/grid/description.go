package grid

import (
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mesagrid/internal/catalog"
	"github.com/san-kum/mesagrid/internal/namelist"
)

var ErrMalformed = errors.New("grid: malformed description")

// Load reads a grid description from a YAML file.
func Load(path string) (*namelist.Groups, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading grid description %s", path)
	}
	desc, err := Decode(data)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return desc, nil
}

// Decode parses a group -> option -> value document, keeping the order in
// which groups and options are written. Lists become []any.
func Decode(data []byte) (*namelist.Groups, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding grid description")
	}

	out := namelist.NewGroups()
	if len(doc.Content) == 0 {
		return out, nil
	}
	root := doc.Content[0]
	if isNull(root) {
		return out, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, errors.Wrapf(ErrMalformed, "line %d: expected a mapping of groups", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		name, body := root.Content[i].Value, root.Content[i+1]
		opts := out.Ensure(name)
		if isNull(body) {
			continue
		}
		if body.Kind != yaml.MappingNode {
			return nil, errors.Wrapf(ErrMalformed, "line %d: group %q must map options to values", body.Line, name)
		}
		for j := 0; j+1 < len(body.Content); j += 2 {
			key := body.Content[j].Value
			v, err := nodeValue(body.Content[j+1])
			if err != nil {
				return nil, errors.WithMessagef(err, "%s.%s", name, key)
			}
			opts.Set(key, v)
		}
	}
	return out, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func nodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "line %d", n.Line)
		}
		return v, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return nil, errors.Wrapf(ErrMalformed, "line %d: list entries must be scalars", c.Line)
			}
			var v any
			if err := c.Decode(&v); err != nil {
				return nil, errors.Wrapf(err, "line %d", c.Line)
			}
			out = append(out, v)
		}
		return out, nil
	}
	return nil, errors.Wrapf(ErrMalformed, "line %d: unsupported value", n.Line)
}

// Validate checks every group and option of desc against the catalog and
// reports all unknown names at once.
func Validate(desc *namelist.Groups, cat *catalog.Catalog) error {
	var result *multierror.Error
	for _, group := range desc.Names() {
		if !cat.HasGroup(group) {
			result = multierror.Append(result, errors.Wrapf(catalog.ErrUnknownGroup, "%q", group))
			continue
		}
		for _, opt := range desc.Group(group).Keys() {
			if !cat.IsValid(group, opt) {
				result = multierror.Append(result, errors.Wrapf(catalog.ErrUnknownOption, "%q in group %q", opt, group))
			}
		}
	}
	return result.ErrorOrNil()
}

// Count returns the number of runs desc expands to before any condition is
// applied. Scalars count as one candidate.
func Count(desc *namelist.Groups) int {
	n := 1
	for _, a := range axes(desc) {
		n *= len(a.values)
	}
	return n
}
