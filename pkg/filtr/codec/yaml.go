package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/filtr/pkg/filtr/object"
)

// ReadYAML reads a sequence of mappings with the same rules as ReadJSON.
func ReadYAML(r io.Reader, opts Options) (*object.Table, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, err
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode || len(root.Content) == 0 {
		return nil, errors.New("expected a non-empty sequence of mappings")
	}

	var columns []string
	rows := make([]map[string]object.Object, 0, len(root.Content))
	for i, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: item %d is not a mapping", item.Line, i)
		}
		keys := make([]string, 0, len(item.Content)/2)
		row := make(map[string]object.Object, len(item.Content)/2)
		for j := 0; j+1 < len(item.Content); j += 2 {
			key := item.Content[j].Value
			v, err := yamlValue(item.Content[j+1], opts)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", item.Content[j+1].Line, err)
			}
			if _, seen := row[key]; !seen {
				keys = append(keys, key)
			}
			row[key] = v
		}
		if columns == nil {
			columns = keys
		}
		rows = append(rows, row)
	}
	return newTable(columns, rows)
}

func yamlValue(n *yaml.Node, opts Options) (object.Object, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind != yaml.ScalarNode {
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		text, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return &object.String{Value: string(text)}, nil
	}

	switch n.ShortTag() {
	case "!!null":
		return object.NULL, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return object.NativeBool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		return &object.Integer{Value: i}, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return object.Cleanup(&object.Number{Value: f}), nil
	}
	return InferValue(n.Value, opts.InferDates), nil
}
