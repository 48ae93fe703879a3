package def

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DecodeYAML reads one YAML mapping, keeping key order.
func DecodeYAML(r io.Reader) (*Object, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		return nil, errors.WithStack(err)
	}
	d := &yamlDecoder{expanding: map[*yaml.Node]bool{}}
	v, err := d.fromNode(&root)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, errors.Errorf("environment document must be a mapping, got %T", v)
	}
	return obj, nil
}

// maxAliasExpansions caps how many aliases one document may expand, so
// nested anchors cannot blow up exponentially.
const maxAliasExpansions = 10000

type yamlDecoder struct {
	expanding  map[*yaml.Node]bool
	expansions int
}

func (d *yamlDecoder) fromNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return NewObject(), nil
		}
		return d.fromNode(node.Content[0])
	case yaml.AliasNode:
		if node.Alias == nil || d.expanding[node.Alias] {
			return nil, errors.Errorf("line %d: recursive alias %q", node.Line, node.Value)
		}
		d.expansions++
		if d.expansions > maxAliasExpansions {
			return nil, errors.Errorf("line %d: too many alias expansions", node.Line)
		}
		d.expanding[node.Alias] = true
		defer delete(d.expanding, node.Alias)
		return d.fromNode(node.Alias)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(node.Content); i += 2 {
			val, err := d.fromNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(node.Content[i].Value, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			val, err := d.fromNode(child)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		return arr, nil
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			return nil, nil
		case "!!bool", "!!int", "!!float":
			var v any
			if err := node.Decode(&v); err != nil {
				return nil, errors.Wrapf(err, "line %d", node.Line)
			}
			if i, ok := v.(int); ok {
				return float64(i), nil
			}
			return v, nil
		}
		return node.Value, nil
	}
	return nil, errors.Errorf("line %d: unsupported YAML node", node.Line)
}

// EncodeYAML writes obj as a YAML mapping, keeping key order.
func EncodeYAML(w io.Writer, obj *Object) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toNode(obj)); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(enc.Close())
}

func toNode(v any) *yaml.Node {
	switch v := v.(type) {
	case *Object:
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, key := range v.keys {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				toNode(v.values[key]))
		}
		return node
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, elem := range v {
			node.Content = append(node.Content, toNode(elem))
		}
		return node
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v, 'g', -1, 64)}
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v, 10)}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
