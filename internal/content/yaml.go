package content

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML lets catalog files embed example documents as plain YAML
// while keeping mapping order.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := fromYAML(node)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func fromYAML(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return NullValue(), nil
		}
		return fromYAML(node.Content[0])
	case yaml.AliasNode:
		return fromYAML(node.Alias)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, c := range node.Content {
			it, err := fromYAML(c)
			if err != nil {
				return Value{}, err
			}
			items = append(items, it)
		}
		return Value{kind: Array, items: items}, nil
	case yaml.MappingNode:
		members := make([]Member, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			k, val := node.Content[i], node.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			member, err := fromYAML(val)
			if err != nil {
				return Value{}, err
			}
			members = append(members, Member{Key: k.Value, Value: member})
		}
		return ObjectValue(members...), nil
	case yaml.ScalarNode:
		return scalarFromYAML(node)
	}
	return Value{}, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
}

func scalarFromYAML(node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return NullValue(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return BoolValue(b), nil
	case "!!int":
		if isJSONNumber(node.Value) {
			return Value{kind: Number, literal: node.Value}, nil
		}
		var i int64
		if err := node.Decode(&i); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return IntValue(i), nil
	case "!!float":
		if isJSONNumber(node.Value) {
			return Value{kind: Number, literal: node.Value}, nil
		}
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			var decoded float64
			if derr := node.Decode(&decoded); derr != nil {
				return Value{}, fmt.Errorf("line %d: %w", node.Line, derr)
			}
			f = decoded
		}
		v, err := NumberValue(f)
		if err != nil {
			return Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return v, nil
	default:
		return StringValue(node.Value), nil
	}
}
