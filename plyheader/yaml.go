package plyheader

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func mappingNode(kv ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Content: kv}
}

// MarshalYAML keeps element order, which a plain map would not.
func (h *Header) MarshalYAML() (any, error) {
	comments := &yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range h.Comments {
		comments.Content = append(comments.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c})
	}
	elements := mappingNode()
	if h.Elements != nil {
		for _, kv := range h.Elements.Order {
			props := &yaml.Node{Kind: yaml.SequenceNode}
			for _, p := range kv.Value.Properties {
				tuple := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
				for _, tok := range p.Tokens() {
					tuple.Content = append(tuple.Content, scalarNode(tok))
				}
				props.Content = append(props.Content, tuple)
			}
			elements.Content = append(elements.Content,
				scalarNode(kv.Key),
				mappingNode(
					scalarNode("size"), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(kv.Value.Size)},
					scalarNode("properties"), props,
				),
			)
		}
	}
	return mappingNode(
		scalarNode("format"), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: h.Format},
		scalarNode("comments"), comments,
		scalarNode("elements"), elements,
	), nil
}
