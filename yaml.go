package matsys

import (
	"gopkg.in/yaml.v3"
)

// MarshalYAML exports the node as an ordered mapping keyed by the node name.
// Repeated keys are kept in document order, which plain maps would lose.
func (n *Node) MarshalYAML() (any, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	doc.Content = append(doc.Content, yamlKey(n.Name), n.yamlValue())
	return doc, nil
}

func (n *Node) yamlValue() *yaml.Node {
	if !n.Section {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Value}
	}

	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range n.Children {
		m.Content = append(m.Content, yamlKey(c.Name), c.yamlValue())
	}

	return m
}

func yamlKey(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// MarshalYAMLBytes renders the node as a YAML document.
func MarshalYAMLBytes(n *Node) ([]byte, error) {
	return yaml.Marshal(n)
}
