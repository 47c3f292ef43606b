package matsys

import (
	"slices"
	"strconv"
	"strings"

	"github.com/jinzhu/copier"
)

// Node is one entry of a definition document.
// A scalar node carries Value; a section node carries ordered Children.
type Node struct {
	Name     string  `json:"name" yaml:"name"`                             // Key of the entry
	Value    string  `json:"value,omitempty" yaml:"value,omitempty"`       // Scalar value
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"` // Section entries, in document order
	Section  bool    `json:"section,omitempty" yaml:"section,omitempty"`   // Whether the entry is a section
}

// NewSection creates an empty section node.
func NewSection(name string) *Node {
	return &Node{Name: name, Section: true}
}

// NewScalar creates a scalar node.
func NewScalar(name, value string) *Node {
	return &Node{Name: name, Value: value}
}

// IsSection reports whether n is a section.
func (n *Node) IsSection() bool { return n != nil && n.Section }

// Find returns the first direct child with the given key, compared case-insensitively.
func (n *Node) Find(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}

	return nil
}

// FindSection returns the first direct child section with the given key.
func (n *Node) FindSection(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Section && strings.EqualFold(c.Name, name) {
			return c
		}
	}

	return nil
}

// String returns the scalar value of the child key, or def if it is missing or a section.
func (n *Node) String(name, def string) string {
	c := n.Find(name)
	if c == nil || c.Section {
		return def
	}

	return c.Value
}

// Float returns the child key parsed as a float, or def.
func (n *Node) Float(name string, def float64) float64 {
	c := n.Find(name)
	if c == nil || c.Section {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		return def
	}

	return f
}

// Int returns the child key parsed as an integer, or def.
func (n *Node) Int(name string, def int) int {
	c := n.Find(name)
	if c == nil || c.Section {
		return def
	}
	s := strings.TrimSpace(c.Value)
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}

	return def
}

// Set sets a scalar child, replacing the value of an existing key or appending a new one.
func (n *Node) Set(name, value string) *Node {
	if c := n.Find(name); c != nil && !c.Section {
		c.Value = value
		return c
	}

	c := NewScalar(name, value)
	n.Add(c)
	return c
}

// Add appends a child and marks n as a section.
func (n *Node) Add(c *Node) {
	n.Section = true
	n.Children = append(n.Children, c)
}

// Remove deletes every direct child with the given key and reports how many were removed.
func (n *Node) Remove(name string) int {
	if n == nil {
		return 0
	}
	out := n.Children[:0]
	removed := 0
	for _, c := range n.Children {
		if strings.EqualFold(c.Name, name) {
			removed++
			continue
		}
		out = append(out, c)
	}
	clear(n.Children[len(out):])
	n.Children = out

	return removed
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{}
	if err := copier.CopyWithOption(out, n, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched kinds, which cannot happen for Node.
		return n.cloneSlow()
	}

	return out
}

func (n *Node) cloneSlow() *Node {
	out := &Node{Name: n.Name, Value: n.Value, Section: n.Section}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.cloneSlow()
		}
	}

	return out
}

// Walk calls fn for n and every descendant in document order, with the path of keys
// leading to the node. Returning false skips the node's children. fn may keep path.
func (n *Node) Walk(fn func(path []string, n *Node) bool) {
	n.walk(nil, fn)
}

func (n *Node) walk(path []string, fn func([]string, *Node) bool) {
	// Clipped so a sibling's append cannot overwrite a path fn kept.
	path = slices.Clip(append(path, n.Name))
	if !fn(path, n) {
		return
	}
	for _, c := range n.Children {
		c.walk(path, fn)
	}
}

// merge copies every entry of src into n: scalars overwrite, sections merge recursively.
func (n *Node) merge(src *Node) {
	for _, c := range src.Children {
		dst := n.Find(c.Name)
		switch {
		case dst == nil:
			n.Add(c.Clone())
		case c.Section && dst.Section:
			dst.merge(c)
		default:
			*dst = *c.Clone()
		}
	}
}
