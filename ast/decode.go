/*
Copyright © 2017 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package ast

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlNode is the serialized form of a Node.
type yamlNode struct {
	Tag  string     `yaml:"tag"`
	Text string     `yaml:"text,omitempty"`
	Kids []yamlNode `yaml:"kids,omitempty"`
}

// Decode reads a syntax tree in YAML form. Each node is a mapping with
// a "tag" key holding the tag name, an optional "text" key and an
// optional "kids" list of child nodes. A top-level list of nodes is
// wrapped in a BLOCK.
func Decode(r io.Reader) (*Node, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return New(BLOCK, ""), nil
		}
		return nil, fmt.Errorf("ast: decoding script: %v", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	switch root.Kind {
	case yaml.SequenceNode:
		var stmts []yamlNode
		if err := root.Decode(&stmts); err != nil {
			return nil, fmt.Errorf("ast: decoding script: %v", err)
		}
		return build(yamlNode{Tag: BLOCK.String(), Kids: stmts})
	case yaml.MappingNode:
		var n yamlNode
		if err := root.Decode(&n); err != nil {
			return nil, fmt.Errorf("ast: decoding script: %v", err)
		}
		return build(n)
	}
	return nil, fmt.Errorf("ast: line %d: script must be a node or a list of nodes", root.Line)
}

func build(y yamlNode) (*Node, error) {
	t, err := ParseTag(y.Tag)
	if err != nil {
		return nil, err
	}
	kids := make([]*Node, len(y.Kids))
	for i, k := range y.Kids {
		if kids[i], err = build(k); err != nil {
			return nil, err
		}
	}
	return New(t, y.Text, kids...), nil
}

// Encode writes the tree rooted at n in the form read by Decode.
func Encode(w io.Writer, n *Node) error {
	e := yaml.NewEncoder(w)
	e.SetIndent(2)
	if err := e.Encode(toYAML(n)); err != nil {
		return err
	}
	return e.Close()
}

func toYAML(n *Node) yamlNode {
	y := yamlNode{Tag: n.Tag.String(), Text: n.Text}
	for k := n.FirstChild(); k != nil; k = k.Next() {
		y.Kids = append(y.Kids, toYAML(k))
	}
	return y
}
