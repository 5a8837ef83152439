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
	"strconv"
	"strings"
)

// Node is one node of a syntax tree.
type Node struct {
	Tag  Tag
	Text string

	// Fn is the index of the called function in the function registry,
	// set by Resolve on FUNC and DOT nodes, and -1 elsewhere.
	Fn int

	first, next *Node
}

// New creates a node with the given children.
func New(tag Tag, text string, kids ...*Node) *Node {
	n := &Node{Tag: tag, Text: text, Fn: -1}
	n.SetChildren(kids...)
	return n
}

// FirstChild returns the first child of n, or nil.
func (n *Node) FirstChild() *Node {
	if n == nil {
		return nil
	}
	return n.first
}

// Next returns the next sibling of n, or nil.
func (n *Node) Next() *Node {
	if n == nil {
		return nil
	}
	return n.next
}

// SetChildren replaces the children of n.
func (n *Node) SetChildren(kids ...*Node) {
	n.first = nil
	var prev *Node
	for _, k := range kids {
		if k == nil {
			continue
		}
		k.next = nil
		if prev == nil {
			n.first = k
		} else {
			prev.next = k
		}
		prev = k
	}
}

// Children returns the children of n in order.
func (n *Node) Children() []*Node {
	var kids []*Node
	for k := n.FirstChild(); k != nil; k = k.next {
		kids = append(kids, k)
	}
	return kids
}

// NumChildren returns the number of children of n.
func (n *Node) NumChildren() int {
	c := 0
	for k := n.FirstChild(); k != nil; k = k.next {
		c++
	}
	return c
}

// Child returns child i of n, or nil.
func (n *Node) Child(i int) *Node {
	k := n.FirstChild()
	for ; k != nil && i > 0; i-- {
		k = k.next
	}
	return k
}

// Is returns whether n is non-nil and has tag t.
func (n *Node) Is(t Tag) bool { return n != nil && n.Tag == t }

// Walk calls f for n and each of its descendants in depth-first order.
// Descendants of a node for which f returns false are skipped.
func (n *Node) Walk(f func(*Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for k := n.first; k != nil; k = k.next {
		k.Walk(f)
	}
}

// String renders n as an s-expression.
func (n *Node) String() string {
	if n == nil {
		return "()"
	}
	var b strings.Builder
	n.format(&b)
	return b.String()
}

func (n *Node) format(b *strings.Builder) {
	if n.first == nil && n.Text != "" {
		fmt.Fprintf(b, "%s:%s", n.Tag, strconv.Quote(n.Text))
		return
	}
	if n.first == nil {
		b.WriteString(n.Tag.String())
		return
	}
	b.WriteString("(")
	b.WriteString(n.Tag.String())
	if n.Text != "" {
		b.WriteString(":" + strconv.Quote(n.Text))
	}
	for k := n.first; k != nil; k = k.next {
		b.WriteString(" ")
		k.format(b)
	}
	b.WriteString(")")
}
