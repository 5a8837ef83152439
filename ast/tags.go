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

// Package ast holds the syntax trees that ncap scripts are parsed into.
// A tree is stored as first-child/next-sibling links; each node has a
// tag from a closed vocabulary and a text payload holding identifiers
// and literal values.
package ast

import "fmt"

// Tag identifies the kind of a node.
type Tag int

// Statement tags.
const (
	NAT Tag = iota
	BLOCK
	EXPR
	FEXPR
	IF
	ELSE
	WHILE
	FOR
	BREAK
	CONTINUE
	NULL_NODE
	WHERE
	DEFDIM
	PRINT

	// Assignment and increment.
	ASSIGN
	PLUS_ASSIGN
	MINUS_ASSIGN
	TIMES_ASSIGN
	DIVIDE_ASSIGN
	WHERE_ASSIGN
	UTIMES
	INC
	DEC
	POST_INC
	POST_DEC

	// Operators.
	PLUS
	MINUS
	TIMES
	DIVIDE
	MOD
	CARET
	LNOT
	LTHAN
	GTHAN
	LEQ
	GEQ
	EQ
	NEQ
	LAND
	LOR
	FLTHAN
	FGTHAN
	QUESTION

	// Calls.
	FUNC
	DOT
	ARG_LIST

	// Literals.
	VALUE_LIST
	NSTRING
	N4STRING
	NCAP_BYTE
	NCAP_UBYTE
	NCAP_SHORT
	NCAP_USHORT
	NCAP_INT
	NCAP_UINT
	NCAP_INT64
	NCAP_UINT64
	NCAP_FLOAT
	NCAP_DOUBLE

	// References.
	VAR_ID
	ATT_ID
	DIM_ID
	DIM_ID_SIZE
	LMT_LIST
	LMT
	DMN_LIST

	numTags
)

var tagNames = [numTags]string{
	NAT:           "NAT",
	BLOCK:         "BLOCK",
	EXPR:          "EXPR",
	FEXPR:         "FEXPR",
	IF:            "IF",
	ELSE:          "ELSE",
	WHILE:         "WHILE",
	FOR:           "FOR",
	BREAK:         "BREAK",
	CONTINUE:      "CONTINUE",
	NULL_NODE:     "NULL_NODE",
	WHERE:         "WHERE",
	DEFDIM:        "DEFDIM",
	PRINT:         "PRINT",
	ASSIGN:        "ASSIGN",
	PLUS_ASSIGN:   "PLUS_ASSIGN",
	MINUS_ASSIGN:  "MINUS_ASSIGN",
	TIMES_ASSIGN:  "TIMES_ASSIGN",
	DIVIDE_ASSIGN: "DIVIDE_ASSIGN",
	WHERE_ASSIGN:  "WHERE_ASSIGN",
	UTIMES:        "UTIMES",
	INC:           "INC",
	DEC:           "DEC",
	POST_INC:      "POST_INC",
	POST_DEC:      "POST_DEC",
	PLUS:          "PLUS",
	MINUS:         "MINUS",
	TIMES:         "TIMES",
	DIVIDE:        "DIVIDE",
	MOD:           "MOD",
	CARET:         "CARET",
	LNOT:          "LNOT",
	LTHAN:         "LTHAN",
	GTHAN:         "GTHAN",
	LEQ:           "LEQ",
	GEQ:           "GEQ",
	EQ:            "EQ",
	NEQ:           "NEQ",
	LAND:          "LAND",
	LOR:           "LOR",
	FLTHAN:        "FLTHAN",
	FGTHAN:        "FGTHAN",
	QUESTION:      "QUESTION",
	FUNC:          "FUNC",
	DOT:           "DOT",
	ARG_LIST:      "ARG_LIST",
	VALUE_LIST:    "VALUE_LIST",
	NSTRING:       "NSTRING",
	N4STRING:      "N4STRING",
	NCAP_BYTE:     "NCAP_BYTE",
	NCAP_UBYTE:    "NCAP_UBYTE",
	NCAP_SHORT:    "NCAP_SHORT",
	NCAP_USHORT:   "NCAP_USHORT",
	NCAP_INT:      "NCAP_INT",
	NCAP_UINT:     "NCAP_UINT",
	NCAP_INT64:    "NCAP_INT64",
	NCAP_UINT64:   "NCAP_UINT64",
	NCAP_FLOAT:    "NCAP_FLOAT",
	NCAP_DOUBLE:   "NCAP_DOUBLE",
	VAR_ID:        "VAR_ID",
	ATT_ID:        "ATT_ID",
	DIM_ID:        "DIM_ID",
	DIM_ID_SIZE:   "DIM_ID_SIZE",
	LMT_LIST:      "LMT_LIST",
	LMT:           "LMT",
	DMN_LIST:      "DMN_LIST",
}

var tagsByName map[string]Tag

func init() {
	tagsByName = make(map[string]Tag, numTags)
	for t, n := range tagNames {
		tagsByName[n] = Tag(t)
	}
}

func (t Tag) String() string {
	if t < 0 || t >= numTags {
		return fmt.Sprintf("Tag(%d)", int(t))
	}
	return tagNames[t]
}

// ParseTag returns the tag with the given name.
func ParseTag(name string) (Tag, error) {
	t, ok := tagsByName[name]
	if !ok || t == NAT {
		return NAT, fmt.Errorf("ast: unknown node tag %q", name)
	}
	return t, nil
}

// IsNumber returns whether t is a numeric literal tag.
func (t Tag) IsNumber() bool { return t >= NCAP_BYTE && t <= NCAP_DOUBLE }

// IsStatement returns whether t can appear as a statement in a block.
func (t Tag) IsStatement() bool { return t >= BLOCK && t <= PRINT }
