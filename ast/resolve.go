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

import "fmt"

// Resolve stores the function registry index of every function and
// method call in the tree rooted at n. lookup returns the index of the
// named function and whether it exists.
func Resolve(n *Node, lookup func(name string) (int, bool)) error {
	var err error
	n.Walk(func(k *Node) bool {
		if err != nil {
			return false
		}
		if k.Tag == FUNC || k.Tag == DOT {
			idx, ok := lookup(k.Text)
			if !ok {
				err = fmt.Errorf("ast: unrecognized function %q", k.Text)
				return false
			}
			k.Fn = idx
		}
		return true
	})
	return err
}
