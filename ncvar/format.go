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

package ncvar

import (
	"fmt"
	"regexp"
	"strings"
)

// Format renders the elements of v. With an empty format the elements
// are separated by commas, missing elements print as "_" and char values
// print as a quoted string. Otherwise format is a printf-style format
// applied to each element in turn; integer verbs receive integers and
// floating point verbs receive floats whatever the type of v.
func Format(v *Var, format string) string {
	if v.Val == nil {
		return ""
	}
	if format == "" {
		if v.Type == Char {
			return fmt.Sprintf("%q", v.Text())
		}
		parts := make([]string, v.Sz)
		for i := range parts {
			if v.IsMissing(i) {
				parts[i] = "_"
			} else {
				parts[i] = v.Elem(i)
			}
		}
		return strings.Join(parts, ", ")
	}
	if v.Type == Char {
		return fmt.Sprintf(format, v.Text())
	}
	verb := formatVerb(format)
	if verb == 0 {
		return format
	}
	var b strings.Builder
	for i := 0; i < v.Sz; i++ {
		switch {
		case verb == 's' || verb == 'q' || verb == 'v':
			fmt.Fprintf(&b, format, v.Elem(i))
		case strings.ContainsRune("dioxXcb", verb):
			fmt.Fprintf(&b, format, v.Int64(i))
		default:
			fmt.Fprintf(&b, format, v.Float64(i))
		}
	}
	return b.String()
}

// formatVerb returns the first verb in a printf format, or 0.
func formatVerb(format string) rune {
	in := false
	for _, r := range format {
		switch {
		case !in && r == '%':
			in = true
		case in && r == '%':
			in = false
		case in && strings.ContainsRune("0123456789.+-# lh", r):
		case in:
			return r
		}
	}
	return 0
}

var cConversion = regexp.MustCompile(`%([-+ #0]*[0-9]*(?:\.[0-9]*)?)(?:hh|h|ll|l|L|q|j|z|t)?([diuoxXeEfFgGcs])`)

// CFormat converts the C length modifiers in a printf format, which Go
// does not accept, so that formats written for C such as "%ld" or
// "%5.2lf" can be used. %i and %u become %d.
func CFormat(format string) string {
	return cConversion.ReplaceAllStringFunc(format, func(m string) string {
		s := cConversion.FindStringSubmatch(m)
		verb := s[2]
		if verb == "i" || verb == "u" {
			verb = "d"
		}
		return "%" + s[1] + verb
	})
}
