/*
 *
 * webquery - element queries for in-process and remote browser documents
 * Copyright (C) 2021 Load Impact
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package native

import (
	"strings"
	"unicode"
)

type declaration struct {
	property, value string
}

// style is an ordered list of inline CSS declarations.
type style []declaration

func parseStyle(cssText string) style {
	var st style
	for _, decl := range strings.Split(cssText, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		prop = strings.ToLower(strings.TrimSpace(prop))
		if !ok || prop == "" {
			continue
		}
		st = append(st, declaration{property: prop, value: strings.TrimSpace(value)})
	}
	return st
}

// get returns the value of property, given in CSS or scripting form.
func (st style) get(property string) string {
	property = cssPropertyName(property)
	for _, d := range st {
		if d.property == property {
			return d.value
		}
	}
	return ""
}

func (st *style) set(property, value string) {
	property = cssPropertyName(property)
	out := (*st)[:0]
	replaced := false
	for _, d := range *st {
		if d.property != property {
			out = append(out, d)
			continue
		}
		if value != "" && !replaced {
			out = append(out, declaration{property: property, value: value})
			replaced = true
		}
	}
	if value != "" && !replaced {
		out = append(out, declaration{property: property, value: value})
	}
	*st = out
}

func (st style) String() string {
	parts := make([]string, 0, len(st))
	for _, d := range st {
		parts = append(parts, d.property+": "+d.value+";")
	}
	return strings.Join(parts, " ")
}

// cssPropertyName turns backgroundColor into background-color.
func cssPropertyName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
