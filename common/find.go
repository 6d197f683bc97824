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

package common

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/grafana/webquery/api"
)

// Attribute names understood by every backend.
const (
	AttrID        = "id"
	AttrName      = "name"
	AttrText      = "innertext"
	AttrValue     = "value"
	AttrTitle     = "title"
	AttrClassName = "classname"
	AttrHref      = "href"
	AttrFor       = "htmlfor"
	AttrAlt       = "alt"
	AttrSrc       = "src"
	AttrStyle     = "style"
	AttrTagName   = "tagname"
	AttrType      = "type"
	AttrChecked   = "checked"
	AttrDisabled  = "disabled"
	AttrInnerHTML = "innerhtml"
	AttrOuterHTML = "outerhtml"
)

// ByID matches the element with exactly this id. Finders resolve it with a
// single id lookup instead of enumerating.
func ByID(id string) *AttributeConstraint {
	return NewAttributeConstraint(AttrID, NewStringComparer(id, false))
}

// ByIDRegex matches elements whose id matches re.
func ByIDRegex(re *regexp.Regexp) *AttributeConstraint {
	return NewAttributeConstraint(AttrID, NewRegexComparer(re))
}

func ByName(name string) *AttributeConstraint {
	return NewAttributeConstraint(AttrName, NewStringComparer(name, false))
}

func ByText(text string) *AttributeConstraint {
	return NewAttributeConstraint(AttrText, NewStringComparer(text, false))
}

func ByTextRegex(re *regexp.Regexp) *AttributeConstraint {
	return NewAttributeConstraint(AttrText, NewRegexComparer(re))
}

func ByValue(value string) *AttributeConstraint {
	return NewAttributeConstraint(AttrValue, NewStringComparer(value, false))
}

func ByTitle(title string) *AttributeConstraint {
	return NewAttributeConstraint(AttrTitle, NewStringComparer(title, false))
}

// ByClass matches elements whose class attribute equals className.
func ByClass(className string) *AttributeConstraint {
	return NewAttributeConstraint(AttrClassName, NewStringComparer(className, false))
}

// ByURL matches links whose href equals url, ignoring case.
func ByURL(url string) *AttributeConstraint {
	return NewAttributeConstraint(AttrHref, StringEqualsAndCaseInsensitiveComparer(url))
}

// ByFor matches labels pointing at the element with the given id.
func ByFor(forID string) *AttributeConstraint {
	return NewAttributeConstraint(AttrFor, NewStringComparer(forID, false))
}

func ByAlt(alt string) *AttributeConstraint {
	return NewAttributeConstraint(AttrAlt, NewStringComparer(alt, false))
}

// BySrc matches images whose src equals src, ignoring case.
func BySrc(src string) *AttributeConstraint {
	return NewAttributeConstraint(AttrSrc, StringEqualsAndCaseInsensitiveComparer(src))
}

// ByStyle matches elements whose inline style property equals value,
// ignoring case. The property uses its scripting name, e.g. backgroundColor.
func ByStyle(property, value string) *AttributeConstraint {
	return NewAttributeConstraint(StyleAttributePrefix+property, StringEqualsAndCaseInsensitiveComparer(value))
}

// ByAttribute matches elements whose attributeName equals value.
func ByAttribute(attributeName, value string) *AttributeConstraint {
	return NewAttributeConstraint(attributeName, NewStringComparer(value, false))
}

// ByCustom matches elements whose attributeName satisfies comparer.
func ByCustom(attributeName string, comparer Comparer) *AttributeConstraint {
	return NewAttributeConstraint(attributeName, comparer)
}

// Any matches every element.
func Any() Constraint {
	return anyConstraint{}
}

// ByRowText matches table rows whose cell at column equals text, ignoring case.
func ByRowText(text string, column int) *TableRowConstraint {
	return NewTableRowConstraint(text, column)
}

func ByRowRegex(re *regexp.Regexp, column int) *TableRowConstraint {
	return NewTableRowRegexConstraint(re, column)
}

func ByRowComparer(comparer Comparer, column int) *TableRowConstraint {
	return NewTableRowComparerConstraint(comparer, column)
}

// StyleAttributePrefix marks attribute names that address one inline style
// property rather than a DOM attribute.
const StyleAttributePrefix = "style."

type anyConstraint struct{}

func (anyConstraint) Compare(context.Context, api.AttributeBag) (bool, error) { return true, nil }
func (anyConstraint) String() string                                          { return "Any" }

// ParseAttributeConstraint builds a constraint from "name=value", the
// textual form accepted on the command line.
func ParseAttributeConstraint(s string) (*AttributeConstraint, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return nil, fmt.Errorf("invalid attribute constraint %q, expected name=value", s)
	}
	if strings.EqualFold(name, AttrID) {
		return ByID(value), nil
	}
	return ByAttribute(strings.ToLower(name), value), nil
}
