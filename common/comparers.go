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
	"fmt"
	"regexp"
	"strings"
)

// Comparer is a leaf matcher deciding whether a single attribute value
// satisfies a condition. Comparers are stateless and may be shared.
type Comparer interface {
	Compare(value string) bool
	String() string
}

// StringComparer matches values equal to a fixed string.
type StringComparer struct {
	value      string
	ignoreCase bool
}

// NewStringComparer returns a case sensitive or insensitive exact comparer.
func NewStringComparer(value string, ignoreCase bool) *StringComparer {
	return &StringComparer{value: value, ignoreCase: ignoreCase}
}

// StringEqualsAndCaseInsensitiveComparer matches values equal to value,
// ignoring case.
func StringEqualsAndCaseInsensitiveComparer(value string) *StringComparer {
	return NewStringComparer(value, true)
}

// Value returns the string compared against.
func (c *StringComparer) Value() string { return c.value }

// IgnoreCase reports whether the comparison folds case.
func (c *StringComparer) IgnoreCase() bool { return c.ignoreCase }

func (c *StringComparer) Compare(value string) bool {
	if value == "" {
		return false
	}
	if c.ignoreCase {
		return strings.EqualFold(value, c.value)
	}
	return value == c.value
}

func (c *StringComparer) String() string {
	if c.ignoreCase {
		return fmt.Sprintf("equals '%s' (ignoring case)", c.value)
	}
	return fmt.Sprintf("equals '%s'", c.value)
}

// ContainsComparer matches values containing a fixed string, ignoring case.
type ContainsComparer struct {
	value string
}

// StringContainsAndCaseInsensitiveComparer returns a comparer matching
// values that contain value, ignoring case.
func StringContainsAndCaseInsensitiveComparer(value string) *ContainsComparer {
	return &ContainsComparer{value: strings.ToLower(value)}
}

func (c *ContainsComparer) Compare(value string) bool {
	if value == "" {
		return false
	}
	return strings.Contains(strings.ToLower(value), c.value)
}

func (c *ContainsComparer) String() string {
	return fmt.Sprintf("contains '%s' (ignoring case)", c.value)
}

// RegexComparer matches values against a regular expression.
type RegexComparer struct {
	re *regexp.Regexp
}

// NewRegexComparer returns a comparer backed by re.
func NewRegexComparer(re *regexp.Regexp) *RegexComparer {
	return &RegexComparer{re: re}
}

func (c *RegexComparer) Compare(value string) bool {
	if value == "" {
		return false
	}
	return c.re.MatchString(value)
}

func (c *RegexComparer) String() string {
	return fmt.Sprintf("matches '%s'", c.re)
}

type alwaysTrueComparer struct{}

// AlwaysTrueComparer matches every value, including the empty one.
func AlwaysTrueComparer() Comparer { return alwaysTrueComparer{} }

func (alwaysTrueComparer) Compare(string) bool { return true }
func (alwaysTrueComparer) String() string      { return "matches anything" }

// ComparerFunc adapts an ordinary function to a Comparer.
type ComparerFunc func(value string) bool

func (f ComparerFunc) Compare(value string) bool { return f(value) }
func (f ComparerFunc) String() string            { return "matches a custom comparer" }
