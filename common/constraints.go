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

	"github.com/grafana/webquery/api"
)

// Constraint is an immutable predicate over the attributes of one element.
type Constraint interface {
	Compare(ctx context.Context, bag api.AttributeBag) (bool, error)
	String() string
}

// AttributeConstraint compares the value of one named attribute.
type AttributeConstraint struct {
	AttributeName string
	Comparer      Comparer
}

// NewAttributeConstraint returns a constraint matching elements whose
// attributeName value satisfies comparer.
func NewAttributeConstraint(attributeName string, comparer Comparer) *AttributeConstraint {
	return &AttributeConstraint{AttributeName: attributeName, Comparer: comparer}
}

func (c *AttributeConstraint) Compare(ctx context.Context, bag api.AttributeBag) (bool, error) {
	value, err := bag.GetValue(ctx, c.AttributeName)
	if err != nil {
		return false, fmt.Errorf("reading attribute %q: %w", c.AttributeName, err)
	}
	return c.Comparer.Compare(value), nil
}

func (c *AttributeConstraint) String() string {
	return fmt.Sprintf("Attribute '%s' %s", c.AttributeName, c.Comparer)
}

// AndConstraint matches when both operands match. Right is not evaluated
// when Left fails.
type AndConstraint struct {
	Left, Right Constraint
}

// And combines constraints left to right into nested AndConstraints.
func And(left, right Constraint, more ...Constraint) Constraint {
	c := Constraint(&AndConstraint{Left: left, Right: right})
	for _, m := range more {
		c = &AndConstraint{Left: c, Right: m}
	}
	return c
}

func (c *AndConstraint) Compare(ctx context.Context, bag api.AttributeBag) (bool, error) {
	ok, err := c.Left.Compare(ctx, bag)
	if err != nil || !ok {
		return false, err
	}
	return c.Right.Compare(ctx, bag)
}

func (c *AndConstraint) String() string {
	return fmt.Sprintf("(%s and %s)", c.Left, c.Right)
}

// OrConstraint matches when either operand matches. Right is not evaluated
// when Left matches.
type OrConstraint struct {
	Left, Right Constraint
}

// Or combines constraints left to right into nested OrConstraints.
func Or(left, right Constraint, more ...Constraint) Constraint {
	c := Constraint(&OrConstraint{Left: left, Right: right})
	for _, m := range more {
		c = &OrConstraint{Left: c, Right: m}
	}
	return c
}

func (c *OrConstraint) Compare(ctx context.Context, bag api.AttributeBag) (bool, error) {
	ok, err := c.Left.Compare(ctx, bag)
	if err != nil || ok {
		return ok, err
	}
	return c.Right.Compare(ctx, bag)
}

func (c *OrConstraint) String() string {
	return fmt.Sprintf("(%s or %s)", c.Left, c.Right)
}

// NotConstraint inverts its operand.
type NotConstraint struct {
	Constraint Constraint
}

// Not returns a constraint matching whatever c does not.
func Not(c Constraint) Constraint {
	return &NotConstraint{Constraint: c}
}

func (c *NotConstraint) Compare(ctx context.Context, bag api.AttributeBag) (bool, error) {
	ok, err := c.Constraint.Compare(ctx, bag)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (c *NotConstraint) String() string {
	return fmt.Sprintf("not (%s)", c.Constraint)
}

// idOf returns the id pinned by c, if c is an exact, case sensitive id
// comparison or an And chain whose leftmost operand is one.
func idOf(c Constraint) (string, bool) {
	switch c := c.(type) {
	case *AttributeConstraint:
		if c.AttributeName != AttrID {
			return "", false
		}
		sc, ok := c.Comparer.(*StringComparer)
		if !ok || sc.IgnoreCase() || sc.Value() == "" {
			return "", false
		}
		return sc.Value(), true
	case *AndConstraint:
		return idOf(c.Left)
	default:
		return "", false
	}
}
