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

	"github.com/grafana/webquery/api"
)

// TableRowConstraint matches a table row whose cell at a fixed column
// satisfies a text comparison. A cheap comparison against the whole row
// text runs first so rows that cannot match never have their cells
// enumerated.
type TableRowConstraint struct {
	cell         *AttributeConstraint
	columnIndex  int
	containsText Comparer
}

// NewTableRowConstraint matches rows whose cell at columnIndex equals
// findText, ignoring case.
func NewTableRowConstraint(findText string, columnIndex int) *TableRowConstraint {
	return &TableRowConstraint{
		cell:         NewAttributeConstraint(AttrText, StringEqualsAndCaseInsensitiveComparer(findText)),
		columnIndex:  columnIndex,
		containsText: StringContainsAndCaseInsensitiveComparer(findText),
	}
}

// NewTableRowRegexConstraint matches rows whose cell at columnIndex matches re.
func NewTableRowRegexConstraint(re *regexp.Regexp, columnIndex int) *TableRowConstraint {
	return NewTableRowComparerConstraint(NewRegexComparer(re), columnIndex)
}

// NewTableRowComparerConstraint matches rows whose cell at columnIndex
// satisfies comparer.
func NewTableRowComparerConstraint(comparer Comparer, columnIndex int) *TableRowConstraint {
	return &TableRowConstraint{
		cell:         NewAttributeConstraint(AttrText, comparer),
		columnIndex:  columnIndex,
		containsText: AlwaysTrueComparer(),
	}
}

func (c *TableRowConstraint) Compare(ctx context.Context, bag api.AttributeBag) (_ bool, err error) {
	rowText, err := bag.GetValue(ctx, AttrText)
	if err != nil {
		return false, fmt.Errorf("reading row text: %w", err)
	}
	if !c.containsText.Compare(rowText) {
		return false, nil
	}

	eb, ok := bag.(api.ElementAttributeBag)
	if !ok || c.columnIndex < 0 {
		return false, nil
	}
	cell, err := eb.Element().Descendant(ctx, TagTableCell, c.columnIndex)
	if err != nil {
		return false, fmt.Errorf("getting cell %d of row: %w", c.columnIndex, err)
	}
	if cell == nil {
		return false, nil
	}
	if r, ok := cell.(api.Releaser); ok {
		defer func() {
			if rerr := r.Release(ctx); rerr != nil && err == nil {
				err = fmt.Errorf("releasing cell %d of row: %w", c.columnIndex, rerr)
			}
		}()
	}

	return c.cell.Compare(ctx, cell.AttributeBag(ctx))
}

func (c *TableRowConstraint) String() string {
	return fmt.Sprintf("Row with column %d matching %s", c.columnIndex, c.cell)
}
