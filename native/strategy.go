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
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/grafana/webquery/api"
)

// Strategy enumerates Document elements in process.
type Strategy struct{}

func asElement(root api.NativeElement) (*Element, error) {
	el, ok := root.(*Element)
	if !ok {
		return nil, fmt.Errorf("native strategy cannot search from %T", root)
	}
	return el, nil
}

// descendants selects the element descendants of sel with tagName, or all
// of them for an empty tagName, in document order.
func descendants(sel *goquery.Selection, tagName string) *goquery.Selection {
	all := sel.Find("*")
	if tagName == "" || tagName == "*" {
		return all
	}
	return all.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.EqualFold(goquery.NodeName(s), tagName)
	})
}

// FindByTag yields a snapshot of the matching descendants of root taken
// when iteration starts.
func (Strategy) FindByTag(_ context.Context, root api.NativeElement, tagName string) iter.Seq2[api.NativeElement, error] {
	return func(yield func(api.NativeElement, error) bool) {
		el, err := asElement(root)
		if err != nil {
			yield(nil, err)
			return
		}

		el.doc.mu.Lock()
		nodes := descendants(el.selection(), tagName).Nodes
		el.doc.mu.Unlock()

		for _, n := range nodes {
			if !yield(el.doc.element(n), nil) {
				return
			}
		}
	}
}

// FindByID returns the first element of root's document with the given id.
func (Strategy) FindByID(_ context.Context, root api.NativeElement, id string) (api.NativeElement, error) {
	el, err := asElement(root)
	if err != nil {
		return nil, err
	}

	el.doc.mu.Lock()
	defer el.doc.mu.Unlock()

	found := el.doc.doc.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr("id")
		return ok && v == id
	}).First()
	if found.Length() == 0 {
		return nil, nil
	}
	return el.doc.element(found.Get(0)), nil
}
