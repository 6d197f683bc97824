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
	"iter"

	"github.com/grafana/webquery/api"
	"github.com/grafana/webquery/log"
	"github.com/grafana/webquery/trace"
)

// Page is the entry point for queries against one document, whichever
// backend hosts it.
type Page struct {
	container api.DomContainer
	root      api.ElementCollection
	strategy  FinderStrategy
	settings  Settings
	logger    *log.Logger
	tracer    *trace.Tracer
}

// NewPage creates a page searching from root with strategy. A nil tracer
// records nothing.
func NewPage(
	container api.DomContainer, root api.ElementCollection, strategy FinderStrategy,
	settings Settings, logger *log.Logger, tracer *trace.Tracer,
) *Page {
	if tracer == nil {
		tracer = trace.NewNoopTracer()
	}
	return &Page{
		container: container,
		root:      root,
		strategy:  strategy,
		settings:  settings,
		logger:    logger,
		tracer:    tracer,
	}
}

// Settings returns the settings elements of this page use.
func (p *Page) Settings() Settings { return p.settings }

// Finder returns a finder over the whole page.
func (p *Page) Finder(tags []ElementTag, c Constraint) *ElementFinder {
	return p.finderIn(p.root, tags, c)
}

func (p *Page) finderIn(collection api.ElementCollection, tags []ElementTag, c Constraint) *ElementFinder {
	return NewElementFinder(tags, c, collection, p.strategy, p.settings, p.logger)
}

// Element returns a lazily resolved element of kind matching c.
func (p *Page) Element(kind ElementKind, c Constraint) *Element {
	return newFinderElement(p, p.Finder(TagsFor(kind), c), kind)
}

// ElementWithTags returns a lazily resolved element with one of tags
// matching c.
func (p *Page) ElementWithTags(tags []ElementTag, c Constraint) *Element {
	return newFinderElement(p, p.Finder(tags, c), "")
}

// Elements yields every element of kind matching c, already resolved.
func (p *Page) Elements(ctx context.Context, kind ElementKind, c Constraint) iter.Seq2[*Element, error] {
	return p.wrapAll(ctx, p.Finder(TagsFor(kind), c), kind)
}

func (p *Page) wrapAll(ctx context.Context, f *ElementFinder, kind ElementKind) iter.Seq2[*Element, error] {
	return func(yield func(*Element, error) bool) {
		for native, err := range f.Find(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(newNativeElement(p, native, kind), nil) {
				return
			}
		}
	}
}

// WrapElement wraps an already resolved native element.
func (p *Page) WrapElement(native api.NativeElement) *Element {
	return newNativeElement(p, native, "")
}

func (p *Page) Button(c Constraint) *Element      { return p.Element(KindButton, c) }
func (p *Page) CheckBox(c Constraint) *Element    { return p.Element(KindCheckBox, c) }
func (p *Page) RadioButton(c Constraint) *Element { return p.Element(KindRadioButton, c) }
func (p *Page) TextField(c Constraint) *Element   { return p.Element(KindTextField, c) }
func (p *Page) Link(c Constraint) *Element        { return p.Element(KindLink, c) }
func (p *Page) Table(c Constraint) *Element       { return p.Element(KindTable, c) }
func (p *Page) TableRow(c Constraint) *Element    { return p.Element(KindTableRow, c) }
func (p *Page) TableCell(c Constraint) *Element   { return p.Element(KindTableCell, c) }
func (p *Page) Div(c Constraint) *Element         { return p.Element(KindDiv, c) }
func (p *Page) Span(c Constraint) *Element        { return p.Element(KindSpan, c) }

// WaitForComplete waits for the page to finish loading. It is a no-op for
// pages without a container.
func (p *Page) WaitForComplete(ctx context.Context) error {
	if p.container == nil {
		return nil
	}
	return p.container.WaitForComplete(ctx)
}
