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

// Package native implements the in-process element backend over an HTML
// document parsed with goquery.
package native

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/grafana/webquery/api"
	"github.com/grafana/webquery/common"
	"github.com/grafana/webquery/log"
	"github.com/grafana/webquery/trace"
)

// Listener handles an event dispatched on an element or, while the event
// bubbles, on one of its ancestors.
type Listener func(ev *Event)

// Document is an HTML document living in the test process. It is the
// collection searches start from and the container elements complete in.
type Document struct {
	doc *goquery.Document

	mu        sync.Mutex
	listeners map[*html.Node]map[string][]Listener
	focused   *html.Node
}

var (
	_ api.ElementCollection = &Document{}
	_ api.DomContainer      = &Document{}
)

// NewDocument parses an HTML document from r.
func NewDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &Document{
		doc:       doc,
		listeners: make(map[*html.Node]map[string][]Listener),
	}, nil
}

// NewDocumentFromString parses an HTML document from s.
func NewDocumentFromString(s string) (*Document, error) {
	return NewDocument(strings.NewReader(s))
}

// Page returns a page querying this document.
func (d *Document) Page(settings common.Settings, logger *log.Logger, tracer *trace.Tracer) *common.Page {
	return common.NewPage(d, d, Strategy{}, settings, logger, tracer)
}

// Elements returns the document node, the root every page wide search
// enumerates from.
func (d *Document) Elements(context.Context) (api.NativeElement, error) {
	return d.element(d.doc.Nodes[0]), nil
}

// WaitForComplete returns immediately: a parsed document is always complete.
func (d *Document) WaitForComplete(context.Context) error {
	return nil
}

// HTML renders the current state of the document.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return goquery.OuterHtml(d.doc.Selection)
}

// Focused returns the element that last received the focus, or nil.
func (d *Document) Focused() *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.focused == nil {
		return nil
	}
	return d.element(d.focused)
}

// AddEventListener registers fn for events of eventType on el. The type
// may carry the "on" prefix used by inline handlers.
func (d *Document) AddEventListener(el *Element, eventType string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byType := d.listeners[el.node]
	if byType == nil {
		byType = make(map[string][]Listener)
		d.listeners[el.node] = byType
	}
	eventType = normalizeEventName(eventType)
	byType[eventType] = append(byType[eventType], fn)
}

func (d *Document) element(n *html.Node) *Element {
	return &Element{doc: d, node: n}
}

// dispatch runs the listeners for ev on target and, when ev bubbles, on
// its ancestors. It reports whether the event was not cancelled.
func (d *Document) dispatch(target *html.Node, ev *Event) bool {
	d.mu.Lock()
	path := []*html.Node{target}
	if ev.Bubbles {
		for p := target.Parent; p != nil; p = p.Parent {
			path = append(path, p)
		}
	}
	type stop struct {
		node      *html.Node
		listeners []Listener
	}
	stops := make([]stop, 0, len(path))
	for _, n := range path {
		if ls := d.listeners[n][ev.Type]; len(ls) > 0 {
			stops = append(stops, stop{node: n, listeners: append([]Listener(nil), ls...)})
		}
	}
	d.mu.Unlock()

	ev.Target = d.element(target)
	for _, s := range stops {
		ev.CurrentTarget = d.element(s.node)
		for _, fn := range s.listeners {
			fn(ev)
		}
		if ev.propagationStopped {
			break
		}
	}
	return !(ev.Cancelable && ev.defaultPrevented)
}

func normalizeEventName(name string) string {
	name = strings.ToLower(name)
	if strings.HasPrefix(name, "on") {
		name = name[2:]
	}
	return name
}
