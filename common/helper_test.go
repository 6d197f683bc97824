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
	"errors"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grafana/webquery/api"
)

// elementStub is an in-memory api.NativeElement.
type elementStub struct {
	mu       sync.Mutex
	tag      string
	text     string
	attrs    map[string]string
	style    map[string]string
	parent   *elementStub
	children []*elementStub
	hidden   bool

	events      []string
	clicks      int
	clickBlock  chan struct{}
	cancelEvent bool
	descendants atomic.Int32
	released    atomic.Int32
	persisted   atomic.Int32
	failStyle   bool
}

func newStub(tag string, attrs map[string]string, children ...*elementStub) *elementStub {
	if attrs == nil {
		attrs = make(map[string]string)
	}
	el := &elementStub{tag: tag, attrs: attrs, style: make(map[string]string)}
	for _, c := range children {
		c.parent = el
		el.children = append(el.children, c)
	}
	return el
}

func textStub(tag, text string) *elementStub {
	el := newStub(tag, nil)
	el.text = text
	return el
}

func (e *elementStub) innerText() string {
	parts := []string{}
	if e.text != "" {
		parts = append(parts, e.text)
	}
	for _, c := range e.children {
		if t := c.innerText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (e *elementStub) AttributeBag(context.Context) api.AttributeBag { return stubBag{e} }

func (e *elementStub) GetAttributeValue(_ context.Context, name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch name {
	case AttrText:
		return e.innerText(), nil
	case AttrTagName:
		return e.tag, nil
	case AttrDisabled, AttrChecked:
		return boolString(e.attrs[name] != "" && e.attrs[name] != "false"), nil
	}
	return e.attrs[name], nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (e *elementStub) SetAttributeValue(_ context.Context, name, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
	return nil
}

func (e *elementStub) GetStyleAttributeValue(_ context.Context, name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failStyle {
		return "", errors.New("style not available")
	}
	return e.style[name], nil
}

func (e *elementStub) SetStyleAttributeValue(_ context.Context, name, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failStyle {
		return errors.New("style not available")
	}
	e.style[name] = value
	return nil
}

func (e *elementStub) TagName(context.Context) (string, error) { return e.tag, nil }

func (e *elementStub) ClickOnElement(context.Context) error {
	if e.clickBlock != nil {
		<-e.clickBlock
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clicks++
	return nil
}

func (e *elementStub) SetFocus(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, "focus()")
	return nil
}

func (e *elementStub) FireEvent(_ context.Context, eventName string, _ map[string]string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, eventName)
	return !e.cancelEvent, nil
}

func (e *elementStub) firedEvents() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

func (e *elementStub) clickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (e *elementStub) setHidden(hidden bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hidden = hidden
}

func (e *elementStub) IsElementReferenceStillValid(context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.hidden, nil
}

func (e *elementStub) all(tag string) []*elementStub {
	var found []*elementStub
	for _, c := range e.children {
		if tag == "" || strings.EqualFold(c.tag, tag) {
			found = append(found, c)
		}
		found = append(found, c.all(tag)...)
	}
	return found
}

func (e *elementStub) Descendant(_ context.Context, tagName string, index int) (api.NativeElement, error) {
	e.descendants.Add(1)
	cells := e.all(tagName)
	if index < 0 || index >= len(cells) {
		return nil, nil
	}
	return cells[index], nil
}

func (e *elementStub) Parent(context.Context) (api.NativeElement, error) {
	if e.parent == nil {
		return nil, nil
	}
	return e.parent, nil
}

func (e *elementStub) sibling(offset int) api.NativeElement {
	if e.parent == nil {
		return nil
	}
	for i, c := range e.parent.children {
		if c == e {
			if j := i + offset; j >= 0 && j < len(e.parent.children) {
				return e.parent.children[j]
			}
		}
	}
	return nil
}

func (e *elementStub) NextSibling(context.Context) (api.NativeElement, error) {
	return e.sibling(1), nil
}

func (e *elementStub) PreviousSibling(context.Context) (api.NativeElement, error) {
	return e.sibling(-1), nil
}

type stubBag struct{ el *elementStub }

func (b stubBag) GetValue(ctx context.Context, name string) (string, error) {
	return b.el.GetAttributeValue(ctx, name)
}

func (b stubBag) Element() api.NativeElement { return b.el }

// persistingStub is an elementStub handed out by the strategy as a
// transient reference.
type persistingStub struct {
	*elementStub
}

func (p persistingStub) Persist(context.Context) (api.NativeElement, error) {
	p.persisted.Add(1)
	return p.elementStub, nil
}

func (p persistingStub) AttributeBag(context.Context) api.AttributeBag { return stubBag{p.elementStub} }

// strategyStub searches elementStub trees.
type strategyStub struct {
	byID      atomic.Int32
	byTag     atomic.Int32
	visited   atomic.Int32
	finished  atomic.Int32
	transient bool
	err       error
}

func (s *strategyStub) FindByTag(_ context.Context, root api.NativeElement, tagName string) iter.Seq2[api.NativeElement, error] {
	s.byTag.Add(1)
	return func(yield func(api.NativeElement, error) bool) {
		defer s.finished.Add(1)
		if s.err != nil {
			yield(nil, s.err)
			return
		}
		for _, el := range root.(*elementStub).all(tagName) {
			s.visited.Add(1)
			var n api.NativeElement = el
			if s.transient {
				n = persistingStub{el}
			}
			if !yield(n, nil) {
				return
			}
		}
	}
}

func (s *strategyStub) FindByID(_ context.Context, root api.NativeElement, id string) (api.NativeElement, error) {
	s.byID.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	for _, el := range root.(*elementStub).all("") {
		if el.attrs[AttrID] == id {
			return el, nil
		}
	}
	return nil, nil
}

type collectionStub struct {
	root api.NativeElement
}

func (c collectionStub) Elements(context.Context) (api.NativeElement, error) {
	return c.root, nil
}

type containerStub struct {
	completes atomic.Int32
}

func (c *containerStub) WaitForComplete(context.Context) error {
	c.completes.Add(1)
	return nil
}

func testSettings() Settings {
	s := DefaultSettings()
	s.WaitUntilExistsTimeout = time.Second
	s.FlashInterval = time.Millisecond
	s.NoWaitJoinTimeout = 50 * time.Millisecond
	return s
}

func newTestPage(root *elementStub) (*Page, *strategyStub, *containerStub) {
	strategy := &strategyStub{}
	container := &containerStub{}
	return NewPage(container, collectionStub{root}, strategy, testSettings(), nil, nil), strategy, container
}

// tableDocument returns a document holding one table:
//
//	| Name  | Qty | Total |
//	| Apple | 3   | 42    |
//	| Pear  | 42  | 7     |
func tableDocument() *elementStub {
	row := func(id string, cells ...string) *elementStub {
		tds := make([]*elementStub, 0, len(cells))
		for _, c := range cells {
			tds = append(tds, textStub("td", c))
		}
		return newStub("tr", map[string]string{AttrID: id}, tds...)
	}
	return newStub("html", nil,
		newStub("body", nil,
			newStub("table", map[string]string{AttrID: "items"},
				row("header", "Name", "Qty", "Total"),
				row("apple", "Apple", "3", "42"),
				row("pear", "Pear", "42", "7"),
			),
			newStub("input", map[string]string{AttrID: "go", AttrType: "submit", AttrValue: "Go"}),
			newStub("input", map[string]string{AttrID: "off", AttrType: "button", AttrDisabled: "disabled"}),
			newStub("input", map[string]string{AttrID: "agree", AttrType: "checkbox"}),
			newStub("button", map[string]string{AttrID: "send", AttrTitle: "Send it"}),
		),
	)
}
