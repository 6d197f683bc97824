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
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/grafana/webquery/api"
)

// booleanAttributes are read as "true" or "false" depending on presence.
var booleanAttributes = map[string]bool{
	"checked":  true,
	"disabled": true,
	"selected": true,
	"readonly": true,
	"multiple": true,
	"hidden":   true,
}

// attributeAliases maps scripting property names to the HTML attribute
// they reflect.
var attributeAliases = map[string]string{
	"classname": "class",
	"htmlfor":   "for",
}

// hiddenTags never take part in layout.
var hiddenTags = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Template: true,
	atom.Title:    true,
	atom.Meta:     true,
	atom.Link:     true,
}

// separatedTags render on their own line or cell, so their text never runs
// into the text of their neighbours.
var separatedTags = map[atom.Atom]bool{
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Br: true,
	atom.P: true, atom.Div: true, atom.Li: true, atom.Table: true,
	atom.Option: true, atom.H1: true, atom.H2: true, atom.H3: true,
}

// innerText approximates the rendered text of n: whitespace collapsed and
// cells, rows and blocks separated by a space.
func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if hiddenTags[n.DataAtom] && n.DataAtom != atom.Title {
				return
			}
		}
		sep := n.Type == html.ElementNode && separatedTags[n.DataAtom]
		if sep {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if sep {
			b.WriteByte(' ')
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// Element is a handle to one node of a Document.
type Element struct {
	doc  *Document
	node *html.Node
}

var _ api.NativeElement = &Element{}

// Node returns the underlying HTML node.
func (e *Element) Node() *html.Node { return e.node }

func (e *Element) selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(e.node).Selection
}

func (e *Element) AttributeBag(context.Context) api.AttributeBag {
	return attributeBag{e}
}

func (e *Element) GetAttributeValue(_ context.Context, attributeName string) (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.attribute(attributeName)
}

func (e *Element) attribute(attributeName string) (string, error) {
	name := strings.ToLower(attributeName)
	switch {
	case name == "innertext" || name == "text" || name == "textcontent":
		return innerText(e.node), nil
	case name == "tagname":
		return strings.ToUpper(e.node.Data), nil
	case name == "innerhtml":
		return e.selection().Html()
	case name == "outerhtml":
		return goquery.OuterHtml(e.selection())
	case name == "value" && e.node.DataAtom == atom.Textarea:
		return e.selection().Text(), nil
	case strings.HasPrefix(name, "style."):
		return parseStyle(e.attr("style")).get(attributeName[len("style."):]), nil
	case booleanAttributes[name]:
		_, ok := e.lookupAttr(name)
		if ok {
			return "true", nil
		}
		return "false", nil
	}
	if alias, ok := attributeAliases[name]; ok {
		name = alias
	}
	return e.attr(name), nil
}

func (e *Element) lookupAttr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func (e *Element) attr(name string) string {
	v, _ := e.lookupAttr(name)
	return v
}

func (e *Element) setAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

func (e *Element) removeAttr(name string) {
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace != "" || !strings.EqualFold(a.Key, name) {
			attrs = append(attrs, a)
		}
	}
	e.node.Attr = attrs
}

func (e *Element) SetAttributeValue(_ context.Context, attributeName, value string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.setAttribute(attributeName, value)
	return nil
}

func (e *Element) setAttribute(attributeName, value string) {
	name := strings.ToLower(attributeName)
	switch {
	case name == "innertext" || name == "text" || name == "textcontent":
		e.selection().SetText(value)
	case name == "innerhtml":
		e.selection().SetHtml(value)
	case strings.HasPrefix(name, "style."):
		st := parseStyle(e.attr("style"))
		st.set(attributeName[len("style."):], value)
		e.setAttr("style", st.String())
	case booleanAttributes[name]:
		if strings.EqualFold(value, "true") {
			e.setAttr(name, "")
		} else {
			e.removeAttr(name)
		}
	default:
		if alias, ok := attributeAliases[name]; ok {
			name = alias
		}
		e.setAttr(name, value)
	}
}

// GetStyleAttributeValue returns an inline style property by its
// scripting name, e.g. backgroundColor.
func (e *Element) GetStyleAttributeValue(ctx context.Context, attributeName string) (string, error) {
	return e.GetAttributeValue(ctx, "style."+attributeName)
}

// SetStyleAttributeValue sets an inline style property. An empty value
// removes it.
func (e *Element) SetStyleAttributeValue(ctx context.Context, attributeName, value string) error {
	return e.SetAttributeValue(ctx, "style."+attributeName, value)
}

// TagName returns the upper case tag name.
func (e *Element) TagName(context.Context) (string, error) {
	return strings.ToUpper(e.node.Data), nil
}

// ClickOnElement dispatches a click. Check boxes toggle and radio buttons
// become checked first, and revert when a listener cancels the click.
func (e *Element) ClickOnElement(context.Context) error {
	e.doc.mu.Lock()
	undo := e.activate()
	e.doc.mu.Unlock()

	if !e.doc.dispatch(e.node, newEvent("click", nil)) && undo != nil {
		e.doc.mu.Lock()
		undo()
		e.doc.mu.Unlock()
	}
	return nil
}

// activate applies the default action of clicking e and returns a func
// reverting it, or nil when there is none.
func (e *Element) activate() func() {
	if e.node.DataAtom != atom.Input {
		return nil
	}
	_, wasChecked := e.lookupAttr("checked")
	switch strings.ToLower(e.attr("type")) {
	case "checkbox":
		e.setAttribute("checked", boolString(!wasChecked))
		return func() { e.setAttribute("checked", boolString(wasChecked)) }
	case "radio":
		var unchecked []*Element
		if name := e.attr("name"); name != "" {
			e.doc.doc.Find("input").Each(func(_ int, s *goquery.Selection) {
				other := e.doc.element(s.Nodes[0])
				if other.node == e.node || !strings.EqualFold(other.attr("type"), "radio") || other.attr("name") != name {
					return
				}
				if _, ok := other.lookupAttr("checked"); ok {
					other.removeAttr("checked")
					unchecked = append(unchecked, other)
				}
			})
		}
		e.setAttribute("checked", "true")
		return func() {
			e.setAttribute("checked", boolString(wasChecked))
			for _, o := range unchecked {
				o.setAttribute("checked", "true")
			}
		}
	}
	return nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// SetFocus makes e the focused element of its document.
func (e *Element) SetFocus(context.Context) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.doc.focused = e.node
	return nil
}

// FireEvent dispatches eventName with params. The "bubbles" and
// "cancelable" params default to true.
func (e *Element) FireEvent(_ context.Context, eventName string, params map[string]string) (bool, error) {
	return e.doc.dispatch(e.node, newEvent(eventName, params)), nil
}

// IsElementReferenceStillValid reports whether e is attached to its
// document and would have an offset parent when rendered.
func (e *Element) IsElementReferenceStillValid(context.Context) (bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	if e.node.Type != html.ElementNode || e.node.DataAtom == atom.Html || e.node.DataAtom == atom.Body {
		return false, nil
	}
	for n := e.node; ; n = n.Parent {
		if n == nil {
			return false, nil
		}
		if n.Type == html.DocumentNode {
			return n == e.doc.doc.Nodes[0], nil
		}
		if n.Type != html.ElementNode {
			continue
		}
		el := e.doc.element(n)
		if hiddenTags[n.DataAtom] {
			return false, nil
		}
		if _, ok := el.lookupAttr("hidden"); ok {
			return false, nil
		}
		if n.DataAtom == atom.Input && strings.EqualFold(el.attr("type"), "hidden") {
			return false, nil
		}
		if strings.EqualFold(parseStyle(el.attr("style")).get("display"), "none") {
			return false, nil
		}
	}
}

// Descendant returns the index-th descendant with tagName in document order.
func (e *Element) Descendant(_ context.Context, tagName string, index int) (api.NativeElement, error) {
	if index < 0 {
		return nil, nil
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	found := descendants(e.selection(), tagName)
	if index >= found.Length() {
		return nil, nil
	}
	return e.doc.element(found.Get(index)), nil
}

func (e *Element) Parent(context.Context) (api.NativeElement, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	if p := e.node.Parent; p != nil && p.Type == html.ElementNode {
		return e.doc.element(p), nil
	}
	return nil, nil
}

// NextSibling returns the next element sibling, skipping text and comments.
func (e *Element) NextSibling(context.Context) (api.NativeElement, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	for n := e.node.NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			return e.doc.element(n), nil
		}
	}
	return nil, nil
}

// PreviousSibling returns the previous element sibling, skipping text and
// comments.
func (e *Element) PreviousSibling(context.Context) (api.NativeElement, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	for n := e.node.PrevSibling; n != nil; n = n.PrevSibling {
		if n.Type == html.ElementNode {
			return e.doc.element(n), nil
		}
	}
	return nil, nil
}

// Remove detaches e from its document. Handles to it stay usable but no
// longer exist.
func (e *Element) Remove() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.node.Parent != nil {
		e.node.Parent.RemoveChild(e.node)
	}
}

func (e *Element) String() string {
	return strings.ToUpper(e.node.Data)
}

type attributeBag struct {
	el *Element
}

func (b attributeBag) GetValue(ctx context.Context, attributeName string) (string, error) {
	return b.el.GetAttributeValue(ctx, attributeName)
}

func (b attributeBag) Element() api.NativeElement { return b.el }
