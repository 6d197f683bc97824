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

package remote

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mailru/easyjson/jwriter"

	"github.com/grafana/webquery/api"
)

// properties are read and written as element properties rather than through
// getAttribute, keyed by lower case attribute name.
var properties = map[string]string{
	"innertext":   "textContent",
	"text":        "textContent",
	"textcontent": "textContent",
	"tagname":     "tagName",
	"classname":   "className",
	"class":       "className",
	"innerhtml":   "innerHTML",
	"outerhtml":   "outerHTML",
	"htmlfor":     "htmlFor",
	"style":       "style.cssText",
	"checked":     "checked",
	"disabled":    "disabled",
	"selected":    "selected",
	"readonly":    "readOnly",
	"multiple":    "multiple",
	"value":       "value",
}

var booleanProperties = map[string]bool{
	"checked":  true,
	"disabled": true,
	"selected": true,
	"readOnly": true,
	"multiple": true,
}

// quote renders s as a script string literal.
func quote(s string) string {
	w := jwriter.Writer{}
	w.String(s)
	b, _ := w.BuildBytes()
	return string(b)
}

// Element is a handle to an element living in the browser, known by the
// script expression that evaluates to it. Transient handles index into a
// search result array and are only valid while that search runs.
type Element struct {
	port      *ClientPort
	reference string
	transient bool
}

var (
	_ api.NativeElement = &Element{}
	_ api.Persister     = &Element{}
	_ api.Releaser      = &Element{}
)

// NewElement returns a handle to the element reference evaluates to.
func NewElement(port *ClientPort, reference string) *Element {
	return &Element{port: port, reference: reference}
}

// Reference returns the script expression the handle evaluates.
func (e *Element) Reference() string { return e.reference }

func (e *Element) String() string { return e.reference }

// Persist promotes a transient handle to a variable of its own.
func (e *Element) Persist(ctx context.Context) (api.NativeElement, error) {
	if !e.transient {
		return e, nil
	}
	name := e.port.CreateVariableName()
	if err := e.port.Write(ctx, name+"="+e.reference+";"); err != nil {
		return nil, err
	}
	return NewElement(e.port, name), nil
}

// Release clears the variable backing the handle. Transient handles and the
// document itself are left alone.
func (e *Element) Release(ctx context.Context) error {
	if e.transient || e.reference == DocumentVariableName {
		return nil
	}
	return e.port.Write(ctx, e.reference+" = null;")
}

func (e *Element) AttributeBag(context.Context) api.AttributeBag {
	return attributeBag{e}
}

func (e *Element) expression(attributeName string) (expr string, property string) {
	name := strings.ToLower(attributeName)
	if strings.HasPrefix(name, "style.") {
		return e.reference + "." + attributeName, attributeName
	}
	if p, ok := properties[name]; ok {
		return e.reference + "." + p, p
	}
	return "", ""
}

func (e *Element) GetAttributeValue(ctx context.Context, attributeName string) (string, error) {
	expr, _ := e.expression(attributeName)
	if expr == "" {
		expr = fmt.Sprintf("%s.getAttribute(%s)", e.reference, quote(attributeName))
	}
	return e.port.WriteAndRead(ctx, expr+";")
}

func (e *Element) SetAttributeValue(ctx context.Context, attributeName, value string) error {
	expr, property := e.expression(attributeName)
	switch {
	case expr == "":
		return e.port.Write(ctx, fmt.Sprintf("%s.setAttribute(%s, %s);", e.reference, quote(attributeName), quote(value)))
	case booleanProperties[property]:
		b, _ := strconv.ParseBool(value)
		return e.port.Write(ctx, fmt.Sprintf("%s = %t;", expr, b))
	}
	return e.port.Write(ctx, fmt.Sprintf("%s = %s;", expr, quote(value)))
}

func (e *Element) GetStyleAttributeValue(ctx context.Context, attributeName string) (string, error) {
	return e.GetAttributeValue(ctx, "style."+attributeName)
}

func (e *Element) SetStyleAttributeValue(ctx context.Context, attributeName, value string) error {
	return e.SetAttributeValue(ctx, "style."+attributeName, value)
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	tagName, err := e.port.WriteAndRead(ctx, e.reference+".tagName;")
	return strings.ToUpper(tagName), err
}

// ClickOnElement dispatches a click with the default event parameters.
func (e *Element) ClickOnElement(ctx context.Context) error {
	_, err := e.FireEvent(ctx, "click", nil)
	return err
}

func (e *Element) SetFocus(ctx context.Context) error {
	return e.port.Write(ctx, e.reference+".focus();")
}

func (e *Element) FireEvent(ctx context.Context, eventName string, params map[string]string) (bool, error) {
	cmd, err := NewJSEventCreator(e.reference).CreateEvent(eventName, params, true)
	if err != nil {
		return false, err
	}
	return e.port.WriteAndReadAsBool(ctx, cmd)
}

func (e *Element) IsElementReferenceStillValid(ctx context.Context) (bool, error) {
	r := e.reference
	return e.port.WriteAndReadAsBool(ctx, fmt.Sprintf(
		"%s != null && %s.ownerDocument.documentElement.contains(%s) && %s.offsetParent != null;", r, r, r, r))
}

// related assigns the element expr evaluates to, relative to the handle, to
// a new variable and returns it, or nil when cond does not hold for it. In
// cond, {} stands for the new variable.
func (e *Element) related(ctx context.Context, expr, cond string) (api.NativeElement, error) {
	name := e.port.CreateVariableName()
	ok, err := e.port.WriteAndReadAsBool(ctx, fmt.Sprintf("%s = %s%s; %s;", name, e.reference, expr,
		strings.ReplaceAll(cond, "{}", name)))
	if err != nil {
		return nil, err
	}
	if !ok {
		// The variable may still hold a non-element, such as the document.
		return nil, e.port.Write(ctx, name+" = null;")
	}
	return NewElement(e.port, name), nil
}

func (e *Element) Descendant(ctx context.Context, tagName string, index int) (api.NativeElement, error) {
	if index < 0 {
		return nil, nil
	}
	return e.related(ctx, fmt.Sprintf(".getElementsByTagName(%s)[%d]", quote(tagName), index), "{} != null")
}

func (e *Element) Parent(ctx context.Context) (api.NativeElement, error) {
	return e.related(ctx, ".parentNode", "{} != null && {}.nodeType == 1")
}

func (e *Element) NextSibling(ctx context.Context) (api.NativeElement, error) {
	return e.related(ctx, ".nextElementSibling", "{} != null")
}

func (e *Element) PreviousSibling(ctx context.Context) (api.NativeElement, error) {
	return e.related(ctx, ".previousElementSibling", "{} != null")
}

type attributeBag struct {
	el *Element
}

func (b attributeBag) GetValue(ctx context.Context, attributeName string) (string, error) {
	return b.el.GetAttributeValue(ctx, attributeName)
}

func (b attributeBag) Element() api.NativeElement { return b.el }
