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
	"fmt"
	"strings"
)

type eventParam struct {
	name, def string
}

// eventKind selects the constructor and initializer of a synthetic event.
type eventKind struct {
	module      string
	initializer string
	params      []eventParam
}

var (
	mouseEvent = eventKind{
		module:      "MouseEvents",
		initializer: "initMouseEvent",
		params: []eventParam{
			{"bubbles", "true"}, {"cancelable", "true"}, {"windowObject", "null"},
			{"detail", "0"}, {"screenX", "0"}, {"screenY", "0"}, {"clientX", "0"}, {"clientY", "0"},
			{"ctrlKey", "false"}, {"altKey", "false"}, {"shiftKey", "false"}, {"metaKey", "false"},
			{"button", "0"}, {"relatedTarget", "null"},
		},
	}
	keyboardEvent = eventKind{
		module:      "KeyboardEvent",
		initializer: "initKeyboardEvent",
		params: []eventParam{
			{"bubbles", "true"}, {"cancelable", "true"}, {"windowObject", "null"},
			{"key", "''"}, {"location", "0"},
			{"ctrlKey", "false"}, {"altKey", "false"}, {"shiftKey", "false"}, {"metaKey", "false"},
		},
	}
	htmlEvent = eventKind{
		module:      "HTMLEvents",
		initializer: "initEvent",
		params:      []eventParam{{"bubbles", "true"}, {"cancelable", "true"}},
	}
)

var eventKinds = map[string]eventKind{
	"click":       mouseEvent,
	"dblclick":    mouseEvent,
	"mousedown":   mouseEvent,
	"mouseup":     mouseEvent,
	"mouseover":   mouseEvent,
	"mouseout":    mouseEvent,
	"mousemove":   mouseEvent,
	"mouseenter":  mouseEvent,
	"mouseleave":  mouseEvent,
	"contextmenu": mouseEvent,
	"keydown":     keyboardEvent,
	"keyup":       keyboardEvent,
	"keypress":    keyboardEvent,
}

// JSEventCreator builds the script that synthesizes and dispatches events on
// one element reference.
type JSEventCreator struct {
	element string
}

// NewJSEventCreator returns a creator for events targeting the element the
// reference expression evaluates to.
func NewJSEventCreator(elementReference string) *JSEventCreator {
	return &JSEventCreator{element: elementReference}
}

// CreateEvent returns a command that creates eventName, dispatches it and
// evaluates to whether the dispatch was not cancelled. Every entry of params
// replaces the slot of the same name verbatim, so it may be a literal or a
// browser-side variable name. Slots without an entry take their default when
// useDefaults is set and are an error otherwise.
func (c *JSEventCreator) CreateEvent(eventName string, params map[string]string, useDefaults bool) (string, error) {
	name := eventType(eventName)
	kind, ok := eventKinds[name]
	if !ok {
		kind = htmlEvent
	}
	cmd, err := c.command(kind, name, params, useDefaults)
	if err != nil {
		return "", err
	}
	return cmd + fmt.Sprintf("var res = %s.dispatchEvent(event); if(res){true;}else{false;};", c.element), nil
}

// CreateMouseEventCommand returns the script creating a mouse event from a
// full set of params, without dispatching it.
func (c *JSEventCreator) CreateMouseEventCommand(eventName string, params map[string]string) (string, error) {
	return c.command(mouseEvent, eventType(eventName), params, false)
}

// CreateKeyboardEventCommand returns the script creating a keyboard event
// from a full set of params, without dispatching it.
func (c *JSEventCreator) CreateKeyboardEventCommand(eventName string, params map[string]string) (string, error) {
	return c.command(keyboardEvent, eventType(eventName), params, false)
}

// CreateHTMLEventCommand returns the script creating a generic event from a
// full set of params, without dispatching it.
func (c *JSEventCreator) CreateHTMLEventCommand(eventName string, params map[string]string) (string, error) {
	return c.command(htmlEvent, eventType(eventName), params, false)
}

func (c *JSEventCreator) command(kind eventKind, name string, params map[string]string, useDefaults bool) (string, error) {
	args := make([]string, 0, len(kind.params)+1)
	args = append(args, "'"+name+"'")
	for _, p := range kind.params {
		v, ok := params[p.name]
		switch {
		case ok:
		case useDefaults:
			v = p.def
		default:
			return "", fmt.Errorf("no value for %s parameter %q", kind.initializer, p.name)
		}
		args = append(args, v)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "var event = %s.ownerDocument.createEvent(%q);", c.element, kind.module)
	fmt.Fprintf(&b, "event.%s(%s);", kind.initializer, strings.Join(args, ","))
	return b.String(), nil
}

// eventType strips the inline handler prefix: "onClick" becomes "click".
func eventType(eventName string) string {
	name := strings.ToLower(eventName)
	return strings.TrimPrefix(name, "on")
}
