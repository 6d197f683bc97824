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

// Event is a synthetic event dispatched through a Document.
type Event struct {
	Type          string
	Bubbles       bool
	Cancelable    bool
	Target        *Element
	CurrentTarget *Element
	// Params holds the caller supplied event properties by name, such as
	// clientX or ctrlKey.
	Params map[string]string

	defaultPrevented   bool
	propagationStopped bool
}

func newEvent(eventName string, params map[string]string) *Event {
	ev := &Event{
		Type:       normalizeEventName(eventName),
		Bubbles:    true,
		Cancelable: true,
		Params:     params,
	}
	if params["bubbles"] == "false" {
		ev.Bubbles = false
	}
	if params["cancelable"] == "false" {
		ev.Cancelable = false
	}
	return ev
}

// PreventDefault cancels the event, if it is cancelable.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called on a
// cancelable event.
func (e *Event) DefaultPrevented() bool { return e.Cancelable && e.defaultPrevented }

// StopPropagation keeps the event from reaching further ancestors.
func (e *Event) StopPropagation() { e.propagationStopped = true }
