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
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grafana/webquery/api"
	"github.com/grafana/webquery/trace"
)

// Element is one element of a page. It is either bound to a native handle
// up front or resolved lazily, on first use, through its finder.
type Element struct {
	page   *Page
	finder *ElementFinder

	mu            sync.Mutex
	kind          ElementKind
	native        api.NativeElement
	originalColor *string
}

var _ api.ElementCollection = &Element{}

func newFinderElement(p *Page, f *ElementFinder, kind ElementKind) *Element {
	return &Element{page: p, finder: f, kind: kind}
}

func newNativeElement(p *Page, native api.NativeElement, kind ElementKind) *Element {
	return &Element{page: p, native: native, kind: kind}
}

func (e *Element) cached() api.NativeElement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.native
}

// lookup returns the element without waiting for it, or nil when it
// cannot be found.
func (e *Element) lookup(ctx context.Context) (api.NativeElement, error) {
	if n := e.cached(); n != nil || e.finder == nil {
		return n, nil
	}
	n, err := e.finder.FindFirst(ctx)
	var nfErr *ElementNotFoundError
	if errors.As(err, &nfErr) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.native == nil {
		e.native = n
	}
	return e.native, nil
}

// NativeElement returns the backend handle, waiting for the element to
// show up if it has not been resolved yet.
func (e *Element) NativeElement(ctx context.Context) (api.NativeElement, error) {
	if n := e.cached(); n != nil {
		return n, nil
	}
	if e.finder == nil {
		return nil, errors.New("element has neither a handle nor a finder")
	}
	if err := e.WaitUntilExists(ctx, 0); err != nil {
		var tErr *TimeoutError
		if !errors.As(err, &tErr) {
			return nil, err
		}
	}
	n, err := e.lookup(ctx)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, e.finder.NotFoundError()
	}
	return n, nil
}

// Elements returns the element as the root of a scoped search, or nil when
// it does not exist.
func (e *Element) Elements(ctx context.Context) (api.NativeElement, error) {
	return e.lookup(ctx)
}

// Find returns a finder searching inside this element.
func (e *Element) Find(tags []ElementTag, c Constraint) *ElementFinder {
	return e.page.finderIn(e, tags, c)
}

// Child returns a lazily resolved element of kind inside this element.
func (e *Element) Child(kind ElementKind, c Constraint) *Element {
	return newFinderElement(e.page, e.Find(TagsFor(kind), c), kind)
}

// Refresh drops the resolved handle so the next use searches again.
// Elements created from a handle keep it.
func (e *Element) Refresh(ctx context.Context) error {
	if e.finder == nil {
		return nil
	}
	e.mu.Lock()
	n := e.native
	e.native = nil
	e.mu.Unlock()

	if r, ok := n.(api.Releaser); ok {
		return r.Release(ctx)
	}
	return nil
}

// Exists reports whether the element can be found and is rendered.
func (e *Element) Exists(ctx context.Context) (bool, error) {
	n, err := e.lookup(ctx)
	if err != nil || n == nil {
		return false, err
	}
	return n.IsElementReferenceStillValid(ctx)
}

// WaitUntilExists waits until the element exists. A zero timeout uses
// the configured default.
func (e *Element) WaitUntilExists(ctx context.Context, timeout time.Duration) error {
	exists, err := e.Exists(ctx)
	if err != nil {
		return err
	}
	if exists || e.finder == nil {
		return nil
	}
	return e.waitUntil(ctx, timeout, true)
}

// WaitUntilRemoved waits until the element no longer exists. A zero timeout
// uses the configured default.
func (e *Element) WaitUntilRemoved(ctx context.Context, timeout time.Duration) error {
	exists, err := e.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return e.waitUntil(ctx, timeout, false)
}

func (e *Element) waitUntil(ctx context.Context, timeout time.Duration, exists bool) error {
	if timeout <= 0 {
		timeout = e.page.settings.WaitUntilExistsTimeout
	}
	e.page.logger.Debugf(logCategoryWait, "waiting up to %s for %s (exists=%t)", timeout, e.describe(), exists)

	ok, err := PollUntil(ctx, func(ctx context.Context) (bool, error) {
		got, err := e.Exists(ctx)
		if err == nil && !got && exists {
			err = e.Refresh(ctx)
		}
		return got, err
	}, exists, timeout, e.page.settings.PollInterval)
	if err != nil {
		return err
	}
	if !ok {
		return newWaitTimeoutError(timeout, exists)
	}
	return nil
}

// Kind returns the element kind, resolving it from the tag registry when
// the element was not created for a specific kind.
func (e *Element) Kind(ctx context.Context) (ElementKind, error) {
	e.mu.Lock()
	kind := e.kind
	e.mu.Unlock()
	if kind != "" {
		return kind, nil
	}

	n, err := e.NativeElement(ctx)
	if err != nil {
		return "", err
	}
	if kind, err = KindOf(ctx, n); err != nil {
		return "", err
	}
	e.mu.Lock()
	e.kind = kind
	e.mu.Unlock()
	return kind, nil
}

// GetAttributeValue returns the value of the named attribute, or an empty
// string when the element does not carry it.
func (e *Element) GetAttributeValue(ctx context.Context, attributeName string) (string, error) {
	if attributeName == "" {
		return "", ErrNoAttributeName
	}
	n, err := e.NativeElement(ctx)
	if err != nil {
		return "", err
	}
	return n.GetAttributeValue(ctx, attributeName)
}

// SetAttributeValue sets the named attribute.
func (e *Element) SetAttributeValue(ctx context.Context, attributeName, value string) error {
	if attributeName == "" {
		return ErrNoAttributeName
	}
	n, err := e.NativeElement(ctx)
	if err != nil {
		return err
	}
	return n.SetAttributeValue(ctx, attributeName, value)
}

func (e *Element) ClassName(ctx context.Context) (string, error) {
	return e.GetAttributeValue(ctx, AttrClassName)
}

func (e *Element) ID(ctx context.Context) (string, error) {
	return e.GetAttributeValue(ctx, AttrID)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.GetAttributeValue(ctx, AttrText)
}

func (e *Element) InnerHTML(ctx context.Context) (string, error) {
	return e.GetAttributeValue(ctx, AttrInnerHTML)
}

func (e *Element) OuterHTML(ctx context.Context) (string, error) {
	return e.GetAttributeValue(ctx, AttrOuterHTML)
}

func (e *Element) Title(ctx context.Context) (string, error) {
	return e.GetAttributeValue(ctx, AttrTitle)
}

// TagName returns the upper case tag name.
func (e *Element) TagName(ctx context.Context) (string, error) {
	n, err := e.NativeElement(ctx)
	if err != nil {
		return "", err
	}
	tagName, err := n.TagName(ctx)
	return strings.ToUpper(tagName), err
}

// Style returns one inline style property by its scripting name.
func (e *Element) Style(ctx context.Context, property string) (string, error) {
	n, err := e.NativeElement(ctx)
	if err != nil {
		return "", err
	}
	return n.GetStyleAttributeValue(ctx, property)
}

// Enabled reports whether the element is not disabled.
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	v, err := e.GetAttributeValue(ctx, AttrDisabled)
	if err != nil {
		return false, err
	}
	return !isTrue(v), nil
}

// Checked reports whether a check box or radio button is checked.
func (e *Element) Checked(ctx context.Context) (bool, error) {
	v, err := e.GetAttributeValue(ctx, AttrChecked)
	if err != nil {
		return false, err
	}
	return isTrue(v), nil
}

// SetChecked checks or unchecks a check box or radio button and fires its
// click handler.
func (e *Element) SetChecked(ctx context.Context, checked bool) error {
	n, err := e.NativeElement(ctx)
	if err != nil {
		return err
	}
	e.logAction(ctx, "Selecting")

	e.highlight(ctx, n, true)
	defer e.highlight(ctx, n, false)

	if err := n.SetAttributeValue(ctx, AttrChecked, strconv.FormatBool(checked)); err != nil {
		return fmt.Errorf("setting checked: %w", err)
	}
	_, err = e.FireEvent(ctx, "onClick", nil)
	return err
}

// String returns the title of the element, or its text when it has none.
// Check boxes and radio buttons are described by their id.
func (e *Element) String(ctx context.Context) string {
	if kind, err := e.Kind(ctx); err == nil && (kind == KindCheckBox || kind == KindRadioButton) {
		id, _ := e.ID(ctx)
		return id
	}
	if title, err := e.Title(ctx); err == nil && title != "" {
		return title
	}
	text, _ := e.Text(ctx)
	return text
}

func (e *Element) describe() string {
	if e.finder != nil {
		return e.finder.String()
	}
	return "element"
}

func (e *Element) logAction(ctx context.Context, verb string) {
	if e.page.logger == nil {
		return
	}
	kind, _ := e.Kind(ctx)
	e.page.logger.Infof(logCategoryAction, "%s %s '%s'", verb, kind, e.String(ctx))
}

// enabledElement resolves the element and fails when it is disabled.
func (e *Element) enabledElement(ctx context.Context) (api.NativeElement, error) {
	n, err := e.NativeElement(ctx)
	if err != nil {
		return nil, err
	}
	v, err := n.GetAttributeValue(ctx, AttrDisabled)
	if err != nil {
		return nil, err
	}
	if isTrue(v) {
		id, _ := n.GetAttributeValue(ctx, AttrID)
		return nil, &ElementDisabledError{ID: id}
	}
	return n, nil
}

// Click clicks the element and waits for the page to complete.
func (e *Element) Click(ctx context.Context) (err error) {
	n, err := e.enabledElement(ctx)
	if err != nil {
		return err
	}
	ctx, span := e.page.tracer.TraceAPICall(ctx, e.describe(), "element.click")
	defer func() { trace.End(span, err) }()

	e.logAction(ctx, "Clicking")
	e.highlight(ctx, n, true)
	defer e.highlight(ctx, n, false)

	if err := n.ClickOnElement(ctx); err != nil {
		return fmt.Errorf("clicking: %w", err)
	}
	return e.page.WaitForComplete(ctx)
}

// ClickNoWait clicks the element without waiting for the page. The click
// runs on its own goroutine which is given the configured join timeout to
// finish; past that it is left running and its outcome is not reported.
func (e *Element) ClickNoWait(ctx context.Context) error {
	n, err := e.enabledElement(ctx)
	if err != nil {
		return err
	}
	e.logAction(ctx, "Clicking (no wait)")
	e.highlight(ctx, n, true)

	done, err := callWithJoinTimeout(ctx, func(ctx context.Context) error {
		defer e.highlight(ctx, n, false)
		return n.ClickOnElement(ctx)
	}, e.page.settings.NoWaitJoinTimeout)
	if !done && err == nil {
		e.page.logger.Debugf(logCategoryAction, "click on %s still running after %s", e.describe(), e.page.settings.NoWaitJoinTimeout)
	}
	return err
}

// Focus gives the element the input focus.
func (e *Element) Focus(ctx context.Context) error {
	n, err := e.enabledElement(ctx)
	if err != nil {
		return err
	}
	if err := n.SetFocus(ctx); err != nil {
		return fmt.Errorf("focusing: %w", err)
	}
	_, err = e.FireEvent(ctx, "onFocus", nil)
	return err
}

// DoubleClick fires a double click on the element.
func (e *Element) DoubleClick(ctx context.Context) error {
	if _, err := e.enabledElement(ctx); err != nil {
		return err
	}
	e.logAction(ctx, "Double clicking")
	_, err := e.FireEvent(ctx, "onDblClick", nil)
	return err
}

func (e *Element) KeyDown(ctx context.Context) error    { return e.fire(ctx, "onKeyDown") }
func (e *Element) KeyPress(ctx context.Context) error   { return e.fire(ctx, "onKeyPress") }
func (e *Element) KeyUp(ctx context.Context) error      { return e.fire(ctx, "onKeyUp") }
func (e *Element) Blur(ctx context.Context) error       { return e.fire(ctx, "onBlur") }
func (e *Element) Change(ctx context.Context) error     { return e.fire(ctx, "onChange") }
func (e *Element) MouseEnter(ctx context.Context) error { return e.fire(ctx, "onMouseEnter") }
func (e *Element) MouseDown(ctx context.Context) error  { return e.fire(ctx, "onmousedown") }
func (e *Element) MouseUp(ctx context.Context) error    { return e.fire(ctx, "onmouseup") }

func (e *Element) fire(ctx context.Context, eventName string) error {
	_, err := e.FireEvent(ctx, eventName, nil)
	return err
}

// FireEvent dispatches eventName on the element and waits for the page to
// complete. params override event properties by name; nil uses the
// defaults. It reports whether the event was not cancelled.
func (e *Element) FireEvent(ctx context.Context, eventName string, params map[string]string) (_ bool, err error) {
	n, err := e.enabledElement(ctx)
	if err != nil {
		return false, err
	}
	ctx, span := e.page.tracer.TraceAPICall(ctx, e.describe(), "element.fireEvent")
	defer func() { trace.End(span, err) }()

	e.highlight(ctx, n, true)
	defer e.highlight(ctx, n, false)

	notCancelled, err := n.FireEvent(ctx, eventName, params)
	if err != nil {
		return false, fmt.Errorf("firing %s: %w", eventName, err)
	}
	return notCancelled, e.page.WaitForComplete(ctx)
}

// FireEventNoWait dispatches eventName like ClickNoWait clicks.
func (e *Element) FireEventNoWait(ctx context.Context, eventName string, params map[string]string) error {
	n, err := e.enabledElement(ctx)
	if err != nil {
		return err
	}
	e.highlight(ctx, n, true)

	done, err := callWithJoinTimeout(ctx, func(ctx context.Context) error {
		defer e.highlight(ctx, n, false)
		_, err := n.FireEvent(ctx, eventName, params)
		return err
	}, e.page.settings.NoWaitJoinTimeout)
	if !done && err == nil {
		e.page.logger.Debugf(logCategoryAction, "%s on %s still running after %s", eventName, e.describe(), e.page.settings.NoWaitJoinTimeout)
	}
	return err
}

// Flash highlights the element n times. A non positive n uses the
// configured flash count.
func (e *Element) Flash(ctx context.Context, n int) error {
	native, err := e.NativeElement(ctx)
	if err != nil {
		return err
	}
	if n <= 0 {
		n = e.page.settings.FlashCount
	}
	for i := 0; i < n; i++ {
		e.highlight(ctx, native, true)
		if err := sleep(ctx, e.page.settings.FlashInterval); err != nil {
			e.highlight(ctx, native, false)
			return err
		}
		e.highlight(ctx, native, false)
		if err := sleep(ctx, e.page.settings.FlashInterval); err != nil {
			return err
		}
	}
	return nil
}

// Highlight sets or restores the highlight background colour.
func (e *Element) Highlight(ctx context.Context, on bool) error {
	n, err := e.NativeElement(ctx)
	if err != nil {
		return err
	}
	e.highlight(ctx, n, on)
	return nil
}

// highlight is best effort: failures are logged and never returned.
func (e *Element) highlight(ctx context.Context, n api.NativeElement, on bool) {
	if !e.page.settings.HighlightElement {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if on {
		color, err := n.GetStyleAttributeValue(ctx, "backgroundColor")
		if err != nil {
			e.originalColor = nil
		} else {
			e.originalColor = &color
		}
		if err := n.SetStyleAttributeValue(ctx, "backgroundColor", e.page.settings.HighlightColor); err != nil {
			e.page.logger.Debugf(logCategoryAction, "highlighting %s: %v", e.describe(), err)
		}
		return
	}

	restore := ""
	if e.originalColor != nil {
		restore = *e.originalColor
	}
	e.originalColor = nil
	if err := n.SetStyleAttributeValue(ctx, "backgroundColor", restore); err != nil {
		e.page.logger.Debugf(logCategoryAction, "restoring highlight of %s: %v", e.describe(), err)
	}
}

// Parent returns the parent element, or nil for the root.
func (e *Element) Parent(ctx context.Context) (*Element, error) {
	return e.neighbour(ctx, api.NativeElement.Parent)
}

// NextSibling returns the next sibling element, or nil for the last child.
func (e *Element) NextSibling(ctx context.Context) (*Element, error) {
	return e.neighbour(ctx, api.NativeElement.NextSibling)
}

// PreviousSibling returns the previous sibling element, or nil for the
// first child.
func (e *Element) PreviousSibling(ctx context.Context) (*Element, error) {
	return e.neighbour(ctx, api.NativeElement.PreviousSibling)
}

func (e *Element) neighbour(
	ctx context.Context, step func(api.NativeElement, context.Context) (api.NativeElement, error),
) (*Element, error) {
	n, err := e.NativeElement(ctx)
	if err != nil {
		return nil, err
	}
	other, err := step(n, ctx)
	if err != nil || other == nil {
		return nil, err
	}
	return e.page.WrapElement(other), nil
}

// WaitForComplete waits for the page owning the element to complete.
func (e *Element) WaitForComplete(ctx context.Context) error {
	return e.page.WaitForComplete(ctx)
}

func isTrue(v string) bool {
	return strings.EqualFold(v, "true")
}
