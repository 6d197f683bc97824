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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFireEventBubbles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	doc := newOrdersDocument(t)
	form := byID(t, doc, "f")
	goBtn := byID(t, doc, "go")

	var seen []string
	doc.AddEventListener(form, "onMouseDown", func(ev *Event) {
		seen = append(seen, ev.Type+"@"+ev.CurrentTarget.String()+" from "+ev.Target.String()+" x="+ev.Params["clientX"])
	})

	notCancelled, err := goBtn.FireEvent(ctx, "onmousedown", map[string]string{"clientX": "5"})
	require.NoError(t, err)
	assert.True(t, notCancelled)
	assert.Equal(t, []string{"mousedown@FORM from INPUT x=5"}, seen)

	_, err = goBtn.FireEvent(ctx, "mousedown", map[string]string{"bubbles": "false"})
	require.NoError(t, err)
	assert.Len(t, seen, 1, "non bubbling events stay on their target")
}

func TestFireEventCancel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	doc := newOrdersDocument(t)
	goBtn := byID(t, doc, "go")
	formCalls := 0
	doc.AddEventListener(byID(t, doc, "f"), "click", func(*Event) { formCalls++ })
	doc.AddEventListener(goBtn, "click", func(ev *Event) {
		ev.PreventDefault()
		ev.StopPropagation()
	})

	notCancelled, err := goBtn.FireEvent(ctx, "onclick", nil)
	require.NoError(t, err)
	assert.False(t, notCancelled)
	assert.Zero(t, formCalls)

	notCancelled, err = goBtn.FireEvent(ctx, "onclick", map[string]string{"cancelable": "false"})
	require.NoError(t, err)
	assert.True(t, notCancelled, "uncancelable events ignore PreventDefault")
}

func TestClickDefaultActions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	doc := newOrdersDocument(t)

	agree := byID(t, doc, "agree")
	require.NoError(t, agree.ClickOnElement(ctx))
	checked, err := agree.GetAttributeValue(ctx, "checked")
	require.NoError(t, err)
	assert.Equal(t, "true", checked)

	doc.AddEventListener(agree, "click", func(ev *Event) { ev.PreventDefault() })
	require.NoError(t, agree.ClickOnElement(ctx))
	checked, err = agree.GetAttributeValue(ctx, "checked")
	require.NoError(t, err)
	assert.Equal(t, "true", checked, "a cancelled click reverts the toggle")

	rb := byID(t, doc, "r-b")
	require.NoError(t, rb.ClickOnElement(ctx))
	for id, want := range map[string]string{"r-a": "false", "r-b": "true"} {
		v, err := byID(t, doc, id).GetAttributeValue(ctx, "checked")
		require.NoError(t, err)
		assert.Equal(t, want, v, id)
	}
}

func TestSetFocus(t *testing.T) {
	t.Parallel()

	doc := newOrdersDocument(t)
	assert.Nil(t, doc.Focused())
	require.NoError(t, byID(t, doc, "name").SetFocus(context.Background()))
	assert.Equal(t, byID(t, doc, "name").Node(), doc.Focused().Node())
}
