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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/webquery/api"
)

func TestStrategyFindByTag(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := newFakeBrowser().on(`wq_element1 = wq_doc.getElementsByTagName("tr"); wq_element1.length;`, "3")
	port := newTestPort(b)
	root := NewElement(port, DocumentVariableName)

	var refs []string
	for el, err := range NewStrategy(port).FindByTag(ctx, root, "tr") {
		require.NoError(t, err)
		refs = append(refs, el.(*Element).Reference())
		if len(refs) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"wq_element1[0]", "wq_element1[1]"}, refs)
	assert.Equal(t, []string{
		"wq_doc = window.document;",
		`wq_element1 = wq_doc.getElementsByTagName("tr"); wq_element1.length;`,
		"wq_element1 = null; ",
	}, b.commands())
}

func TestStrategyFindByTagAny(t *testing.T) {
	t.Parallel()

	b := newFakeBrowser().on(`wq_element1 = wq_element9.getElementsByTagName("*"); wq_element1.length;`, "0")
	port := newTestPort(b)

	for range NewStrategy(port).FindByTag(context.Background(), NewElement(port, "wq_element9"), "") {
		t.Fatal("no elements expected")
	}
	assert.Len(t, b.commands(), 3)
}

func TestStrategyFindByTagBadReply(t *testing.T) {
	t.Parallel()

	b := newFakeBrowser().on(`wq_element1 = wq_doc.getElementsByTagName("a"); wq_element1.length;`, "undefined")
	port := newTestPort(b)

	for el, err := range NewStrategy(port).FindByTag(context.Background(), NewElement(port, DocumentVariableName), "a") {
		assert.Nil(t, el)
		var protErr *ProtocolError
		assert.ErrorAs(t, err, &protErr)
	}
}

func TestStrategyFindByID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := newFakeBrowser().
		on(`wq_element1 = wq_doc.getElementById("go"); wq_element1 != null;`, "true").
		on(`wq_element2 = wq_element7.ownerDocument.getElementById("go"); wq_element2 != null;`, "false")
	port := newTestPort(b)
	s := NewStrategy(port)

	el, err := s.FindByID(ctx, NewElement(port, DocumentVariableName), "go")
	require.NoError(t, err)
	assert.Equal(t, "wq_element1", el.(*Element).Reference())

	el, err = s.FindByID(ctx, NewElement(port, "wq_element7"), "go")
	require.NoError(t, err)
	assert.Nil(t, el)

	_, err = s.FindByID(ctx, foreign{}, "go")
	assert.Error(t, err)
}

type foreign struct{ api.NativeElement }

func TestDocumentReference(t *testing.T) {
	t.Parallel()

	for ref, want := range map[string]string{
		"wq_doc":                      "wq_doc",
		"wq_element3":                 "wq_element3.ownerDocument",
		"wq_element3.firstChild":      "wq_element3.firstChild.ownerDocument",
		"wq_element4.contentDocument": "wq_element4.contentDocument",
		"wq_element4.ownerDocument":   "wq_element4.ownerDocument",
		"window.frames[0].document":   "window.frames[0].document",
		"wq_element1[2]":              "wq_element1[2].ownerDocument",
	} {
		assert.Equal(t, want, documentReference(ref), ref)
	}
}
