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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/webquery/api"
)

func collectIDs(t *testing.T, seq func(yield func(api.NativeElement, error) bool)) []string {
	t.Helper()

	var out []string
	for el, err := range seq {
		require.NoError(t, err)
		id, err := el.GetAttributeValue(context.Background(), "id")
		require.NoError(t, err)
		out = append(out, id)
	}
	return out
}

func TestStrategyFindByTag(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	doc := newOrdersDocument(t)
	root, err := doc.Elements(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"header", "r1", "r2"}, collectIDs(t, Strategy{}.FindByTag(ctx, root, "TR")))
	assert.Equal(t, []string{"r-a", "r-b"}, collectIDs(t, Strategy{}.FindByTag(ctx, byID(t, doc, "f"), "input"))[2:4])
	assert.Len(t, collectIDs(t, Strategy{}.FindByTag(ctx, byID(t, doc, "r1"), "")), 3)
	assert.Empty(t, collectIDs(t, Strategy{}.FindByTag(ctx, root, "marquee")))

	n := 0
	for range (Strategy{}).FindByTag(ctx, root, "td") {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestStrategyFindByID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	doc := newOrdersDocument(t)

	el, err := Strategy{}.FindByID(ctx, byID(t, doc, "f"), "r2")
	require.NoError(t, err)
	require.NotNil(t, el, "id lookups search the whole document")
	tag, err := el.TagName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TR", tag)

	el, err = Strategy{}.FindByID(ctx, byID(t, doc, "f"), "R2")
	require.NoError(t, err)
	assert.Nil(t, el)
}

type foreignElement struct{ api.NativeElement }

func TestStrategyForeignRoot(t *testing.T) {
	t.Parallel()

	_, err := Strategy{}.FindByID(context.Background(), foreignElement{}, "x")
	assert.Error(t, err)

	for _, err := range (Strategy{}).FindByTag(context.Background(), foreignElement{}, "x") {
		assert.Error(t, err)
		assert.False(t, errors.Is(err, context.Canceled))
	}
}
