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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementTagIsMatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for name, tt := range map[string]struct {
		tag  ElementTag
		el   *elementStub
		want bool
	}{
		"any":                {tag: ElementTag{}, el: newStub("p", nil), want: true},
		"same_tag":           {tag: ElementTag{TagName: "tr"}, el: newStub("TR", nil), want: true},
		"other_tag":          {tag: ElementTag{TagName: "tr"}, el: newStub("td", nil)},
		"input_type":         {tag: TagsFor(KindButton)[0], el: newStub("input", map[string]string{AttrType: "Submit"}), want: true},
		"input_wrong_type":   {tag: TagsFor(KindButton)[0], el: newStub("input", map[string]string{AttrType: "text"})},
		"input_default_type": {tag: TagsFor(KindTextField)[0], el: newStub("input", nil), want: true},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.tag.IsMatch(ctx, tt.el)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for name, tt := range map[string]struct {
		el   *elementStub
		want ElementKind
	}{
		"button":    {el: newStub("button", nil), want: KindButton},
		"submit":    {el: newStub("input", map[string]string{AttrType: "submit"}), want: KindButton},
		"checkbox":  {el: newStub("input", map[string]string{AttrType: "checkbox"}), want: KindCheckBox},
		"radio":     {el: newStub("input", map[string]string{AttrType: "radio"}), want: KindRadioButton},
		"textfield": {el: newStub("input", nil), want: KindTextField},
		"row":       {el: newStub("tr", nil), want: KindTableRow},
		"iframe":    {el: newStub("iframe", nil), want: KindFrame},
		"unknown":   {el: newStub("article", nil), want: KindElementsContainer},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := KindOf(ctx, tt.el)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestElementTagDescriptions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "INPUT (button submit image reset) or BUTTON", describeTags(TagsFor(KindButton)))
	assert.Equal(t, "*", describeTags(TagsFor(KindElementsContainer)))
	assert.Equal(t, []string{"input", "button"}, tagNames(TagsFor(KindButton)))
	assert.Equal(t, []string{""}, tagNames([]ElementTag{{TagName: "td"}, {}}))
}

func TestParseElementTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []ElementTag{
		{TagName: "tr"},
		{TagName: "input", InputTypes: []string{"text", "password"}},
		{},
	}, ParseElementTags("TR", "input:text, Password", "*"))
}

func TestParseElementKind(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]ElementKind{
		"button":            KindButton,
		"TableRow":          KindTableRow,
		"elementscontainer": KindElementsContainer,
	} {
		got, err := ParseElementKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}
	_, err := ParseElementKind("marquee")
	assert.ErrorContains(t, err, `unknown element kind "marquee"`)
}
