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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/webquery/api"
)

type constraintStub struct {
	result bool
	err    error
	calls  int
}

func (c *constraintStub) Compare(context.Context, api.AttributeBag) (bool, error) {
	c.calls++
	return c.result, c.err
}

func (c *constraintStub) String() string { return "stub" }

type mapBag map[string]string

func (b mapBag) GetValue(_ context.Context, name string) (string, error) { return b[name], nil }

func TestAttributeConstraint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bag := mapBag{AttrID: "go", AttrText: "Go now"}

	ok, err := ByID("go").Compare(ctx, bag)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ByID("GO").Compare(ctx, bag)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ByName("go").Compare(ctx, bag)
	require.NoError(t, err)
	assert.False(t, ok, "missing attributes read as empty and never match")

	ok, err = Any().Compare(ctx, bag)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "Attribute 'id' equals 'go'", ByID("go").String())

	label := mapBag{AttrFor: "q", "style.color": "Red"}
	ok, err = ByFor("q").Compare(ctx, label)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ByFor("Q").Compare(ctx, label)
	require.NoError(t, err)
	assert.False(t, ok, "for is compared case sensitively")

	ok, err = ByStyle("color", "red").Compare(ctx, label)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ByStyle("display", "none").Compare(ctx, label)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogicalConstraints(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bag := mapBag{}

	for name, tt := range map[string]struct {
		build            func(l, r Constraint) Constraint
		left, right      bool
		want             bool
		wantRightEvalled bool
	}{
		"and_true_true":   {build: func(l, r Constraint) Constraint { return And(l, r) }, left: true, right: true, want: true, wantRightEvalled: true},
		"and_true_false":  {build: func(l, r Constraint) Constraint { return And(l, r) }, left: true, right: false, want: false, wantRightEvalled: true},
		"and_false_true":  {build: func(l, r Constraint) Constraint { return And(l, r) }, left: false, right: true, want: false},
		"and_false_false": {build: func(l, r Constraint) Constraint { return And(l, r) }, left: false, right: false, want: false},
		"or_true_false":   {build: func(l, r Constraint) Constraint { return Or(l, r) }, left: true, right: false, want: true},
		"or_false_true":   {build: func(l, r Constraint) Constraint { return Or(l, r) }, left: false, right: true, want: true, wantRightEvalled: true},
		"or_false_false":  {build: func(l, r Constraint) Constraint { return Or(l, r) }, left: false, right: false, want: false, wantRightEvalled: true},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			left := &constraintStub{result: tt.left}
			right := &constraintStub{result: tt.right}
			got, err := tt.build(left, right).Compare(ctx, bag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, left.calls)
			assert.Equal(t, tt.wantRightEvalled, right.calls == 1)
		})
	}

	t.Run("not", func(t *testing.T) {
		t.Parallel()

		got, err := Not(&constraintStub{result: true}).Compare(ctx, bag)
		require.NoError(t, err)
		assert.False(t, got)
	})
	t.Run("errors_propagate", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("connection lost")
		right := &constraintStub{result: true}
		_, err := And(&constraintStub{err: boom}, right).Compare(ctx, bag)
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, right.calls)

		_, err = Not(&constraintStub{err: boom}).Compare(ctx, bag)
		assert.ErrorIs(t, err, boom)
	})
	t.Run("variadic_nests_left", func(t *testing.T) {
		t.Parallel()

		c := And(ByID("a"), ByName("b"), ByValue("c"))
		assert.Equal(t,
			"((Attribute 'id' equals 'a' and Attribute 'name' equals 'b') and Attribute 'value' equals 'c')",
			c.String())
		assert.Equal(t, "not ((Attribute 'id' equals 'a' or Attribute 'name' equals 'b'))",
			Not(Or(ByID("a"), ByName("b"))).String())
	})
}

func TestIDOf(t *testing.T) {
	t.Parallel()

	for name, tt := range map[string]struct {
		constraint Constraint
		wantID     string
		wantOK     bool
	}{
		"by_id":             {constraint: ByID("go"), wantID: "go", wantOK: true},
		"and_chain_left":    {constraint: And(ByID("go"), ByText("Go")), wantID: "go", wantOK: true},
		"and_chain_nested":  {constraint: And(ByID("go"), ByText("Go"), ByName("n")), wantID: "go", wantOK: true},
		"and_chain_right":   {constraint: And(ByText("Go"), ByID("go"))},
		"or":                {constraint: Or(ByID("go"), ByID("stop"))},
		"case_insensitive":  {constraint: ByCustom(AttrID, StringEqualsAndCaseInsensitiveComparer("go"))},
		"regex":             {constraint: ByIDRegex(nil)},
		"empty_id":          {constraint: ByID("")},
		"other_attribute":   {constraint: ByName("go")},
		"row_constraint":    {constraint: ByRowText("go", 1)},
		"negated_id_lookup": {constraint: Not(ByID("go"))},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			id, ok := idOf(tt.constraint)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestParseAttributeConstraint(t *testing.T) {
	t.Parallel()

	c, err := ParseAttributeConstraint("ID=go")
	require.NoError(t, err)
	id, ok := idOf(c)
	assert.True(t, ok)
	assert.Equal(t, "go", id)

	c, err = ParseAttributeConstraint("Title=a=b")
	require.NoError(t, err)
	assert.Equal(t, "Attribute 'title' equals 'a=b'", c.String())

	_, err = ParseAttributeConstraint("novalue")
	assert.Error(t, err)
	_, err = ParseAttributeConstraint("=x")
	assert.Error(t, err)
}
