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
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/webquery/common"
)

func testSettings() common.Settings {
	s := common.DefaultSettings()
	s.WaitUntilExistsTimeout = 50 * time.Millisecond
	s.WaitForCompleteTimeout = 50 * time.Millisecond
	s.PollInterval = time.Millisecond
	s.HighlightElement = false
	return s
}

func TestPageTableRowLookup(t *testing.T) {
	t.Parallel()

	b := newFakeBrowser().
		on(`wq_element1 = wq_doc.getElementsByTagName("tr"); wq_element1.length;`, "2").
		on("wq_element1[0].tagName;", "TR").
		on("wq_element1[0].textContent;", "Apple342").
		on(`wq_element2 = wq_element1[0].getElementsByTagName("td")[1]; wq_element2 != null;`, "true").
		on("wq_element2.textContent;", "3").
		on("wq_element1[1].tagName;", "tr").
		on("wq_element1[1].textContent;", "Pear427").
		on(`wq_element3 = wq_element1[1].getElementsByTagName("td")[1]; wq_element3 != null;`, "true").
		on("wq_element3.textContent;", "42").
		on("wq_element4 != null && wq_element4.ownerDocument.documentElement.contains(wq_element4)"+
			" && wq_element4.offsetParent != null;", "true").
		on(`wq_element4.getAttribute("id");`, "r2")
	page := NewDocument(newTestPort(b)).Page(testSettings(), nil, nil)

	id, err := page.TableRow(common.ByRowText("42", 1)).ID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r2", id)

	assert.Equal(t, []string{
		"wq_doc = window.document;",
		`wq_element1 = wq_doc.getElementsByTagName("tr"); wq_element1.length;`,
		"wq_element1[0].tagName;",
		"wq_element1[0].textContent;",
		`wq_element2 = wq_element1[0].getElementsByTagName("td")[1]; wq_element2 != null;`,
		"wq_element2.textContent;",
		"wq_element2 = null;",
		"wq_element1[1].tagName;",
		"wq_element1[1].textContent;",
		`wq_element3 = wq_element1[1].getElementsByTagName("td")[1]; wq_element3 != null;`,
		"wq_element3.textContent;",
		"wq_element3 = null;",
		"wq_element4=wq_element1[1];",
		"wq_element1 = null; ",
		"wq_element4 != null && wq_element4.ownerDocument.documentElement.contains(wq_element4)" +
			" && wq_element4.offsetParent != null;",
		`wq_element4.getAttribute("id");`,
	}, b.commands())
}

func TestPageByIDNotFound(t *testing.T) {
	t.Parallel()

	b := newFakeBrowser()
	b.fallback = func(command string) (string, error) {
		return "false", nil
	}
	b.on("wq_doc = window.document;", "")
	page := NewDocument(newTestPort(b)).Page(testSettings(), nil, nil)

	_, err := page.Button(common.ByID("go")).NativeElement(context.Background())
	var nfErr *common.ElementNotFoundError
	require.True(t, errors.As(err, &nfErr))
	assert.Equal(t, "Attribute 'id' equals 'go'", nfErr.Constraint)

	for _, cmd := range b.commands() {
		if cmd != "wq_doc = window.document;" {
			assert.Regexp(t, `^wq_element\d+ = wq_doc.getElementById\("go"\); wq_element\d+ != null;$`, cmd)
		}
	}
}

func TestPageClickWaitsForComplete(t *testing.T) {
	t.Parallel()

	b := newFakeBrowser().
		on(`wq_element1 = wq_doc.getElementById("go"); wq_element1 != null;`, "true").
		on(`wq_element1.getAttribute("id");`, "go").
		on("wq_element1.tagName;", "INPUT").
		on(`wq_element1.getAttribute("type");`, "submit").
		on("wq_element1.disabled;", "false").
		on(`wq_doc.readyState == "complete";`, "false", "true")
	b.fallback = func(command string) (string, error) {
		return "true", nil
	}
	b.on("wq_doc = window.document;", "")
	page := NewDocument(newTestPort(b)).Page(testSettings(), nil, nil)

	require.NoError(t, page.Button(common.ByID("go")).Click(context.Background()))

	var clicks, readyChecks int
	for _, cmd := range b.commands() {
		switch cmd {
		case `wq_doc.readyState == "complete";`:
			readyChecks++
		default:
			if strings.HasPrefix(cmd, "var event = wq_element1.ownerDocument") {
				clicks++
			}
		}
	}
	assert.Equal(t, 1, clicks)
	assert.Equal(t, 2, readyChecks)
}

func TestPageRejectedByIDElementIsReleased(t *testing.T) {
	t.Parallel()

	b := newFakeBrowser().on("wq_doc = window.document;", "")
	b.fallback = func(command string) (string, error) {
		switch {
		case strings.Contains(command, `.getElementById("go");`):
			return "true", nil
		case strings.HasSuffix(command, ".tagName;"):
			return "DIV", nil
		}
		return "", nil
	}
	page := NewDocument(newTestPort(b)).Page(testSettings(), nil, nil)
	ctx := context.Background()

	_, err := page.Finder(common.TagsFor(common.KindButton), common.ByID("go")).FindFirst(ctx)
	var nfErr *common.ElementNotFoundError
	require.ErrorAs(t, err, &nfErr)
	cmds := b.commands()
	assert.Equal(t, "wq_element1 = null;", cmds[len(cmds)-1])

	err = page.Button(common.ByID("go")).WaitUntilExists(ctx, 30*time.Millisecond)
	var tErr *common.TimeoutError
	require.ErrorAs(t, err, &tErr)

	var created, released int
	for _, cmd := range b.commands() {
		switch {
		case strings.Contains(cmd, `.getElementById("go");`):
			created++
		case strings.HasSuffix(cmd, " = null;"):
			released++
		}
	}
	assert.Greater(t, created, 1)
	assert.Equal(t, created, released)
}

func TestFramePage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := newFakeBrowser().
		on("wq_doc = window.document;", "").
		on(`wq_element1 = wq_doc.getElementById("checkout"); wq_element1 != null;`, "true").
		on("wq_element1.tagName;", "IFRAME").
		on(`wq_element1.getAttribute("id");`, "checkout").
		on(`wq_element2 = wq_element1.contentDocument.getElementsByTagName("div"); wq_element2.length;`, "1").
		on("wq_element2[0].tagName;", "DIV").
		on(`wq_element4 = wq_element1.contentDocument.getElementById("pay"); wq_element4 != null;`, "true").
		on("wq_element4.tagName;", "BUTTON").
		on(`wq_element4.getAttribute("id");`, "pay")
	doc := NewDocument(newTestPort(b))
	page := doc.Page(testSettings(), nil, nil)

	iframe, err := page.Finder(common.TagsFor(common.KindFrame), common.ByID("checkout")).FindFirst(ctx)
	require.NoError(t, err)
	frameRef := iframe.(*Element).Reference()
	require.Equal(t, "wq_element1", frameRef)

	framePage := doc.FramePage(frameRef, testSettings(), nil, nil)

	div, err := framePage.Finder(common.TagsFor(common.KindDiv), common.Any()).FindFirst(ctx)
	require.NoError(t, err)
	assert.Equal(t, "wq_element3", div.(*Element).Reference())

	button, err := framePage.Finder(common.TagsFor(common.KindButton), common.ByID("pay")).FindFirst(ctx)
	require.NoError(t, err)
	assert.Equal(t, "wq_element4", button.(*Element).Reference())

	cmds := b.commands()
	for _, want := range []string{
		`wq_element2 = wq_element1.contentDocument.getElementsByTagName("div"); wq_element2.length;`,
		"wq_element3=wq_element2[0];",
		"wq_element2 = null; ",
		`wq_element4 = wq_element1.contentDocument.getElementById("pay"); wq_element4 != null;`,
	} {
		assert.Contains(t, cmds, want)
	}
	assert.NotContains(t, strings.Join(cmds, "\n"), "ownerDocument.getElementById")
}
