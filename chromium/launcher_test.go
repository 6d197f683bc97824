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

package chromium

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLauncherArgs(t *testing.T) {
	t.Parallel()

	l := &Launcher{Flags: map[string]any{
		"headless":              true,
		"mute-audio":            false,
		"window-size":           "800,600",
		"remote-debugging-port": "9222",
		"no-sandbox":            true,
	}}
	args, err := l.args("/tmp/data")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--headless",
		"--no-sandbox",
		"--remote-debugging-port=9222",
		"--window-size=800,600",
		"--user-data-dir=/tmp/data",
		"about:blank",
	}, args)

	l.Flags = map[string]any{"bad": 1}
	_, err = l.args("/tmp/data")
	assert.EqualError(t, err, `invalid browser command line flag "bad"`)

	l.Flags = map[string]any{}
	args, err = l.args("/d")
	require.NoError(t, err)
	assert.Contains(t, args, "--remote-debugging-port=0")
	if os.Getuid() == 0 {
		assert.Contains(t, args, "--no-sandbox")
	}
}

func TestParseWebsocketURL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	out := "[0101/000000.000:WARNING] something\n" +
		"DevTools listening on ws://127.0.0.1:39811/devtools/browser/abc\n"
	got, err := parseWebsocketURL(ctx, strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:39811/devtools/browser/abc", got)

	_, err = parseWebsocketURL(ctx, strings.NewReader("crashed\n"))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	r, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })
	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = parseWebsocketURL(tctx, r)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	endpoint, err := httpEndpoint("ws://127.0.0.1:39811/devtools/browser/abc")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:39811", endpoint)
	_, err = httpEndpoint("http://x")
	assert.Error(t, err)
}

func TestLaunchWithoutBrowser(t *testing.T) {
	t.Parallel()

	_, err := (&Launcher{}).Launch(context.Background(), time.Second)
	assert.EqualError(t, err, "no browser executable found")
}
