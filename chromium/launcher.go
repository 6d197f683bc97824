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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Launcher finds and starts a local Chromium browser to query.
type Launcher struct {
	ExecPath string
	// Flags are passed as --name=value, or --name for true booleans.
	Flags map[string]any
	Env   []string
}

// NewLauncher returns a headless Launcher for the first browser found on
// the system.
func NewLauncher() *Launcher {
	return &Launcher{
		ExecPath: findExecPath(),
		Flags: map[string]any{
			"headless":                 true,
			"disable-gpu":              true,
			"no-first-run":             true,
			"no-default-browser-check": true,
		},
	}
}

// Process is a browser started by a Launcher.
type Process struct {
	// WSURL is the browser level debugger URL it printed on startup.
	WSURL string
	// Endpoint is the HTTP endpoint listing its targets.
	Endpoint string

	cancel  context.CancelFunc
	dataDir string
	exited  chan struct{}
}

// Launch starts the browser and waits at most timeout for its debugger to
// listen.
func (l *Launcher) Launch(ctx context.Context, timeout time.Duration) (_ *Process, rerr error) {
	if l.ExecPath == "" {
		return nil, errors.New("no browser executable found")
	}
	dataDir, err := os.MkdirTemp("", "webquery-chromium-*")
	if err != nil {
		return nil, fmt.Errorf("cannot make user data directory: %w", err)
	}
	args, err := l.args(dataDir)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		if rerr != nil {
			cancel()
			_ = os.RemoveAll(dataDir)
		}
	}()

	cmd := exec.CommandContext(ctx, l.ExecPath, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("cannot pipe stdout: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if len(l.Env) > 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cannot start browser executable: %w", err)
	}

	p := &Process{cancel: cancel, dataDir: dataDir, exited: make(chan struct{})}

	wctx, wcancel := context.WithTimeout(ctx, timeout)
	defer wcancel()
	wsURL, err := parseWebsocketURL(wctx, stdout)

	go func() {
		// Keep draining so the browser never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
		_ = cmd.Wait()
		_ = os.RemoveAll(dataDir)
		close(p.exited)
	}()

	if err != nil {
		return nil, fmt.Errorf("cannot parse websocket url: %w", err)
	}
	p.WSURL = wsURL
	p.Endpoint, err = httpEndpoint(wsURL)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Close kills the browser and waits for it to exit.
func (p *Process) Close() {
	p.cancel()
	<-p.exited
}

func (l *Launcher) args(dataDir string) ([]string, error) {
	names := make([]string, 0, len(l.Flags))
	for name := range l.Flags {
		names = append(names, name)
	}
	sort.Strings(names)

	var args []string
	for _, name := range names {
		switch value := l.Flags[name].(type) {
		case string:
			args = append(args, fmt.Sprintf("--%s=%s", name, value))
		case bool:
			if value {
				args = append(args, "--"+name)
			}
		default:
			return nil, fmt.Errorf("invalid browser command line flag %q", name)
		}
	}
	args = append(args, "--user-data-dir="+dataDir)
	if _, ok := l.Flags["no-sandbox"]; !ok && os.Getuid() == 0 {
		// Chromium refuses to run as root with the sandbox enabled.
		args = append(args, "--no-sandbox")
	}
	if _, ok := l.Flags["remote-debugging-port"]; !ok {
		args = append(args, "--remote-debugging-port=0")
	}
	return append(args, "about:blank"), nil
}

// parseWebsocketURL grabs the websocket address from the browser's output.
func parseWebsocketURL(ctx context.Context, r io.Reader) (string, error) {
	type result struct {
		wsURL string
		err   error
	}
	c := make(chan result, 1)
	go func() {
		const prefix = "DevTools listening on "

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if s := scanner.Text(); strings.HasPrefix(s, prefix) {
				c <- result{strings.TrimPrefix(strings.TrimSpace(s), prefix), nil}
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		c <- result{"", fmt.Errorf("scanner err: %w", err)}
	}()
	select {
	case r := <-c:
		return r.wsURL, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("ctx err: %w", ctx.Err())
	}
}

// httpEndpoint turns ws://host:port/devtools/browser/<id> into
// http://host:port.
func httpEndpoint(wsURL string) (string, error) {
	rest, ok := strings.CutPrefix(wsURL, "ws://")
	if !ok {
		return "", fmt.Errorf("unexpected debugger url %q", wsURL)
	}
	host, _, _ := strings.Cut(rest, "/")
	return "http://" + host, nil
}

func findExecPath() string {
	for _, path := range [...]string{
		// Unix-like
		"headless_shell",
		"headless-shell",
		"chromium",
		"chromium-browser",
		"google-chrome",
		"google-chrome-stable",
		"google-chrome-beta",
		"google-chrome-unstable",
		"/usr/bin/google-chrome",

		// Windows
		"chrome",
		"chrome.exe", // in case PATHEXT is misconfigured
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		filepath.Join(os.Getenv("USERPROFILE"), `AppData\Local\Google\Chrome\Application\chrome.exe`),

		// Mac
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	} {
		if _, err := exec.LookPath(path); err == nil {
			return path
		}
	}

	return ""
}
