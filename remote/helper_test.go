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
	"sync"
)

// fakeBrowser answers commands from a table of canned replies and records
// everything it was sent. Commands missing from the table evaluate to "".
type fakeBrowser struct {
	mu       sync.Mutex
	replies  map[string][]string
	errs     map[string]error
	sent     []string
	closed   int
	fallback func(command string) (string, error)
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		replies: make(map[string][]string),
		errs:    make(map[string]error),
	}
}

// on queues replies for command; the last one repeats once the rest are used.
func (b *fakeBrowser) on(command string, replies ...string) *fakeBrowser {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies[command] = append(b.replies[command], replies...)
	return b
}

func (b *fakeBrowser) fail(command string, err error) *fakeBrowser {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs[command] = err
	return b
}

func (b *fakeBrowser) Send(ctx context.Context, command string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.sent = append(b.sent, command)
	if err, ok := b.errs[command]; ok {
		return "", err
	}
	if rs := b.replies[command]; len(rs) > 0 {
		if len(rs) > 1 {
			b.replies[command] = rs[1:]
		}
		return rs[0], nil
	}
	if b.fallback != nil {
		return b.fallback(command)
	}
	return "", nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

func (b *fakeBrowser) commands() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sent...)
}

func newTestPort(b *fakeBrowser) *ClientPort {
	return NewClientPort(b, nil, nil)
}

type scriptException struct {
	msg string
}

func (e scriptException) Error() string      { return e.msg }
func (e scriptException) StackTrace() string { return "at <anonymous>:1:1" }

var errBrokenPipe = errors.New("broken pipe")
