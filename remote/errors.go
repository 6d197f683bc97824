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
	"errors"
	"fmt"

	"github.com/grafana/webquery/errext"
	"github.com/grafana/webquery/errext/exitcodes"
)

// ErrPortClosed is returned by every operation on a closed ClientPort.
var ErrPortClosed = errors.New("client port is closed")

// ConnectionError is returned when the channel to the browser could not be
// opened or broke while a command was in flight. The port it happened on
// should be considered unusable.
type ConnectionError struct {
	URL string
	Err error
}

var _ errext.HasExitCode = &ConnectionError{}

func (e *ConnectionError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("remote channel failed: %v", e.Err)
	}
	return fmt.Sprintf("connecting to %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ExitCode returns the status code used when the webquery process exits.
func (e *ConnectionError) ExitCode() exitcodes.ExitCode {
	return exitcodes.ConnectionFailed
}

// ProtocolError is returned when a command raised a script exception or its
// reply could not be parsed into the expected type.
type ProtocolError struct {
	Command string
	Reply   string
	Err     error
}

var (
	_ errext.HasExitCode = &ProtocolError{}
	_ errext.HasHint     = &ProtocolError{}
)

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("executing %q: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("unexpected reply %q to %q", e.Reply, e.Command)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ExitCode returns the status code used when the webquery process exits.
func (e *ProtocolError) ExitCode() exitcodes.ExitCode {
	var exc errext.Exception
	if errors.As(e.Err, &exc) {
		return exitcodes.ScriptException
	}
	return exitcodes.ProtocolFailure
}

// Hint suggests how the failure can be addressed.
func (e *ProtocolError) Hint() string {
	return "the page may have navigated away; handles found before a navigation are no longer valid"
}
