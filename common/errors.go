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
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/grafana/webquery/errext"
	"github.com/grafana/webquery/errext/exitcodes"
)

// ErrNoAttributeName is returned when an attribute is requested without a name.
var ErrNoAttributeName = errors.New("attribute name: null or empty not allowed")

// ElementNotFoundError is returned when a finder produced no match.
type ElementNotFoundError struct {
	// Entity describes the accepted tags, e.g. "INPUT (button submit) or BUTTON".
	Entity string
	// Constraint is the rendered description of the constraint that failed.
	Constraint string
	Timeout    time.Duration
}

var (
	_ errext.HasExitCode = &ElementNotFoundError{}
	_ errext.HasHint     = &ElementNotFoundError{}
)

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("Could not find an %s matching constraint: %s. Search expired after '%s' seconds.",
		e.Entity, e.Constraint, strconv.FormatFloat(e.Timeout.Seconds(), 'f', -1, 64))
}

// ExitCode returns the status code used when the webquery process exits.
func (e *ElementNotFoundError) ExitCode() exitcodes.ExitCode {
	return exitcodes.ElementNotFound
}

// Hint suggests how the failure can be addressed.
func (e *ElementNotFoundError) Hint() string {
	return "check the constraint or raise the wait timeout (WEBQUERY_WAIT_TIMEOUT)"
}

// ElementDisabledError is returned when an action targets a disabled element.
type ElementDisabledError struct {
	ID string
}

func (e *ElementDisabledError) Error() string {
	return fmt.Sprintf("Element %s is disabled", e.ID)
}

// ExitCode returns the status code used when the webquery process exits.
func (e *ElementDisabledError) ExitCode() exitcodes.ExitCode {
	return exitcodes.ElementDisabled
}

// TimeoutError is returned when a wait ran out of time.
type TimeoutError struct {
	msg string
}

var _ errext.HasExitCode = &TimeoutError{}

func newWaitTimeoutError(timeout time.Duration, exists bool) *TimeoutError {
	direction := "disappear"
	if exists {
		direction = "show up"
	}
	return &TimeoutError{
		msg: fmt.Sprintf("waiting %d seconds for element to %s.", int(timeout/time.Second), direction),
	}
}

// NewTimeoutError returns a TimeoutError for a wait other than element
// existence, such as a document finishing loading.
func NewTimeoutError(format string, args ...any) *TimeoutError {
	return &TimeoutError{msg: fmt.Sprintf(format, args...)}
}

func (e *TimeoutError) Error() string {
	return e.msg
}

// ExitCode returns the status code used when the webquery process exits.
func (e *TimeoutError) ExitCode() exitcodes.ExitCode {
	return exitcodes.GenericTimeout
}

// Hint suggests how the failure can be addressed.
func (e *TimeoutError) Hint() string {
	return "raise the wait timeout (WEBQUERY_WAIT_TIMEOUT)"
}
