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
	"fmt"
	"strings"

	cdpruntime "github.com/chromedp/cdproto/runtime"

	"github.com/grafana/webquery/errext"
)

// ScriptError is an exception a command raised in the page.
type ScriptError struct {
	Message string
	stack   string
}

var _ errext.Exception = &ScriptError{}

func newScriptError(exc *cdpruntime.ExceptionDetails) *ScriptError {
	msg := exc.Text
	if exc.Exception != nil && exc.Exception.Description != "" {
		msg = exc.Exception.Description
		// Descriptions carry the stack after the first line.
		msg, _, _ = strings.Cut(msg, "\n")
	}

	var b strings.Builder
	if exc.StackTrace != nil {
		for _, f := range exc.StackTrace.CallFrames {
			name := f.FunctionName
			if name == "" {
				name = "<anonymous>"
			}
			fmt.Fprintf(&b, "\tat %s (%s:%d:%d)\n", name, f.URL, f.LineNumber+1, f.ColumnNumber+1)
		}
	}
	if b.Len() == 0 {
		fmt.Fprintf(&b, "\tat <anonymous>:%d:%d\n", exc.LineNumber+1, exc.ColumnNumber+1)
	}
	return &ScriptError{Message: msg, stack: b.String()}
}

func (e *ScriptError) Error() string { return e.Message }

// StackTrace returns the frames the exception was raised from.
func (e *ScriptError) StackTrace() string { return e.stack }
