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

// Package remote queries documents living in a browser process by shipping
// script fragments over a ClientPort and reading back their values.
package remote

import (
	"context"

	"github.com/grafana/webquery/api"
	"github.com/grafana/webquery/common"
	"github.com/grafana/webquery/log"
	"github.com/grafana/webquery/trace"
)

// Document is the active document of the browser behind a port.
type Document struct {
	port     *ClientPort
	settings common.Settings
}

var (
	_ api.ElementCollection = &Document{}
	_ api.DomContainer      = &Document{}
)

// NewDocument returns the active document of the browser behind port.
func NewDocument(port *ClientPort) *Document {
	return &Document{port: port, settings: common.DefaultSettings()}
}

// Page returns a page querying the document.
func (d *Document) Page(settings common.Settings, logger *log.Logger, tracer *trace.Tracer) *common.Page {
	d.settings = settings
	return common.NewPage(d, d, NewStrategy(d.port), settings, logger, tracer)
}

// Elements returns the document variable as the search root.
func (d *Document) Elements(context.Context) (api.NativeElement, error) {
	return NewElement(d.port, DocumentVariableName), nil
}

// Frame returns a collection rooted at the content document of the frame
// element frameReference evaluates to.
func (d *Document) Frame(frameReference string) api.ElementCollection {
	return frame{root: NewElement(d.port, frameReference+".contentDocument")}
}

// FramePage returns a page searching the content document of the frame
// element frameReference evaluates to. Waiting for the page to complete
// still goes through the top level document.
func (d *Document) FramePage(
	frameReference string, settings common.Settings, logger *log.Logger, tracer *trace.Tracer,
) *common.Page {
	d.settings = settings
	return common.NewPage(d, d.Frame(frameReference), NewStrategy(d.port), settings, logger, tracer)
}

// WaitForComplete waits for the active document to finish loading.
func (d *Document) WaitForComplete(ctx context.Context) error {
	return d.port.WaitForComplete(ctx, d.settings.WaitForCompleteTimeout, d.settings.PollInterval)
}

type frame struct {
	root *Element
}

func (f frame) Elements(context.Context) (api.NativeElement, error) {
	return f.root, nil
}
