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
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/grafana/webquery/api"
	"github.com/grafana/webquery/common"
	"github.com/grafana/webquery/errext"
	"github.com/grafana/webquery/log"
	"github.com/grafana/webquery/trace"
)

const (
	// DocumentVariableName names the browser-side variable holding the
	// active document.
	DocumentVariableName = "wq_doc"

	variablePrefix = "wq_element"
)

// Dialer opens a Transport to the browser listening at url.
type Dialer func(ctx context.Context, url string) (api.Transport, error)

// ClientPort is the conversation with one browser process. Replies carry no
// correlation ids, so round trips on a port are strictly sequential.
// Independent ports may be used concurrently.
type ClientPort struct {
	transport api.Transport
	logger    *log.Logger
	tracer    *trace.Tracer

	// counter backs CreateVariableName; it only ever grows.
	counter atomic.Int64

	mu     sync.Mutex
	closed bool
}

// NewClientPort returns a port talking over an already opened transport.
func NewClientPort(transport api.Transport, logger *log.Logger, tracer *trace.Tracer) *ClientPort {
	if tracer == nil {
		tracer = trace.NewNoopTracer()
	}
	return &ClientPort{
		transport: transport,
		logger:    logger,
		tracer:    tracer,
	}
}

// Connect dials url and points the document variable at the active page.
func Connect(ctx context.Context, url string, dial Dialer, logger *log.Logger, tracer *trace.Tracer) (*ClientPort, error) {
	t, err := dial(ctx, url)
	if err != nil {
		return nil, &ConnectionError{URL: url, Err: err}
	}
	p := NewClientPort(t, logger, tracer)
	if err := p.InitializeDocument(ctx); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// CreateVariableName returns a browser-side variable name that was never
// handed out before by this port.
func (p *ClientPort) CreateVariableName() string {
	return variablePrefix + strconv.FormatInt(p.counter.Add(1), 10)
}

// InitializeDocument re-points the document variable at the active document.
// After a navigation the previous document object is stale and searches
// against it silently come back empty.
func (p *ClientPort) InitializeDocument(ctx context.Context) error {
	return p.Write(ctx, DocumentVariableName+" = window.document;")
}

// Write sends command and discards the value it evaluated to.
func (p *ClientPort) Write(ctx context.Context, command string) error {
	_, err := p.roundTrip(ctx, command)
	return err
}

// WriteAndRead sends command and returns the value it evaluated to. Null
// and undefined read as an empty string.
func (p *ClientPort) WriteAndRead(ctx context.Context, command string) (string, error) {
	return p.roundTrip(ctx, command)
}

// WriteAndReadAsBool sends command and parses its value as a boolean.
func (p *ClientPort) WriteAndReadAsBool(ctx context.Context, command string) (bool, error) {
	reply, err := p.roundTrip(ctx, command)
	if err != nil {
		return false, err
	}
	switch strings.TrimSpace(reply) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, &ProtocolError{Command: command, Reply: reply}
}

// WriteAndReadAsInt sends command and parses its value as an integer.
func (p *ClientPort) WriteAndReadAsInt(ctx context.Context, command string) (int, error) {
	reply, err := p.roundTrip(ctx, command)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return 0, &ProtocolError{Command: command, Reply: reply}
	}
	return n, nil
}

// WaitForComplete polls the active document until it has finished loading.
func (p *ClientPort) WaitForComplete(ctx context.Context, timeout, interval time.Duration) error {
	ok, err := common.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		if err := p.InitializeDocument(ctx); err != nil {
			return false, err
		}
		return p.WriteAndReadAsBool(ctx, DocumentVariableName+`.readyState == "complete";`)
	}, true, timeout, interval)
	if err != nil {
		return err
	}
	if !ok {
		return common.NewTimeoutError("waiting %d seconds for the page to complete loading.", int(timeout/time.Second))
	}
	return nil
}

// Close closes the transport. Further operations fail with ErrPortClosed.
func (p *ClientPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.transport.Close()
}

func (p *ClientPort) roundTrip(ctx context.Context, command string) (_ string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", ErrPortClosed
	}

	ctx, span := p.tracer.Start(ctx, "remote.send",
		oteltrace.WithAttributes(attribute.Int("webquery.command.length", len(command))))
	defer func() { trace.End(span, err) }()

	p.logger.Debugf("remote:send", "-> %s", command)
	start := time.Now()
	reply, err := p.transport.Send(ctx, command)
	if err != nil {
		return "", p.classify(command, err)
	}
	p.logger.Debugf("remote:recv", "<- %s (%s)", reply, time.Since(start))

	return reply, nil
}

func (p *ClientPort) classify(command string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var (
		exc     errext.Exception
		protErr *ProtocolError
		connErr *ConnectionError
	)
	switch {
	case errors.As(err, &protErr), errors.As(err, &connErr):
		return err
	case errors.As(err, &exc):
		return &ProtocolError{Command: command, Err: err}
	}
	return &ConnectionError{Err: fmt.Errorf("sending command: %w", err)}
}
