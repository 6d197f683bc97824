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

// Package chromium carries webquery commands to Chromium based browsers over
// the Chrome DevTools Protocol.
package chromium

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
	"github.com/tidwall/gjson"

	"github.com/grafana/webquery/api"
	"github.com/grafana/webquery/log"
)

const wsWriteBufferSize = 1 << 20

// ErrConnClosed is returned for commands issued on, or pending when, the
// connection closed.
var ErrConnClosed = errors.New("cdp connection closed")

var (
	_ api.Transport = &Conn{}
	_ cdp.Executor  = &Conn{}
)

// Conn is a websocket connection to one page target. Commands are matched to
// their replies by message id; events are logged and dropped.
type Conn struct {
	wsURL  string
	logger *log.Logger
	conn   *websocket.Conn
	msgID  atomic.Int64

	writeMu sync.Mutex
	encoder jwriter.Writer

	pendingMu sync.Mutex
	pending   map[int64]chan *cdproto.Message

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the page target debugger at wsURL.
func Dial(ctx context.Context, wsURL string, logger *log.Logger) (*Conn, error) {
	wsd := websocket.Dialer{
		HandshakeTimeout: 60 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
		WriteBufferSize:  wsWriteBufferSize,
	}
	conn, _, err := wsd.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		wsURL:   wsURL,
		logger:  logger,
		conn:    conn,
		pending: make(map[int64]chan *cdproto.Message),
		done:    make(chan struct{}),
	}
	go c.recvLoop()

	return c, nil
}

func (c *Conn) recvLoop() {
	var decoder jlexer.Lexer
	for {
		_, buf, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}
		c.logger.Tracef("cdp:recv", "<- %s", buf)

		var msg cdproto.Message
		decoder = jlexer.Lexer{Data: buf}
		msg.UnmarshalEasyJSON(&decoder)
		if err := decoder.Error(); err != nil {
			c.logger.Errorf("cdp", "decoding message: %v", err)
			continue
		}

		switch {
		case msg.ID != 0:
			c.pendingMu.Lock()
			ch, ok := c.pending[msg.ID]
			delete(c.pending, msg.ID)
			c.pendingMu.Unlock()
			if ok {
				ch <- &msg
			}
		case msg.Method != "":
			c.logger.Tracef("cdp", "ignoring event %s", msg.Method)
		default:
			c.logger.Errorf("cdp", "ignoring malformed incoming message (missing id or method): %s", buf)
		}
	}
}

// shutdown closes the socket once and fails every pending command.
func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		if websocket.IsUnexpectedCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.closeErr = cause
		} else {
			c.closeErr = ErrConnClosed
		}
		_ = c.conn.Close()
		close(c.done)
	})
}

// Close sends a normal closure frame and releases the connection.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(10*time.Second),
	)
	c.writeMu.Unlock()
	c.shutdown(ErrConnClosed)
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

// Execute implements cdp.Executor: it sends one command and waits for its
// reply.
func (c *Conn) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	select {
	case <-c.done:
		return c.closeErr
	default:
	}

	id := c.msgID.Add(1)
	var buf []byte
	if params != nil {
		var err error
		if buf, err = easyjson.Marshal(params); err != nil {
			return err
		}
	}

	ch := make(chan *cdproto.Message, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.write(&cdproto.Message{ID: id, Method: cdproto.MethodType(method), Params: buf}); err != nil {
		c.shutdown(err)
		return err
	}

	select {
	case msg := <-ch:
		switch {
		case msg.Error != nil:
			return msg.Error
		case res != nil:
			return easyjson.Unmarshal(msg.Result, res)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.closeErr
	}
}

func (c *Conn) write(msg *cdproto.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.encoder = jwriter.Writer{}
	msg.MarshalEasyJSON(&c.encoder)
	if err := c.encoder.Error; err != nil {
		return err
	}
	buf, err := c.encoder.BuildBytes()
	if err != nil {
		return err
	}
	c.logger.Tracef("cdp:send", "-> %s", buf)

	return c.conn.WriteMessage(websocket.TextMessage, buf)
}

// Send evaluates command in the page and renders the value it evaluated to
// as text. Null and undefined render as an empty string, strings without
// quotes and everything else as JSON.
func (c *Conn) Send(ctx context.Context, command string) (string, error) {
	action := cdpruntime.Evaluate(command).WithReturnByValue(true)
	obj, exc, err := action.Do(cdp.WithExecutor(ctx, c))
	if err != nil {
		return "", fmt.Errorf("evaluating command: %w", err)
	}
	if exc != nil {
		return "", newScriptError(exc)
	}
	return renderValue(obj), nil
}

func renderValue(obj *cdpruntime.RemoteObject) string {
	if obj == nil || obj.Type == cdpruntime.TypeUndefined || obj.Subtype == cdpruntime.SubtypeNull {
		return ""
	}
	if obj.UnserializableValue != "" {
		return obj.UnserializableValue.String()
	}
	v := gjson.ParseBytes(obj.Value)
	if v.Type == gjson.JSON {
		return v.Raw
	}
	return v.String()
}
