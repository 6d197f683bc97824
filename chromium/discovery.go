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
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/grafana/webquery/api"
	"github.com/grafana/webquery/log"
)

// DiscoverPageURL returns the debugger websocket URL of the first page
// target listed by the browser's HTTP endpoint. Websocket URLs are returned
// unchanged.
func DiscoverPageURL(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	if strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://") {
		return endpoint, nil
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(endpoint, "/")+"/json/list", nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("listing targets: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("listing targets: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading target list: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("target list is not valid JSON")
	}

	wsURL := gjson.GetBytes(body, `#(type=="page").webSocketDebuggerUrl`).String()
	if wsURL == "" {
		return "", fmt.Errorf("no page target at %s", endpoint)
	}
	return wsURL, nil
}

// NewDialer returns a function resolving an endpoint to a page target and
// connecting to it, for use with remote.Connect.
func NewDialer(client *http.Client, logger *log.Logger) func(context.Context, string) (api.Transport, error) {
	return func(ctx context.Context, endpoint string) (api.Transport, error) {
		wsURL, err := DiscoverPageURL(ctx, client, endpoint)
		if err != nil {
			return nil, err
		}
		logger.Debugf("cdp", "connecting to %s", wsURL)
		return Dial(ctx, wsURL, logger)
	}
}
