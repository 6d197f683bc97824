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
	"context"
	"fmt"
	"time"
)

// callWithJoinTimeout runs fn on its own goroutine and waits at most
// timeout for it to finish. The goroutine runs on a context detached from
// ctx's cancellation: once the join times out it is abandoned, not killed,
// and its eventual result is dropped. It returns fn's error if fn finished
// in time and whether it did.
func callWithJoinTimeout(ctx context.Context, fn func(context.Context) error, timeout time.Duration) (bool, error) {
	errCh := make(chan error, 1)
	workerCtx := context.WithoutCancel(ctx)

	go func() {
		errCh <- fn(workerCtx)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return true, err
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// PollUntil evaluates cond every interval until it returns want or timeout
// elapses. cond is always evaluated at least once. It returns false, with a
// nil error, on timeout. The interval must be positive.
func PollUntil(
	ctx context.Context, cond func(context.Context) (bool, error), want bool, timeout, interval time.Duration,
) (bool, error) {
	if interval <= 0 {
		return false, fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		got, err := cond(ctx)
		if err != nil {
			return false, err
		}
		if got == want {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
