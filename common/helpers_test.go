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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallWithJoinTimeout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("finishes", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		done, err := callWithJoinTimeout(ctx, func(context.Context) error { return boom }, time.Second)
		assert.True(t, done)
		assert.ErrorIs(t, err, boom)
	})
	t.Run("abandoned", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		finished := make(chan struct{})
		start := time.Now()
		done, err := callWithJoinTimeout(ctx, func(context.Context) error {
			defer close(finished)
			<-release
			return errors.New("ignored")
		}, 50*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, done)
		assert.Less(t, time.Since(start), time.Second)

		close(release)
		<-finished
	})
	t.Run("worker_outlives_cancellation", func(t *testing.T) {
		t.Parallel()

		cctx, cancel := context.WithCancel(ctx)
		workerErr := make(chan error, 1)
		_, _ = callWithJoinTimeout(cctx, func(wctx context.Context) error {
			cancel()
			time.Sleep(20 * time.Millisecond)
			workerErr <- wctx.Err()
			return nil
		}, time.Second)
		assert.NoError(t, <-workerErr)
	})
}

func TestPollUntil(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	calls := 0
	ok, err := PollUntil(ctx, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	}, true, time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)

	ok, err = PollUntil(ctx, func(context.Context) (bool, error) { return true, nil }, false, 20*time.Millisecond, time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("boom")
	_, err = PollUntil(ctx, func(context.Context) (bool, error) { return false, boom }, true, time.Second, time.Millisecond)
	assert.ErrorIs(t, err, boom)

	for _, interval := range []time.Duration{0, -time.Millisecond} {
		calls = 0
		ok, err = PollUntil(ctx, func(context.Context) (bool, error) {
			calls++
			return true, nil
		}, true, time.Second, interval)
		assert.ErrorContains(t, err, "poll interval must be positive")
		assert.False(t, ok)
		assert.Zero(t, calls)
	}
}
