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


// Package tests holds helpers shared by the tests of several packages.
package tests

import (
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogCache is a logrus hook remembering every entry it fires on, so tests
// can check what was logged.
type LogCache struct {
	HookedLevels []logrus.Level

	mu      sync.RWMutex
	entries []logrus.Entry
}

var _ logrus.Hook = &LogCache{}

// Levels just returns whatever was stored in the HookedLevels slice
func (lc *LogCache) Levels() []logrus.Level {
	return lc.HookedLevels
}

// Fire saves the entry in the cache.
func (lc *LogCache) Fire(e *logrus.Entry) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.entries = append(lc.entries, *e)
	return nil
}

// Contains reports whether a cached entry logged under category has a
// message containing msg. An empty category matches any entry.
func (lc *LogCache) Contains(category, msg string) bool {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	for _, e := range lc.entries {
		if category != "" && e.Data["category"] != category {
			continue
		}
		if strings.Contains(e.Message, msg) {
			return true
		}
	}
	return false
}

// Messages returns the messages logged under category, oldest first.
func (lc *LogCache) Messages(category string) []string {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	var msgs []string
	for _, e := range lc.entries {
		if e.Data["category"] == category {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

// AttachLogCache sets logger to level, attaches a LogCache hooked on level
// and everything more severe, and silences the logger's own output.
func AttachLogCache(logger *logrus.Logger, level logrus.Level) *LogCache {
	lc := &LogCache{}
	for _, l := range logrus.AllLevels {
		if l <= level {
			lc.HookedLevels = append(lc.HookedLevels, l)
		}
	}
	logger.SetLevel(level)
	logger.AddHook(lc)
	logger.SetOutput(io.Discard)
	return lc
}
