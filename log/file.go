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

package log

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// FileHook appends every entry it fires on to a local file. Lines are
// buffered and only guaranteed to be on disk after Close.
type FileHook struct {
	path   string
	levels []logrus.Level

	mu     sync.Mutex
	file   afero.File
	bw     *bufio.Writer
	closed bool
}

var _ logrus.Hook = &FileHook{}

// FileHookFromConfigLine opens the file described by line on fs. The line
// has the form file=<path>[,level=<max level>].
func FileHookFromConfigLine(fs afero.Fs, line string) (*FileHook, error) {
	h := &FileHook{levels: logrus.AllLevels}
	if err := h.parseArgs(line); err != nil {
		return nil, err
	}

	if _, err := fs.Stat(filepath.Dir(h.path)); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("log file directory %q does not exist", filepath.Dir(h.path))
	}
	file, err := fs.OpenFile(h.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", h.path, err)
	}
	h.file = file
	h.bw = bufio.NewWriter(file)
	return h, nil
}

func (h *FileHook) parseArgs(line string) error {
	if k, _, _ := strings.Cut(line, "="); k != "file" {
		return fmt.Errorf("log file output should look like file=<path>, got %q", line)
	}
	for _, token := range strings.Split(line, ",") {
		key, value, _ := strings.Cut(token, "=")
		switch key {
		case "file":
			if value == "" {
				return errors.New("log file path must not be empty")
			}
			h.path = value
		case "level":
			levels, err := parseLevels(value)
			if err != nil {
				return err
			}
			h.levels = levels
		default:
			return fmt.Errorf("unknown log file option %q", key)
		}
	}
	return nil
}

// parseLevels returns level and every level more severe than it.
func parseLevels(level string) ([]logrus.Level, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("unknown log level %s", level)
	}
	index := sort.Search(len(logrus.AllLevels), func(i int) bool {
		return logrus.AllLevels[i] > lvl
	})
	return logrus.AllLevels[:index], nil
}

// Fire writes the formatted entry. Entries fired after Close are dropped.
func (h *FileHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Bytes()
	if err != nil {
		return fmt.Errorf("formatting log entry: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	_, err = h.bw.Write(line)
	return err
}

// Levels returns the levels the hook fires on.
func (h *FileHook) Levels() []logrus.Level {
	return h.levels
}

// Path returns the path of the log file.
func (h *FileHook) Path() string {
	return h.path
}

// Close flushes the buffered lines and closes the file.
func (h *FileHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return errors.Join(h.bw.Flush(), h.file.Close())
}
