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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mstoykov/envconfig"
	"gopkg.in/guregu/null.v3"

	"github.com/grafana/webquery/lib/types"
)

// Settings are the knobs element operations consult. They are passed
// explicitly to every finder and element.
type Settings struct {
	HighlightElement       bool
	HighlightColor         string
	WaitUntilExistsTimeout time.Duration
	WaitForCompleteTimeout time.Duration
	PollInterval           time.Duration
	NoWaitJoinTimeout      time.Duration
	FlashCount             int
	FlashInterval          time.Duration
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return NewConfig().Settings()
}

// Config is the user facing, partially specified form of Settings.
type Config struct {
	Highlight       null.Bool          `json:"highlight,omitempty" envconfig:"WEBQUERY_HIGHLIGHT"`
	HighlightColor  null.String        `json:"highlightColor,omitempty" envconfig:"WEBQUERY_HIGHLIGHT_COLOR"`
	WaitTimeout     types.NullDuration `json:"waitTimeout,omitempty" envconfig:"WEBQUERY_WAIT_TIMEOUT"`
	CompleteTimeout types.NullDuration `json:"completeTimeout,omitempty" envconfig:"WEBQUERY_COMPLETE_TIMEOUT"`
	PollInterval    types.NullDuration `json:"pollInterval,omitempty" envconfig:"WEBQUERY_POLL_INTERVAL"`
	NoWaitJoin      types.NullDuration `json:"noWaitJoin,omitempty" envconfig:"WEBQUERY_NOWAIT_JOIN"`
}

// NewConfig creates a new config with the default values.
func NewConfig() Config {
	return Config{
		Highlight:       null.NewBool(true, false),
		HighlightColor:  null.NewString(DefaultHighlightColor, false),
		WaitTimeout:     types.NewNullDuration(DefaultWaitUntilExistsTimeout, false),
		CompleteTimeout: types.NewNullDuration(DefaultWaitForCompleteTimeout, false),
		PollInterval:    types.NewNullDuration(DefaultPollInterval, false),
		NoWaitJoin:      types.NewNullDuration(DefaultNoWaitJoinTimeout, false),
	}
}

// Apply applies a valid config options to the receiver.
func (c Config) Apply(cfg Config) Config {
	if cfg.Highlight.Valid {
		c.Highlight = cfg.Highlight
	}
	if cfg.HighlightColor.Valid {
		c.HighlightColor = cfg.HighlightColor
	}
	if cfg.WaitTimeout.Valid {
		c.WaitTimeout = cfg.WaitTimeout
	}
	if cfg.CompleteTimeout.Valid {
		c.CompleteTimeout = cfg.CompleteTimeout
	}
	if cfg.PollInterval.Valid {
		c.PollInterval = cfg.PollInterval
	}
	if cfg.NoWaitJoin.Valid {
		c.NoWaitJoin = cfg.NoWaitJoin
	}
	return c
}

// Settings resolves the config into the value element operations use.
func (c Config) Settings() Settings {
	return Settings{
		HighlightElement:       c.Highlight.Bool,
		HighlightColor:         c.HighlightColor.String,
		WaitUntilExistsTimeout: c.WaitTimeout.TimeDuration(),
		WaitForCompleteTimeout: c.CompleteTimeout.TimeDuration(),
		PollInterval:           c.PollInterval.TimeDuration(),
		NoWaitJoinTimeout:      c.NoWaitJoin.TimeDuration(),
		FlashCount:             DefaultFlashCount,
		FlashInterval:          DefaultFlashInterval,
	}
}

// ParseJSON parses the supplied JSON into a Config.
func ParseJSON(data json.RawMessage) (Config, error) {
	conf := Config{}
	err := json.Unmarshal(data, &conf)
	return conf, err
}

// GetConsolidatedConfig combines {default config values + JSON config +
// environment vars}, and returns the final result.
func GetConsolidatedConfig(jsonRawConf json.RawMessage, env map[string]string) (Config, error) {
	result := NewConfig()
	if jsonRawConf != nil {
		jsonConf, err := ParseJSON(jsonRawConf)
		if err != nil {
			return result, err
		}
		result = result.Apply(jsonConf)
	}

	envConfig := Config{}
	if err := envconfig.Process("", &envConfig, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}); err != nil {
		return result, err
	}

	result = result.Apply(envConfig)
	return result, result.Validate()
}

// Validate reports every value that would make element operations
// misbehave.
func (c Config) Validate() error {
	var errs []error
	if d := c.PollInterval.TimeDuration(); d <= 0 {
		errs = append(errs, fmt.Errorf("pollInterval must be positive, got %s", d))
	}
	for name, d := range map[string]types.NullDuration{
		"waitTimeout":     c.WaitTimeout,
		"completeTimeout": c.CompleteTimeout,
		"noWaitJoin":      c.NoWaitJoin,
	} {
		if d.TimeDuration() < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", name, d.TimeDuration()))
		}
	}
	return errors.Join(errs...)
}
