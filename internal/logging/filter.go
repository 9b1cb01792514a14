// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// ParseLogLevel parses a level specification such as "error;dict=debug".
// A bare level or a level for module * sets the default. If any module has
// its own level, w is wrapped in a [FilterWriter] that drops the records of
// each module below its level. ParseLogLevel returns the lowest level named.
func ParseLogLevel(s string, w io.Writer) (string, io.Writer, error) {
	if !strings.Contains(s, "=") {
		_, err := zerolog.ParseLevel(s)
		if err != nil {
			return "", nil, errors.InvalidArgument.WithFormat("parse log level: %w", err)
		}
		return s, w, nil
	}

	var lowestLevel = zerolog.Disabled
	var defaultLevel = zerolog.Disabled
	levels := map[string]zerolog.Level{}
	modules := strings.FieldsFunc(s, func(r rune) bool { return r == ';' })
	for _, module := range modules {
		parts := strings.Split(module, "=")
		level, err := zerolog.ParseLevel(parts[len(parts)-1])
		if err != nil {
			return "", nil, errors.InvalidArgument.WithFormat("parse log level: %w", err)
		}

		if level < lowestLevel {
			lowestLevel = level
		}

		if len(parts) == 1 || parts[0] == "*" {
			defaultLevel = level
		} else {
			levels[parts[0]] = level
		}
	}

	w = FilterWriter{
		Out: w,
		Predicate: func(level zerolog.Level, event map[string]interface{}) bool {
			m, _ := event["module"].(string)
			l, ok := levels[m]
			if !ok {
				l = defaultLevel
			}
			return level >= l
		},
	}

	return lowestLevel.String(), w, nil
}

// SlogLevel converts a zerolog level name to a slog level.
func SlogLevel(s string) (slog.Level, error) {
	l, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return 0, errors.InvalidArgument.WithFormat("parse log level: %w", err)
	}
	switch {
	case l <= zerolog.DebugLevel:
		return slog.LevelDebug, nil
	case l == zerolog.InfoLevel:
		return slog.LevelInfo, nil
	case l == zerolog.WarnLevel:
		return slog.LevelWarn, nil
	default:
		return slog.LevelError, nil
	}
}

// FilterWriter drops JSON records for which Predicate returns false.
type FilterWriter struct {
	Out       io.Writer
	Predicate func(zerolog.Level, map[string]interface{}) bool
}

var _ zerolog.LevelWriter = FilterWriter{}

func (w FilterWriter) Write(p []byte) (n int, err error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

func (w FilterWriter) WriteLevel(level zerolog.Level, p []byte) (n int, err error) {
	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	err = d.Decode(&evt)
	if err != nil {
		return 0, errors.EncodingError.WithFormat("cannot decode event: %w", err)
	}

	// slog writes upper case level names
	if level == zerolog.NoLevel {
		s, ok := evt[zerolog.LevelFieldName].(string)
		if ok {
			level, _ = zerolog.ParseLevel(strings.ToLower(s))
		}
	}

	n = len(p)
	if p := w.Predicate; p != nil && !p(level, evt) {
		return n, nil
	}

	return w.Out.Write(p)
}
