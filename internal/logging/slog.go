// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

const messageKey = "message"

// SlogConfig configures the levels of a handler. Modules maps the value of a
// record's module attribute to the lowest level logged for it.
type SlogConfig struct {
	DefaultLevel slog.Level
	Modules      map[string]slog.Level
}

// NewSlogHandler returns a handler that writes JSON records to w. The
// message is written under the message key so that the output can be piped
// through [ConsoleSlogWriter].
func NewSlogHandler(cfg SlogConfig, w io.Writer) (slog.Handler, error) {
	lowest := cfg.DefaultLevel
	modules := map[string]slog.Level{}
	for m, l := range cfg.Modules {
		if m == "" {
			return nil, errors.InvalidArgument.With("empty module name")
		}
		modules[strings.ToLower(m)] = l
		if l < lowest {
			lowest = l
		}
	}

	opts := &slog.HandlerOptions{
		Level: lowest,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.MessageKey {
				return slog.Attr{}
			}
			return a
		},
	}

	return &logHandler{
		handler:      slog.NewJSONHandler(w, opts),
		defaultLevel: cfg.DefaultLevel,
		lowestLevel:  lowest,
		modules:      modules,
	}, nil
}

// ConsoleSlogWriter returns a writer that renders JSON records in a human
// readable form.
func ConsoleSlogWriter(w io.Writer, color bool) io.Writer {
	return &zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !color,
		TimeFormat: time.RFC3339,
		FormatLevel: func(i interface{}) string {
			if ll, ok := i.(string); ok {
				return strings.ToUpper(ll)
			}
			return "????"
		},
		FormatMessage: func(i interface{}) string {
			s, ok := i.(string)
			if ok {
				return s
			}
			return fmt.Sprint(i)
		},
	}
}

type logHandler struct {
	handler      slog.Handler
	defaultLevel slog.Level
	lowestLevel  slog.Level
	modules      map[string]slog.Level

	// module is set once a module attribute is attached to the handler
	module *slog.Level
}

func (h *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	i := *h
	i.handler = h.handler.WithAttrs(attrs)
	if l, ok := h.moduleLevel(attrsFunc(attrs)); ok {
		i.module = &l
	}
	return &i
}

func (h *logHandler) WithGroup(name string) slog.Handler {
	i := *h
	i.handler = h.handler.WithGroup(name)
	return &i
}

func (h *logHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.lowestLevel {
		return false
	}
	if h.module != nil && level < *h.module {
		return false
	}
	return h.handler.Enabled(ctx, level)
}

func (h *logHandler) Handle(ctx context.Context, record slog.Record) error {
	level := h.defaultLevel
	if h.module != nil {
		level = *h.module
	}
	if l, ok := h.moduleLevel(attrsFunc(Attrs(ctx))); ok {
		level = l
	}
	if l, ok := h.moduleLevel(record.Attrs); ok {
		level = l
	}
	if record.Level < level {
		return nil
	}

	r := slog.NewRecord(record.Time, record.Level, "", record.PC)
	r.AddAttrs(slog.String(messageKey, record.Message))
	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(a)
		return true
	})
	r.AddAttrs(Attrs(ctx)...)
	return h.handler.Handle(ctx, r)
}

func attrsFunc(attrs []slog.Attr) func(func(slog.Attr) bool) {
	return func(fn func(slog.Attr) bool) {
		for _, a := range attrs {
			if !fn(a) {
				return
			}
		}
	}
}

func (h *logHandler) moduleLevel(fn func(func(slog.Attr) bool)) (slog.Level, bool) {
	var level slog.Level
	var found bool
	fn(func(a slog.Attr) bool {
		if a.Key != "module" {
			return true
		}
		level, found = h.modules[strings.ToLower(a.Value.String())]
		return false
	})
	return level, found
}
