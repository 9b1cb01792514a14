// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithAttrs returns a context carrying attrs in addition to any attributes
// already attached. The handler returned by [NewSlogHandler] adds them to
// every record logged with the context.
func WithAttrs(ctx context.Context, attrs []slog.Attr) context.Context {
	old := Attrs(ctx)
	all := make([]slog.Attr, 0, len(old)+len(attrs))
	all = append(all, old...)
	all = append(all, attrs...)
	return context.WithValue(ctx, contextKey{}, all)
}

// Attrs returns the attributes attached to the context.
func Attrs(ctx context.Context) []slog.Attr {
	v, _ := ctx.Value(contextKey{}).([]slog.Attr)
	return v
}

// With attaches key-value pairs or [slog.Attr] values to the context, in the
// manner of [slog.Logger.With].
func With(ctx context.Context, args ...any) context.Context {
	var attrs []slog.Attr
	for len(args) > 0 {
		var a slog.Attr
		switch v := args[0].(type) {
		case slog.Attr:
			a, args = v, args[1:]
		case string:
			if len(args) == 1 {
				a, args = slog.Any("!BADKEY", v), nil
				break
			}
			a, args = slog.Any(v, args[1]), args[2:]
		default:
			a, args = slog.Any("!BADKEY", v), args[1:]
		}
		attrs = append(attrs, a)
	}
	return WithAttrs(ctx, attrs)
}
