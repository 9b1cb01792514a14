// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package errors

var trackLocation = true

// EnableLocationTracking enables recording the call site of errors.
func EnableLocationTracking() { trackLocation = true }

// DisableLocationTracking disables recording the call site of errors. Hot
// paths that create and discard many errors benefit from this.
func DisableLocationTracking() { trackLocation = false }
