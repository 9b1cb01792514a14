// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package errors

import "fmt"

// Status is an error status code.
type Status uint64

// Error is the error type returned by this module.
type Error = ErrorBase[Status]

type statusType interface {
	~uint64
	comparable
	error
	fmt.Stringer
	IsKnownError() bool
}

// CallSite records where an error was created or wrapped.
type CallSite struct {
	FuncName string `json:"funcName,omitempty"`
	File     string `json:"file,omitempty"`
	Line     int64  `json:"line,omitempty"`
}

// ErrorBase is an error with a status code, a call stack, and an optional
// cause.
type ErrorBase[Status statusType] struct {
	Message   string             `json:"message,omitempty"`
	Code      Status             `json:"code,omitempty"`
	Cause     *ErrorBase[Status] `json:"cause,omitempty"`
	CallStack []*CallSite        `json:"callStack,omitempty"`
}
