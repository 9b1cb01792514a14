// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OK means the operation succeeded.
const OK Status = 200

// InvalidArgument means an argument is out of range, such as a key of the
// wrong length.
const InvalidArgument Status = 400

// InvalidData means a cell or bag of cells is malformed.
const InvalidData Status = 401

// NotFound means a requested entry does not exist.
const NotFound Status = 404

// InvalidOperation means the operation is not valid for the current state.
const InvalidOperation Status = 405

// WrongShard means an account does not belong to the shard.
const WrongShard Status = 406

// OutOfRange means a value such as a logical time is outside its permitted
// interval.
const OutOfRange Status = 407

// BaseMismatch means a proof or update does not belong to the given tree.
const BaseMismatch Status = 409

// CellUnderflow means a read went past the end of a cell's bits or refs.
const CellUnderflow Status = 410

// CellOverflow means a write exceeded a cell's bit or ref capacity.
const CellOverflow Status = 411

// PrunedCellAccess means the data of a pruned branch was requested.
const PrunedCellAccess Status = 412

// InvalidConstructorTag means a record's constructor tag is not recognized.
const InvalidConstructorTag Status = 413

// HashMismatch means a hash does not match the expected value.
const HashMismatch Status = 414

// WrongMerkleProof means a Merkle proof is corrupt or does not prove its
// claim.
const WrongMerkleProof Status = 420

// WrongMerkleUpdate means a Merkle update is internally inconsistent.
const WrongMerkleUpdate Status = 421

// InternalError means an internal error occurred.
const InternalError Status = 500

// UnknownError means an unknown error occurred.
const UnknownError Status = 501

// EncodingError means encoding or decoding a value failed.
const EncodingError Status = 502

// FatalError means an invariant was violated. It indicates a bug.
const FatalError Status = 503

var statusNames = map[Status]string{
	OK:                    "OK",
	InvalidArgument:       "InvalidArgument",
	InvalidData:           "InvalidData",
	NotFound:              "NotFound",
	InvalidOperation:      "InvalidOperation",
	WrongShard:            "WrongShard",
	OutOfRange:            "OutOfRange",
	BaseMismatch:          "BaseMismatch",
	CellUnderflow:         "CellUnderflow",
	CellOverflow:          "CellOverflow",
	PrunedCellAccess:      "PrunedCellAccess",
	InvalidConstructorTag: "InvalidConstructorTag",
	HashMismatch:          "HashMismatch",
	WrongMerkleProof:      "WrongMerkleProof",
	WrongMerkleUpdate:     "WrongMerkleUpdate",
	InternalError:         "InternalError",
	UnknownError:          "UnknownError",
	EncodingError:         "EncodingError",
	FatalError:            "FatalError",
}

// GetEnumValue returns the value of the Status
func (v Status) GetEnumValue() uint64 { return uint64(v) }

// SetEnumValue sets the value. SetEnumValue returns false if the value is invalid.
func (v *Status) SetEnumValue(id uint64) bool {
	u := Status(id)
	if _, ok := statusNames[u]; !ok {
		return false
	}
	*v = u
	return true
}

// String returns the name of the Status.
func (v Status) String() string {
	if s, ok := statusNames[v]; ok {
		return s
	}
	return fmt.Sprintf("Status:%d", v)
}

// StatusByName returns the named Status.
func StatusByName(name string) (Status, bool) {
	for v, s := range statusNames {
		if strings.EqualFold(s, name) {
			return v, true
		}
	}
	return 0, false
}

// MarshalJSON marshals the Status to JSON as a string.
func (v Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON unmarshals the Status from JSON as a string.
func (v *Status) UnmarshalJSON(data []byte) error {
	var s string
	err := json.Unmarshal(data, &s)
	if err != nil {
		return err
	}

	var ok bool
	*v, ok = StatusByName(s)
	if !ok || strings.ContainsRune(s, ':') {
		return fmt.Errorf("invalid Status %q", s)
	}
	return nil
}
