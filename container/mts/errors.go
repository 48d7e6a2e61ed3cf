/*
NAME
  errors.go

DESCRIPTION
  Error kinds shared by every codec in the mts module tree.

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"errors"
)

// ErrInvalidInput is the sentinel classifying any wire-format violation: a
// bad sync byte, a zero marker bit, a reserved-pattern mismatch, a length
// overrun, a CRC mismatch, an unknown PID, or a length overflow on encode.
var ErrInvalidInput = errors.New("mts: invalid input")

// ErrUnsupported is the sentinel classifying a syntactically valid feature
// this codec deliberately declines to decode: a non-zero PSI pointer field,
// a non-zero scrambling control, or one of the PES optional-header flags
// this codec refuses (ES rate, DSM trick mode, additional copy info, CRC,
// extension).
var ErrUnsupported = errors.New("mts: unsupported")

// ReadError wraps an I/O error returned by the caller-supplied byte source,
// distinguishing it from a wire-format error raised by the codec itself.
type ReadError struct{ Err error }

func (e *ReadError) Error() string { return "mts: read: " + e.Err.Error() }
func (e *ReadError) Unwrap() error { return e.Err }

// WriteError wraps an I/O error returned by the caller-supplied byte sink.
type WriteError struct{ Err error }

func (e *WriteError) Error() string { return "mts: write: " + e.Err.Error() }
func (e *WriteError) Unwrap() error { return e.Err }
