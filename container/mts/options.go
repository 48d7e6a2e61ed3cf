/*
NAME
  options.go

DESCRIPTION
  options.go provides option functions that can be provided to a
  Reader or Writer for configuration. These options include logger
  injection.

AUTHOR
  Saxon Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import "github.com/ausocean/utils/logging"

// ReaderOption configures a Reader at construction.
type ReaderOption func(*Reader)

// WithReaderLogger directs a Reader's debug output to log instead of
// discarding it.
func WithReaderLogger(log logging.Logger) ReaderOption {
	return func(r *Reader) { r.logger = log }
}

// WriterOption configures a Writer at construction.
type WriterOption func(*Writer)

// WithWriterLogger directs a Writer's debug output to log instead of
// discarding it.
func WithWriterLogger(log logging.Logger) WriterOption {
	return func(w *Writer) { w.logger = log }
}
