/*
NAME
  bitio.go

DESCRIPTION
  Bit-level primitives shared by every codec in the mts module tree: a
  bounded sub-reader for length-prefixed regions, stuffing-byte
  consumption/emission, and marker-bit assertions.

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
	"io"

	"github.com/pkg/errors"
)

// StuffingByte is the fill byte used to pad PSI sections, adaptation
// fields, and PES optional headers out to their declared length.
const StuffingByte = 0xFF

// boundedReader wraps r so that at most n further bytes may be read from
// it. Once the boundary is reached Read returns io.EOF, which
// consumeStuffing relies on to detect the end of a padded region. A
// readFull that is cut short partway by the boundary is reported as
// ErrInvalidInput; one that starts exactly at the boundary gets io.EOF.
type boundedReader struct {
	r io.Reader
	n int
}

func newBoundedReader(r io.Reader, n int) *boundedReader {
	return &boundedReader{r: r, n: n}
}

func (b *boundedReader) Read(p []byte) (int, error) {
	if b.n <= 0 {
		return 0, io.EOF
	}
	if len(p) > b.n {
		p = p[:b.n]
	}
	n, err := b.r.Read(p)
	b.n -= n
	return n, err
}

// remaining reports how many bytes may still be read from the bounded
// region.
func (b *boundedReader) remaining() int { return b.n }

// readFull reads exactly len(p) bytes. A clean io.EOF with zero bytes
// read is passed through unchanged so callers can detect end of
// stream at a packet boundary; a short read partway through (
// io.ErrUnexpectedEOF) is a wire-format violation, not end of stream,
// and is reported as ErrInvalidInput. Other I/O failures are wrapped
// as a ReadError.
func readFull(r io.Reader, p []byte) error {
	n, err := io.ReadFull(r, p)
	if err == io.EOF && n == 0 {
		return io.EOF
	}
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return errors.Wrap(ErrInvalidInput, "truncated read")
	}
	if err != nil {
		return &ReadError{Err: err}
	}
	return nil
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

// readUintN reads an n-byte (n <= 8) big-endian unsigned integer.
func readUintN(r io.Reader, n int) (uint64, error) {
	buf := make([]byte, n)
	if err := readFull(r, buf); err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	if err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

func writeUint16(w io.Writer, v uint16) error {
	_, err := w.Write([]byte{byte(v >> 8), byte(v)})
	if err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// writeUintN writes the low n*8 bits of v as a big-endian n-byte word.
func writeUintN(w io.Writer, v uint64, n int) error {
	buf := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	_, err := w.Write(buf)
	if err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// consumeStuffing reads the remainder of r (expected to be a bounded
// region) and asserts every byte is StuffingByte.
func consumeStuffing(r io.Reader) error {
	buf := [1]byte{}
	for {
		n, err := r.Read(buf[:])
		if n == 0 {
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return &ReadError{Err: err}
			}
			return nil
		}
		if buf[0] != StuffingByte {
			return errors.Wrapf(ErrInvalidInput, "non-stuffing byte 0x%02x in padding", buf[0])
		}
	}
}

// writeStuffing emits n stuffing bytes.
func writeStuffing(w io.Writer, n int) error {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = StuffingByte
	}
	_, err := w.Write(buf)
	if err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// assertMarker returns ErrInvalidInput unless bit is set, identifying the
// field in the error for debugging.
func assertMarker(bit bool, field string) error {
	if !bit {
		return errors.Wrapf(ErrInvalidInput, "unset marker bit: %s", field)
	}
	return nil
}
