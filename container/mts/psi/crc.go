/*
NAME
  crc.go

DESCRIPTION
  MPEG-2 CRC-32 (polynomial 0x04C11DB7, initial 0xFFFFFFFF, MSB-first, no
  reflection, no output XOR) used to protect PSI section integrity, plus
  a streaming Read/Write tee so sections need not be buffered twice to
  compute their checksum.

AUTHOR
  Dan Kortschak <dan@ausocean.org>
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package psi provides the MPEG-2 variant of CRC-32 used to protect
// Program-Specific Information sections.
package psi

import (
	"hash/crc32"
	"io"
	"math/bits"
)

var table = makeTable(bits.Reverse32(crc32.IEEE))

// makeTable builds an MSB-first CRC-32 table for poly, matching the
// ISO/IEC 13818-1 checksum (no bit reflection, unlike the ubiquitous
// zlib/IEEE variant).
func makeTable(poly uint32) *crc32.Table {
	var t crc32.Table
	for i := range t {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return &t
}

// Update folds p into the running CRC value crc.
func Update(crc uint32, p []byte) uint32 {
	for _, v := range p {
		crc = table[byte(crc>>24)^v] ^ (crc << 8)
	}
	return crc
}

// Sum computes the MPEG-2 CRC-32 of p from the standard initial value.
func Sum(p []byte) uint32 { return Update(0xFFFFFFFF, p) }

// Writer is an io.Writer tee that accumulates an MPEG-2 CRC-32 over
// every byte written through it, so a section need not be buffered
// twice to learn its trailing checksum.
type Writer struct {
	W   io.Writer
	crc uint32
}

// NewWriter returns a Writer teeing to w with the CRC initialised to
// its standard starting value.
func NewWriter(w io.Writer) *Writer { return &Writer{W: w, crc: 0xFFFFFFFF} }

func (cw *Writer) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	cw.crc = Update(cw.crc, p[:n])
	return n, err
}

// Sum32 returns the CRC-32 of everything written so far.
func (cw *Writer) Sum32() uint32 { return cw.crc }

// Reader is an io.Reader tee that accumulates an MPEG-2 CRC-32 over
// every byte read through it.
type Reader struct {
	R   io.Reader
	crc uint32
}

// NewReader returns a Reader teeing from r with the CRC initialised to
// its standard starting value.
func NewReader(r io.Reader) *Reader { return &Reader{R: r, crc: 0xFFFFFFFF} }

func (cr *Reader) Read(p []byte) (int, error) {
	n, err := cr.R.Read(p)
	cr.crc = Update(cr.crc, p[:n])
	return n, err
}

// Sum32 returns the CRC-32 of everything read so far.
func (cr *Reader) Sum32() uint32 { return cr.crc }
