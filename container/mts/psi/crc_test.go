/*
LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package psi

import (
	"bytes"
	"testing"
)

// The PAT syntax section bytes from the codec's S1 test scenario,
// trailed by its known-good CRC-32.
var patSyntaxBytes = []byte{0, 0, 0xC3, 0, 0, 0, 1, 0xE1, 0xE0}
var patSyntaxCRC = uint32(0xE85F74EC)

func TestSumMatchesKnownCRC(t *testing.T) {
	header := []byte{0, 0xB0, 0x0D}
	got := Update(Sum(header), patSyntaxBytes)
	if got != patSyntaxCRC {
		t.Errorf("got %#08x, want %#08x", got, patSyntaxCRC)
	}
}

func TestWriterMatchesSum(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write([]byte{0, 0xB0, 0x0D})
	w.Write(patSyntaxBytes)
	if w.Sum32() != patSyntaxCRC {
		t.Errorf("got %#08x, want %#08x", w.Sum32(), patSyntaxCRC)
	}
	if !bytes.Equal(buf.Bytes()[3:], patSyntaxBytes) {
		t.Error("writer did not tee all bytes through")
	}
}

func TestReaderMatchesSum(t *testing.T) {
	full := append([]byte{0, 0xB0, 0x0D}, patSyntaxBytes...)
	r := NewReader(bytes.NewReader(full))
	buf := make([]byte, len(full))
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if r.Sum32() != patSyntaxCRC {
		t.Errorf("got %#08x, want %#08x", r.Sum32(), patSyntaxCRC)
	}
}

func TestFlippedByteInvalidatesCRC(t *testing.T) {
	tampered := append([]byte(nil), patSyntaxBytes...)
	tampered[3] ^= 0x01
	header := []byte{0, 0xB0, 0x0D}
	got := Update(Sum(header), tampered)
	if got == patSyntaxCRC {
		t.Error("flipped byte should invalidate the checksum")
	}
}
