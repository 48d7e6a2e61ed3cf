/*
LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"bytes"
	"testing"
)

// patPayload is the PAT_BYTES payload region (everything after the
// 4-byte TS header) from the codec's S1 test scenario: pointer field,
// PSI header, syntax section, CRC-32, and trailing stuffing.
func patPayload() []byte {
	b := []byte{0, 0, 176, 13, 0, 0, 195, 0, 0, 0, 1, 225, 224, 232, 95, 116, 236}
	for i := 0; i < 167; i++ {
		b = append(b, 0xFF)
	}
	return b
}

func TestReadPatFrom(t *testing.T) {
	pat, err := ReadPatFrom(bytes.NewReader(patPayload()))
	if err != nil {
		t.Fatalf("ReadPatFrom: %v", err)
	}
	if pat.TransportStreamID != 0 {
		t.Errorf("transport_stream_id: got %d, want 0", pat.TransportStreamID)
	}
	if pat.VersionNumber.Uint8() != 1 {
		t.Errorf("version_number: got %d, want 1", pat.VersionNumber.Uint8())
	}
	if len(pat.Entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(pat.Entries))
	}
	e := pat.Entries[0]
	if e.ProgramNum != 1 {
		t.Errorf("program_num: got %d, want 1", e.ProgramNum)
	}
	if e.ProgramMapPid.Uint16() != 480 {
		t.Errorf("program_map_pid: got %d, want 480", e.ProgramMapPid.Uint16())
	}
}

func TestPatCRCMismatch(t *testing.T) {
	payload := patPayload()
	payload[10] ^= 0x01 // flip a body byte (program_num low byte)
	if _, err := ReadPatFrom(bytes.NewReader(payload)); err == nil {
		t.Error("expected crc mismatch error")
	}
	payload[10] ^= 0x01 // flip back
	if _, err := ReadPatFrom(bytes.NewReader(payload)); err != nil {
		t.Errorf("restored payload should decode: %v", err)
	}
}

func TestPatWriteThenReadRoundTrip(t *testing.T) {
	pid, err := NewPid(480)
	if err != nil {
		t.Fatalf("NewPid: %v", err)
	}
	version, err := NewVersionNumber(1)
	if err != nil {
		t.Fatalf("NewVersionNumber: %v", err)
	}
	want := &Pat{
		TransportStreamID: 0,
		VersionNumber:     version,
		Entries:           []ProgramAssociation{{ProgramNum: 1, ProgramMapPid: pid}},
	}
	var buf bytes.Buffer
	if err := want.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := ReadPatFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadPatFrom: %v", err)
	}
	if got.TransportStreamID != want.TransportStreamID || got.VersionNumber != want.VersionNumber {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if len(got.Entries) != 1 || got.Entries[0] != want.Entries[0] {
		t.Errorf("entries: got %+v, want %+v", got.Entries, want.Entries)
	}
}
