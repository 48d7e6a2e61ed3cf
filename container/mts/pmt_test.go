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

	"github.com/google/go-cmp/cmp"
)

// pmtPayload is the PMT_BYTES payload region (everything after the
// 4-byte TS header and the single zero-length adaptation field byte)
// from the codec's S3 test scenario.
func pmtPayload() []byte {
	b := []byte{
		0, 2, 176, 34, 0, 1, 193, 0, 0, 225, 2, 240, 6, 5, 4, 67, 85, 69, 73,
		134, 225, 3, 240, 0, 15, 225, 1, 240, 0, 27, 225, 2, 240, 0, 225, 243, 90, 60,
	}
	for i := 0; i < 145; i++ {
		b = append(b, 0xFF)
	}
	return b
}

func TestReadPmtFrom(t *testing.T) {
	pmt, err := ReadPmtFrom(bytes.NewReader(pmtPayload()))
	if err != nil {
		t.Fatalf("ReadPmtFrom: %v", err)
	}
	if pmt.ProgramNum != 1 {
		t.Errorf("program_num: got %d, want 1", pmt.ProgramNum)
	}
	if pmt.PcrPid == nil || pmt.PcrPid.Uint16() != 258 {
		t.Fatalf("pcr_pid: got %v, want 258", pmt.PcrPid)
	}
	if len(pmt.ProgramInfo) != 1 || pmt.ProgramInfo[0].Tag != 5 || string(pmt.ProgramInfo[0].Data) != "CUEI" {
		t.Errorf("program_info: got %+v", pmt.ProgramInfo)
	}
	wantEsInfo := []struct {
		st  StreamType
		pid uint16
	}{
		{StreamTypeDts8ChannelLosslessAudio, 259},
		{StreamTypeAdtsAac, 257},
		{StreamTypeH264, 258},
	}
	if len(pmt.EsInfo) != len(wantEsInfo) {
		t.Fatalf("es_info: got %d entries, want %d", len(pmt.EsInfo), len(wantEsInfo))
	}
	for i, want := range wantEsInfo {
		got := pmt.EsInfo[i]
		if got.StreamType != want.st || got.ElementaryPid.Uint16() != want.pid {
			t.Errorf("es_info[%d]: got {%v %d}, want {%v %d}", i, got.StreamType, got.ElementaryPid.Uint16(), want.st, want.pid)
		}
	}
}

func TestPmtDescriptorAccessors(t *testing.T) {
	p := &Pmt{}
	if _, ok := p.Descriptor(5); ok {
		t.Error("expected no descriptor on empty pmt")
	}
	p.SetDescriptor(5, []byte("CUEI"))
	data, ok := p.Descriptor(5)
	if !ok || string(data) != "CUEI" {
		t.Fatalf("got %q, %v", data, ok)
	}
	p.SetDescriptor(5, []byte("ABCD"))
	data, ok = p.Descriptor(5)
	if !ok || string(data) != "ABCD" {
		t.Fatalf("SetDescriptor should replace: got %q", data)
	}
	if len(p.ProgramInfo) != 1 {
		t.Fatalf("expected a single descriptor after replace, got %d", len(p.ProgramInfo))
	}
}

func TestPmtWriteThenReadRoundTrip(t *testing.T) {
	want, err := ReadPmtFrom(bytes.NewReader(pmtPayload()))
	if err != nil {
		t.Fatalf("ReadPmtFrom: %v", err)
	}
	var buf bytes.Buffer
	if err := want.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := ReadPmtFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadPmtFrom: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
