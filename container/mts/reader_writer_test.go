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
	"io"
	"testing"
)

func TestWriteThenReadPatPacket(t *testing.T) {
	pid, _ := NewPid(480)
	version, _ := NewVersionNumber(1)
	pat := &Pat{
		TransportStreamID: 0,
		VersionNumber:     version,
		Entries:           []ProgramAssociation{{ProgramNum: 1, ProgramMapPid: pid}},
	}
	cc, _ := NewContinuityCounter(1)
	pkt := &TsPacket{
		Header: TsHeader{
			Pid:                        PatPid,
			TransportScramblingControl: NotScrambled,
			ContinuityCounter:          cc,
		},
		Payload: pat,
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WritePacket(pkt); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if buf.Len() != PacketSize {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), PacketSize)
	}

	r := NewReader(&buf)
	got, err := r.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	gotPat, ok := got.Payload.(*Pat)
	if !ok {
		t.Fatalf("payload type: got %T, want *Pat", got.Payload)
	}
	if gotPat.TransportStreamID != pat.TransportStreamID || len(gotPat.Entries) != 1 || gotPat.Entries[0] != pat.Entries[0] {
		t.Errorf("got %+v, want %+v", gotPat, pat)
	}

	// A second decode from the now-exhausted stream returns io.EOF.
	if _, err := r.ReadPacket(); err != io.EOF {
		t.Errorf("second read: got %v, want io.EOF", err)
	}
}

func TestWritePacketDerivesPayloadUnitStartIndicator(t *testing.T) {
	// The caller never sets PayloadUnitStartIndicator; WritePacket must
	// still derive it from the payload variant, since the reader uses
	// it to tell a new Pes apart from a Raw continuation on the same
	// pid.
	pmtPid, _ := NewPid(17)
	esPid, _ := NewPid(258)
	version, _ := NewVersionNumber(1)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	cc0, _ := NewContinuityCounter(0)
	pat := &Pat{VersionNumber: version, Entries: []ProgramAssociation{{ProgramNum: 1, ProgramMapPid: pmtPid}}}
	if err := w.WritePacket(&TsPacket{Header: TsHeader{Pid: PatPid, ContinuityCounter: cc0}, Payload: pat}); err != nil {
		t.Fatalf("write pat: %v", err)
	}
	cc1, _ := NewContinuityCounter(0)
	pmt := &Pmt{ProgramNum: 1, VersionNumber: version, EsInfo: []EsInfo{{StreamType: StreamTypeH264, ElementaryPid: esPid}}}
	if err := w.WritePacket(&TsPacket{Header: TsHeader{Pid: pmtPid, ContinuityCounter: cc1}, Payload: pmt}); err != nil {
		t.Fatalf("write pmt: %v", err)
	}
	cc2, _ := NewContinuityCounter(0)
	pes := &Pes{Header: PesHeader{StreamId: NewStreamId(0xE0)}, Data: []byte{1, 2, 3}}
	if err := w.WritePacket(&TsPacket{Header: TsHeader{Pid: esPid, ContinuityCounter: cc2}, Payload: pes}); err != nil {
		t.Fatalf("write pes: %v", err)
	}

	r := NewReader(&buf)
	if _, err := r.ReadPacket(); err != nil {
		t.Fatalf("read pat: %v", err)
	}
	if _, err := r.ReadPacket(); err != nil {
		t.Fatalf("read pmt: %v", err)
	}
	got, err := r.ReadPacket()
	if err != nil {
		t.Fatalf("read pes: %v", err)
	}
	if !got.Header.PayloadUnitStartIndicator {
		t.Error("expected PayloadUnitStartIndicator to be set on the wire for a Pes payload")
	}
	if _, ok := got.Payload.(*Pes); !ok {
		t.Fatalf("payload type: got %T, want *Pes", got.Payload)
	}
}

func TestReaderLearnsPmtPidFromPat(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	pmtPid, _ := NewPid(17)
	version, _ := NewVersionNumber(1)
	pat := &Pat{
		VersionNumber: version,
		Entries:       []ProgramAssociation{{ProgramNum: 1, ProgramMapPid: pmtPid}},
	}
	cc0, _ := NewContinuityCounter(0)
	if err := w.WritePacket(&TsPacket{Header: TsHeader{Pid: PatPid, ContinuityCounter: cc0}, Payload: pat}); err != nil {
		t.Fatalf("write pat: %v", err)
	}

	pcrPid, _ := NewPid(258)
	pmt := &Pmt{ProgramNum: 1, PcrPid: &pcrPid, VersionNumber: version}
	cc1, _ := NewContinuityCounter(0)
	if err := w.WritePacket(&TsPacket{Header: TsHeader{Pid: pmtPid, ContinuityCounter: cc1}, Payload: pmt}); err != nil {
		t.Fatalf("write pmt: %v", err)
	}

	r := NewReader(&buf)
	if _, err := r.ReadPacket(); err != nil {
		t.Fatalf("read pat: %v", err)
	}
	pkt, err := r.ReadPacket()
	if err != nil {
		t.Fatalf("read pmt: %v", err)
	}
	if _, ok := pkt.Payload.(*Pmt); !ok {
		t.Fatalf("payload type: got %T, want *Pmt", pkt.Payload)
	}
}

func TestReaderRejectsPayloadOnUnrecognizedPid(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	unknown, _ := NewPid(999)
	cc, _ := NewContinuityCounter(0)
	pkt := &TsPacket{Header: TsHeader{Pid: unknown, ContinuityCounter: cc}, Payload: &Raw{Data: []byte{1, 2, 3}}}
	if err := w.WritePacket(pkt); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}

	r := NewReader(&buf)
	if _, err := r.ReadPacket(); err == nil {
		t.Error("expected error decoding payload on unrecognized pid")
	}
}

func TestReaderRejectsBadSyncByte(t *testing.T) {
	buf := make([]byte, PacketSize)
	buf[0] = 0x00 // not SyncByte
	r := NewReader(bytes.NewReader(buf))
	if _, err := r.ReadPacket(); err == nil {
		t.Error("expected error for bad sync byte")
	}
}

func TestWriterInsertsStuffingAdaptationField(t *testing.T) {
	// Route the short raw payload through a PID the reader has already
	// learned as an elementary stream, so decode can exercise the full
	// round trip rather than just the header bytes.
	pmtPid, _ := NewPid(17)
	esPid, _ := NewPid(1)
	version, _ := NewVersionNumber(1)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	cc0, _ := NewContinuityCounter(0)
	pat := &Pat{VersionNumber: version, Entries: []ProgramAssociation{{ProgramNum: 1, ProgramMapPid: pmtPid}}}
	if err := w.WritePacket(&TsPacket{Header: TsHeader{Pid: PatPid, ContinuityCounter: cc0}, Payload: pat}); err != nil {
		t.Fatalf("write pat: %v", err)
	}
	cc1, _ := NewContinuityCounter(0)
	pmt := &Pmt{ProgramNum: 1, VersionNumber: version, EsInfo: []EsInfo{{StreamType: StreamTypeH264, ElementaryPid: esPid}}}
	if err := w.WritePacket(&TsPacket{Header: TsHeader{Pid: pmtPid, ContinuityCounter: cc1}, Payload: pmt}); err != nil {
		t.Fatalf("write pmt: %v", err)
	}

	cc2, _ := NewContinuityCounter(0)
	pkt := &TsPacket{
		Header:  TsHeader{Pid: esPid, ContinuityCounter: cc2},
		Payload: &Raw{Data: []byte{1, 2, 3}},
	}
	if err := w.WritePacket(pkt); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if buf.Len() != 3*PacketSize {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), 3*PacketSize)
	}

	r := NewReader(&buf)
	if _, err := r.ReadPacket(); err != nil {
		t.Fatalf("read pat: %v", err)
	}
	if _, err := r.ReadPacket(); err != nil {
		t.Fatalf("read pmt: %v", err)
	}
	got, err := r.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if !got.Header.AdaptationFieldControl.HasAdaptationField() {
		t.Error("expected stuffing adaptation field to be inserted")
	}
	raw, ok := got.Payload.(*Raw)
	if !ok || !bytes.Equal(raw.Data, []byte{1, 2, 3}) {
		t.Errorf("payload: got %+v", got.Payload)
	}
}
