/*
LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pes

import (
	"bytes"
	"io"
	"testing"

	"github.com/pelagios/mpegts/container/mts"
)

func mustPid(t *testing.T, n uint16) mts.Pid {
	t.Helper()
	p, err := mts.NewPid(n)
	if err != nil {
		t.Fatalf("NewPid(%d): %v", n, err)
	}
	return p
}

func writeProgramTables(t *testing.T, w *mts.Writer, audioPid, videoPid mts.Pid) {
	t.Helper()
	pmtPid := mustPid(t, 17)
	version, _ := mts.NewVersionNumber(1)
	cc0, _ := mts.NewContinuityCounter(0)
	pat := &mts.Pat{VersionNumber: version, Entries: []mts.ProgramAssociation{{ProgramNum: 1, ProgramMapPid: pmtPid}}}
	if err := w.WritePacket(&mts.TsPacket{Header: mts.TsHeader{Pid: mts.PatPid, ContinuityCounter: cc0}, Payload: pat}); err != nil {
		t.Fatalf("write pat: %v", err)
	}
	cc1, _ := mts.NewContinuityCounter(0)
	pmt := &mts.Pmt{
		ProgramNum:    1,
		VersionNumber: version,
		EsInfo: []mts.EsInfo{
			{StreamType: mts.StreamTypeAdtsAac, ElementaryPid: audioPid},
			{StreamType: mts.StreamTypeH264, ElementaryPid: videoPid},
		},
	}
	if err := w.WritePacket(&mts.TsPacket{Header: mts.TsHeader{Pid: pmtPid, ContinuityCounter: cc1}, Payload: pmt}); err != nil {
		t.Fatalf("write pmt: %v", err)
	}
}

func TestReassemblerBoundedPacketCompletesImmediately(t *testing.T) {
	audioPid := mustPid(t, 256)
	videoPid := mustPid(t, 257)

	var buf bytes.Buffer
	w := mts.NewWriter(&buf)
	writeProgramTables(t, w, audioPid, videoPid)

	pts, _ := mts.NewTimestamp(1000)
	sid, _ := mts.NewAudioStreamId(0)
	header := mts.PesHeader{StreamId: sid, PTS: &pts}
	data := []byte{1, 2, 3, 4, 5}
	packetLen := uint16(header.OptionalHeaderLen() + len(data))
	cc, _ := mts.NewContinuityCounter(0)
	pkt := &mts.TsPacket{
		Header: mts.TsHeader{Pid: audioPid, PayloadUnitStartIndicator: true, ContinuityCounter: cc},
		Payload: &mts.Pes{Header: header, PacketLen: packetLen, Data: data},
	}
	if err := w.WritePacket(pkt); err != nil {
		t.Fatalf("write pes: %v", err)
	}

	a := NewReassembler(mts.NewReader(&buf))
	got, err := a.ReadPesPacket()
	if err != nil {
		t.Fatalf("ReadPesPacket: %v", err)
	}
	if got.Pid != audioPid || !bytes.Equal(got.Data, data) {
		t.Errorf("got %+v", got)
	}

	if _, err := a.ReadPesPacket(); err != io.EOF {
		t.Errorf("got %v, want io.EOF", err)
	}
}

func TestReassemblerUnboundedCompletesAtEOS(t *testing.T) {
	audioPid := mustPid(t, 256)
	videoPid := mustPid(t, 257)

	var buf bytes.Buffer
	w := mts.NewWriter(&buf)
	writeProgramTables(t, w, audioPid, videoPid)

	sid, _ := mts.NewVideoStreamId(0)
	header := mts.PesHeader{StreamId: sid}
	cc0, _ := mts.NewContinuityCounter(0)
	if err := w.WritePacket(&mts.TsPacket{
		Header:  mts.TsHeader{Pid: videoPid, PayloadUnitStartIndicator: true, ContinuityCounter: cc0},
		Payload: &mts.Pes{Header: header, PacketLen: 0, Data: []byte{10, 11, 12}},
	}); err != nil {
		t.Fatalf("write pes start: %v", err)
	}
	cc1, _ := mts.NewContinuityCounter(1)
	if err := w.WritePacket(&mts.TsPacket{
		Header:  mts.TsHeader{Pid: videoPid, ContinuityCounter: cc1},
		Payload: &mts.Raw{Data: []byte{13, 14}},
	}); err != nil {
		t.Fatalf("write continuation: %v", err)
	}

	a := NewReassembler(mts.NewReader(&buf))
	got, err := a.ReadPesPacket()
	if err != nil {
		t.Fatalf("ReadPesPacket: %v", err)
	}
	want := []byte{10, 11, 12, 13, 14}
	if got.Pid != videoPid || !bytes.Equal(got.Data, want) {
		t.Errorf("got %+v, want data %v", got, want)
	}

	if _, err := a.ReadPesPacket(); err != io.EOF {
		t.Errorf("got %v, want io.EOF", err)
	}
}

func TestReassemblerOverrunIsError(t *testing.T) {
	audioPid := mustPid(t, 256)
	videoPid := mustPid(t, 257)

	var buf bytes.Buffer
	w := mts.NewWriter(&buf)
	writeProgramTables(t, w, audioPid, videoPid)

	sid, _ := mts.NewAudioStreamId(0)
	pts, _ := mts.NewTimestamp(1)
	header := mts.PesHeader{StreamId: sid, PTS: &pts}
	packetLen := uint16(header.OptionalHeaderLen() + 3) // declares only 3 bytes of data
	cc0, _ := mts.NewContinuityCounter(0)
	if err := w.WritePacket(&mts.TsPacket{
		Header:  mts.TsHeader{Pid: audioPid, PayloadUnitStartIndicator: true, ContinuityCounter: cc0},
		Payload: &mts.Pes{Header: header, PacketLen: packetLen, Data: []byte{1}},
	}); err != nil {
		t.Fatalf("write pes start: %v", err)
	}
	cc1, _ := mts.NewContinuityCounter(1)
	if err := w.WritePacket(&mts.TsPacket{
		Header:  mts.TsHeader{Pid: audioPid, ContinuityCounter: cc1},
		Payload: &mts.Raw{Data: []byte{2, 3, 4, 5, 6}},
	}); err != nil {
		t.Fatalf("write continuation: %v", err)
	}

	a := NewReassembler(mts.NewReader(&buf))
	if _, err := a.ReadPesPacket(); err == nil {
		t.Error("expected overrun error")
	}
}

func TestReassemblerPreemptedBoundedPacketIsError(t *testing.T) {
	audioPid := mustPid(t, 256)
	videoPid := mustPid(t, 257)

	var buf bytes.Buffer
	w := mts.NewWriter(&buf)
	writeProgramTables(t, w, audioPid, videoPid)

	sid, _ := mts.NewAudioStreamId(0)
	pts, _ := mts.NewTimestamp(1)
	header := mts.PesHeader{StreamId: sid, PTS: &pts}
	packetLen := uint16(header.OptionalHeaderLen() + 5) // declares 5 bytes, only 1 arrives
	cc0, _ := mts.NewContinuityCounter(0)
	if err := w.WritePacket(&mts.TsPacket{
		Header:  mts.TsHeader{Pid: audioPid, PayloadUnitStartIndicator: true, ContinuityCounter: cc0},
		Payload: &mts.Pes{Header: header, PacketLen: packetLen, Data: []byte{1}},
	}); err != nil {
		t.Fatalf("write pes start: %v", err)
	}
	cc1, _ := mts.NewContinuityCounter(1)
	if err := w.WritePacket(&mts.TsPacket{
		Header:  mts.TsHeader{Pid: audioPid, PayloadUnitStartIndicator: true, ContinuityCounter: cc1},
		Payload: &mts.Pes{Header: header, PacketLen: packetLen, Data: []byte{2}},
	}); err != nil {
		t.Fatalf("write pes restart: %v", err)
	}

	a := NewReassembler(mts.NewReader(&buf))
	if _, err := a.ReadPesPacket(); err == nil {
		t.Error("expected error preempting a bounded packet before it reached its declared length")
	}
}

func TestReassemblerTruncatedAtEOSIsError(t *testing.T) {
	audioPid := mustPid(t, 256)
	videoPid := mustPid(t, 257)

	var buf bytes.Buffer
	w := mts.NewWriter(&buf)
	writeProgramTables(t, w, audioPid, videoPid)

	sid, _ := mts.NewAudioStreamId(0)
	pts, _ := mts.NewTimestamp(1)
	header := mts.PesHeader{StreamId: sid, PTS: &pts}
	packetLen := uint16(header.OptionalHeaderLen() + 5) // declares 5 bytes, only 1 ever arrives
	cc0, _ := mts.NewContinuityCounter(0)
	if err := w.WritePacket(&mts.TsPacket{
		Header:  mts.TsHeader{Pid: audioPid, PayloadUnitStartIndicator: true, ContinuityCounter: cc0},
		Payload: &mts.Pes{Header: header, PacketLen: packetLen, Data: []byte{1}},
	}); err != nil {
		t.Fatalf("write pes start: %v", err)
	}

	a := NewReassembler(mts.NewReader(&buf))
	if _, err := a.ReadPesPacket(); err == nil {
		t.Error("expected error draining a bounded packet that never reached its declared length")
	}
}

func TestReassemblerDrainsMultiplePidsInAscendingOrder(t *testing.T) {
	audioPid := mustPid(t, 256)
	videoPid := mustPid(t, 257)

	var buf bytes.Buffer
	w := mts.NewWriter(&buf)
	writeProgramTables(t, w, audioPid, videoPid)

	vsid, _ := mts.NewVideoStreamId(0)
	cc0, _ := mts.NewContinuityCounter(0)
	if err := w.WritePacket(&mts.TsPacket{
		Header:  mts.TsHeader{Pid: videoPid, PayloadUnitStartIndicator: true, ContinuityCounter: cc0},
		Payload: &mts.Pes{Header: mts.PesHeader{StreamId: vsid}, PacketLen: 0, Data: []byte{1}},
	}); err != nil {
		t.Fatalf("write video pes: %v", err)
	}
	asid, _ := mts.NewAudioStreamId(0)
	cc1, _ := mts.NewContinuityCounter(0)
	if err := w.WritePacket(&mts.TsPacket{
		Header:  mts.TsHeader{Pid: audioPid, PayloadUnitStartIndicator: true, ContinuityCounter: cc1},
		Payload: &mts.Pes{Header: mts.PesHeader{StreamId: asid}, PacketLen: 0, Data: []byte{2}},
	}); err != nil {
		t.Fatalf("write audio pes: %v", err)
	}

	a := NewReassembler(mts.NewReader(&buf))
	first, err := a.ReadPesPacket()
	if err != nil {
		t.Fatalf("first ReadPesPacket: %v", err)
	}
	second, err := a.ReadPesPacket()
	if err != nil {
		t.Fatalf("second ReadPesPacket: %v", err)
	}
	if first.Pid != audioPid || second.Pid != videoPid {
		t.Errorf("drain order: got %v then %v, want %v then %v", first.Pid, second.Pid, audioPid, videoPid)
	}
}
