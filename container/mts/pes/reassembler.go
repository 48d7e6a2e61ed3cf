/*
NAME
  reassembler.go

DESCRIPTION
  Reassembler accumulates TS packets into complete PES packets, one
  per PID, following the pes_packet_len declared on the opening
  packet when present and the next packet start when it is not.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pes reassembles the TS packets of an MPEG transport stream
// back into whole PES packets.
package pes

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pelagios/mpegts/container/mts"
)

// unboundedLen marks a PES packet whose pes_packet_len was declared as
// 0: its end is signalled by the next packet to start on that PID, not
// by a byte count.
const unboundedLen = -1

// Packet is a fully reassembled PES packet.
type Packet struct {
	Pid    mts.Pid
	Header mts.PesHeader
	Data   []byte
}

type partial struct {
	header  mts.PesHeader
	data    []byte
	dataLen int
}

// Reassembler reads TS packets from an underlying mts.Reader and
// emits complete PES packets as they finish.
type Reassembler struct {
	r       *mts.Reader
	pending map[mts.Pid]*partial
	queued  []*Packet
	eosPids []mts.Pid
	draining bool
}

// NewReassembler returns a Reassembler reading TS packets from r.
func NewReassembler(r *mts.Reader) *Reassembler {
	return &Reassembler{r: r, pending: map[mts.Pid]*partial{}}
}

// ReadPesPacket returns the next complete PES packet. Once the
// underlying stream is exhausted, it drains any PID with a still
// in-flight unbounded PES packet (one emitted per call, in ascending
// PID order — the relative completion order of distinct PIDs at end
// of stream is not otherwise meaningful), then returns io.EOF.
func (a *Reassembler) ReadPesPacket() (*Packet, error) {
	for {
		if len(a.queued) > 0 {
			pkt := a.queued[0]
			a.queued = a.queued[1:]
			return pkt, nil
		}
		if a.draining {
			return a.drainNext()
		}

		tsPkt, err := a.r.ReadPacket()
		if errors.Is(err, io.EOF) {
			a.draining = true
			a.startDrain()
			continue
		}
		if err != nil {
			return nil, err
		}

		pid := tsPkt.Header.Pid
		switch v := tsPkt.Payload.(type) {
		case *mts.Pes:
			out, err := a.handlePesPayload(pid, v)
			if err != nil {
				return nil, err
			}
			if out != nil {
				return out, nil
			}
		case *mts.Raw:
			out, err := a.handleRawPayload(pid, v.Data)
			if err != nil {
				return nil, err
			}
			if out != nil {
				return out, nil
			}
		}
	}
}

// handlePesPayload starts a new in-flight PES packet for pid. If one
// was already in flight for pid, its completion is signalled by this
// new packet starting, the only signal available for an unbounded PES
// packet. A bounded one must have already reached its declared length
// by this point; if it hasn't, the stream is malformed.
func (a *Reassembler) handlePesPayload(pid mts.Pid, pes *mts.Pes) (*Packet, error) {
	var finished *Packet
	if prev, ok := a.pending[pid]; ok {
		if prev.dataLen != unboundedLen && len(prev.data) != prev.dataLen {
			return nil, errors.Wrapf(mts.ErrInvalidInput, "pes packet for pid %s preempted before reaching declared length", pid)
		}
		finished = &Packet{Pid: pid, Header: prev.header, Data: prev.data}
		delete(a.pending, pid)
	}

	dataLen := unboundedLen
	if pes.PacketLen != 0 {
		dataLen = int(pes.PacketLen) - pes.Header.OptionalHeaderLen()
		if dataLen < 0 {
			dataLen = 0
		}
	}
	data := append([]byte(nil), pes.Data...)

	if dataLen != unboundedLen && len(data) >= dataLen {
		complete := &Packet{Pid: pid, Header: pes.Header, Data: data[:dataLen]}
		if finished != nil {
			a.queued = append(a.queued, complete)
		} else {
			finished = complete
		}
		return finished, nil
	}

	a.pending[pid] = &partial{header: pes.Header, data: data, dataLen: dataLen}
	return finished, nil
}

// handleRawPayload appends a payload-unit-start-clear TS packet's
// bytes to the in-flight PES packet for pid. A raw payload on a PID
// with no PES packet in flight is ignored.
func (a *Reassembler) handleRawPayload(pid mts.Pid, data []byte) (*Packet, error) {
	p, ok := a.pending[pid]
	if !ok {
		return nil, nil
	}
	p.data = append(p.data, data...)
	if p.dataLen == unboundedLen || len(p.data) < p.dataLen {
		return nil, nil
	}
	if len(p.data) > p.dataLen {
		return nil, errors.Wrapf(mts.ErrInvalidInput, "pes payload for pid %s overruns declared length", pid)
	}
	delete(a.pending, pid)
	return &Packet{Pid: pid, Header: p.header, Data: p.data}, nil
}

// startDrain records, in ascending order, every PID with an
// in-flight PES packet at end of stream.
func (a *Reassembler) startDrain() {
	pids := make([]mts.Pid, 0, len(a.pending))
	for pid := range a.pending {
		pids = append(pids, pid)
	}
	for i := 1; i < len(pids); i++ {
		for j := i; j > 0 && pids[j-1] > pids[j]; j-- {
			pids[j-1], pids[j] = pids[j], pids[j-1]
		}
	}
	a.eosPids = pids
}

// drainNext emits the next still-pending PES packet at end of stream.
// A bounded packet that never reached its declared length is a
// truncated stream, not a valid unbounded completion, and is rejected
// rather than emitted short.
func (a *Reassembler) drainNext() (*Packet, error) {
	for len(a.eosPids) > 0 {
		pid := a.eosPids[0]
		a.eosPids = a.eosPids[1:]
		p, ok := a.pending[pid]
		if !ok {
			continue
		}
		delete(a.pending, pid)
		if p.dataLen != unboundedLen && len(p.data) != p.dataLen {
			return nil, errors.Wrapf(mts.ErrInvalidInput, "pes packet for pid %s truncated at end of stream", pid)
		}
		return &Packet{Pid: pid, Header: p.header, Data: p.data}, nil
	}
	return nil, io.EOF
}
