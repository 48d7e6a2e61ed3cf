/*
NAME
  es.go

DESCRIPTION
  Reader assembles elementary stream access units directly from a TS
  packet stream, attaching each access unit's stream id, timestamps,
  and the most recently observed program clock reference.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package es assembles elementary stream access units from an MPEG
// transport stream, layered directly on the TS packet reader rather
// than on a separate PES reassembly stage, so it can track the
// program clock reference in step with each access unit.
package es

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pelagios/mpegts/container/mts"
)

const unboundedLen = -1

// Frame is one reassembled elementary stream access unit.
type Frame struct {
	Pid      mts.Pid
	StreamId mts.StreamId
	PTS      *mts.Timestamp
	DTS      *mts.Timestamp
	PCR      *mts.ClockReference // most recent PCR observed at or before this frame completed
	Data     []byte
}

type partial struct {
	streamId mts.StreamId
	pts      *mts.Timestamp
	dts      *mts.Timestamp
	data     []byte
	dataLen  int
}

// Reader reads TS packets from an underlying mts.Reader and emits
// complete elementary stream Frames as they finish.
type Reader struct {
	r        *mts.Reader
	pending  map[mts.Pid]*partial
	pcr      *mts.ClockReference
	queued   []*Frame
	eosPids  []mts.Pid
	draining bool
}

// NewReader returns a Reader reading TS packets from r.
func NewReader(r *mts.Reader) *Reader {
	return &Reader{r: r, pending: map[mts.Pid]*partial{}}
}

// PCR returns the most recently observed program clock reference, or
// nil if none has been seen yet.
func (e *Reader) PCR() *mts.ClockReference { return e.pcr }

// ReadFrame returns the next complete elementary stream access unit.
// At end of stream it drains any PID with a still in-flight unbounded
// access unit, one per call in ascending PID order, then returns
// io.EOF.
func (e *Reader) ReadFrame() (*Frame, error) {
	for {
		if len(e.queued) > 0 {
			f := e.queued[0]
			e.queued = e.queued[1:]
			return f, nil
		}
		if e.draining {
			return e.drainNext()
		}

		tsPkt, err := e.r.ReadPacket()
		if errors.Is(err, io.EOF) {
			e.draining = true
			e.startDrain()
			continue
		}
		if err != nil {
			return nil, err
		}

		if tsPkt.AdaptationField != nil && tsPkt.AdaptationField.PCR != nil {
			pcr := *tsPkt.AdaptationField.PCR
			e.pcr = &pcr
		}

		pid := tsPkt.Header.Pid
		switch v := tsPkt.Payload.(type) {
		case *mts.Pes:
			out, err := e.handlePesPayload(pid, v)
			if err != nil {
				return nil, err
			}
			if out != nil {
				return out, nil
			}
		case *mts.Raw:
			out, err := e.handleRawPayload(pid, v.Data)
			if err != nil {
				return nil, err
			}
			if out != nil {
				return out, nil
			}
		}
	}
}

func (e *Reader) frameFrom(pid mts.Pid, p *partial) *Frame {
	return &Frame{
		Pid:      pid,
		StreamId: p.streamId,
		PTS:      p.pts,
		DTS:      p.dts,
		PCR:      e.pcr,
		Data:     p.data,
	}
}

// handlePesPayload starts a new in-flight access unit for pid. If one
// was already in flight for pid, its completion is signalled by this
// new packet starting, the only signal available for an unbounded
// access unit. A bounded one must have already reached its declared
// length by this point; if it hasn't, the stream is malformed.
func (e *Reader) handlePesPayload(pid mts.Pid, pes *mts.Pes) (*Frame, error) {
	var finished *Frame
	if prev, ok := e.pending[pid]; ok {
		if prev.dataLen != unboundedLen && len(prev.data) != prev.dataLen {
			return nil, errors.Wrapf(mts.ErrInvalidInput, "es frame for pid %s preempted before reaching declared length", pid)
		}
		finished = e.frameFrom(pid, prev)
		delete(e.pending, pid)
	}

	dataLen := unboundedLen
	if pes.PacketLen != 0 {
		dataLen = int(pes.PacketLen) - pes.Header.OptionalHeaderLen()
		if dataLen < 0 {
			dataLen = 0
		}
	}
	data := append([]byte(nil), pes.Data...)
	p := &partial{
		streamId: pes.Header.StreamId,
		pts:      pes.Header.PTS,
		dts:      pes.Header.DTS,
		data:     data,
		dataLen:  dataLen,
	}

	if dataLen != unboundedLen && len(data) >= dataLen {
		p.data = data[:dataLen]
		complete := e.frameFrom(pid, p)
		if finished != nil {
			e.queued = append(e.queued, complete)
		} else {
			finished = complete
		}
		return finished, nil
	}

	e.pending[pid] = p
	return finished, nil
}

func (e *Reader) handleRawPayload(pid mts.Pid, data []byte) (*Frame, error) {
	p, ok := e.pending[pid]
	if !ok {
		return nil, nil
	}
	p.data = append(p.data, data...)
	if p.dataLen == unboundedLen || len(p.data) < p.dataLen {
		return nil, nil
	}
	if len(p.data) > p.dataLen {
		return nil, errors.Wrapf(mts.ErrInvalidInput, "es frame for pid %s overruns declared length", pid)
	}
	delete(e.pending, pid)
	return e.frameFrom(pid, p), nil
}

func (e *Reader) startDrain() {
	pids := make([]mts.Pid, 0, len(e.pending))
	for pid := range e.pending {
		pids = append(pids, pid)
	}
	for i := 1; i < len(pids); i++ {
		for j := i; j > 0 && pids[j-1] > pids[j]; j-- {
			pids[j-1], pids[j] = pids[j], pids[j-1]
		}
	}
	e.eosPids = pids
}

// drainNext emits the next still-pending access unit at end of stream.
// A bounded access unit that never reached its declared length is a
// truncated stream, not a valid unbounded completion, and is rejected
// rather than emitted short.
func (e *Reader) drainNext() (*Frame, error) {
	for len(e.eosPids) > 0 {
		pid := e.eosPids[0]
		e.eosPids = e.eosPids[1:]
		p, ok := e.pending[pid]
		if !ok {
			continue
		}
		delete(e.pending, pid)
		if p.dataLen != unboundedLen && len(p.data) != p.dataLen {
			return nil, errors.Wrapf(mts.ErrInvalidInput, "es frame for pid %s truncated at end of stream", pid)
		}
		return e.frameFrom(pid, p), nil
	}
	return nil, io.EOF
}
