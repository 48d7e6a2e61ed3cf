/*
NAME
  reader.go

DESCRIPTION
  Sequential TS packet reader: tracks which PID carries the PAT, which
  PIDs carry PMTs, and which PIDs carry elementary streams, dispatching
  each packet's payload to the right codec as that knowledge accumulates.

AUTHOR
  Saxon Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

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

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

type pidRole int

const (
	roleUnknown pidRole = iota
	rolePmt
	rolePes
)

// Reader decodes a sequential byte stream of 188-byte TS packets,
// learning PMT and elementary stream PIDs from the PAT and PMTs it
// encounters as it goes.
type Reader struct {
	stream io.Reader
	logger logging.Logger
	roles  map[Pid]pidRole
}

// NewReader returns a Reader over stream, configured by opts.
func NewReader(stream io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		stream: stream,
		logger: noopLogger{},
		roles:  map[Pid]pidRole{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadPacket reads and decodes the next 188-byte TS packet.
func (r *Reader) ReadPacket() (*TsPacket, error) {
	buf := make([]byte, PacketSize)
	if err := readFull(r.stream, buf); err != nil {
		return nil, err
	}
	pr := newBoundedReader(&sliceReader{buf: buf}, PacketSize)

	header, err := readTsHeaderFrom(pr)
	if err != nil {
		return nil, err
	}

	if header.Pid == NullPid {
		if pr.remaining() > 0 {
			if err := consumeStuffing(pr); err != nil {
				return nil, errors.Wrap(err, "null packet padding")
			}
		}
		return &TsPacket{Header: header, Payload: &Null{}}, nil
	}

	var af *AdaptationField
	if header.AdaptationFieldControl.HasAdaptationField() {
		af, err = ReadAdaptationFieldFrom(pr)
		if err != nil {
			return nil, errors.Wrap(err, "adaptation field")
		}
	}

	if !header.AdaptationFieldControl.HasPayload() {
		return &TsPacket{Header: header, AdaptationField: af}, nil
	}

	payload, err := r.readPayload(header, pr)
	if err != nil {
		return nil, err
	}

	return &TsPacket{Header: header, AdaptationField: af, Payload: payload}, nil
}

func (r *Reader) readPayload(header TsHeader, pr *boundedReader) (TsPayload, error) {
	switch {
	case header.Pid == PatPid:
		pat, err := ReadPatFrom(pr)
		if err != nil {
			return nil, errors.Wrap(err, "pat")
		}
		for _, e := range pat.Entries {
			r.roles[e.ProgramMapPid] = rolePmt
		}
		r.logger.Debug("decoded pat", "pid", header.Pid.String(), "entries", len(pat.Entries))
		return pat, nil

	case r.roles[header.Pid] == rolePmt:
		pmt, err := ReadPmtFrom(pr)
		if err != nil {
			return nil, errors.Wrap(err, "pmt")
		}
		for _, es := range pmt.EsInfo {
			r.roles[es.ElementaryPid] = rolePes
		}
		r.logger.Debug("decoded pmt", "pid", header.Pid.String(), "streams", len(pmt.EsInfo))
		return pmt, nil

	case r.roles[header.Pid] == rolePes:
		if header.PayloadUnitStartIndicator {
			pesHeader, packetLen, err := ReadPesHeaderFrom(pr)
			if err != nil {
				return nil, errors.Wrap(err, "pes header")
			}
			data := make([]byte, pr.remaining())
			if err := readFull(pr, data); err != nil {
				return nil, errors.Wrap(err, "pes data")
			}
			return &Pes{Header: *pesHeader, PacketLen: packetLen, Data: data}, nil
		}
		data := make([]byte, pr.remaining())
		if err := readFull(pr, data); err != nil {
			return nil, errors.Wrap(err, "pes continuation")
		}
		return &Raw{Data: data}, nil

	default:
		return nil, errors.Wrapf(ErrInvalidInput, "payload on unrecognized pid %s", header.Pid)
	}
}

// sliceReader adapts a byte slice to io.Reader, consumed once.
type sliceReader struct {
	buf []byte
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if len(s.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...interface{})   {}
func (noopLogger) Info(msg string, args ...interface{})    {}
func (noopLogger) Warning(msg string, args ...interface{}) {}
func (noopLogger) Error(msg string, args ...interface{})   {}
func (noopLogger) Fatal(msg string, args ...interface{})   {}
func (noopLogger) SetLevel(l int8)                         {}
