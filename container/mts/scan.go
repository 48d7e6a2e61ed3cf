/*
NAME
  scan.go

DESCRIPTION
  ScanForPID repeatedly reads packets from a Reader looking for the
  first packet carrying a given PID.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

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

// ErrPidNotFound is returned by ScanForPID when the stream is
// exhausted without producing a packet for the requested PID.
var ErrPidNotFound = errors.New("mts: pid not found")

// ScanForPID reads packets from r until it finds one whose header PID
// equals pid, returning that packet. It returns ErrPidNotFound once r
// is exhausted, or any other error encountered while reading.
func ScanForPID(r *Reader, pid Pid) (*TsPacket, error) {
	for {
		pkt, err := r.ReadPacket()
		if errors.Is(err, io.EOF) {
			return nil, ErrPidNotFound
		}
		if err != nil {
			return nil, err
		}
		if pkt.Header.Pid == pid {
			return pkt, nil
		}
	}
}
