/*
NAME
  discontinuity.go

DESCRIPTION
  discontinuity.go provides functionality for detecting discontinuities in
  MPEG-TS and accounting for using the discontinuity indicator in the adaptation
  field.

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

const ccUnset = -1

// DiscontinuityTracker follows the continuity counter sequence of every
// PID it observes and reports when a packet breaks the expected
// sequence, so the caller can set a packet's DiscontinuityIndicator
// before passing it on.
type DiscontinuityTracker struct {
	expCC map[Pid]int
}

// NewDiscontinuityTracker returns a tracker with no PIDs yet observed.
func NewDiscontinuityTracker() *DiscontinuityTracker {
	return &DiscontinuityTracker{expCC: map[Pid]int{}}
}

// Failed decrements the expected continuity counter for pid, to be
// called when a previously-checked packet for that PID failed to send
// and must be resent.
func (dt *DiscontinuityTracker) Failed(pid Pid) {
	if dt.expCC[pid] == ccUnset {
		return
	}
	dt.expCC[pid] = (dt.expCC[pid] - 1) & 0xf
}

// Check reports whether pkt's continuity counter breaks the expected
// sequence for its PID, and records pkt's counter as the new baseline.
// The first packet observed for a PID is never reported discontinuous.
func (dt *DiscontinuityTracker) Check(pkt *TsPacket) bool {
	pid := pkt.Header.Pid
	cc := int(pkt.Header.ContinuityCounter.Uint8())
	expect, ok := dt.ExpectedCC(pid)
	discontinuous := ok && cc != expect
	dt.SetExpectedCC(pid, cc)
	if pkt.Header.AdaptationFieldControl.HasPayload() {
		dt.IncExpectedCC(pid)
	}
	return discontinuous
}

// Repair calls Check and, if pkt is discontinuous, sets its
// DiscontinuityIndicator, creating an adaptation field if pkt does not
// already carry one.
func (dt *DiscontinuityTracker) Repair(pkt *TsPacket) {
	if !dt.Check(pkt) {
		return
	}
	if pkt.AdaptationField == nil {
		pkt.AdaptationField = &AdaptationField{}
	}
	pkt.AdaptationField.DiscontinuityIndicator = true
}

// ExpectedCC returns the continuity counter expected next for pid. The
// second return value is false if pid has not yet been observed.
func (dt *DiscontinuityTracker) ExpectedCC(pid Pid) (int, bool) {
	v, ok := dt.expCC[pid]
	if !ok {
		dt.expCC[pid] = ccUnset
		return 0, false
	}
	return v, v != ccUnset
}

// IncExpectedCC advances the expected continuity counter for pid.
func (dt *DiscontinuityTracker) IncExpectedCC(pid Pid) {
	dt.expCC[pid] = (dt.expCC[pid] + 1) & 0xf
}

// SetExpectedCC forces the expected continuity counter for pid.
func (dt *DiscontinuityTracker) SetExpectedCC(pid Pid, cc int) {
	dt.expCC[pid] = cc
}
