/*
NAME
  types.go

DESCRIPTION
  Validated scalar newtypes shared across the TS/PSI/PES codecs: Pid,
  ContinuityCounter, VersionNumber, TransportScramblingControl, StreamId,
  StreamType, Timestamp and ClockReference.

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

// Package mts provides MPEG-TS (mts) decoding and encoding: the TS packet
// codec, its adaptation field, the scalar value types the wire format is
// built from, and the sequential TS packet reader/writer.
package mts

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Pid is a 13-bit packet identifier routing a TS packet to a program,
// table, or elementary stream.
type Pid uint16

// Reserved PID values.
const (
	PatPid  Pid = 0x0000
	NullPid Pid = 0x1FFF
)

const maxPid = 0x1FFF

// NewPid validates n as a 13-bit PID.
func NewPid(n uint16) (Pid, error) {
	if n > maxPid {
		return 0, errors.Wrapf(ErrInvalidInput, "pid %d exceeds 13 bits", n)
	}
	return Pid(n), nil
}

func (p Pid) Uint16() uint16 { return uint16(p) }

func (p Pid) String() string { return fmt.Sprintf("0x%04x", uint16(p)) }

// ContinuityCounter is a 4-bit counter incremented on every TS packet
// carrying a payload for a given PID, wrapping modulo 16.
type ContinuityCounter uint8

// NewContinuityCounter validates n as a 4-bit counter.
func NewContinuityCounter(n uint8) (ContinuityCounter, error) {
	if n > 0xF {
		return 0, errors.Wrapf(ErrInvalidInput, "continuity counter %d exceeds 4 bits", n)
	}
	return ContinuityCounter(n), nil
}

// Increment advances the counter modulo 16.
func (c ContinuityCounter) Increment() ContinuityCounter {
	return ContinuityCounter((uint8(c) + 1) & 0xF)
}

func (c ContinuityCounter) Uint8() uint8 { return uint8(c) }

// VersionNumber is the 5-bit version field carried by a PSI syntax
// section, bumped whenever the table's content changes.
type VersionNumber uint8

// NewVersionNumber validates n as a 5-bit version.
func NewVersionNumber(n uint8) (VersionNumber, error) {
	if n > 0x1F {
		return 0, errors.Wrapf(ErrInvalidInput, "version number %d exceeds 5 bits", n)
	}
	return VersionNumber(n), nil
}

func (v VersionNumber) Uint8() uint8 { return uint8(v) }

// TransportScramblingControl is the 2-bit scrambling state of a TS
// packet's payload.
type TransportScramblingControl uint8

const (
	NotScrambled TransportScramblingControl = 0b00
	ScrambledEvenKey TransportScramblingControl = 0b10
	ScrambledOddKey  TransportScramblingControl = 0b11
)

// TransportScramblingControlFromUint8 decodes the 2-bit field. 0b01 is
// reserved and rejected.
func TransportScramblingControlFromUint8(n uint8) (TransportScramblingControl, error) {
	switch n {
	case 0b00, 0b10, 0b11:
		return TransportScramblingControl(n), nil
	default:
		return 0, errors.Wrapf(ErrInvalidInput, "reserved scrambling control %#b", n)
	}
}

func (t TransportScramblingControl) Uint8() uint8 { return uint8(t) }

// StreamId is the 8-bit PES stream identifier. Values in 0xC0..=0xDF
// denote an audio stream, 0xE0..=0xEF a video stream; the remaining
// values are reserved stream kinds (padding, private, ECM/EMM, …).
type StreamId uint8

const (
	StreamIdAudioMin StreamId = 0xC0
	StreamIdAudioMax StreamId = 0xDF
	StreamIdVideoMin StreamId = 0xE0
	StreamIdVideoMax StreamId = 0xEF
)

func NewStreamId(n uint8) StreamId { return StreamId(n) }

// NewAudioStreamId builds a StreamId in the audio range from a 5-bit
// stream number (the low bits of 110x xxxx).
func NewAudioStreamId(n uint8) (StreamId, error) {
	if n > 0x1F {
		return 0, errors.Wrapf(ErrInvalidInput, "audio stream number %d exceeds 5 bits", n)
	}
	return StreamId(uint8(StreamIdAudioMin) | n), nil
}

// NewVideoStreamId builds a StreamId in the video range from a 4-bit
// stream number (the low bits of 1110 xxxx).
func NewVideoStreamId(n uint8) (StreamId, error) {
	if n > 0xF {
		return 0, errors.Wrapf(ErrInvalidInput, "video stream number %d exceeds 4 bits", n)
	}
	return StreamId(uint8(StreamIdVideoMin) | n), nil
}

func (s StreamId) IsAudio() bool { return s >= StreamIdAudioMin && s <= StreamIdAudioMax }
func (s StreamId) IsVideo() bool { return s >= StreamIdVideoMin && s <= StreamIdVideoMax }
func (s StreamId) Uint8() uint8  { return uint8(s) }

// StreamType is the 8-bit elementary-stream type carried by a PMT
// ES-info entry, identifying the coding of the referenced PID.
type StreamType uint8

// The closed set of StreamType values this codec recognizes. Values
// outside this set are InvalidInput.
const (
	StreamTypeMpeg1Video                                    StreamType = 0x01
	StreamTypeMpeg2Video                                    StreamType = 0x02
	StreamTypeMpeg1Audio                                    StreamType = 0x03
	StreamTypeMpeg2HalvedSampleRateAudio                     StreamType = 0x04
	StreamTypeMpeg2TabledData                                StreamType = 0x05
	StreamTypeMpeg2PacketizedData                            StreamType = 0x06
	StreamTypeMheg                                           StreamType = 0x07
	StreamTypeDsmCc                                          StreamType = 0x08
	StreamTypeAuxiliaryData09                                StreamType = 0x09
	StreamTypeDsmCcMultiprotocolEncapsulation                StreamType = 0x0A
	StreamTypeDsmCcUnMessages                                StreamType = 0x0B
	StreamTypeDsmCcStreamDescriptors                         StreamType = 0x0C
	StreamTypeDsmCcTabledData                                StreamType = 0x0D
	StreamTypeAuxiliaryData0e                                StreamType = 0x0E
	StreamTypeAdtsAac                                        StreamType = 0x0F
	StreamTypeMpeg4H263BasedVideo                            StreamType = 0x10
	StreamTypeMpeg4LoasMultiFormatFramedAudio                StreamType = 0x11
	StreamTypeMpeg4FlexMux                                   StreamType = 0x12
	StreamTypeMpeg4FlexMuxInTable                            StreamType = 0x13
	StreamTypeDsmCcSynchronizedDownloadProtocol              StreamType = 0x14
	StreamTypePacketizedMetadata                             StreamType = 0x15
	StreamTypeSectionedMetadata                              StreamType = 0x16
	StreamTypeDsmCcDataCarouselMetadata                      StreamType = 0x17
	StreamTypeDsmCcObjectCarouselMetadata                    StreamType = 0x18
	StreamTypeSynchronizedDownloadProtocolMetadata           StreamType = 0x19
	StreamTypeIpmp                                           StreamType = 0x1A
	StreamTypeH264                                           StreamType = 0x1B
	StreamTypeH265                                           StreamType = 0x24
	StreamTypeChineseVideoStandard                           StreamType = 0x42
	StreamTypePcmAudio                                       StreamType = 0x80
	StreamTypeDolbyDigitalUpToSixChannelAudio                StreamType = 0x81
	StreamTypeDts6ChannelAudio                               StreamType = 0x82
	StreamTypeDolbyTrueHdLosslessAudio                       StreamType = 0x83
	StreamTypeDolbyDigitalPlusUpTo16ChannelAudio             StreamType = 0x84
	StreamTypeDts8ChannelAudio                               StreamType = 0x85
	StreamTypeDts8ChannelLosslessAudio                       StreamType = 0x86
	StreamTypeDolbyDigitalPlusUpTo16ChannelAudioForAtsc      StreamType = 0x87
	StreamTypePresentationGraphicStream                      StreamType = 0x90
	StreamTypeAtscDsmCcNetworkResourcesTable                 StreamType = 0x91
	StreamTypeDigiCipher2Text                                StreamType = 0xC0
	StreamTypeDolbyDigitalUpToSixChannelAudioWithAes128Cbc   StreamType = 0xC1
	StreamTypeDolbyDigitalPlusUpToSixChannelAudioWithAes128Cbc StreamType = 0xC2
	StreamTypeAdtsAacWithAes128Cbc                           StreamType = 0xCF
	StreamTypeUltraHdVideo                                   StreamType = 0xD1
	StreamTypeH264WithAes128Cbc                              StreamType = 0xDB
	StreamTypeMicrosoftWindowsMediaVideo9                    StreamType = 0xEA
)

var knownStreamTypes = map[StreamType]bool{
	StreamTypeMpeg1Video: true, StreamTypeMpeg2Video: true, StreamTypeMpeg1Audio: true,
	StreamTypeMpeg2HalvedSampleRateAudio: true, StreamTypeMpeg2TabledData: true,
	StreamTypeMpeg2PacketizedData: true, StreamTypeMheg: true, StreamTypeDsmCc: true,
	StreamTypeAuxiliaryData09: true, StreamTypeDsmCcMultiprotocolEncapsulation: true,
	StreamTypeDsmCcUnMessages: true, StreamTypeDsmCcStreamDescriptors: true,
	StreamTypeDsmCcTabledData: true, StreamTypeAuxiliaryData0e: true, StreamTypeAdtsAac: true,
	StreamTypeMpeg4H263BasedVideo: true, StreamTypeMpeg4LoasMultiFormatFramedAudio: true,
	StreamTypeMpeg4FlexMux: true, StreamTypeMpeg4FlexMuxInTable: true,
	StreamTypeDsmCcSynchronizedDownloadProtocol: true, StreamTypePacketizedMetadata: true,
	StreamTypeSectionedMetadata: true, StreamTypeDsmCcDataCarouselMetadata: true,
	StreamTypeDsmCcObjectCarouselMetadata: true, StreamTypeSynchronizedDownloadProtocolMetadata: true,
	StreamTypeIpmp: true, StreamTypeH264: true, StreamTypeH265: true,
	StreamTypeChineseVideoStandard: true, StreamTypePcmAudio: true,
	StreamTypeDolbyDigitalUpToSixChannelAudio: true, StreamTypeDts6ChannelAudio: true,
	StreamTypeDolbyTrueHdLosslessAudio: true, StreamTypeDolbyDigitalPlusUpTo16ChannelAudio: true,
	StreamTypeDts8ChannelAudio: true, StreamTypeDts8ChannelLosslessAudio: true,
	StreamTypeDolbyDigitalPlusUpTo16ChannelAudioForAtsc: true, StreamTypePresentationGraphicStream: true,
	StreamTypeAtscDsmCcNetworkResourcesTable: true, StreamTypeDigiCipher2Text: true,
	StreamTypeDolbyDigitalUpToSixChannelAudioWithAes128Cbc: true,
	StreamTypeDolbyDigitalPlusUpToSixChannelAudioWithAes128Cbc: true,
	StreamTypeAdtsAacWithAes128Cbc: true, StreamTypeUltraHdVideo: true,
	StreamTypeH264WithAes128Cbc: true, StreamTypeMicrosoftWindowsMediaVideo9: true,
}

// StreamTypeFromUint8 validates n against the closed set of recognized
// stream types.
func StreamTypeFromUint8(n uint8) (StreamType, error) {
	st := StreamType(n)
	if !knownStreamTypes[st] {
		return 0, errors.Wrapf(ErrInvalidInput, "unrecognized stream type %#02x", n)
	}
	return st, nil
}

func (s StreamType) Uint8() uint8 { return uint8(s) }

// Timestamp is a 33-bit presentation/decode timestamp at 90 kHz.
type Timestamp uint64

const maxTimestamp = (1 << 33) - 1

// NewTimestamp validates n as a 33-bit value.
func NewTimestamp(n uint64) (Timestamp, error) {
	if n > maxTimestamp {
		return 0, errors.Wrapf(ErrInvalidInput, "timestamp %d exceeds 33 bits", n)
	}
	return Timestamp(n), nil
}

func (t Timestamp) Uint64() uint64 { return uint64(t) }

// ReadTimestampFrom reads the 40-bit PTS/DTS wire layout: a 4-bit check
// code (expected to equal checkBits), then 3+15+15 bits of value
// separated by three "1" marker bits.
func ReadTimestampFrom(r io.Reader, checkBits uint8) (Timestamp, error) {
	n0, err := readByte(r)
	if err != nil {
		return 0, err
	}
	n1, err := readUint16(r)
	if err != nil {
		return 0, err
	}
	n2, err := readUint16(r)
	if err != nil {
		return 0, err
	}
	if got := n0 >> 4; got != checkBits {
		return 0, errors.Wrapf(ErrInvalidInput, "timestamp check bits %#04b, want %#04b", got, checkBits)
	}
	if err := assertMarker(n0&1 != 0, "timestamp marker 1"); err != nil {
		return 0, err
	}
	if err := assertMarker(n1&1 != 0, "timestamp marker 2"); err != nil {
		return 0, err
	}
	if err := assertMarker(n2&1 != 0, "timestamp marker 3"); err != nil {
		return 0, err
	}
	v := uint64(n0&0x0E)>>1<<30 | uint64(n1>>1)<<15 | uint64(n2>>1)
	return NewTimestamp(v)
}

// WriteTo writes the 40-bit PTS/DTS wire layout with the given 4-bit
// check code.
func (t Timestamp) WriteTo(w io.Writer, checkBits uint8) error {
	v := uint64(t)
	n0 := checkBits<<4 | byte(v>>30&0x7)<<1 | 1
	n1 := uint16(v>>15&0x7FFF)<<1 | 1
	n2 := uint16(v&0x7FFF)<<1 | 1
	if err := writeByte(w, n0); err != nil {
		return err
	}
	if err := writeUint16(w, n1); err != nil {
		return err
	}
	return writeUint16(w, n2)
}

// ClockReference is a 42-bit PCR/OPCR/ESCR value: a 33-bit base (at
// 90 kHz) extended by a 9-bit extension (at 27 MHz), combined as
// base*300 + extension.
type ClockReference uint64

const (
	maxClockReferenceBase      = (1 << 33) - 1
	maxClockReferenceExtension = 299
	MaxClockReference          = maxClockReferenceBase*300 + maxClockReferenceExtension
)

// NewClockReference validates n against the maximum representable
// clock value.
func NewClockReference(n uint64) (ClockReference, error) {
	if n > MaxClockReference {
		return 0, errors.Wrapf(ErrInvalidInput, "clock reference %d exceeds 42-bit range", n)
	}
	return ClockReference(n), nil
}

// ClockReferenceFromParts combines a validated 33-bit base and an
// extension of at most 299 (carried in a 9-bit field).
func ClockReferenceFromParts(base uint64, extension uint16) (ClockReference, error) {
	if base > maxClockReferenceBase {
		return 0, errors.Wrapf(ErrInvalidInput, "clock reference base %d exceeds 33 bits", base)
	}
	if extension > maxClockReferenceExtension {
		return 0, errors.Wrapf(ErrInvalidInput, "clock reference extension %d exceeds 299", extension)
	}
	return ClockReference(base*300 + uint64(extension)), nil
}

func (c ClockReference) Uint64() uint64 { return uint64(c) }

// Base returns the 33-bit 90 kHz component.
func (c ClockReference) Base() uint64 { return uint64(c) / 300 }

// Extension returns the 9-bit 27 MHz component.
func (c ClockReference) Extension() uint16 { return uint16(uint64(c) % 300) }

// ReadPCRFrom reads the 48-bit PCR/OPCR wire layout: a 33-bit base, 6
// reserved bits (ignored on read), and a 9-bit extension.
func ReadPCRFrom(r io.Reader) (ClockReference, error) {
	n, err := readUintN(r, 6)
	if err != nil {
		return 0, err
	}
	base := n >> 15
	extension := uint16(n & 0x1FF)
	return ClockReferenceFromParts(base, extension)
}

// WritePCRTo writes the 48-bit PCR/OPCR wire layout, setting the 6
// reserved bits to all ones.
func (c ClockReference) WritePCRTo(w io.Writer) error {
	n := c.Base()<<15 | 0x3F<<9 | uint64(c.Extension())
	return writeUintN(w, n, 6)
}

// ReadESCRFrom reads the 48-bit ESCR wire layout: 2 reserved bits,
// base[32:30], a marker, base[29:15], a marker, base[14:0], a marker,
// a 9-bit extension, and a final marker.
func ReadESCRFrom(r io.Reader) (ClockReference, error) {
	n, err := readUintN(r, 6)
	if err != nil {
		return 0, err
	}
	if err := assertMarker(n&(1<<42) != 0, "escr marker 1"); err != nil {
		return 0, err
	}
	if err := assertMarker(n&(1<<26) != 0, "escr marker 2"); err != nil {
		return 0, err
	}
	if err := assertMarker(n&(1<<10) != 0, "escr marker 3"); err != nil {
		return 0, err
	}
	if err := assertMarker(n&1 != 0, "escr marker 4"); err != nil {
		return 0, err
	}
	base := (n>>43&0x7)<<30 | (n>>27&0x7FFF)<<15 | (n>>11 & 0x7FFF)
	extension := uint16(n>>1) & 0x1FF
	return ClockReferenceFromParts(base, extension)
}

// WriteESCRTo writes the 48-bit ESCR wire layout.
func (c ClockReference) WriteESCRTo(w io.Writer) error {
	base := c.Base()
	extension := uint64(c.Extension())
	n := uint64(0b11)<<46 |
		(base>>30&0x7)<<43 |
		uint64(1)<<42 |
		(base>>15&0x7FFF)<<27 |
		uint64(1)<<26 |
		(base&0x7FFF)<<11 |
		uint64(1)<<10 |
		extension<<1 |
		1
	return writeUintN(w, n, 6)
}
