/*
DESCRIPTIONS
  helpers.go provides general codec related helper functions.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pes

import (
	"errors"

	"github.com/pelagios/mpegts/container/mts"
)

// ErrUnknownStreamType is returned by MIMEType for a StreamType this
// package does not map to a MIME type.
var ErrUnknownStreamType = errors.New("pes: unknown stream type")

// MIMEType returns the MIME type carried by an elementary stream of
// the given coding, as per ITU-T Rec. H.222.0 / ISO/IEC 13818-1 tables
// 2-22 and 2-34.
func MIMEType(st mts.StreamType) (string, error) {
	switch st {
	case mts.StreamTypeH264:
		return "video/h264", nil
	case mts.StreamTypeH265:
		return "video/h265", nil
	case mts.StreamTypeMpeg1Video, mts.StreamTypeMpeg2Video:
		return "video/mpeg", nil
	case mts.StreamTypeAdtsAac:
		return "audio/aac", nil
	case mts.StreamTypePcmAudio:
		return "audio/pcm", nil
	case mts.StreamTypeMpeg1Audio:
		return "audio/mpeg", nil
	case mts.StreamTypeDts6ChannelAudio, mts.StreamTypeDts8ChannelAudio, mts.StreamTypeDts8ChannelLosslessAudio:
		return "audio/vnd.dts", nil
	case mts.StreamTypeDolbyDigitalUpToSixChannelAudio, mts.StreamTypeDolbyDigitalPlusUpTo16ChannelAudio,
		mts.StreamTypeDolbyDigitalPlusUpTo16ChannelAudioForAtsc:
		return "audio/ac3", nil
	case mts.StreamTypeDolbyTrueHdLosslessAudio:
		return "audio/vnd.dolby.mlp", nil
	default:
		return "", ErrUnknownStreamType
	}
}
