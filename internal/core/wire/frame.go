// Package wire implements the on-wire frame codec and the round-policy
// message router described in §4.1. Encoding/decoding are pure functions;
// all I/O (fragment reassembly, compression, sends) is the transport's job.
package wire

import (
	"encoding/binary"
	"errors"

	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// ErrShortFrame is returned when a byte slice is too small to hold a
// declared header.
var ErrShortFrame = errors.New("wire: frame too short")

// Header is the decoded, offset-exact frame prefix from §6.
type Header struct {
	Flags        interfaces.FrameFlags
	FragmentID   uint16
	FragmentsNum uint16
	ID           uint64
	Sender       types.PublicKey
	Addressee    *types.PublicKey
}

// EncodeHeader writes the header at the bit-exact offsets specified in §6:
// non-fragmented frames place id/sender/addressee starting at offset 1;
// fragmented frames insert fragment_id/fragments_num first, shifting the
// remaining fields by 4 bytes.
func EncodeHeader(h Header) []byte {
	unicast := h.Addressee != nil
	fragmented := h.Flags&interfaces.FlagFragmented != 0

	size := 1 + 8 + types.PublicKeySize
	if fragmented {
		size += 4
	}
	if unicast {
		size += types.PublicKeySize
	}

	buf := make([]byte, size)
	buf[0] = byte(h.Flags)
	off := 1
	if fragmented {
		binary.BigEndian.PutUint16(buf[off:], h.FragmentID)
		binary.BigEndian.PutUint16(buf[off+2:], h.FragmentsNum)
		off += 4
	}
	binary.BigEndian.PutUint64(buf[off:], h.ID)
	off += 8
	copy(buf[off:], h.Sender[:])
	off += types.PublicKeySize
	if unicast {
		copy(buf[off:], h.Addressee[:])
	}
	return buf
}

// DecodeHeader is the inverse of EncodeHeader; unicast indicates whether an
// addressee field is present (carried out-of-band via the Broadcast flag by
// convention: FlagBroadcast unset implies a unicast frame).
func DecodeHeader(buf []byte) (Header, int, error) {
	if len(buf) < 1 {
		return Header{}, 0, ErrShortFrame
	}
	var h Header
	h.Flags = interfaces.FrameFlags(buf[0])
	off := 1
	fragmented := h.Flags&interfaces.FlagFragmented != 0
	unicast := h.Flags&interfaces.FlagBroadcast == 0

	need := off + 8 + types.PublicKeySize
	if fragmented {
		need += 4
	}
	if unicast {
		need += types.PublicKeySize
	}
	if len(buf) < need {
		return Header{}, 0, ErrShortFrame
	}

	if fragmented {
		h.FragmentID = binary.BigEndian.Uint16(buf[off:])
		h.FragmentsNum = binary.BigEndian.Uint16(buf[off+2:])
		off += 4
	}
	h.ID = binary.BigEndian.Uint64(buf[off:])
	off += 8
	copy(h.Sender[:], buf[off:off+types.PublicKeySize])
	off += types.PublicKeySize
	if unicast {
		var addr types.PublicKey
		copy(addr[:], buf[off:off+types.PublicKeySize])
		h.Addressee = &addr
		off += types.PublicKeySize
	}
	return h, off, nil
}

// EncodeEnvelope appends the kind/round fields that follow the header, then
// the payload, matching "Following the headers: kind (u8), round (u64),
// then kind-specific payload."
func EncodeEnvelope(h Header, kind interfaces.MessageKind, round types.RoundNumber, payload []byte) []byte {
	head := EncodeHeader(h)
	out := make([]byte, len(head)+1+8+len(payload))
	n := copy(out, head)
	out[n] = byte(kind)
	n++
	binary.BigEndian.PutUint64(out[n:], uint64(round))
	n += 8
	copy(out[n:], payload)
	return out
}

// DecodeEnvelope decodes a full frame previously produced by EncodeEnvelope.
func DecodeEnvelope(buf []byte) (interfaces.Frame, error) {
	frame, _, _, err := DecodeEnvelopeFragment(buf)
	return frame, err
}

// DecodeEnvelopeFragment is DecodeEnvelope plus the raw fragment position
// from the header, letting the transport reassemble a multi-fragment
// message before handing a complete Frame to the router. fragmentsNum is 0
// for a non-fragmented frame.
func DecodeEnvelopeFragment(buf []byte) (frame interfaces.Frame, fragmentID, fragmentsNum uint16, err error) {
	h, off, err := DecodeHeader(buf)
	if err != nil {
		return interfaces.Frame{}, 0, 0, err
	}
	if len(buf) < off+1+8 {
		return interfaces.Frame{}, 0, 0, ErrShortFrame
	}
	kind := interfaces.MessageKind(buf[off])
	off++
	round := types.RoundNumber(binary.BigEndian.Uint64(buf[off:]))
	off += 8
	payload := buf[off:]

	frame = interfaces.Frame{
		Flags:     h.Flags,
		ID:        h.ID,
		Sender:    h.Sender,
		Addressee: h.Addressee,
		Kind:      kind,
		Round:     round,
		Payload:   payload,
	}
	return frame, h.FragmentID, h.FragmentsNum, nil
}
