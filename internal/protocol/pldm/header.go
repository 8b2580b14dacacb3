package pldm

import (
	"errors"
	"fmt"
)

// HeaderSize is the size of the PLDM message header in bytes.
const HeaderSize = 3

var (
	ErrShortMessage       = errors.New("pldm: message shorter than header")
	ErrUnsupportedVersion = errors.New("pldm: unsupported header version")
)

// Header is the decoded 3-byte PLDM message header.
//
// Wire layout:
//
//	byte 0: Rq (bit 7) | D (bit 6) | reserved (bit 5) | instance id (bits 4:0)
//	byte 1: header version (bits 7:6) | PLDM type (bits 5:0)
//	byte 2: command code
type Header struct {
	Request    bool
	Datagram   bool
	InstanceID uint8
	Version    uint8
	Type       uint8
	Command    uint8
}

// DecodeHeader parses the header at the start of msg.
func DecodeHeader(msg []byte) (Header, error) {
	if len(msg) < HeaderSize {
		return Header{}, fmt.Errorf("%w: got %d bytes", ErrShortMessage, len(msg))
	}

	h := Header{
		Request:    msg[0]&0x80 != 0,
		Datagram:   msg[0]&0x40 != 0,
		InstanceID: msg[0] & MaxInstanceID,
		Version:    msg[1] >> 6,
		Type:       msg[1] & 0x3F,
		Command:    msg[2],
	}

	if h.Version != HeaderVersion {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}

	return h, nil
}

// Encode packs the header into its 3-byte wire form.
func (h Header) Encode() []byte {
	b := make([]byte, HeaderSize)
	h.put(b)
	return b
}

func (h Header) put(b []byte) {
	b[0] = h.InstanceID & MaxInstanceID
	if h.Request {
		b[0] |= 0x80
	}
	if h.Datagram {
		b[0] |= 0x40
	}
	b[1] = (h.Version&0x03)<<6 | h.Type&0x3F
	b[2] = h.Command
}

// ResponseHeader derives the header of the response to h: same instance,
// type and command with the request bit cleared.
func (h Header) ResponseHeader() Header {
	return Header{
		InstanceID: h.InstanceID,
		Version:    HeaderVersion,
		Type:       h.Type,
		Command:    h.Command,
	}
}
