// Package swp implements a reliable, congestion-controlled byte stream on top
// of an unreliable datagram link. A Sender segments outbound data into
// sequence-numbered packets, keeps them in a bounded window until they are
// cumulatively acknowledged, and adjusts its congestion window with slow
// start, AIMD growth, timeout recovery and optional fast retransmit. A
// Receiver reorders incoming packets and delivers payloads in order.
package swp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Kind is the packet type tag carried in the first header byte.
type Kind byte

const (
	Data Kind = 'D'
	Ack  Kind = 'A'
	Syn  Kind = 'S'
)

const (
	// HeaderSize is the fixed wire header size: kind tag + sequence number.
	HeaderSize = 5

	// MaxPayload leaves plenty of room for IP + UDP + SWP headers in one MTU.
	MaxPayload = 1400
)

var (
	ErrTruncated   = errors.New("packet_truncated")
	ErrUnknownKind = errors.New("packet_unknown_kind")
)

// Packet is one SWP frame. Ack and Syn carry an empty payload, and Syn always
// carries sequence number 0.
type Packet struct {
	Kind Kind
	Seq  uint32
	Data []byte
}

// Marshal serializes the packet to its wire form.
func (p Packet) Marshal() []byte {
	buf := make([]byte, HeaderSize+len(p.Data))
	buf[0] = byte(p.Kind)
	binary.BigEndian.PutUint32(buf[1:HeaderSize], p.Seq)
	copy(buf[HeaderSize:], p.Data)
	return buf
}

// Unmarshal parses a packet from its wire form. It fails when fewer than
// HeaderSize bytes are present or the kind tag is unrecognized; no other
// validation is performed.
func Unmarshal(raw []byte) (Packet, error) {
	if len(raw) < HeaderSize {
		return Packet{}, ErrTruncated
	}
	kind := Kind(raw[0])
	switch kind {
	case Data, Ack, Syn:
	default:
		return Packet{}, ErrUnknownKind
	}
	p := Packet{
		Kind: kind,
		Seq:  binary.BigEndian.Uint32(raw[1:HeaderSize]),
	}
	if len(raw) > HeaderSize {
		p.Data = make([]byte, len(raw)-HeaderSize)
		copy(p.Data, raw[HeaderSize:])
	}
	return p, nil
}

func (p Packet) String() string {
	switch p.Kind {
	case Data:
		return fmt.Sprintf("DATA %d", p.Seq)
	case Ack:
		return fmt.Sprintf("ACK %d", p.Seq)
	case Syn:
		return fmt.Sprintf("SYN %d", p.Seq)
	}
	return fmt.Sprintf("UNKNOWN %d", p.Seq)
}
