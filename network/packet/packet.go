/*
Copyright (C) 2018 Daniel Morandini

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as
published by the Free Software Foundation, either version 3 of the
License, or (at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package packet provides the functionalities for building, encoding
// and decoding the typed messages exchanged between bitsock peers.
package packet

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// ErrMalformed is returned (wrapped) when a frame cannot belong to the
// wire contract: unknown tag, inconsistent body, invalid payload.
var ErrMalformed = errors.New("malformed packet")

// MaxPayloadSize is the maximum accepted length of a variable sized
// frame body. A peer announcing a bigger payload is considered
// malformed instead of trusted with the allocation.
const MaxPayloadSize = 1 << 30

// Packet is one typed message. It carries exactly one value, identified
// by its tag. Build packets with the typed constructors, read them back
// with the typed accessors. The zero value is not a valid packet.
type Packet struct {
	tag Tag

	num  uint64 // fixed width bodies, raw bits
	str  string
	data []byte
	id   uint32 // Custom application identifier
}

// Bool builds a boolean packet.
func Bool(v bool) *Packet {
	var n uint64
	if v {
		n = 1
	}
	return &Packet{tag: TagBool, num: n}
}

// I8 builds a signed 8-bit integer packet.
func I8(v int8) *Packet { return &Packet{tag: TagI8, num: uint64(uint8(v))} }

// I16 builds a signed 16-bit integer packet.
func I16(v int16) *Packet { return &Packet{tag: TagI16, num: uint64(uint16(v))} }

// I32 builds a signed 32-bit integer packet.
func I32(v int32) *Packet { return &Packet{tag: TagI32, num: uint64(uint32(v))} }

// I64 builds a signed 64-bit integer packet.
func I64(v int64) *Packet { return &Packet{tag: TagI64, num: uint64(v)} }

// U8 builds an unsigned 8-bit integer packet.
func U8(v uint8) *Packet { return &Packet{tag: TagU8, num: uint64(v)} }

// U16 builds an unsigned 16-bit integer packet.
func U16(v uint16) *Packet { return &Packet{tag: TagU16, num: uint64(v)} }

// U32 builds an unsigned 32-bit integer packet.
func U32(v uint32) *Packet { return &Packet{tag: TagU32, num: uint64(v)} }

// U64 builds an unsigned 64-bit integer packet.
func U64(v uint64) *Packet { return &Packet{tag: TagU64, num: v} }

// F32 builds a 32-bit floating point packet.
func F32(v float32) *Packet { return &Packet{tag: TagF32, num: uint64(math.Float32bits(v))} }

// F64 builds a 64-bit floating point packet.
func F64(v float64) *Packet { return &Packet{tag: TagF64, num: math.Float64bits(v)} }

// String builds a string packet. s has to be valid UTF-8: the wire
// contract guarantees that string payloads decode on any peer, so the
// check happens here and not in the codec.
func String(s string) (*Packet, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("packet: string is not valid UTF-8: %w", ErrMalformed)
	}

	return &Packet{tag: TagString, str: s}, nil
}

// Bytes builds a raw buffer packet. The buffer is not copied: the
// caller must not modify it after handing it over.
func Bytes(b []byte) *Packet { return &Packet{tag: TagBytes, data: b} }

// Custom builds an application defined packet: an opaque payload tagged
// with a numeric identifier chosen by the application protocol. The
// library never interprets the payload.
func Custom(id uint32, payload []byte) *Packet {
	return &Packet{tag: TagCustom, id: id, data: payload}
}

// Tag returns the packet's discriminant.
func (p *Packet) Tag() Tag { return p.tag }

func (p *Packet) tagErr(want Tag) error {
	return fmt.Errorf("packet: is %v, not %v", p.tag, want)
}

func (p *Packet) Bool() (bool, error) {
	if p.tag != TagBool {
		return false, p.tagErr(TagBool)
	}
	return p.num != 0, nil
}

func (p *Packet) I8() (int8, error) {
	if p.tag != TagI8 {
		return 0, p.tagErr(TagI8)
	}
	return int8(uint8(p.num)), nil
}

func (p *Packet) I16() (int16, error) {
	if p.tag != TagI16 {
		return 0, p.tagErr(TagI16)
	}
	return int16(uint16(p.num)), nil
}

func (p *Packet) I32() (int32, error) {
	if p.tag != TagI32 {
		return 0, p.tagErr(TagI32)
	}
	return int32(uint32(p.num)), nil
}

func (p *Packet) I64() (int64, error) {
	if p.tag != TagI64 {
		return 0, p.tagErr(TagI64)
	}
	return int64(p.num), nil
}

func (p *Packet) U8() (uint8, error) {
	if p.tag != TagU8 {
		return 0, p.tagErr(TagU8)
	}
	return uint8(p.num), nil
}

func (p *Packet) U16() (uint16, error) {
	if p.tag != TagU16 {
		return 0, p.tagErr(TagU16)
	}
	return uint16(p.num), nil
}

func (p *Packet) U32() (uint32, error) {
	if p.tag != TagU32 {
		return 0, p.tagErr(TagU32)
	}
	return uint32(p.num), nil
}

func (p *Packet) U64() (uint64, error) {
	if p.tag != TagU64 {
		return 0, p.tagErr(TagU64)
	}
	return p.num, nil
}

func (p *Packet) F32() (float32, error) {
	if p.tag != TagF32 {
		return 0, p.tagErr(TagF32)
	}
	return math.Float32frombits(uint32(p.num)), nil
}

func (p *Packet) F64() (float64, error) {
	if p.tag != TagF64 {
		return 0, p.tagErr(TagF64)
	}
	return math.Float64frombits(p.num), nil
}

// Text returns the payload of a string packet.
func (p *Packet) Text() (string, error) {
	if p.tag != TagString {
		return "", p.tagErr(TagString)
	}
	return p.str, nil
}

// Data returns the payload of a raw buffer packet.
func (p *Packet) Data() ([]byte, error) {
	if p.tag != TagBytes {
		return nil, p.tagErr(TagBytes)
	}
	return p.data, nil
}

// Custom returns the application identifier and the opaque payload of a
// custom packet.
func (p *Packet) Custom() (uint32, []byte, error) {
	if p.tag != TagCustom {
		return 0, nil, p.tagErr(TagCustom)
	}
	return p.id, p.data, nil
}

// Equal reports wether p and q carry the same tag and the same value.
func (p *Packet) Equal(q *Packet) bool {
	if p == nil || q == nil {
		return p == q
	}

	return p.tag == q.tag &&
		p.num == q.num &&
		p.str == q.str &&
		p.id == q.id &&
		bytes.Equal(p.data, q.data)
}

func (p *Packet) String() string {
	switch p.tag {
	case TagBool:
		return fmt.Sprintf("Bool(%v)", p.num != 0)
	case TagI8:
		return fmt.Sprintf("I8(%d)", int8(uint8(p.num)))
	case TagI16:
		return fmt.Sprintf("I16(%d)", int16(uint16(p.num)))
	case TagI32:
		return fmt.Sprintf("I32(%d)", int32(uint32(p.num)))
	case TagI64:
		return fmt.Sprintf("I64(%d)", int64(p.num))
	case TagU8, TagU16, TagU32, TagU64:
		return fmt.Sprintf("%v(%d)", p.tag, p.num)
	case TagF32:
		return fmt.Sprintf("F32(%g)", math.Float32frombits(uint32(p.num)))
	case TagF64:
		return fmt.Sprintf("F64(%g)", math.Float64frombits(p.num))
	case TagString:
		return fmt.Sprintf("String(%q)", p.str)
	case TagBytes:
		return fmt.Sprintf("Bytes(%d bytes)", len(p.data))
	case TagCustom:
		return fmt.Sprintf("Custom(%d, %d bytes)", p.id, len(p.data))
	default:
		return p.tag.String()
	}
}
