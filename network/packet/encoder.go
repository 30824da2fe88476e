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

package packet

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Marshal encodes p into exactly one frame. It is total: every packet
// built with a constructor marshals, and distinct packets marshal to
// distinct frames. Multi byte values are big endian.
func Marshal(p *Packet) []byte {
	switch p.tag {
	case TagString:
		return marshalVar(p.tag, []byte(p.str))
	case TagBytes:
		return marshalVar(p.tag, p.data)
	case TagCustom:
		buf := make([]byte, 1+4+4+len(p.data))
		buf[0] = byte(p.tag)
		binary.BigEndian.PutUint32(buf[1:5], p.id)
		binary.BigEndian.PutUint32(buf[5:9], uint32(len(p.data)))
		copy(buf[9:], p.data)
		return buf
	}

	n := p.tag.bodySize()
	buf := make([]byte, 1+n)
	buf[0] = byte(p.tag)
	for i := 0; i < n; i++ {
		buf[1+i] = byte(p.num >> uint(8*(n-1-i)))
	}

	return buf
}

func marshalVar(t Tag, payload []byte) []byte {
	buf := make([]byte, 1+4+len(payload))
	buf[0] = byte(t)
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)

	return buf
}

// Encoder writes packets to an underlying writer, one frame each.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	e := new(Encoder)
	e.w = w

	return e
}

// Encode writes p's frame to the underlying writer with a single Write
// call, so that concurrent encoders on the same writer never interleave
// partial frames.
func (e *Encoder) Encode(p *Packet) error {
	if !validTag(p.tag) {
		return fmt.Errorf("packet: encode: %v: %w", p.tag, ErrMalformed)
	}
	if len(p.str) > MaxPayloadSize || len(p.data) > MaxPayloadSize {
		return fmt.Errorf("packet: encode: payload too big: %w", ErrMalformed)
	}

	if _, err := e.w.Write(Marshal(p)); err != nil {
		return fmt.Errorf("packet: unable to write frame: %w", err)
	}

	return nil
}
