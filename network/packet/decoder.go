package packet

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// Decoder reads packets from an underlying reader. It consumes exactly
// the bytes belonging to the frame it returns, leaving the reader
// positioned at the start of the next frame, and never reads ahead.
type Decoder struct {
	r io.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	d := new(Decoder)
	d.r = r

	return d
}

// Decode reads one frame and fills p with it.
//
// When the reader is exhausted before any byte of a new frame was read,
// Decode returns io.EOF: the peer closed cleanly between frames. When
// the reader runs out mid frame the error wraps io.ErrUnexpectedEOF,
// and a frame that cannot belong to the tag table wraps ErrMalformed.
func (d *Decoder) Decode(p *Packet) error {
	var tb [1]byte
	if _, err := io.ReadFull(d.r, tb[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("packet: unable to read tag: %w", err)
	}

	t := Tag(tb[0])
	if !validTag(t) {
		return fmt.Errorf("packet: unknown tag 0x%02x: %w", tb[0], ErrMalformed)
	}

	switch t {
	case TagString, TagBytes:
		payload, err := d.readPayload()
		if err != nil {
			return err
		}

		if t == TagString {
			if !utf8.Valid(payload) {
				return fmt.Errorf("packet: string payload is not valid UTF-8: %w", ErrMalformed)
			}
			*p = Packet{tag: t, str: string(payload)}
			return nil
		}

		*p = Packet{tag: t, data: payload}
		return nil

	case TagCustom:
		var ib [4]byte
		if err := d.readFull(ib[:], "custom id"); err != nil {
			return err
		}

		payload, err := d.readPayload()
		if err != nil {
			return err
		}

		*p = Packet{tag: t, id: binary.BigEndian.Uint32(ib[:]), data: payload}
		return nil
	}

	// fixed width body
	n := t.bodySize()
	var bb [8]byte
	if err := d.readFull(bb[:n], "body"); err != nil {
		return err
	}

	if t == TagBool && bb[0] > 1 {
		return fmt.Errorf("packet: bool body must be 0 or 1, found %v: %w", bb[0], ErrMalformed)
	}

	var num uint64
	for i := 0; i < n; i++ {
		num = num<<8 | uint64(bb[i])
	}

	*p = Packet{tag: t, num: num}
	return nil
}

// readPayload reads the u32 length prefix and then exactly that many
// payload bytes.
func (d *Decoder) readPayload() ([]byte, error) {
	var lb [4]byte
	if err := d.readFull(lb[:], "length"); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(lb[:])
	if size > MaxPayloadSize {
		return nil, fmt.Errorf("packet: payload size out of bounds: %v: %w", size, ErrMalformed)
	}
	if size == 0 {
		return nil, nil
	}

	payload := make([]byte, size)
	if err := d.readFull(payload, "payload"); err != nil {
		return nil, err
	}

	return payload, nil
}

// readFull reads exactly len(buf) bytes. The tag was already consumed
// at this point, so running out of input is a mid frame truncation.
func (d *Decoder) readFull(buf []byte, what string) error {
	if _, err := io.ReadFull(d.r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("packet: unable to read %v: %w", what, err)
	}

	return nil
}
