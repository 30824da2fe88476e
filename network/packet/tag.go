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

import "fmt"

// Tag is the one byte discriminant written at the beginning of each
// frame. The tag table below is part of the wire contract, version 1:
// both endpoints have to be built against the same table, as a mismatch
// is only detectable as a malformed packet on the receiving side.
type Tag byte

// The complete tag table. Do not reorder: the values are wire data.
const (
	TagBool   Tag = 0x00
	TagI8     Tag = 0x01
	TagI16    Tag = 0x02
	TagI32    Tag = 0x03
	TagI64    Tag = 0x04
	TagU8     Tag = 0x05
	TagU16    Tag = 0x06
	TagU32    Tag = 0x07
	TagU64    Tag = 0x08
	TagF32    Tag = 0x09
	TagF64    Tag = 0x0a
	TagString Tag = 0x0b
	TagBytes  Tag = 0x0c
	TagCustom Tag = 0xff
)

var tagNames = map[Tag]string{
	TagBool:   "Bool",
	TagI8:     "I8",
	TagI16:    "I16",
	TagI32:    "I32",
	TagI64:    "I64",
	TagU8:     "U8",
	TagU16:    "U16",
	TagU32:    "U32",
	TagU64:    "U64",
	TagF32:    "F32",
	TagF64:    "F64",
	TagString: "String",
	TagBytes:  "Bytes",
	TagCustom: "Custom",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}

	return fmt.Sprintf("Tag(0x%02x)", byte(t))
}

// bodySize returns the fixed byte width of t's frame body, or -1 when
// the body is variable length and carries its own length prefix.
func (t Tag) bodySize() int {
	switch t {
	case TagBool, TagI8, TagU8:
		return 1
	case TagI16, TagU16:
		return 2
	case TagI32, TagU32, TagF32:
		return 4
	case TagI64, TagU64, TagF64:
		return 8
	default:
		return -1
	}
}

func validTag(t Tag) bool {
	_, ok := tagNames[t]
	return ok
}
