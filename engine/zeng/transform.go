package zeng

import "encoding/binary"

// Delta coding for numeric payloads: each element is replaced by its
// wrapping difference from the previous one, little-endian per element.
// Monotonic sequences (timestamps, offsets) become near-constant, which the
// block encoder then collapses.

func deltaEncode(src []byte, width int) []byte {
	dst := make([]byte, len(src))
	var prev uint64
	for i := 0; i+width <= len(src); i += width {
		v := readElt(src[i:], width)
		putElt(dst[i:], width, v-prev)
		prev = v
	}
	return dst
}

func deltaDecode(src []byte, width int) []byte {
	dst := make([]byte, len(src))
	var acc uint64
	for i := 0; i+width <= len(src); i += width {
		acc += readElt(src[i:], width)
		putElt(dst[i:], width, acc)
	}
	return dst
}

func readElt(b []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func putElt(b []byte, width int, v uint64) {
	switch width {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}

func packLengths(lengths []uint32) []byte {
	out := make([]byte, len(lengths)*4)
	for i, n := range lengths {
		binary.LittleEndian.PutUint32(out[i*4:], n)
	}
	return out
}

func unpackLengths(raw []byte) []uint32 {
	out := make([]uint32, len(raw)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return out
}
