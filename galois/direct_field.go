/*
@Description: table-free GF(2^16) and GF(2^32) arithmetic
@Language: Go 1.23.4
*/

package galois

import "encoding/binary"

// directField implements Field for the wide fields (16 and 32 bits)
// where a full log/antilog table is impractical (2^32 entries) or
// would need an unverified generator (2^16). Multiplication is
// carry-less polynomial multiplication modulo the field's irreducible
// polynomial; inversion is exponentiation by order-2 (valid in any
// finite field, regardless of whether 2 happens to be a primitive
// root) — the "carryless-multiplication primitive" spec §4.1 allows
// for m=32, used here for m=16 as well to avoid relying on an
// unverified generator for a 65536-entry table.
type directField struct {
	size  Size
	bits  int
	mod   uint64
	order uint64
}

func newDirectField(size Size) *directField {
	return &directField{
		size:  size,
		bits:  int(size),
		mod:   modLow[size],
		order: uint64(1) << uint(size),
	}
}

func (f *directField) Size() Size    { return f.size }
func (f *directField) Order() uint64 { return f.order }

func (f *directField) Mul(a, b uint32) uint32 {
	return uint32(polyMultiply(uint64(a), uint64(b), f.bits, f.mod))
}

func (f *directField) Inv(a uint32) (uint32, error) {
	if a == 0 {
		return 0, errInvZero
	}
	return uint32(polyPow(uint64(a), f.order-2, f.bits, f.mod)), nil
}

func (f *directField) Div(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, errDivByZero
	}
	if a == 0 {
		return 0, nil
	}
	inv, err := f.Inv(b)
	if err != nil {
		return 0, err
	}
	return f.Mul(a, inv), nil
}

func (f *directField) MultiplyAdd(dst []byte, coef uint32, src []byte) error {
	if err := checkLength(f.size, len(dst)); err != nil {
		return err
	}
	if coef == 0 {
		return nil
	}

	lane := laneBytes(f.size)
	for i := 0; i < len(dst); i += lane {
		var se uint32
		if i+lane <= len(src) {
			se = uint32(readLane(src[i:i+lane], lane))
		} else if i < len(src) {
			var buf [4]byte
			copy(buf[:], src[i:])
			se = uint32(readLane(buf[:lane], lane))
		}
		if se == 0 {
			continue
		}
		de := uint32(readLane(dst[i:i+lane], lane)) ^ f.Mul(coef, se)
		writeLane(dst[i:i+lane], lane, de)
	}
	return nil
}

func readLane(b []byte, lane int) uint64 {
	switch lane {
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return 0
	}
}

func writeLane(b []byte, lane int, v uint32) {
	switch lane {
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, v)
	}
}
