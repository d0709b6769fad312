/*
@Description: repair packet: a GF linear combination of sources (spec §3)
@Language: Go 1.23.4
*/

package fecgo

import (
	"encoding/binary"
	"sort"

	"fecgo/galois"
)

// userSizeBufLen returns how many bytes are needed to hold an encoded
// user_size combination while satisfying the field's lane-alignment
// requirement (spec §4.1): 2 bytes is enough to carry a uint16 for
// every field except GF(2^32), which needs a 4-byte lane.
func userSizeBufLen(size galois.Size) int {
	if size == galois.Size32 {
		return 4
	}
	return 2
}

// Repair is an encoded linear combination of a bounded set of sources
// (spec §3). SourceIDs is kept sorted ascending; the encoder builds it
// that way, and the decoder preserves the invariant as it removes ids
// whose contribution has been subtracted out.
type Repair struct {
	ID              uint32
	SourceIDs       []uint32
	EncodedSymbol   SymbolBuffer
	EncodedUserSize []byte // fixed width per userSizeBufLen, NOT 16-byte aligned
}

// newRepair builds a repair packet covering sources (which need not
// already be sorted by id) by folding each source's contribution,
// scaled by Coefficient(field, repairID, source.ID), into a running
// sum — spec §4.4 step 2 (generate_repair).
func newRepair(field galois.Field, repairID uint32, sources []Source) Repair {
	ids := make([]uint32, len(sources))
	for i, s := range sources {
		ids[i] = s.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	maxLen := 0
	for _, s := range sources {
		if s.Symbol.Len() > maxLen {
			maxLen = s.Symbol.Len()
		}
	}

	r := Repair{
		ID:              repairID,
		SourceIDs:       ids,
		EncodedSymbol:   NewSymbolBuffer(maxLen),
		EncodedUserSize: make([]byte, userSizeBufLen(field.Size())),
	}

	for _, s := range sources {
		r.addContribution(field, s)
	}
	return r
}

// addContribution folds one source's symbol (and user_size) into the
// repair, scaled by coefficient(repair.ID, source.ID). Because the
// field has characteristic 2, folding a contribution in and folding it
// back out are the same XOR-based operation — this method is used both
// when building a repair and when the decoder subtracts a known
// source's contribution from a retained repair (spec §4.5 step 1.d).
func (r *Repair) addContribution(field galois.Field, s Source) error {
	coef := galois.Coefficient(field, r.ID, s.ID)

	if r.EncodedSymbol.Len() < s.Symbol.Len() {
		r.EncodedSymbol.Resize(s.Symbol.Len())
	}
	if err := field.MultiplyAdd(r.EncodedSymbol.Bytes(), coef, s.Symbol.Bytes()); err != nil {
		return err
	}

	var usBuf [4]byte
	binary.LittleEndian.PutUint16(usBuf[:2], s.UserSize)
	n := len(r.EncodedUserSize)
	return field.MultiplyAdd(r.EncodedUserSize, coef, usBuf[:n])
}

// removeSourceID removes id from SourceIDs in place, preserving order.
// It's a no-op if id isn't present.
func (r *Repair) removeSourceID(id uint32) {
	for i, sid := range r.SourceIDs {
		if sid == id {
			r.SourceIDs = append(r.SourceIDs[:i], r.SourceIDs[i+1:]...)
			return
		}
	}
}

// hasSourceID reports whether id is still a remaining reference.
func (r Repair) hasSourceID(id uint32) bool {
	for _, sid := range r.SourceIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// maxSourceID returns the largest id this repair still references (for
// outdating checks), and false if it references none.
func (r Repair) maxSourceID() (uint32, bool) {
	if len(r.SourceIDs) == 0 {
		return 0, false
	}
	return r.SourceIDs[len(r.SourceIDs)-1], true
}

// decodeSource reconstructs the single remaining source this repair
// references, given the repair references exactly one id (spec §4.5
// step 2.e): symbol = encoded_symbol * coefficient(repair.ID, id)^-1.
func (r Repair) decodeSource(field galois.Field) (Source, error) {
	id := r.SourceIDs[0]
	coef := galois.Coefficient(field, r.ID, id)
	inv, err := field.Inv(coef)
	if err != nil {
		return Source{}, err
	}

	symbol := r.EncodedSymbol.Clone()
	if err := scaleBuffer(field, symbol.Bytes(), inv); err != nil {
		return Source{}, err
	}

	usBuf := make([]byte, len(r.EncodedUserSize))
	copy(usBuf, r.EncodedUserSize)
	if err := scaleBuffer(field, usBuf, inv); err != nil {
		return Source{}, err
	}
	userSize := binary.LittleEndian.Uint16(usBuf[:2])

	// The symbol is returned at the repair's full length, which may
	// exceed the source's own (the repair was sized to the longest of
	// all its contributors); the extra bytes are zero and Payload()
	// cuts them off via the decoded UserSize.
	return Source{ID: id, Symbol: symbol, UserSize: userSize}, nil
}

// scaleBuffer multiplies every element of buf by coef in place: it is
// MultiplyAdd against a zeroed destination, then swapped back in,
// since the field interface only exposes accumulate-style mixing.
func scaleBuffer(field galois.Field, buf []byte, coef uint32) error {
	scratch := make([]byte, len(buf))
	if err := field.MultiplyAdd(scratch, coef, buf); err != nil {
		return err
	}
	copy(buf, scratch)
	return nil
}
