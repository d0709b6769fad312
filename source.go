/*
@Description: source packet (spec §3)
@Language: Go 1.23.4
*/

package fecgo

// Source is a single application payload, framed for transmission
// (encoder side) or reconstructed/received (decoder side). Unlike the
// original's encoder_source/decoder_source split (netcode/detail/source.hh),
// Go has no move-only ownership distinction to model, so one type
// serves both roles — whichever of encoderCore/decoderCore holds it
// in its map is its sole owner (spec §3 "Ownership").
type Source struct {
	ID       uint32
	Symbol   SymbolBuffer
	UserSize uint16
}

// newSource builds a Source from raw application bytes, aligning the
// symbol buffer and recording how many of its bytes are meaningful.
func newSource(id uint32, data []byte) Source {
	return Source{
		ID:       id,
		Symbol:   NewSymbolBufferCopy(data),
		UserSize: uint16(len(data)),
	}
}

// Payload returns the meaningful (non-padding) prefix of the symbol.
// UserSize is clamped to the symbol's own length: a decoded source
// whose UserSize was recovered from a corrupted encoded_user_size
// field could otherwise exceed the symbol and panic on the slice.
func (s Source) Payload() []byte {
	n := int(s.UserSize)
	if n > s.Symbol.Len() {
		n = s.Symbol.Len()
	}
	return s.Symbol.Bytes()[:n]
}
