/*
@Description: wire framing for source/repair/ack packets (spec §4.6)
@Language: Go 1.23.4
*/

package fecgo

import (
	"bytes"
	"encoding/binary"
)

// Wire packet type tags (spec §4.6). Chosen to match spec.md's own
// table verbatim.
const (
	packetTypeSource byte = 0x01
	packetTypeRepair byte = 0x02
	packetTypeAck    byte = 0x03
)

// Integers on the wire are fixed little-endian, matching the teacher's
// own framing convention (fec.go's sealData/sealParity use
// binary.LittleEndian) — spec §4.6 asks only for "a fixed (e.g.
// network-byte-order) format", not a specific one; see SPEC_FULL.md §5.
var byteOrder = binary.LittleEndian

// emitFunc is the "emit bytes to the wire" callback spec §1/§6 names.
// Buffers passed to it are only valid for the duration of the call
// (spec §5); callers that need to retain them must copy.
type emitFunc func([]byte)

// deliverFunc is the "deliver a decoded source to the application"
// callback. payload is only valid for the duration of the call.
type deliverFunc func(payload []byte)

// packetizer serializes outgoing packets to an emit callback. Reading
// is stateless (readSource/readRepair/readAck below), since parsing
// doesn't need anything beyond the bytes themselves.
type packetizer struct {
	emit emitFunc
}

func newPacketizer(emit emitFunc) *packetizer {
	return &packetizer{emit: emit}
}

func (p *packetizer) writeSource(s Source) {
	p.emit(encodeSource(s))
}

func (p *packetizer) writeRepair(r Repair) {
	p.emit(encodeRepair(r))
}

func (p *packetizer) writeAck(a Ack) {
	p.emit(encodeAck(a))
}

func encodeSource(s Source) []byte {
	symbol := s.Symbol.Bytes()
	buf := bytes.NewBuffer(make([]byte, 0, 1+4+2+2+len(symbol)))
	buf.WriteByte(packetTypeSource)
	writeUint32(buf, s.ID)
	writeUint16(buf, uint16(len(symbol)))
	writeUint16(buf, s.UserSize)
	buf.Write(symbol)
	return buf.Bytes()
}

func encodeRepair(r Repair) []byte {
	symbol := r.EncodedSymbol.Bytes()
	userSize := r.EncodedUserSize
	size := 1 + 4 + 2 + 4*len(r.SourceIDs) + 2 + len(userSize) + 2 + len(symbol)
	buf := bytes.NewBuffer(make([]byte, 0, size))
	buf.WriteByte(packetTypeRepair)
	writeUint32(buf, r.ID)
	writeUint16(buf, uint16(len(r.SourceIDs)))
	for _, id := range r.SourceIDs {
		writeUint32(buf, id)
	}
	writeUint16(buf, uint16(len(userSize)))
	buf.Write(userSize)
	writeUint16(buf, uint16(len(symbol)))
	buf.Write(symbol)
	return buf.Bytes()
}

func encodeAck(a Ack) []byte {
	size := 1 + 2 + 4*len(a.SourceIDs) + 2
	buf := bytes.NewBuffer(make([]byte, 0, size))
	buf.WriteByte(packetTypeAck)
	writeUint16(buf, uint16(len(a.SourceIDs)))
	for _, id := range a.SourceIDs {
		writeUint32(buf, id)
	}
	writeUint16(buf, a.NbPackets)
	return buf.Bytes()
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	byteOrder.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	buf.Write(b[:])
}

// packetType returns the leading type tag of data, without consuming
// anything, per spec §4.6.
func packetType(data []byte) (byte, error) {
	if len(data) < 1 {
		return 0, newOverflowError("empty packet")
	}
	return data[0], nil
}

// cursor is a small bounds-checked reader over a byte slice, used by
// the read* functions below to turn "ran past the buffer" into
// OverflowError instead of a panic.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) byte() (byte, error) {
	if c.pos+1 > len(c.data) {
		return 0, newOverflowError("truncated packet")
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) uint16() (uint16, error) {
	if c.pos+2 > len(c.data) {
		return 0, newOverflowError("truncated packet")
	}
	v := byteOrder.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) uint32() (uint32, error) {
	if c.pos+4 > len(c.data) {
		return 0, newOverflowError("truncated packet")
	}
	v := byteOrder.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.data) {
		return nil, newOverflowError("truncated packet")
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// readSource parses a source packet from data (which must begin at the
// type tag) and returns it plus the number of bytes consumed.
func readSource(data []byte) (Source, int, error) {
	c := &cursor{data: data}
	tag, err := c.byte()
	if err != nil {
		return Source{}, 0, err
	}
	if tag != packetTypeSource {
		return Source{}, 0, newPacketTypeError("expected source packet")
	}
	id, err := c.uint32()
	if err != nil {
		return Source{}, 0, err
	}
	usedLen, err := c.uint16()
	if err != nil {
		return Source{}, 0, err
	}
	userSize, err := c.uint16()
	if err != nil {
		return Source{}, 0, err
	}
	symbol, err := c.bytes(int(usedLen))
	if err != nil {
		return Source{}, 0, err
	}
	return Source{ID: id, Symbol: NewSymbolBufferCopy(symbol), UserSize: userSize}, c.pos, nil
}

// readRepair parses a repair packet.
func readRepair(data []byte) (Repair, int, error) {
	c := &cursor{data: data}
	tag, err := c.byte()
	if err != nil {
		return Repair{}, 0, err
	}
	if tag != packetTypeRepair {
		return Repair{}, 0, newPacketTypeError("expected repair packet")
	}
	id, err := c.uint32()
	if err != nil {
		return Repair{}, 0, err
	}
	nbIDs, err := c.uint16()
	if err != nil {
		return Repair{}, 0, err
	}
	ids := make([]uint32, nbIDs)
	for i := range ids {
		v, err := c.uint32()
		if err != nil {
			return Repair{}, 0, err
		}
		ids[i] = v
	}
	usWidth, err := c.uint16()
	if err != nil {
		return Repair{}, 0, err
	}
	usBytes, err := c.bytes(int(usWidth))
	if err != nil {
		return Repair{}, 0, err
	}
	symLen, err := c.uint16()
	if err != nil {
		return Repair{}, 0, err
	}
	symBytes, err := c.bytes(int(symLen))
	if err != nil {
		return Repair{}, 0, err
	}
	usCopy := make([]byte, len(usBytes))
	copy(usCopy, usBytes)
	r := Repair{
		ID:              id,
		SourceIDs:       ids,
		EncodedSymbol:   NewSymbolBufferCopy(symBytes),
		EncodedUserSize: usCopy,
	}
	return r, c.pos, nil
}

// readAck parses an ack packet.
func readAck(data []byte) (Ack, int, error) {
	c := &cursor{data: data}
	tag, err := c.byte()
	if err != nil {
		return Ack{}, 0, err
	}
	if tag != packetTypeAck {
		return Ack{}, 0, newPacketTypeError("expected ack packet")
	}
	nbIDs, err := c.uint16()
	if err != nil {
		return Ack{}, 0, err
	}
	ids := make([]uint32, nbIDs)
	for i := range ids {
		v, err := c.uint32()
		if err != nil {
			return Ack{}, 0, err
		}
		ids[i] = v
	}
	nbPackets, err := c.uint16()
	if err != nil {
		return Ack{}, 0, err
	}
	return Ack{SourceIDs: ids, NbPackets: nbPackets}, c.pos, nil
}
