/*
@Description: feedback packet from decoder to encoder (spec §3)
@Language: Go 1.23.4
*/

package fecgo

// Ack lists the source ids the decoder has delivered or decoded since
// the previous ack, plus how many sources+repairs it received in that
// span.
type Ack struct {
	SourceIDs []uint32
	NbPackets uint16
}

// pendingAckReserve mirrors the original's m_ack.source_ids().reserve(128)
// (netcode/decoder.hh constructor) — a steady-traffic decoder's ack
// rarely needs more room than this between sends.
const pendingAckReserve = 128

// pendingAck accumulates the next ack to send: ids delivered/decoded
// since the previous ack, and a running count of packets received.
type pendingAck struct {
	sourceIDs []uint32
	nbPackets uint16
}

func newPendingAck() *pendingAck {
	return &pendingAck{sourceIDs: make([]uint32, 0, pendingAckReserve)}
}

func (p *pendingAck) addDelivered(id uint32) {
	p.sourceIDs = append(p.sourceIDs, id)
}

func (p *pendingAck) countPacket() {
	p.nbPackets++
}

func (p *pendingAck) reset() {
	p.sourceIDs = p.sourceIDs[:0]
	p.nbPackets = 0
}

func (p *pendingAck) toAck() Ack {
	ids := make([]uint32, len(p.sourceIDs))
	copy(ids, p.sourceIDs)
	return Ack{SourceIDs: ids, NbPackets: p.nbPackets}
}
