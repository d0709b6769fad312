/*
@Description: end-to-end Encoder/Decoder scenarios (spec §8)
@Language: Go 1.23.4
*/

package fecgo

import (
	"bytes"
	"testing"
	"time"
)

// pipe wires an Encoder's emitted packets straight into a Decoder, and
// the Decoder's acks straight back into the Encoder, recording every
// delivered payload in order.
type pipe struct {
	enc       *Encoder
	dec       *Decoder
	delivered [][]byte
	dropSrc   map[uint32]bool
}

func newPipe(t *testing.T, cfg Configuration) *pipe {
	t.Helper()
	p := &pipe{dropSrc: map[uint32]bool{}}

	var err error
	p.dec, err = NewDecoder(cfg, func(ack []byte) {
		if _, err := p.enc.OnIncomingPacket(ack); err != nil {
			t.Fatalf("encoder rejected ack: %v", err)
		}
	}, func(payload []byte) {
		cp := append([]byte(nil), payload...)
		p.delivered = append(p.delivered, cp)
	}, nil)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	p.enc, err = NewEncoder(cfg, func(pkt []byte) {
		tag, _ := packetType(pkt)
		if tag == packetTypeSource {
			s, _, _ := readSource(pkt)
			if p.dropSrc[s.ID] {
				return
			}
		}
		if _, err := p.dec.OnIncomingPacket(pkt); err != nil {
			t.Fatalf("decoder rejected packet: %v", err)
		}
	}, nil)
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}
	return p
}

func TestSingleSourceNoLossIsDeliveredVerbatim(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.Rate = 100
	p := newPipe(t, cfg)

	payload := []byte("hello fecgo")
	if _, err := p.enc.Admit(payload); err != nil {
		t.Fatalf("admit: %v", err)
	}

	if len(p.delivered) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(p.delivered))
	}
	if !bytes.Equal(p.delivered[0], payload) {
		t.Fatalf("delivered %q, want %q", p.delivered[0], payload)
	}
}

func TestLostSourceRecoveredByRepair(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.Rate = 4
	cfg.Adaptive = false
	p := newPipe(t, cfg)
	p.dropSrc[1] = true

	payloads := [][]byte{[]byte("zero"), []byte("one"), []byte("two"), []byte("three")}
	for _, pl := range payloads {
		if _, err := p.enc.Admit(pl); err != nil {
			t.Fatalf("admit: %v", err)
		}
	}

	if len(p.delivered) != 4 {
		t.Fatalf("expected all 4 sources eventually delivered, got %d", len(p.delivered))
	}
	want := map[string]bool{}
	for _, pl := range payloads {
		want[string(pl)] = true
	}
	for _, got := range p.delivered {
		if !want[string(got)] {
			t.Fatalf("unexpected delivered payload %q", got)
		}
		delete(want, string(got))
	}
	if len(want) != 0 {
		t.Fatalf("missing deliveries: %v", want)
	}
}

func TestInOrderDeliveryWithReordering(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.InOrder = true
	cfg.Rate = 100
	cfg.Adaptive = false
	p := newPipe(t, cfg)

	var packets [][]byte
	enc2, err := NewEncoder(cfg, func(pkt []byte) { packets = append(packets, append([]byte(nil), pkt...)) }, nil)
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}
	payloads := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	for _, pl := range payloads {
		if _, err := enc2.Admit(pl); err != nil {
			t.Fatalf("admit: %v", err)
		}
	}
	if len(packets) < 3 {
		t.Fatalf("expected at least 3 emitted packets, got %d", len(packets))
	}

	packets[1], packets[2] = packets[2], packets[1]
	for _, pkt := range packets {
		if _, err := p.dec.OnIncomingPacket(pkt); err != nil {
			t.Fatalf("decoder rejected packet: %v", err)
		}
	}

	if len(p.delivered) != 3 {
		t.Fatalf("expected 3 in-order deliveries, got %d", len(p.delivered))
	}
	for i, pl := range payloads {
		if !bytes.Equal(p.delivered[i], pl) {
			t.Fatalf("delivery %d = %q, want %q (out of order)", i, p.delivered[i], pl)
		}
	}
}

func TestAckByCountThresholdDrainsEncoderWindow(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.Rate = 100
	cfg.AckNbPackets = 3
	cfg.AckFrequency = 0
	p := newPipe(t, cfg)

	for i := 0; i < 3; i++ {
		if _, err := p.enc.Admit([]byte{byte(i)}); err != nil {
			t.Fatalf("admit: %v", err)
		}
	}

	if got := p.enc.WindowSize(); got != 0 {
		t.Fatalf("window size after ack-triggering run = %d, want 0", got)
	}
}

func TestMaybeAckFiresOnFrequencyTimeout(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.AckNbPackets = 1000
	cfg.AckFrequency = time.Millisecond
	p := newPipe(t, cfg)

	if _, err := p.enc.Admit([]byte("x")); err != nil {
		t.Fatalf("admit: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	p.dec.MaybeAck()

	if got := p.dec.Stats().NbSentAcks; got == 0 {
		t.Fatalf("expected at least one ack sent on timeout, got %d", got)
	}
}

func TestDecoderRejectsAckPacket(t *testing.T) {
	cfg := DefaultConfiguration()
	dec, err := NewDecoder(cfg, func([]byte) {}, func([]byte) {}, nil)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	ackPkt := encodeAck(Ack{SourceIDs: []uint32{1, 2}, NbPackets: 2})
	if _, err := dec.OnIncomingPacket(ackPkt); err == nil {
		t.Fatal("expected PacketTypeError, got nil")
	} else if _, ok := err.(*PacketTypeError); !ok {
		t.Fatalf("expected *PacketTypeError, got %T", err)
	}
}

func TestEncoderRejectsSourcePacket(t *testing.T) {
	cfg := DefaultConfiguration()
	enc, err := NewEncoder(cfg, func([]byte) {}, nil)
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}
	srcPkt := encodeSource(newSource(0, []byte("x")))
	if _, err := enc.OnIncomingPacket(srcPkt); err == nil {
		t.Fatal("expected PacketTypeError, got nil")
	} else if _, ok := err.(*PacketTypeError); !ok {
		t.Fatalf("expected *PacketTypeError, got %T", err)
	}
}

func TestNonSystematicRateFourSurvivesOneRepairLoss(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.CodeType = NonSystematic
	cfg.Rate = 4
	cfg.Adaptive = false
	cfg.InOrder = false

	var packets [][]byte
	enc, err := NewEncoder(cfg, func(pkt []byte) { packets = append(packets, append([]byte(nil), pkt...)) }, nil)
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}

	payloads := [][]byte{[]byte("s0"), []byte("s1"), []byte("s2"), []byte("s3")}
	for _, pl := range payloads {
		if _, err := enc.Admit(pl); err != nil {
			t.Fatalf("admit: %v", err)
		}
	}

	// spec §8 scenario 6: admitting 4 sources at rate 4 in non-systematic
	// mode must emit rate+1 = 5 repairs, no sources at all.
	if len(packets) != 5 {
		t.Fatalf("expected 5 emitted repairs, got %d", len(packets))
	}
	for _, pkt := range packets {
		if tag, _ := packetType(pkt); tag != packetTypeRepair {
			t.Fatalf("non-systematic mode emitted a non-repair packet (tag %d)", tag)
		}
	}

	var delivered [][]byte
	dec, err := NewDecoder(cfg, func([]byte) {}, func(payload []byte) {
		delivered = append(delivered, append([]byte(nil), payload...))
	}, nil)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	// Drop exactly one of the 5 repairs; the remaining 4 must still be
	// enough to fully reconstruct all 4 sources.
	dropped := packets[2]
	for _, pkt := range packets {
		if bytes.Equal(pkt, dropped) {
			continue
		}
		if _, err := dec.OnIncomingPacket(pkt); err != nil {
			t.Fatalf("decoder rejected packet: %v", err)
		}
	}

	if got := dec.Stats().NbDecoded; got != 4 {
		t.Fatalf("NbDecoded = %d, want 4", got)
	}
	if len(delivered) != 4 {
		t.Fatalf("expected 4 deliveries, got %d", len(delivered))
	}
	want := map[string]bool{}
	for _, pl := range payloads {
		want[string(pl)] = true
	}
	for _, got := range delivered {
		if !want[string(got)] {
			t.Fatalf("unexpected delivered payload %q", got)
		}
		delete(want, string(got))
	}
	if len(want) != 0 {
		t.Fatalf("missing deliveries: %v", want)
	}
}

func TestNonSystematicDeliveryOnlyViaRepair(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.CodeType = NonSystematic
	cfg.Rate = 1
	cfg.Adaptive = false
	p := newPipe(t, cfg)

	payloads := [][]byte{[]byte("p0"), []byte("p1"), []byte("p2")}
	for _, pl := range payloads {
		if _, err := p.enc.Admit(pl); err != nil {
			t.Fatalf("admit: %v", err)
		}
	}

	if len(p.delivered) != 3 {
		t.Fatalf("expected 3 deliveries via repair decode, got %d", len(p.delivered))
	}
}
