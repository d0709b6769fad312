package fecgo

import (
	"testing"

	"fecgo/galois"
)

func TestPacketizerSourceRoundTrip(t *testing.T) {
	var emitted []byte
	p := newPacketizer(func(b []byte) { emitted = append([]byte(nil), b...) })

	src := newSource(42, []byte("hello world"))
	p.writeSource(src)

	got, n, err := readSource(emitted)
	if err != nil {
		t.Fatalf("readSource: %v", err)
	}
	if n != len(emitted) {
		t.Fatalf("consumed %d, want %d", n, len(emitted))
	}
	if got.ID != src.ID || got.UserSize != src.UserSize {
		t.Fatalf("got %+v, want %+v", got, src)
	}
	if !got.Symbol.Equal(src.Symbol, int(src.UserSize)) {
		t.Fatalf("payload mismatch: got %q want %q", got.Payload(), src.Payload())
	}
}

func TestPacketizerRepairRoundTrip(t *testing.T) {
	field, err := galois.New(galois.Size8)
	if err != nil {
		t.Fatal(err)
	}

	var emitted []byte
	p := newPacketizer(func(b []byte) { emitted = append([]byte(nil), b...) })

	sources := []Source{
		newSource(1, []byte("aaaa")),
		newSource(2, []byte("bbbbbb")),
	}
	r := newRepair(field, 100, sources)
	p.writeRepair(r)

	got, n, err := readRepair(emitted)
	if err != nil {
		t.Fatalf("readRepair: %v", err)
	}
	if n != len(emitted) {
		t.Fatalf("consumed %d, want %d", n, len(emitted))
	}
	if got.ID != r.ID || len(got.SourceIDs) != len(r.SourceIDs) {
		t.Fatalf("got %+v, want %+v", got, r)
	}
	for i := range r.SourceIDs {
		if got.SourceIDs[i] != r.SourceIDs[i] {
			t.Fatalf("source id %d: got %d want %d", i, got.SourceIDs[i], r.SourceIDs[i])
		}
	}
	if !got.EncodedSymbol.Equal(r.EncodedSymbol, r.EncodedSymbol.Len()) {
		t.Fatalf("encoded symbol mismatch")
	}
	if len(got.EncodedUserSize) != len(r.EncodedUserSize) {
		t.Fatalf("encoded user size width mismatch: got %d want %d", len(got.EncodedUserSize), len(r.EncodedUserSize))
	}
}

func TestPacketizerAckRoundTrip(t *testing.T) {
	var emitted []byte
	p := newPacketizer(func(b []byte) { emitted = append([]byte(nil), b...) })

	a := Ack{SourceIDs: []uint32{3, 7, 9}, NbPackets: 12}
	p.writeAck(a)

	got, n, err := readAck(emitted)
	if err != nil {
		t.Fatalf("readAck: %v", err)
	}
	if n != len(emitted) {
		t.Fatalf("consumed %d, want %d", n, len(emitted))
	}
	if got.NbPackets != a.NbPackets || len(got.SourceIDs) != len(a.SourceIDs) {
		t.Fatalf("got %+v, want %+v", got, a)
	}
	for i := range a.SourceIDs {
		if got.SourceIDs[i] != a.SourceIDs[i] {
			t.Fatalf("id %d: got %d want %d", i, got.SourceIDs[i], a.SourceIDs[i])
		}
	}
}

func TestPacketizerTruncatedOverflows(t *testing.T) {
	var emitted []byte
	p := newPacketizer(func(b []byte) { emitted = append([]byte(nil), b...) })
	p.writeSource(newSource(1, []byte("payload")))

	_, _, err := readSource(emitted[:len(emitted)-3])
	if err == nil {
		t.Fatal("expected overflow error on truncated packet")
	}
	if _, ok := err.(*OverflowError); !ok {
		t.Fatalf("got %T, want *OverflowError", err)
	}
}

func TestPacketizerWrongTypeTag(t *testing.T) {
	var emitted []byte
	p := newPacketizer(func(b []byte) { emitted = append([]byte(nil), b...) })
	p.writeAck(Ack{SourceIDs: []uint32{1}, NbPackets: 1})

	_, _, err := readSource(emitted)
	if _, ok := err.(*PacketTypeError); !ok {
		t.Fatalf("got %T (%v), want *PacketTypeError", err, err)
	}
}
