/*
@Description: receiver-side facade wiring DecoderCore to user callbacks
@Language: Go 1.23.4
*/

package fecgo

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"fecgo/galois"
)

// Decoder is the class to interact with on the receiver side (spec §6
// "make_decoder(config, emit_fn, deliver_fn)"). It owns a decoderCore
// and the packet-type dispatch for on_incoming_packet (source/repair
// only, on this side).
type Decoder struct {
	core *decoderCore
	cfg  Configuration
	log  *zap.SugaredLogger
}

// NewDecoder builds a Decoder from cfg. emit is called to send acks,
// deliver is called once per source released to the application, in
// the order deliverReady chooses for cfg.InOrder. Both are called
// synchronously from OnIncomingPacket and must not re-enter this
// Decoder (spec §5). A nil logger disables logging.
func NewDecoder(cfg Configuration, emit func(packet []byte), deliver func(payload []byte), logger *zap.Logger) (*Decoder, error) {
	field, err := galois.New(cfg.GaloisFieldSize)
	if err != nil {
		return nil, errors.Wrap(err, "fecgo: new decoder")
	}
	return &Decoder{
		core: newDecoderCore(cfg, field, emit, deliver),
		cfg:  cfg,
		log:  sugaredOrNop(logger),
	}, nil
}

// OnIncomingPacket feeds one wire packet to the decoder and returns the
// number of bytes consumed (spec §6). Ack packets are invalid input to
// a decoder (spec §8 scenario 8) and report a PacketTypeError.
func (d *Decoder) OnIncomingPacket(packet []byte) (int, error) {
	tag, err := packetType(packet)
	if err != nil {
		return 0, err
	}
	switch tag {
	case packetTypeSource:
		s, n, err := readSource(packet)
		if err != nil {
			return 0, err
		}
		d.core.onSource(s)
		return n, nil
	case packetTypeRepair:
		r, n, err := readRepair(packet)
		if err != nil {
			return 0, err
		}
		d.core.onRepair(r)
		return n, nil
	default:
		d.log.Debugw("rejecting non source/repair packet", "tag", tag)
		return 0, newPacketTypeError("decoder only accepts source and repair packets")
	}
}

// MaybeAck emits an ack if the count threshold or the ack-frequency
// timeout has been reached since the last one (spec §6 "decoder.
// maybe_ack()"). Callers not driving their own timer should invoke
// this on every polling tick.
func (d *Decoder) MaybeAck() { d.core.maybeAck(time.Now()) }

// GenerateAck emits an ack unconditionally, regardless of the
// configured thresholds (spec §6 "decoder.generate_ack()").
func (d *Decoder) GenerateAck() { d.core.generateAck(time.Now()) }

// Stats returns a point-in-time snapshot of the decoder's counters.
func (d *Decoder) Stats() DecoderStats { return d.core.snapshot() }

// Configuration returns a copy of the decoder's current configuration.
func (d *Decoder) Configuration() Configuration { return d.cfg }
