/*
@Description: sender-side facade wiring EncoderCore to user callbacks
@Language: Go 1.23.4
*/

package fecgo

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"fecgo/galois"
)

// Encoder is the class to interact with on the sender side (spec §6
// "make_encoder(config, emit_fn)"). It owns an encoderCore and the
// packet-type dispatch for on_incoming_packet (acks only, on this
// side).
type Encoder struct {
	core *encoderCore
	cfg  Configuration
	log  *zap.SugaredLogger
}

// NewEncoder builds an Encoder from cfg, emitting wire bytes via emit.
// emit is called synchronously during Admit/OnIncomingPacket and must
// not re-enter this Encoder (spec §5). A nil logger disables logging.
func NewEncoder(cfg Configuration, emit func(packet []byte), logger *zap.Logger) (*Encoder, error) {
	field, err := galois.New(cfg.GaloisFieldSize)
	if err != nil {
		return nil, errors.Wrap(err, "fecgo: new encoder")
	}
	return &Encoder{
		core: newEncoderCore(cfg, field, emit),
		cfg:  cfg,
		log:  sugaredOrNop(logger),
	}, nil
}

// Admit assigns the next source id to data, retains it in the window
// and emits it (if systematic) and any repair the rate threshold now
// triggers (spec §4.4 step 1). It returns the assigned source id.
func (e *Encoder) Admit(data []byte) (uint32, error) {
	id, err := e.core.admit(data)
	if err != nil {
		e.log.Debugw("admit rejected", "error", err)
		return 0, err
	}
	return id, nil
}

// OnIncomingPacket feeds one wire packet (expected to be an ack) to the
// encoder and returns the number of bytes consumed (spec §6). Any
// packet type other than ack is a PacketTypeError, since an encoder
// never expects to receive sources or repairs.
func (e *Encoder) OnIncomingPacket(packet []byte) (int, error) {
	tag, err := packetType(packet)
	if err != nil {
		return 0, err
	}
	if tag != packetTypeAck {
		return 0, newPacketTypeError("encoder only accepts ack packets")
	}
	ack, n, err := readAck(packet)
	if err != nil {
		return 0, err
	}
	e.core.onAck(ack)
	return n, nil
}

// WindowSize returns the encoder's current window occupancy.
func (e *Encoder) WindowSize() uint { return e.core.windowSize() }

// Stats returns a point-in-time snapshot of the encoder's counters.
func (e *Encoder) Stats() EncoderStats { return e.core.snapshot() }

// Configuration returns a copy of the encoder's current configuration.
func (e *Encoder) Configuration() Configuration { return e.cfg }

// SetRate changes the configured (non-adaptive baseline) repair rate.
// Only takes effect on the next generate_repair threshold check.
func (e *Encoder) SetRate(rate uint) {
	e.cfg.Rate = rate
	e.core.cfg.Rate = rate
	if !e.cfg.Adaptive {
		e.core.effectiveRate = rate
	}
}

// SetAdaptive toggles loss-adaptive rate control.
func (e *Encoder) SetAdaptive(adaptive bool) {
	e.cfg.Adaptive = adaptive
	e.core.cfg.Adaptive = adaptive
	if !adaptive {
		e.core.effectiveRate = e.cfg.Rate
	}
}
