/*
@Description: sender-side state: admission, window, repair generation, adaptivity
@Language: Go 1.23.4
*/

package fecgo

import (
	"math"
	"sync/atomic"

	"fecgo/galois"
)

// adaptiveAlpha is the EWMA smoothing constant for the loss estimator
// (spec §9 "Adaptive rate estimator": "implementers should choose an
// EWMA with α ≈ 0.25 and document it"; resolved in SPEC_FULL.md §5).
const adaptiveAlpha = 0.25

// encoderCore is the sender-side half of the codec (spec §4.4):
// source admission, window retention, repair generation and, if
// enabled, loss-adaptive rate control from ack feedback.
type encoderCore struct {
	field galois.Field
	cfg   Configuration
	win   *window
	pk    *packetizer

	currentSourceID uint32
	currentRepairID uint32

	rateCounter   uint
	effectiveRate uint
	lossEWMA      float64
	sentSinceAck  uint64

	// nbAdmitted and nbGeneratedRepairs are mutated only from the I/O
	// thread (spec §5) but read from Stats()/the Prometheus collector,
	// which may run on another goroutine; atomic access keeps that read
	// race-free without taking a lock on the hot path, the same trade
	// the teacher's Snmp counters make (snmp.go).
	nbAdmitted         uint64
	nbGeneratedRepairs uint64
}

func newEncoderCore(cfg Configuration, field galois.Field, emit emitFunc) *encoderCore {
	return &encoderCore{
		field:         field,
		cfg:           cfg,
		win:           newWindow(cfg.effectiveWindow()),
		pk:            newPacketizer(emit),
		effectiveRate: cfg.Rate,
	}
}

// admit assigns the next source id to data, retains it in the window,
// optionally emits it (systematic code), and emits a repair once the
// rate counter reaches the effective rate (spec §4.4 step 1).
func (e *encoderCore) admit(data []byte) (uint32, error) {
	src := newSource(e.currentSourceID, data)

	// Validate the aligned buffer against the field's lane width before
	// committing any state (spec §4.4: "admission ... fails with
	// InvalidLength"). SymbolBuffer's 16-byte alignment already
	// satisfies every field's lane width, so this is a defensive
	// check rather than one expected to ever trip in practice.
	probe := make([]byte, src.Symbol.Len())
	if err := e.field.MultiplyAdd(probe, 1, src.Symbol.Bytes()); err != nil {
		return 0, wrapFieldError(err)
	}

	e.currentSourceID++
	atomic.AddUint64(&e.nbAdmitted, 1)
	e.win.admit(src)

	if e.cfg.CodeType == Systematic {
		e.pk.writeSource(src)
		e.sentSinceAck++
	}

	e.rateCounter++
	if e.rateCounter >= e.effectiveRate {
		// Systematic mode already sent each of these sources verbatim,
		// so one repair is one spare equation on top of rate already-
		// known values: a single repair per group suffices. Non-
		// systematic mode never sends a source directly, so a group of
		// `rate` unknowns needs at least `rate` independent equations
		// to ever reach full rank, and one more to survive the loss of
		// any single repair (spec §8 scenario 6: admitting 4 sources at
		// rate 4 in non-systematic mode emits 5 repairs, any 4 of which
		// must fully reconstruct the group). Each call below mints a
		// fresh currentRepairID, which — via Coefficient(repairID,
		// sourceID) — gives every repair in the group its own
		// coefficient vector over the same sources.
		nbRepairs := uint(1)
		if e.cfg.CodeType == NonSystematic {
			nbRepairs = e.effectiveRate + 1
		}
		for i := uint(0); i < nbRepairs; i++ {
			e.generateRepair()
		}
		e.rateCounter = 0
	}
	return src.ID, nil
}

// generateRepair folds the last min(effectiveRate, window size)
// admitted sources into a new repair and emits it (spec §4.4 step 2).
func (e *encoderCore) generateRepair() {
	n := e.effectiveRate
	if uint(e.win.size()) < n {
		n = uint(e.win.size())
	}
	if n == 0 {
		return
	}
	sources := e.win.lastN(int(n))
	r := newRepair(e.field, e.currentRepairID, sources)
	e.currentRepairID++
	atomic.AddUint64(&e.nbGeneratedRepairs, 1)
	e.pk.writeRepair(r)
	e.sentSinceAck++
}

// onAck removes acknowledged ids from the window and, if adaptive,
// re-estimates the loss rate and effective repair rate (spec §4.4 step
// 3). Ids the encoder never admitted are silently ignored (spec §9
// open question).
func (e *encoderCore) onAck(a Ack) {
	for _, id := range a.SourceIDs {
		e.win.remove(id)
	}
	if e.cfg.Adaptive {
		e.updateAdaptiveRate(a.NbPackets)
	}
	e.sentSinceAck = 0
}

// updateAdaptiveRate folds the observed loss rate since the previous
// ack into an EWMA, then maps it onto an effective rate clamped to
// [1, configured rate] — loss 0 keeps the configured rate, loss 1
// collapses to rate 1 (maximum redundancy), per spec §9.
func (e *encoderCore) updateAdaptiveRate(nbReceived uint16) {
	var lossRate float64
	if e.sentSinceAck > 0 {
		received := float64(nbReceived)
		if received > float64(e.sentSinceAck) {
			received = float64(e.sentSinceAck)
		}
		lossRate = 1 - received/float64(e.sentSinceAck)
	}
	e.lossEWMA = adaptiveAlpha*lossRate + (1-adaptiveAlpha)*e.lossEWMA

	rate := float64(e.cfg.Rate)
	effective := math.Round(rate - e.lossEWMA*(rate-1))
	if effective < 1 {
		effective = 1
	} else if effective > rate {
		effective = rate
	}
	e.effectiveRate = uint(effective)
}

func (e *encoderCore) windowSize() uint { return uint(e.win.size()) }
